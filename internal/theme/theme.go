package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds every style the UI renders with. Views never construct styles
// inline so a loaded theme file can restyle the whole program.
type Theme struct {
	AppFrame  lipgloss.Style
	Header    lipgloss.Style
	StatusBar lipgloss.Style

	URLBar        lipgloss.Style
	URLBarFocused lipgloss.Style
	URLBarLabel   lipgloss.Style

	StatusConnecting lipgloss.Style
	StatusOpen       lipgloss.Style
	StatusClosing    lipgloss.Style
	StatusClosed     lipgloss.Style
	StatusFailed     lipgloss.Style

	StreamTimestamp lipgloss.Style
	StreamSend      lipgloss.Style
	StreamReceive   lipgloss.Style
	StreamInfo      lipgloss.Style
	StreamBinary    lipgloss.Style
	StreamError     lipgloss.Style

	SidebarBorder        lipgloss.Style
	RequestTitle         lipgloss.Style
	RequestTitleSelected lipgloss.Style
	RequestSubtitle      lipgloss.Style

	ModalFrame   lipgloss.Style
	ModalTitle   lipgloss.Style
	ModalBody    lipgloss.Style
	Notification lipgloss.Style
	Error        lipgloss.Style
	Success      lipgloss.Style

	HelpKey  lipgloss.Style
	HelpText lipgloss.Style

	ChromaStyle string
}

// Palette is the raw color set a theme file can override.
type Palette struct {
	Accent     string `json:"accent"      toml:"accent"`
	Border     string `json:"border"      toml:"border"`
	Muted      string `json:"muted"       toml:"muted"`
	Text       string `json:"text"        toml:"text"`
	Send       string `json:"send"        toml:"send"`
	Receive    string `json:"receive"     toml:"receive"`
	Info       string `json:"info"        toml:"info"`
	Error      string `json:"error"       toml:"error"`
	Success    string `json:"success"     toml:"success"`
	Warning    string `json:"warning"     toml:"warning"`
	Chroma     string `json:"chroma"      toml:"chroma"`
	Background string `json:"background"  toml:"background"`
}

func DefaultPalette() Palette {
	return Palette{
		Accent:  "#7D56F4",
		Border:  "#3C3C3C",
		Muted:   "#6B6B6B",
		Text:    "#DDDDDD",
		Send:    "#F2C14E",
		Receive: "#5FD068",
		Info:    "#56B6C2",
		Error:   "#E06C75",
		Success: "#98C379",
		Warning: "#E5C07B",
		Chroma:  "monokai",
	}
}

// Build renders a Theme from a palette. Missing colors fall back to the
// default palette so partial theme files stay usable.
func Build(p Palette) Theme {
	def := DefaultPalette()
	pick := func(v, fallback string) lipgloss.Color {
		if v == "" {
			return lipgloss.Color(fallback)
		}
		return lipgloss.Color(v)
	}

	accent := pick(p.Accent, def.Accent)
	border := pick(p.Border, def.Border)
	muted := pick(p.Muted, def.Muted)
	text := pick(p.Text, def.Text)
	send := pick(p.Send, def.Send)
	receive := pick(p.Receive, def.Receive)
	info := pick(p.Info, def.Info)
	errColor := pick(p.Error, def.Error)
	success := pick(p.Success, def.Success)
	warning := pick(p.Warning, def.Warning)

	chroma := p.Chroma
	if chroma == "" {
		chroma = def.Chroma
	}

	return Theme{
		AppFrame:  lipgloss.NewStyle(),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		StatusBar: lipgloss.NewStyle().Foreground(muted),

		URLBar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		URLBarFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		URLBarLabel: lipgloss.NewStyle().Bold(true).Foreground(muted),

		StatusConnecting: lipgloss.NewStyle().Foreground(warning),
		StatusOpen:       lipgloss.NewStyle().Bold(true).Foreground(success),
		StatusClosing:    lipgloss.NewStyle().Foreground(warning),
		StatusClosed:     lipgloss.NewStyle().Foreground(muted),
		StatusFailed:     lipgloss.NewStyle().Bold(true).Foreground(errColor),

		StreamTimestamp: lipgloss.NewStyle().Foreground(muted),
		StreamSend:      lipgloss.NewStyle().Bold(true).Foreground(send),
		StreamReceive:   lipgloss.NewStyle().Bold(true).Foreground(receive),
		StreamInfo:      lipgloss.NewStyle().Foreground(info),
		StreamBinary:    lipgloss.NewStyle().Italic(true).Foreground(muted),
		StreamError:     lipgloss.NewStyle().Foreground(errColor),

		SidebarBorder: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(border),
		RequestTitle:         lipgloss.NewStyle().Foreground(text),
		RequestTitleSelected: lipgloss.NewStyle().Bold(true).Foreground(accent),
		RequestSubtitle:      lipgloss.NewStyle().Foreground(muted),

		ModalFrame: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(errColor).
			Padding(1, 2),
		ModalTitle:   lipgloss.NewStyle().Bold(true).Foreground(errColor),
		ModalBody:    lipgloss.NewStyle().Foreground(text),
		Notification: lipgloss.NewStyle().Foreground(info),
		Error:        lipgloss.NewStyle().Foreground(errColor),
		Success:      lipgloss.NewStyle().Foreground(success),

		HelpKey:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		HelpText: lipgloss.NewStyle().Foreground(muted),

		ChromaStyle: chroma,
	}
}

func Default() Theme {
	return Build(DefaultPalette())
}
