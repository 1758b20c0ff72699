package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/wsterm/internal/bindings"
	"github.com/unkn0wn-root/wsterm/internal/config"
	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/history"
	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/theme"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
	"github.com/unkn0wn-root/wsterm/internal/wsfile"
)

const defaultMaxLogEvents = 500

type focusArea int

const (
	focusURL focusArea = iota
	focusMessage
	focusLog
)

type Config struct {
	Workspace   *wsfile.Workspace
	Environment string
	EnvVars     map[string]string
	Client      *wsclient.Client
	Cookies     *cookies.Store
	History     *history.Store
	Bindings    *bindings.Map
	Theme       theme.Theme
	Settings    config.Settings
	Version     string
}

type errorModal struct {
	visible bool
	title   string
	body    string
}

// Model is the root bubbletea model. It owns exactly one live connection at a
// time; the composer toggles it open or closed.
type Model struct {
	cfg       Config
	workspace *wsfile.Workspace
	selected  int

	urlInput textinput.Model
	msgInput textinput.Model
	focus    focusArea

	client   *wsclient.Client
	cookies  *cookies.Store
	history  *history.Store
	bindings *bindings.Map
	theme    theme.Theme

	connecting bool
	active     *wsclient.Handle
	logEvents  []*stream.Event

	logView viewport.Model
	spin    spinner.Model

	status      string
	statusLevel statusLevel
	modal       errorModal
	showHelp    bool

	pendingChord string
	chordSeq     int

	streamMsgChan chan tea.Msg

	width      int
	height     int
	histHeight int
	sized      bool
}

func New(cfg Config) *Model {
	urlInput := textinput.New()
	urlInput.Placeholder = "wss://"
	urlInput.Prompt = ""
	urlInput.Focus()

	msgInput := textinput.New()
	msgInput.Placeholder = "message"
	msgInput.Prompt = "> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	keymap := cfg.Bindings
	if keymap == nil {
		keymap = bindings.DefaultMap()
	}

	m := &Model{
		cfg:           cfg,
		workspace:     cfg.Workspace,
		urlInput:      urlInput,
		msgInput:      msgInput,
		focus:         focusURL,
		client:        cfg.Client,
		cookies:       cfg.Cookies,
		history:       cfg.History,
		bindings:      keymap,
		theme:         cfg.Theme,
		spin:          spin,
		streamMsgChan: make(chan tea.Msg, 64),
	}
	if req := m.currentRequest(); req != nil {
		m.urlInput.SetValue(req.URL)
		m.urlInput.CursorEnd()
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.nextStreamMsgCmd())
}

func (m *Model) currentRequest() *wsfile.Request {
	if m.workspace == nil || len(m.workspace.Requests) == 0 {
		return nil
	}
	if m.selected < 0 || m.selected >= len(m.workspace.Requests) {
		return nil
	}
	return m.workspace.Requests[m.selected]
}

// connectionReady reports whether a live connection exists, the flag the
// toggle consults to decide between opening and closing.
func (m *Model) connectionReady() bool {
	return m.active != nil
}

func (m *Model) setStatus(text string, level statusLevel) {
	m.status = text
	m.statusLevel = level
}

func (m *Model) showError(title string, err error) {
	body := ""
	if err != nil {
		body = err.Error()
	}
	m.modal = errorModal{visible: true, title: title, body: body}
}

func (m *Model) dismissModal() {
	m.modal = errorModal{}
}
