package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unkn0wn-root/wsterm/internal/config"
	"github.com/unkn0wn-root/wsterm/internal/history"
	"github.com/unkn0wn-root/wsterm/internal/stream"
)

func (m *Model) View() string {
	if !m.sized {
		return "loading..."
	}
	if m.modal.visible {
		return m.renderModal()
	}
	if m.showHelp {
		return m.renderHelp()
	}

	sections := []string{
		m.renderHeader(),
		m.renderURLBar(),
		m.logView.View(),
	}
	if m.histHeight > 0 {
		sections = append(sections, m.renderHistoryPane())
	}
	sections = append(sections, m.renderMessageBar(), m.renderStatusBar())
	main := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.horizontalSplit() {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderRequestStrip(), main)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

// horizontalSplit reports whether the request list renders as a strip above
// the main column instead of a sidebar beside it.
func (m *Model) horizontalSplit() bool {
	return m.cfg.Settings.Layout.MainSplit == config.LayoutMainSplitHorizontal
}

func (m *Model) renderHeader() string {
	name := "wsterm"
	if m.workspace != nil && m.workspace.Name != "" {
		name = m.workspace.Name
	}
	env := ""
	if m.cfg.Environment != "" {
		env = "  [" + m.cfg.Environment + "]"
	}
	return m.theme.Header.Render(name) + m.theme.StatusBar.Render(env)
}

func (m *Model) renderURLBar() string {
	style := m.theme.URLBar
	if m.focus == focusURL {
		style = m.theme.URLBarFocused
	}
	return style.Width(m.mainWidth() - 2).Render(
		m.theme.URLBarLabel.Render("WS ") + m.urlInput.View(),
	)
}

func (m *Model) renderMessageBar() string {
	if !m.connectionReady() {
		return m.theme.StatusBar.Render("press enter in the url field to connect")
	}
	return m.msgInput.View()
}

func (m *Model) renderStatusBar() string {
	state := m.renderConnectionState()
	text := m.status
	if text != "" {
		text = "  " + m.statusStyle().Render(text)
	}
	return state + text
}

func (m *Model) renderConnectionState() string {
	if m.connecting {
		return m.theme.StatusConnecting.Render(m.spin.View() + "connecting")
	}
	if m.active == nil {
		return m.theme.StatusClosed.Render("○ disconnected")
	}
	state, _ := m.active.Session.State()
	switch state {
	case stream.StateOpen:
		return m.theme.StatusOpen.Render("● connected")
	case stream.StateClosing:
		return m.theme.StatusClosing.Render("◌ closing")
	case stream.StateFailed:
		return m.theme.StatusFailed.Render("✗ failed")
	default:
		return m.theme.StatusClosed.Render("○ disconnected")
	}
}

func (m *Model) statusStyle() lipgloss.Style {
	switch m.statusLevel {
	case statusError:
		return m.theme.Error
	case statusWarn:
		return m.theme.StatusClosing
	case statusSuccess:
		return m.theme.Success
	default:
		return m.theme.Notification
	}
}

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	if width <= 0 || m.workspace == nil {
		return ""
	}

	var lines []string
	for i, req := range m.workspace.Requests {
		title := req.Name
		if title == "" {
			title = req.URL
		}
		title = truncateLine(title, width-3)
		if i == m.selected {
			lines = append(lines, m.theme.RequestTitleSelected.Render("▸ "+title))
		} else {
			lines = append(lines, m.theme.RequestTitle.Render("  "+title))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.RequestSubtitle.Render("no requests"))
	}

	return m.theme.SidebarBorder.
		Width(width).
		Height(m.height - 1).
		Render(strings.Join(lines, "\n"))
}

// renderRequestStrip lists requests in one row, used when the horizontal
// split replaces the sidebar column.
func (m *Model) renderRequestStrip() string {
	if m.workspace == nil || len(m.workspace.Requests) == 0 {
		return m.theme.RequestSubtitle.Render("no requests")
	}
	var parts []string
	for i, req := range m.workspace.Requests {
		title := req.Name
		if title == "" {
			title = req.URL
		}
		if i == m.selected {
			parts = append(parts, m.theme.RequestTitleSelected.Render("▸ "+title))
		} else {
			parts = append(parts, m.theme.RequestTitle.Render("  "+title))
		}
	}
	return truncateLine(strings.Join(parts, " "), m.width)
}

// renderHistoryPane shows past connections for the selected request under the
// stream log. Its height is the remainder of the log split.
func (m *Model) renderHistoryPane() string {
	lines := make([]string, 0, m.histHeight)
	lines = append(lines, m.theme.RequestSubtitle.Render("history"))
	for _, entry := range m.historyForCurrent(m.histHeight - 1) {
		lines = append(lines, truncateLine(m.renderHistoryEntry(entry), m.mainWidth()))
	}
	if len(lines) == 1 {
		lines = append(lines, m.theme.HelpText.Render("no previous connections"))
	}
	for len(lines) < m.histHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) historyForCurrent(limit int) []history.Entry {
	if m.history == nil || limit <= 0 {
		return nil
	}
	req := m.currentRequest()
	if req == nil {
		return nil
	}
	identifier := req.Name
	if identifier == "" {
		identifier = req.URL
	}
	entries := m.history.ByRequest(identifier)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (m *Model) renderHistoryEntry(entry history.Entry) string {
	ts := m.theme.StreamTimestamp.Render(entry.ConnectedAt.Format("Jan 02 15:04"))
	desc := entry.URL
	if entry.ClosedBy != "" {
		desc += "  closed by " + entry.ClosedBy
	}
	if entry.CloseCode > 0 {
		desc += fmt.Sprintf(" (%d)", entry.CloseCode)
	}
	if entry.Error != "" {
		return ts + " " + m.theme.StreamError.Render(desc+"  "+entry.Error)
	}
	return ts + " " + m.theme.HelpText.Render(desc)
}

func (m *Model) renderModal() string {
	body := m.theme.ModalTitle.Render(m.modal.title) + "\n\n" +
		m.theme.ModalBody.Render(m.modal.body) + "\n\n" +
		m.theme.HelpText.Render("esc to dismiss")
	frame := m.theme.ModalFrame.Width(min(m.width-4, 72)).Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame)
}

func (m *Model) renderHelp() string {
	rows := []struct{ key, desc string }{
		{"enter / ctrl+enter", "connect or disconnect"},
		{"ctrl+l", "focus url field"},
		{"ctrl+s", "focus message field"},
		{"ctrl+p", "ping"},
		{"ctrl+j / ctrl+k", "next / previous request"},
		{"g c", "clear log"},
		{"g y", "copy url"},
		{"tab", "cycle focus"},
		{"?", "toggle help"},
		{"ctrl+c", "quit"},
	}
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("keyboard shortcuts"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf(
			"%s  %s\n",
			m.theme.HelpKey.Width(20).Render(row.key),
			m.theme.HelpText.Render(row.desc),
		))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

func (m *Model) resize() {
	mainWidth := m.mainWidth()
	rows := m.height - 4
	if m.horizontalSplit() {
		// The request strip takes one row from the main column.
		rows--
	}
	logHeight, histHeight := splitLogRows(rows, m.cfg.Settings.Layout.LogSplitRatio)
	m.histHeight = histHeight
	m.logView.Width = mainWidth
	m.logView.Height = logHeight
	m.urlInput.Width = mainWidth - 8
	m.msgInput.Width = mainWidth - 4
	m.refreshLogView()
}

// splitLogRows divides the rows between url bar and message bar: the stream
// log gets the configured share, the history pane the rest. A history pane
// under three rows is not worth drawing; the log absorbs it.
func splitLogRows(rows int, ratio float64) (int, int) {
	if rows < 3 {
		rows = 3
	}
	if ratio <= 0 {
		ratio = config.LayoutLogRatioDefault
	}
	logRows := int(float64(rows) * ratio)
	if logRows < 3 {
		logRows = 3
	}
	histRows := rows - logRows
	if histRows < 3 {
		return rows, 0
	}
	return logRows, histRows
}

func (m *Model) refreshLogView() {
	atBottom := m.logView.AtBottom()
	m.logView.SetContent(m.renderLog())
	if atBottom {
		m.logView.GotoBottom()
	}
}

func (m *Model) sidebarWidth() int {
	if m.horizontalSplit() {
		return 0
	}
	ratio := m.cfg.Settings.Layout.SidebarWidth
	if ratio <= 0 {
		return 0
	}
	return int(float64(m.width) * ratio)
}

func (m *Model) mainWidth() int {
	w := m.width - m.sidebarWidth()
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) logWidth() int {
	if !m.sized {
		return 0
	}
	return m.mainWidth()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
