package ui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/wsterm/internal/bindings"
)

const chordTimeout = time.Second

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sized = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case connectedMsg:
		m.connecting = false
		m.attachHandle(msg.handle)
		m.setStatus("connected to "+msg.handle.URL, statusSuccess)
		return m, nil

	case connectFailedMsg:
		m.connecting = false
		m.showError("Failed to open connection", msg.err)
		return m, nil

	case closeRequestedMsg:
		if msg.err != nil {
			m.setStatus("close failed: "+msg.err.Error(), statusWarn)
		}
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.setStatus("send failed: "+msg.err.Error(), statusError)
		}
		return m, nil

	case streamEventMsg:
		m.handleStreamEvents(msg)
		return m, m.nextStreamMsgCmd()

	case streamStateMsg:
		m.handleStreamState(msg)
		return m, m.nextStreamMsgCmd()

	case streamCompleteMsg:
		m.handleStreamComplete(msg)
		return m, m.nextStreamMsgCmd()

	case chordTimeoutMsg:
		if msg.seq == m.chordSeq {
			m.pendingChord = ""
		}
		return m, nil
	}

	return m, nil
}

// handleKey is the single keyboard entry point. The global shortcut table and
// the field-local Enter both resolve here, so a keypress can never trigger
// two submits.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal.visible {
		switch msg.String() {
		case "esc", "enter":
			m.dismissModal()
		}
		return m, nil
	}

	key := bindings.NormalizeKeyString(msg.String())

	if m.pendingChord != "" {
		prefix := m.pendingChord
		m.pendingChord = ""
		if binding, ok := m.bindings.ResolveChord(prefix, key); ok {
			return m, m.dispatchAction(binding.Action)
		}
		return m, nil
	}

	if m.showHelp {
		switch key {
		case "esc", "q", "shift+/":
			m.showHelp = false
		}
		return m, nil
	}

	typing := m.focus == focusURL || m.focus == focusMessage

	if binding, ok := m.bindings.MatchSingle(key); ok {
		// While an input has focus, only modified shortcuts fire so plain
		// characters still type into the field.
		if !typing || hasModifier(key) {
			return m, m.dispatchAction(binding.Action)
		}
	}

	if !typing && m.bindings.HasChordPrefix(key) {
		m.pendingChord = key
		m.chordSeq++
		seq := m.chordSeq
		return m, tea.Tick(chordTimeout, func(time.Time) tea.Msg {
			return chordTimeoutMsg{seq: seq}
		})
	}

	switch msg.Type {
	case tea.KeyEnter:
		if m.focus == focusURL {
			m.syncURLFromInput()
			return m, m.submitConnection()
		}
		if m.focus == focusMessage {
			return m, m.sendMessage()
		}
	case tea.KeyTab:
		return m, m.cycleFocus()
	case tea.KeyEsc:
		m.blurInputs()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusURL:
		m.urlInput, cmd = m.urlInput.Update(msg)
		m.syncURLFromInput()
	case focusMessage:
		m.msgInput, cmd = m.msgInput.Update(msg)
	default:
		m.logView, cmd = m.logView.Update(msg)
	}
	return m, cmd
}

func (m *Model) dispatchAction(action bindings.ActionID) tea.Cmd {
	switch action {
	case bindings.ActionConnectToggle:
		m.syncURLFromInput()
		return m.submitConnection()
	case bindings.ActionFocusURL:
		return m.focusURLField()
	case bindings.ActionSendMessage:
		return m.focusMessageField()
	case bindings.ActionPing:
		return m.sendPing()
	case bindings.ActionNextRequest:
		m.selectRequest(m.selected + 1)
	case bindings.ActionPrevRequest:
		m.selectRequest(m.selected - 1)
	case bindings.ActionClearLog:
		m.logEvents = nil
		m.refreshLogView()
	case bindings.ActionCopyURL:
		if err := clipboard.WriteAll(m.urlInput.Value()); err != nil {
			m.setStatus("clipboard unavailable: "+err.Error(), statusWarn)
		} else {
			m.setStatus("url copied", statusSuccess)
		}
	case bindings.ActionToggleHelp:
		m.showHelp = !m.showHelp
	case bindings.ActionQuit:
		if m.connectionReady() {
			return tea.Sequence(m.closeActive("client exiting"), tea.Quit)
		}
		return tea.Quit
	}
	return nil
}

func (m *Model) cycleFocus() tea.Cmd {
	switch m.focus {
	case focusURL:
		return m.focusMessageField()
	case focusMessage:
		m.blurInputs()
		return nil
	default:
		return m.focusURLField()
	}
}

func hasModifier(key string) bool {
	return strings.Contains(key, "ctrl+") ||
		strings.Contains(key, "alt+") ||
		strings.Contains(key, "cmd+")
}
