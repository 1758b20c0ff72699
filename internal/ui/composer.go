package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"nhooyr.io/websocket"

	"github.com/unkn0wn-root/wsterm/internal/connect"
	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/vars"
)

// submitConnection is the single entry point for every connect shortcut: the
// global toggle binding and Enter inside the URL field both land here. One
// invocation yields at most one command, and a second submit while an attempt
// is in flight is a no-op.
func (m *Model) submitConnection() tea.Cmd {
	if m.connecting {
		m.setStatus("connection attempt already in progress", statusWarn)
		return nil
	}

	if m.connectionReady() {
		return m.closeActive("client closed")
	}

	req := m.currentRequest()
	if req == nil {
		m.setStatus("no request selected", statusWarn)
		return nil
	}

	jar, err := m.fetchOrCreateJar()
	if err != nil {
		m.showError("Cookie jar unavailable", err)
		return nil
	}

	resolver := m.buildResolver(jar)
	cmd, err := connect.Resolve(req, m.workspace.ID, resolver, jar)
	if err != nil {
		m.showError("Failed to open connection", err)
		return nil
	}

	m.connecting = true
	m.setStatus("connecting to "+cmd.URL, statusInfo)

	client := m.client
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		handle, err := client.Open(context.Background(), cmd)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{handle: handle}
	})
}

func (m *Model) closeActive(reason string) tea.Cmd {
	handle := m.active
	if handle == nil {
		return nil
	}
	m.setStatus("closing connection", statusInfo)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := handle.Sender.Close(ctx, websocket.StatusNormalClosure, reason)
		return closeRequestedMsg{err: err}
	}
}

func (m *Model) fetchOrCreateJar() (*cookies.Jar, error) {
	if m.cookies == nil || m.workspace == nil {
		return nil, nil
	}
	return m.cookies.GetOrCreate(m.workspace.ID)
}

// buildResolver layers the active environment over OS env vars and the
// workspace cookie jar. Environment values win on direct lookup; the jar
// answers {{cookie.<name>}} expressions.
func (m *Model) buildResolver(jar *cookies.Jar) *vars.Resolver {
	providers := []vars.Provider{
		vars.NewMapProvider(m.cfg.Environment, m.cfg.EnvVars),
	}
	if jar != nil {
		providers = append(providers, &vars.FuncProvider{Name: "cookie", Lookup: jar.Lookup})
	}
	providers = append(providers, vars.EnvProvider{})
	return vars.NewResolver(providers...)
}

// syncURLFromInput copies the raw field text into the selected request.
// Templates stay unexpanded until submit.
func (m *Model) syncURLFromInput() {
	if req := m.currentRequest(); req != nil {
		req.URL = m.urlInput.Value()
	}
}

func (m *Model) focusURLField() tea.Cmd {
	m.focus = focusURL
	m.msgInput.Blur()
	cmd := m.urlInput.Focus()
	m.urlInput.CursorEnd()
	return cmd
}

func (m *Model) focusMessageField() tea.Cmd {
	m.focus = focusMessage
	m.urlInput.Blur()
	return m.msgInput.Focus()
}

func (m *Model) blurInputs() {
	m.focus = focusLog
	m.urlInput.Blur()
	m.msgInput.Blur()
}

func (m *Model) sendMessage() tea.Cmd {
	if !m.connectionReady() {
		m.setStatus("not connected", statusWarn)
		return nil
	}
	text := m.msgInput.Value()
	if text == "" {
		return nil
	}
	m.msgInput.SetValue("")

	sender := m.active.Sender
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sendResultMsg{err: sender.SendText(ctx, text)}
	}
}

func (m *Model) sendPing() tea.Cmd {
	if !m.connectionReady() {
		m.setStatus("not connected", statusWarn)
		return nil
	}
	sender := m.active.Sender
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sendResultMsg{err: sender.Ping(ctx)}
	}
}

func (m *Model) selectRequest(idx int) {
	if m.workspace == nil || len(m.workspace.Requests) == 0 {
		return
	}
	count := len(m.workspace.Requests)
	idx = ((idx % count) + count) % count
	if idx == m.selected {
		return
	}
	m.selected = idx
	if req := m.currentRequest(); req != nil {
		m.urlInput.SetValue(req.URL)
		m.urlInput.CursorEnd()
	}
}
