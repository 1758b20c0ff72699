package ui

import (
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/unkn0wn-root/wsterm/internal/history"
	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
)

const streamBatchWindow = 50 * time.Millisecond

func (m *Model) attachHandle(handle *wsclient.Handle) {
	m.active = handle
	m.logEvents = nil
	go m.runStreamSession(handle.Session)
}

// runStreamSession pumps session events into the bubbletea loop. Events are
// batched inside a short window so a chatty peer does not schedule one Update
// per frame.
func (m *Model) runStreamSession(session *stream.Session) {
	listener := session.Subscribe()
	defer listener.Cancel()

	if snapshot := listener.Snapshot.Events; len(snapshot) > 0 {
		m.emitStreamMsg(streamEventMsg{sessionID: session.ID(), events: cloneEvents(snapshot)})
	}

	var (
		batch []*stream.Event
		timer *time.Timer
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		m.emitStreamMsg(streamEventMsg{sessionID: session.ID(), events: cloneEvents(batch)})
		batch = batch[:0]
	}

	finish := func() {
		flush()
		state, err := session.State()
		m.emitStreamMsg(streamStateMsg{sessionID: session.ID(), state: state, err: err})
		m.emitStreamMsg(streamCompleteMsg{sessionID: session.ID()})
	}

	for {
		if timer == nil {
			evt, ok := <-listener.C
			if !ok {
				finish()
				return
			}
			batch = append(batch, evt)
			timer = time.NewTimer(streamBatchWindow)
			continue
		}

		select {
		case evt, ok := <-listener.C:
			if !ok {
				if !timer.Stop() {
					<-timer.C
				}
				finish()
				return
			}
			batch = append(batch, evt)
		case <-timer.C:
			timer = nil
			flush()
		}
	}
}

func (m *Model) emitStreamMsg(msg tea.Msg) {
	if msg == nil || m.streamMsgChan == nil {
		return
	}
	m.streamMsgChan <- msg
}

func (m *Model) nextStreamMsgCmd() tea.Cmd {
	if m.streamMsgChan == nil {
		return nil
	}
	ch := m.streamMsgChan
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) handleStreamEvents(msg streamEventMsg) {
	if m.active == nil || m.active.Session.ID() != msg.sessionID {
		return
	}
	m.logEvents = append(m.logEvents, msg.events...)
	if over := len(m.logEvents) - defaultMaxLogEvents; over > 0 {
		m.logEvents = m.logEvents[over:]
	}
	m.refreshLogView()
}

func (m *Model) handleStreamState(msg streamStateMsg) {
	if m.active == nil || m.active.Session.ID() != msg.sessionID {
		return
	}
	switch msg.state {
	case stream.StateFailed:
		text := "connection failed"
		if msg.err != nil {
			text = "connection failed: " + msg.err.Error()
		}
		m.setStatus(text, statusError)
	case stream.StateClosed:
		m.setStatus("connection closed", statusInfo)
	}
}

func (m *Model) handleStreamComplete(msg streamCompleteMsg) {
	if m.active == nil || m.active.Session.ID() != msg.sessionID {
		return
	}
	m.recordHistory(m.active)
	m.active = nil
}

// recordHistory persists one entry per completed connection.
func (m *Model) recordHistory(handle *wsclient.Handle) {
	if m.history == nil || handle == nil {
		return
	}

	sent, received := handle.Sender.Counts()
	entry := history.Entry{
		ID:            uuid.NewString(),
		ConnectedAt:   handle.ConnectedAt,
		Environment:   m.cfg.Environment,
		URL:           handle.URL,
		Duration:      time.Since(handle.ConnectedAt),
		SentCount:     sent,
		ReceivedCount: received,
	}
	if req := m.currentRequest(); req != nil && req.ID == handle.RequestID {
		entry.RequestName = req.Name
	}
	if m.workspace != nil {
		entry.WorkspacePath = m.workspace.Path
	}
	if err := handle.Session.Err(); err != nil {
		entry.Error = err.Error()
	}

	for _, evt := range handle.Session.EventsSnapshot() {
		if evt.WS.Opcode != wsclient.OpcodeClose {
			continue
		}
		entry.ClosedBy = evt.Metadata[wsclient.MetaClosedBy]
		entry.CloseReason = evt.WS.Reason
		if raw, ok := evt.Metadata[wsclient.MetaCode]; ok {
			if code, err := strconv.Atoi(raw); err == nil {
				entry.CloseCode = code
			}
		}
	}

	if err := m.history.Append(entry); err != nil {
		m.setStatus("history not saved: "+err.Error(), statusWarn)
	}
}

func cloneEvents(events []*stream.Event) []*stream.Event {
	out := make([]*stream.Event, len(events))
	copy(out, events)
	return out
}
