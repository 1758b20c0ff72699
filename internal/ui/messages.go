package ui

import (
	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
	statusSuccess
)

type connectedMsg struct {
	handle *wsclient.Handle
}

type connectFailedMsg struct {
	err error
}

type closeRequestedMsg struct {
	err error
}

type sendResultMsg struct {
	err error
}

type streamEventMsg struct {
	sessionID string
	events    []*stream.Event
}

type streamStateMsg struct {
	sessionID string
	state     stream.State
	err       error
}

type streamCompleteMsg struct {
	sessionID string
}

type chordTimeoutMsg struct {
	seq int
}
