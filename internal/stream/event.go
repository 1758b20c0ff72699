package stream

import (
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

// Direction tells which side of the connection produced an event.
type Direction int

const (
	DirNA Direction = iota
	DirSend
	DirReceive
)

// State is the connection lifecycle. Closed and Failed are terminal; Failed
// carries the error on the session.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one frame or lifecycle notification. Sequence numbers are global
// across sessions and strictly increasing, so interleaved logs stay ordered.
type Event struct {
	Direction Direction
	Timestamp time.Time
	Sequence  uint64

	Metadata map[string]string
	Payload  []byte

	WS WSMetadata
}

// WSMetadata carries the frame-level details the log renders: opcode, and for
// close frames the status code and reason.
type WSMetadata struct {
	Opcode int
	Code   websocket.StatusCode
	Reason string
}

var eventSeq uint64

func nextSequence() uint64 {
	return atomic.AddUint64(&eventSeq, 1)
}
