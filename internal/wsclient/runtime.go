package wsclient

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
	"github.com/unkn0wn-root/wsterm/internal/stream"
)

const (
	OpcodeText   = 0x1
	OpcodeBinary = 0x2
	OpcodeClose  = 0x8
	OpcodePing   = 0x9
	OpcodePong   = 0xA
)

// Metadata keys stamped on published stream events.
const (
	MetaType     = "wsterm.type"
	MetaClosedBy = "wsterm.closed_by"
	MetaCode     = "wsterm.close_code"
	MetaReason   = "wsterm.close_reason"
)

type outboundKind int

const (
	outboundMessage outboundKind = iota
	outboundPing
	outboundClose
)

type outbound struct {
	kind    outboundKind
	payload []byte
	binary  bool
	code    websocket.StatusCode
	reason  string
	result  chan error
}

// runtime owns the read and write goroutines for one open connection. All
// writes funnel through writeCh so the connection never sees two concurrent
// writers; teardown happens exactly once through shutdown.
type runtime struct {
	conn    *websocket.Conn
	session *stream.Session
	cancel  context.CancelFunc

	writeCh chan outbound
	pulse   chan struct{}

	closeOnce sync.Once

	sent     uint64
	received uint64
}

func newRuntime(conn *websocket.Conn, session *stream.Session, cancel context.CancelFunc) *runtime {
	return &runtime{
		conn:    conn,
		session: session,
		cancel:  cancel,
		writeCh: make(chan outbound, 16),
		pulse:   make(chan struct{}, 1),
	}
}

func (rt *runtime) readLoop() {
	for {
		msgType, data, err := rt.conn.Read(rt.session.Context())
		if err != nil {
			rt.finishRead(err)
			return
		}
		rt.touch()
		atomic.AddUint64(&rt.received, 1)

		opcode := OpcodeText
		if msgType == websocket.MessageBinary {
			opcode = OpcodeBinary
		}
		rt.session.Publish(&stream.Event{
			Direction: stream.DirReceive,
			Payload:   data,
			Metadata:  map[string]string{MetaType: messageTypeName(msgType)},
			WS:        stream.WSMetadata{Opcode: opcode},
		})
	}
}

// finishRead classifies the read error. A close frame from the peer is a
// normal end of session, everything else is a failure.
func (rt *runtime) finishRead(err error) {
	status := websocket.CloseStatus(err)
	if status != -1 {
		rt.publishClose("peer", status, "")
		rt.shutdown(nil)
		return
	}
	if rt.session.Context().Err() != nil {
		rt.shutdown(nil)
		return
	}
	rt.shutdown(errdef.Wrap(errdef.CodeWebSocket, err, "read websocket"))
}

func (rt *runtime) writeLoop() {
	for {
		select {
		case <-rt.session.Context().Done():
			rt.drainOutbound()
			return
		case out := <-rt.writeCh:
			out.result <- rt.performWrite(out)
			if out.kind == outboundClose {
				rt.drainOutbound()
				return
			}
		}
	}
}

func (rt *runtime) drainOutbound() {
	for {
		select {
		case out := <-rt.writeCh:
			out.result <- errdef.New(errdef.CodeWebSocket, "connection is closed")
		default:
			return
		}
	}
}

func (rt *runtime) performWrite(out outbound) error {
	ctx, cancel := context.WithTimeout(rt.session.Context(), 10*time.Second)
	defer cancel()

	switch out.kind {
	case outboundPing:
		if err := rt.conn.Ping(ctx); err != nil {
			return errdef.Wrap(errdef.CodeWebSocket, err, "ping")
		}
		rt.touch()
		rt.session.Publish(&stream.Event{
			Direction: stream.DirSend,
			Metadata:  map[string]string{MetaType: "ping"},
			WS:        stream.WSMetadata{Opcode: OpcodePing},
		})
		return nil
	case outboundClose:
		rt.session.MarkClosing()
		err := rt.conn.Close(out.code, out.reason)
		rt.publishClose("local", out.code, out.reason)
		rt.shutdown(nil)
		if err != nil {
			return errdef.Wrap(errdef.CodeWebSocket, err, "close websocket")
		}
		return nil
	default:
		msgType := websocket.MessageText
		opcode := OpcodeText
		if out.binary {
			msgType = websocket.MessageBinary
			opcode = OpcodeBinary
		}
		if err := rt.conn.Write(ctx, msgType, out.payload); err != nil {
			return errdef.Wrap(errdef.CodeWebSocket, err, "write websocket")
		}
		rt.touch()
		atomic.AddUint64(&rt.sent, 1)
		rt.session.Publish(&stream.Event{
			Direction: stream.DirSend,
			Payload:   out.payload,
			Metadata:  map[string]string{MetaType: messageTypeName(msgType)},
			WS:        stream.WSMetadata{Opcode: opcode},
		})
		return nil
	}
}

func (rt *runtime) idleWatch(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-rt.session.Context().Done():
			return
		case <-rt.pulse:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(timeout)
		case <-timer.C:
			_ = rt.conn.Close(websocket.StatusGoingAway, "idle timeout")
			rt.publishClose("idle", websocket.StatusGoingAway, "idle timeout")
			rt.shutdown(nil)
			return
		}
	}
}

func (rt *runtime) touch() {
	select {
	case rt.pulse <- struct{}{}:
	default:
	}
}

func (rt *runtime) publishClose(closedBy string, code websocket.StatusCode, reason string) {
	meta := map[string]string{
		MetaType:     "close",
		MetaClosedBy: closedBy,
	}
	if code > 0 {
		meta[MetaCode] = strconv.Itoa(int(code))
	}
	if reason != "" {
		meta[MetaReason] = reason
	}
	rt.session.Publish(&stream.Event{
		Direction: stream.DirNA,
		Metadata:  meta,
		WS:        stream.WSMetadata{Opcode: OpcodeClose, Code: code, Reason: reason},
	})
}

func (rt *runtime) shutdown(err error) {
	rt.closeOnce.Do(func() {
		rt.session.Close(err)
		rt.cancel()
	})
}

func (rt *runtime) enqueue(ctx context.Context, out outbound) error {
	out.result = make(chan error, 1)
	select {
	case <-rt.session.Context().Done():
		return errdef.New(errdef.CodeWebSocket, "connection is closed")
	case <-ctx.Done():
		return ctx.Err()
	case rt.writeCh <- out:
	}
	select {
	case err := <-out.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func messageTypeName(t websocket.MessageType) string {
	if t == websocket.MessageBinary {
		return "binary"
	}
	return "text"
}

// Sender is the write-side API handed to the UI.
type Sender struct {
	runtime *runtime
}

func (s *Sender) SendText(ctx context.Context, text string) error {
	return s.runtime.enqueue(ctx, outbound{kind: outboundMessage, payload: []byte(text)})
}

func (s *Sender) SendBinary(ctx context.Context, data []byte) error {
	return s.runtime.enqueue(ctx, outbound{kind: outboundMessage, payload: data, binary: true})
}

// SendJSON compacts the payload before sending so templated multi-line input
// goes out as a single frame of canonical JSON.
func (s *Sender) SendJSON(ctx context.Context, raw string) error {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return errdef.Wrap(errdef.CodeParse, err, "invalid json payload")
	}
	compact, err := json.Marshal(decoded)
	if err != nil {
		return errdef.Wrap(errdef.CodeParse, err, "encode json payload")
	}
	return s.runtime.enqueue(ctx, outbound{kind: outboundMessage, payload: compact})
}

func (s *Sender) Ping(ctx context.Context) error {
	return s.runtime.enqueue(ctx, outbound{kind: outboundPing})
}

// Close sends a close frame and tears the session down. Safe to call when the
// peer already closed; the enqueue fails cleanly once the session is done.
func (s *Sender) Close(ctx context.Context, code websocket.StatusCode, reason string) error {
	if code == 0 {
		code = websocket.StatusNormalClosure
	}
	return s.runtime.enqueue(ctx, outbound{kind: outboundClose, code: code, reason: reason})
}

// Counts reports frames sent and received so far.
func (s *Sender) Counts() (sent, received uint64) {
	return atomic.LoadUint64(&s.runtime.sent), atomic.LoadUint64(&s.runtime.received)
}
