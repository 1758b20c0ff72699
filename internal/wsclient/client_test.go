package wsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/unkn0wn-root/wsterm/internal/connect"
	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/errdef"
	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/wsfile"
)

func echoServer(t *testing.T, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "server teardown")
		for {
			msgType, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			if err := conn.Write(r.Context(), msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func openConn(t *testing.T, cmd *connect.Command) *Handle {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handle, err := NewClient(Options{}).Open(ctx, cmd)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = handle.Sender.Close(closeCtx, websocket.StatusNormalClosure, "")
	})
	return handle
}

func waitEvent(t *testing.T, l stream.Listener, match func(*stream.Event) bool) *stream.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case evt, ok := <-l.C:
			if !ok {
				t.Fatal("listener closed before matching event")
			}
			if match(evt) {
				return evt
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestOpenEchoRoundTrip(t *testing.T) {
	srv := echoServer(t, nil)
	handle := openConn(t, &connect.Command{RequestID: "req-1", URL: wsURL(srv)})

	listener := handle.Session.Subscribe()
	defer listener.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := handle.Sender.SendText(ctx, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	evt := waitEvent(t, listener, func(e *stream.Event) bool {
		return e.Direction == stream.DirReceive
	})
	if string(evt.Payload) != "hello" {
		t.Fatalf("unexpected echo payload %q", evt.Payload)
	}
	if evt.WS.Opcode != OpcodeText {
		t.Fatalf("unexpected opcode %#x", evt.WS.Opcode)
	}
}

func TestOpenSendsComposedHeaders(t *testing.T) {
	var got http.Header
	srv := echoServer(t, func(r *http.Request) {
		got = r.Header.Clone()
	})

	jar := &cookies.Jar{Cookies: []cookies.Cookie{{Name: "session", Value: "abc"}}}
	openConn(t, &connect.Command{
		RequestID: "req-1",
		URL:       wsURL(srv),
		Headers:   []wsfile.HeaderEntry{{Name: "X-Token", Value: "t1"}},
		Jar:       jar,
	})

	if got.Get("X-Token") != "t1" {
		t.Fatalf("missing custom header: %v", got)
	}
	if got.Get("Cookie") != "session=abc" {
		t.Fatalf("missing cookie header: %v", got)
	}
	if got.Get("User-Agent") != "wsterm" {
		t.Fatalf("unexpected user agent %q", got.Get("User-Agent"))
	}
}

func TestSuppressUserAgent(t *testing.T) {
	var got http.Header
	srv := echoServer(t, func(r *http.Request) {
		got = r.Header.Clone()
	})

	openConn(t, &connect.Command{
		RequestID:         "req-1",
		URL:               wsURL(srv),
		SuppressUserAgent: true,
	})

	if got.Get("User-Agent") != "" {
		t.Fatalf("user agent should be suppressed, got %q", got.Get("User-Agent"))
	}
}

func TestCloseEndsSession(t *testing.T) {
	srv := echoServer(t, nil)
	handle := openConn(t, &connect.Command{RequestID: "req-1", URL: wsURL(srv)})

	listener := handle.Session.Subscribe()
	defer listener.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := handle.Sender.Close(ctx, websocket.StatusNormalClosure, "done"); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-handle.Session.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end after close")
	}
	state, err := handle.Session.State()
	if state != stream.StateClosed || err != nil {
		t.Fatalf("unexpected final state %v err %v", state, err)
	}

	events := handle.Session.EventsSnapshot()
	var closeEvt *stream.Event
	for _, evt := range events {
		if evt.WS.Opcode == OpcodeClose {
			closeEvt = evt
		}
	}
	if closeEvt == nil {
		t.Fatal("no close event published")
	}
	if closeEvt.Metadata[MetaClosedBy] != "local" {
		t.Fatalf("unexpected closed_by %q", closeEvt.Metadata[MetaClosedBy])
	}
}

func TestPeerCloseEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}))
	t.Cleanup(srv.Close)

	handle := openConn(t, &connect.Command{RequestID: "req-1", URL: wsURL(srv)})

	select {
	case <-handle.Session.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not observe peer close")
	}
	state, err := handle.Session.State()
	if state != stream.StateClosed || err != nil {
		t.Fatalf("unexpected final state %v err %v", state, err)
	}

	var sawPeerClose bool
	for _, evt := range handle.Session.EventsSnapshot() {
		if evt.WS.Opcode == OpcodeClose && evt.Metadata[MetaClosedBy] == "peer" {
			sawPeerClose = true
		}
	}
	if !sawPeerClose {
		t.Fatal("expected a peer close event")
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(Options{}).Open(context.Background(), &connect.Command{
		RequestID: "req-1",
		URL:       wsURL(srv),
	})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !errdef.IsCode(err, errdef.CodeWebSocket) {
		t.Fatalf("expected websocket error code, got %s", errdef.CodeOf(err))
	}
}

func TestSendJSONCompacts(t *testing.T) {
	srv := echoServer(t, nil)
	handle := openConn(t, &connect.Command{RequestID: "req-1", URL: wsURL(srv)})

	listener := handle.Session.Subscribe()
	defer listener.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := handle.Sender.SendJSON(ctx, "{\n  \"a\": 1\n}"); err != nil {
		t.Fatalf("send json: %v", err)
	}

	evt := waitEvent(t, listener, func(e *stream.Event) bool {
		return e.Direction == stream.DirSend
	})
	if string(evt.Payload) != `{"a":1}` {
		t.Fatalf("payload not compacted: %q", evt.Payload)
	}

	if err := handle.Sender.SendJSON(ctx, "not json"); err == nil {
		t.Fatal("expected json validation error")
	}
}

func TestCompressionOptionReachesDialer(t *testing.T) {
	cases := []struct {
		name string
		opts wsfile.WebSocketOptions
		want websocket.CompressionMode
	}{
		{"absent keeps driver default", wsfile.WebSocketOptions{}, websocket.CompressionNoContextTakeover},
		{"disabled", wsfile.WebSocketOptions{CompressionSet: true}, websocket.CompressionDisabled},
		{"enabled", wsfile.WebSocketOptions{Compression: true, CompressionSet: true}, websocket.CompressionNoContextTakeover},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got websocket.CompressionMode
			client := NewClient(Options{})
			client.SetDialFunc(func(ctx context.Context, u string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error) {
				got = opts.CompressionMode
				return nil, nil, errors.New("stop after options capture")
			})

			_, err := client.Open(context.Background(), &connect.Command{
				RequestID: "r1",
				URL:       "wss://example.com/chat",
				Options:   tc.opts,
			})
			if err == nil {
				t.Fatal("expected error from stub dialer")
			}
			if got != tc.want {
				t.Fatalf("CompressionMode = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParsedCompressionFlagControlsDialer(t *testing.T) {
	doc := "requests:\n  - id: r1\n    url: wss://example.com/chat\n    options:\n      compression: false\n"
	ws, err := wsfile.Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	var got websocket.CompressionMode
	client := NewClient(Options{})
	client.SetDialFunc(func(ctx context.Context, u string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error) {
		got = opts.CompressionMode
		return nil, nil, errors.New("stop after options capture")
	})

	req := ws.Requests[0]
	_, _ = client.Open(context.Background(), &connect.Command{
		RequestID: req.ID,
		URL:       req.URL,
		Options:   req.Options,
	})
	if got != websocket.CompressionDisabled {
		t.Fatalf("compression: false must disable negotiation, got %v", got)
	}
}

func TestHandshakeCookiesPersistToJar(t *testing.T) {
	store, err := cookies.Open(filepath.Join(t.TempDir(), "cookies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	jar, err := store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetCookie(jar.ID, cookies.Cookie{Name: "stale", Value: "x"}); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", MaxAge: 3600})
		http.SetCookie(w, &http.Cookie{Name: "stale", Value: "", MaxAge: -1})
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "server teardown")
		_, _, _ = conn.Read(r.Context())
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	client := NewClient(Options{})
	client.SetCookieStore(store)
	handle, err := client.Open(ctx, &connect.Command{RequestID: "r1", URL: wsURL(srv), Jar: jar})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = handle.Sender.Close(closeCtx, websocket.StatusNormalClosure, "")
	})

	reloaded, err := store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatal(err)
	}
	if value, ok := reloaded.Lookup("session"); !ok || value != "abc" {
		t.Fatalf("session cookie not persisted: %q %v", value, ok)
	}
	if _, ok := reloaded.Lookup("stale"); ok {
		t.Fatal("evicted cookie still present")
	}

	var stored cookies.Cookie
	for _, c := range reloaded.Cookies {
		if c.Name == "session" {
			stored = c
		}
	}
	if stored.Domain != "127.0.0.1" {
		t.Fatalf("domain should default to the dial host, got %q", stored.Domain)
	}
	if stored.Expires.IsZero() || time.Until(stored.Expires) > time.Hour+time.Minute {
		t.Fatalf("max-age not mapped onto expiry: %v", stored.Expires)
	}
}

func TestOpenRejectsEmptyCommand(t *testing.T) {
	if _, err := NewClient(Options{}).Open(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil command")
	}
	if _, err := NewClient(Options{}).Open(context.Background(), &connect.Command{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
