package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
)

func TestTruncateLineKeepsShortLines(t *testing.T) {
	if got := truncateLine("hello", 10); got != "hello" {
		t.Fatalf("short line changed: %q", got)
	}
}

func TestTruncateLineCutsOnWidth(t *testing.T) {
	got := truncateLine("abcdefghij", 5)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if len([]rune(got)) > 5 {
		t.Fatalf("line too long: %q", got)
	}
}

func TestHighlightJSONRejectsPlainText(t *testing.T) {
	if _, ok := highlightJSON([]byte("just text"), "monokai"); ok {
		t.Fatal("plain text should not be highlighted")
	}
	if _, ok := highlightJSON([]byte("{broken"), "monokai"); ok {
		t.Fatal("invalid json should not be highlighted")
	}
}

func TestHighlightJSONAcceptsObjects(t *testing.T) {
	out, ok := highlightJSON([]byte(`{"a":1}`), "monokai")
	if !ok {
		t.Fatal("valid json should highlight")
	}
	if !strings.Contains(ansi.Strip(out), `"a"`) {
		t.Fatalf("payload content lost: %q", out)
	}
}

func TestRenderEventBinaryAndClose(t *testing.T) {
	m := newTestModel(nil)
	m.width, m.height, m.sized = 120, 40, true

	binary := m.renderEvent(&stream.Event{
		Direction: stream.DirReceive,
		Payload:   []byte{0x00, 0x01},
		WS:        stream.WSMetadata{Opcode: wsclient.OpcodeBinary},
	})
	if !strings.Contains(ansi.Strip(binary), "binary (2 bytes)") {
		t.Fatalf("unexpected binary render: %q", binary)
	}

	closeEvt := m.renderEvent(&stream.Event{
		Metadata: map[string]string{wsclient.MetaClosedBy: "peer"},
		WS:       stream.WSMetadata{Opcode: wsclient.OpcodeClose, Code: 1000, Reason: "bye"},
	})
	text := ansi.Strip(closeEvt)
	for _, want := range []string{"close", "by peer", "(1000)", "bye"} {
		if !strings.Contains(text, want) {
			t.Fatalf("close render missing %q: %q", want, text)
		}
	}
}
