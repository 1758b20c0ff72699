package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
)

const maxRenderedPayload = 4096

func (m *Model) renderLog() string {
	if len(m.logEvents) == 0 {
		return m.theme.StreamInfo.Render("no frames yet")
	}
	lines := make([]string, 0, len(m.logEvents))
	for _, evt := range m.logEvents {
		lines = append(lines, m.renderEvent(evt))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderEvent(evt *stream.Event) string {
	var b strings.Builder

	if m.cfg.Settings.Layout.ShowTimestamps {
		b.WriteString(m.theme.StreamTimestamp.Render(evt.Timestamp.Format("15:04:05.000")))
		b.WriteString(" ")
	}

	marker, style := m.directionMarker(evt)
	b.WriteString(style.Render(marker))
	b.WriteString(" ")

	switch {
	case evt.WS.Opcode == wsclient.OpcodeClose:
		b.WriteString(m.renderClose(evt))
	case evt.WS.Opcode == wsclient.OpcodePing || evt.WS.Opcode == wsclient.OpcodePong:
		b.WriteString(m.theme.StreamInfo.Render(opcodeName(evt.WS.Opcode)))
	case evt.WS.Opcode == wsclient.OpcodeBinary:
		b.WriteString(m.theme.StreamBinary.Render(fmt.Sprintf("binary (%d bytes)", len(evt.Payload))))
	default:
		b.WriteString(m.renderTextPayload(evt.Payload))
	}

	return truncateLine(b.String(), m.logWidth())
}

func (m *Model) directionMarker(evt *stream.Event) (string, lipgloss.Style) {
	switch evt.Direction {
	case stream.DirSend:
		return "→", m.theme.StreamSend
	case stream.DirReceive:
		return "←", m.theme.StreamReceive
	default:
		return "•", m.theme.StreamInfo
	}
}

func (m *Model) renderClose(evt *stream.Event) string {
	parts := []string{"close"}
	if by := evt.Metadata[wsclient.MetaClosedBy]; by != "" {
		parts = append(parts, "by "+by)
	}
	if evt.WS.Code > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", evt.WS.Code))
	}
	if evt.WS.Reason != "" {
		parts = append(parts, evt.WS.Reason)
	}
	return m.theme.StreamInfo.Render(strings.Join(parts, " "))
}

func (m *Model) renderTextPayload(payload []byte) string {
	if len(payload) > maxRenderedPayload {
		payload = payload[:maxRenderedPayload]
	}
	if highlighted, ok := highlightJSON(payload, m.theme.ChromaStyle); ok {
		return highlighted
	}
	return string(payload)
}

// highlightJSON colorizes compact JSON payloads. Non-JSON text passes through
// unstyled.
func highlightJSON(payload []byte, styleName string) (string, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return "", false
	}
	if !json.Valid(trimmed) {
		return "", false
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(trimmed), "json", "terminal256", styleName); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

// truncateLine cuts a rendered line to the pane width on grapheme boundaries
// so wide runes and emoji never split mid-cell.
func truncateLine(line string, width int) string {
	if width <= 0 || runewidth.StringWidth(ansi.Strip(line)) <= width {
		return line
	}

	const ellipsis = "…"
	budget := width - runewidth.StringWidth(ellipsis)
	var b strings.Builder
	used := 0
	gr := uniseg.NewGraphemes(line)
	for gr.Next() {
		cluster := gr.Str()
		if strings.HasPrefix(cluster, "\x1b") {
			b.WriteString(cluster)
			continue
		}
		w := runewidth.StringWidth(cluster)
		if used+w > budget {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	b.WriteString(ellipsis)
	return b.String()
}

func opcodeName(op int) string {
	switch op {
	case wsclient.OpcodeText:
		return "text"
	case wsclient.OpcodeBinary:
		return "binary"
	case wsclient.OpcodeClose:
		return "close"
	case wsclient.OpcodePing:
		return "ping"
	case wsclient.OpcodePong:
		return "pong"
	default:
		return fmt.Sprintf("opcode %#x", op)
	}
}
