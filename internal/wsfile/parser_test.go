package wsfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleWorkspace = `
id: ws-1
name: chat
requests:
  - id: req-1
    name: lobby
    url: "wss://{{host}}/chat"
    headers:
      - name: X-Client
        value: wsterm
    params:
      - key: id
        value: "1"
      - key: dbg
        value: "1"
        disabled: true
    auth:
      type: bearer
      params:
        token: "{{token}}"
    suppress_user_agent: true
`

func TestParseWorkspace(t *testing.T) {
	ws, err := Parse([]byte(sampleWorkspace))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ws.ID != "ws-1" || ws.Name != "chat" {
		t.Fatalf("unexpected workspace %q %q", ws.ID, ws.Name)
	}
	req := ws.FindRequest("req-1")
	if req == nil {
		t.Fatal("request req-1 not found")
	}
	if req.URL != "wss://{{host}}/chat" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if !req.SuppressUserAgent {
		t.Fatal("suppress_user_agent should be set")
	}
	if req.Options.HandshakeTimeout != defaultHandshakeTimeout {
		t.Fatalf("expected default handshake timeout, got %v", req.Options.HandshakeTimeout)
	}
	if req.Auth == nil || req.Auth.Type != "bearer" {
		t.Fatalf("unexpected auth %#v", req.Auth)
	}
}

func TestParseTracksCompressionPresence(t *testing.T) {
	cases := []struct {
		name        string
		doc         string
		wantSet     bool
		wantEnabled bool
	}{
		{
			name: "absent",
			doc:  "requests:\n  - id: r1\n    url: wss://a\n",
		},
		{
			name:    "disabled",
			doc:     "requests:\n  - id: r1\n    url: wss://a\n    options:\n      compression: false\n",
			wantSet: true,
		},
		{
			name:        "enabled",
			doc:         "requests:\n  - id: r1\n    url: wss://a\n    options:\n      compression: true\n",
			wantSet:     true,
			wantEnabled: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ws, err := Parse([]byte(tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			opts := ws.Requests[0].Options
			if opts.CompressionSet != tc.wantSet {
				t.Fatalf("CompressionSet = %v, want %v", opts.CompressionSet, tc.wantSet)
			}
			if opts.Compression != tc.wantEnabled {
				t.Fatalf("Compression = %v, want %v", opts.Compression, tc.wantEnabled)
			}
		})
	}
}

func TestEnabledParamsSkipsDisabled(t *testing.T) {
	ws, err := Parse([]byte(sampleWorkspace))
	if err != nil {
		t.Fatal(err)
	}
	req := ws.Requests[0]
	enabled := req.EnabledParams()
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled param, got %d", len(enabled))
	}
	if enabled[0].Key != "id" {
		t.Fatalf("unexpected param %q", enabled[0].Key)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	ws, err := Parse([]byte(sampleWorkspace))
	if err != nil {
		t.Fatal(err)
	}
	orig := ws.Requests[0]
	dup := orig.Clone()
	dup.Headers[0].Value = "changed"
	dup.Auth.Params["token"] = "changed"
	if orig.Headers[0].Value == "changed" {
		t.Fatal("header slice aliased")
	}
	if orig.Auth.Params["token"] == "changed" {
		t.Fatal("auth params aliased")
	}
}

func TestNormalizeAssignsIDs(t *testing.T) {
	ws, err := Parse([]byte("name: x\nrequests:\n  - url: wss://a\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ws.ID == "" {
		t.Fatal("workspace id should be assigned")
	}
	if ws.Requests[0].ID == "" {
		t.Fatal("request id should be assigned")
	}
	if ws.Requests[0].Name != "wss://a" {
		t.Fatalf("request name should fall back to url, got %q", ws.Requests[0].Name)
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.ws.yaml")
	if err := os.WriteFile(path, []byte(sampleWorkspace), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ws.Path != filepath.Clean(path) {
		t.Fatalf("path not recorded: %q", ws.Path)
	}

	ws.Requests[0].URL = "wss://other/chat"
	out := filepath.Join(dir, "saved.ws.yaml")
	if err := Save(ws, out); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Requests[0].URL != "wss://other/chat" {
		t.Fatalf("round trip lost edit: %q", reloaded.Requests[0].URL)
	}
}

func TestNewWorkspaceHasBlankRequest(t *testing.T) {
	ws := New("")
	if ws.Name != "scratch" {
		t.Fatalf("unexpected name %q", ws.Name)
	}
	if len(ws.Requests) != 1 || ws.Requests[0].ID == "" {
		t.Fatalf("expected one seeded request, got %#v", ws.Requests)
	}
	if ws.Requests[0].Options.HandshakeTimeout != 10*time.Second {
		t.Fatal("seeded request should carry default handshake timeout")
	}
}
