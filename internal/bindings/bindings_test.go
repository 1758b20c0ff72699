package bindings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMapContainsExpectedBindings(t *testing.T) {
	m := DefaultMap()

	if binding, ok := m.MatchSingle("ctrl+enter"); !ok || binding.Action != ActionConnectToggle {
		t.Fatalf("expected ctrl+enter -> ActionConnectToggle, got %+v (ok=%v)", binding, ok)
	}

	if binding, ok := m.MatchSingle("ctrl+l"); !ok || binding.Action != ActionFocusURL {
		t.Fatalf("expected ctrl+l -> ActionFocusURL, got %+v (ok=%v)", binding, ok)
	}

	if binding, ok := m.MatchSingle("ctrl+c"); !ok || binding.Action != ActionQuit {
		t.Fatalf("expected ctrl+c -> ActionQuit, got %+v (ok=%v)", binding, ok)
	}

	if binding, ok := m.ResolveChord("g", "c"); !ok || binding.Action != ActionClearLog {
		t.Fatalf("expected g c -> ActionClearLog, got %+v (ok=%v)", binding, ok)
	}

	if !m.HasChordPrefix("g") {
		t.Fatalf("expected HasChordPrefix('g') to be true")
	}
}

func TestLoadOverridesBindings(t *testing.T) {
	dir := t.TempDir()
	payload := `
[bindings]
"message.send" = ["ctrl+shift+s"]
"help.toggle" = ["ctrl+shift+/"]
`
	path := filepath.Join(dir, "bindings.toml")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write bindings: %v", err)
	}

	m, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if binding, ok := m.MatchSingle("ctrl+s"); ok {
		t.Fatalf("expected ctrl+s to be unbound, got %v", binding.Action)
	}

	if binding, ok := m.MatchSingle("ctrl+shift+s"); !ok || binding.Action != ActionSendMessage {
		t.Fatalf("expected ctrl+shift+s -> message.send, got %+v (ok=%v)", binding, ok)
	}

	if binding, ok := m.MatchSingle("ctrl+shift+/"); !ok || binding.Action != ActionToggleHelp {
		t.Fatalf("expected ctrl+shift+/ -> help.toggle, got %+v (ok=%v)", binding, ok)
	}
}

func TestLoadRejectsConflictingBindings(t *testing.T) {
	dir := t.TempDir()
	payload := `
[bindings]
"message.send" = ["ctrl+p"]
`
	path := filepath.Join(dir, "bindings.toml")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write bindings: %v", err)
	}

	// ctrl+p is still bound to connection.ping by default
	if _, _, err := Load(dir); err == nil {
		t.Fatal("expected conflict error, got nil")
	}
}

func TestConnectToggleRejectsChordOverride(t *testing.T) {
	dir := t.TempDir()
	payload := `
[bindings]
"connection.toggle" = ["g t"]
`
	path := filepath.Join(dir, "bindings.toml")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write bindings: %v", err)
	}

	if _, _, err := Load(dir); err == nil {
		t.Fatal("expected single-step constraint error, got nil")
	}
}

func TestLoadRejectsUnknownAction(t *testing.T) {
	dir := t.TempDir()
	payload := `
[bindings]
"no.such.action" = ["ctrl+x"]
`
	if err := os.WriteFile(filepath.Join(dir, "bindings.toml"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write bindings: %v", err)
	}
	if _, _, err := Load(dir); err == nil {
		t.Fatal("expected unknown action error, got nil")
	}
}
