package cookies

import (
	"net/url"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cookies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := openTestStore(t)

	first, err := store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same jar, got %s and %s", first.ID, second.ID)
	}

	other, err := store.GetOrCreate("ws-2")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Fatal("different workspaces must get different jars")
	}
}

func TestSetCookieRoundTrip(t *testing.T) {
	store := openTestStore(t)
	jar, err := store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatal(err)
	}

	err = store.SetCookie(jar.ID, Cookie{Name: "session", Value: "abc", Domain: "example.com"})
	if err != nil {
		t.Fatalf("set cookie: %v", err)
	}
	err = store.SetCookie(jar.ID, Cookie{Name: "session", Value: "def", Domain: "example.com"})
	if err != nil {
		t.Fatalf("upsert cookie: %v", err)
	}

	jar, err = store.GetOrCreate("ws-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(jar.Cookies) != 1 {
		t.Fatalf("expected upsert, got %d cookies", len(jar.Cookies))
	}
	if jar.Cookies[0].Value != "def" {
		t.Fatalf("unexpected value %q", jar.Cookies[0].Value)
	}
}

func TestDeleteCookie(t *testing.T) {
	store := openTestStore(t)
	jar, _ := store.GetOrCreate("ws-1")
	_ = store.SetCookie(jar.ID, Cookie{Name: "a", Value: "1"})
	if err := store.DeleteCookie(jar.ID, "a"); err != nil {
		t.Fatal(err)
	}
	jar, _ = store.GetOrCreate("ws-1")
	if len(jar.Cookies) != 0 {
		t.Fatalf("expected empty jar, got %d", len(jar.Cookies))
	}
}

func TestJarLookupSkipsExpired(t *testing.T) {
	jar := &Jar{Cookies: []Cookie{
		{Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)},
		{Name: "live", Value: "y"},
	}}
	if _, ok := jar.Lookup("old"); ok {
		t.Fatal("expired cookie should not resolve")
	}
	value, ok := jar.Lookup("LIVE")
	if !ok || value != "y" {
		t.Fatalf("case-insensitive lookup failed: %q %v", value, ok)
	}
}

func TestHeaderValueFilters(t *testing.T) {
	jar := &Jar{Cookies: []Cookie{
		{Name: "a", Value: "1", Domain: "example.com"},
		{Name: "b", Value: "2", Domain: "other.com"},
		{Name: "c", Value: "3", Domain: "example.com", Secure: true},
		{Name: "d", Value: "4", Domain: "example.com", Path: "/admin"},
	}}

	ws, _ := url.Parse("ws://chat.example.com/lobby")
	if got := jar.HeaderValue(ws); got != "a=1" {
		t.Fatalf("ws header mismatch: %q", got)
	}

	wss, _ := url.Parse("wss://example.com/lobby")
	if got := jar.HeaderValue(wss); got != "a=1; c=3" {
		t.Fatalf("wss header mismatch: %q", got)
	}

	admin, _ := url.Parse("wss://example.com/admin/console")
	if got := jar.HeaderValue(admin); got != "a=1; c=3; d=4" {
		t.Fatalf("path header mismatch: %q", got)
	}
}
