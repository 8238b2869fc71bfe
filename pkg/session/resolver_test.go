package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"igtracker/pkg/auth"
	"igtracker/pkg/config"
)

// fakeTransport records how a session was installed
type fakeTransport struct {
	sessionID   string
	exportPaths []string
	exportOK    bool
}

func (f *fakeTransport) SetSessionID(sessionID string) {
	f.sessionID = sessionID
}

func (f *fakeTransport) LoadSessionExport(path string) error {
	f.exportPaths = append(f.exportPaths, path)
	if !f.exportOK {
		return os.ErrInvalid
	}
	f.sessionID = "from-export"
	return nil
}

func writeSessionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instagram.session")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write session file: %v", err)
	}
	return path
}

func TestResolveFromConfig(t *testing.T) {
	transport := &fakeTransport{}
	resolver := NewResolver(nil, nil)

	cfg := &config.InstagramConfig{SessionID: "configured-token"}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed with configured token")
	}
	if transport.sessionID != "configured-token" {
		t.Errorf("Expected configured-token, got %s", transport.sessionID)
	}
}

func TestResolveFromCredentialStore(t *testing.T) {
	store := auth.NewMockStore()
	if err := store.Store(&auth.Credential{Username: "tracker", SessionID: "stored-token"}); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	transport := &fakeTransport{}
	resolver := NewResolver(store, nil)

	cfg := &config.InstagramConfig{Username: "tracker"}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed via credential store")
	}
	if transport.sessionID != "stored-token" {
		t.Errorf("Expected stored-token, got %s", transport.sessionID)
	}
}

func TestResolveFromNativeExport(t *testing.T) {
	path := writeSessionFile(t, `{"cookies":{"sessionid":"x"}}`)

	transport := &fakeTransport{exportOK: true}
	resolver := NewResolver(nil, nil)

	cfg := &config.InstagramConfig{SessionFile: path}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed via session export")
	}
	if len(transport.exportPaths) != 1 || transport.exportPaths[0] != path {
		t.Errorf("Expected native deserializer to be tried with %s", path)
	}
	if transport.sessionID != "from-export" {
		t.Errorf("Expected from-export, got %s", transport.sessionID)
	}
}

func TestResolveFromRawJSON(t *testing.T) {
	path := writeSessionFile(t, `{"sessionid":"raw-json-token"}`)

	// Native deserializer rejects the file, raw JSON fallback succeeds
	transport := &fakeTransport{exportOK: false}
	resolver := NewResolver(nil, nil)

	cfg := &config.InstagramConfig{SessionFile: path}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed via raw JSON fallback")
	}
	if transport.sessionID != "raw-json-token" {
		t.Errorf("Expected raw-json-token, got %s", transport.sessionID)
	}
}

func TestResolveFromBareToken(t *testing.T) {
	path := writeSessionFile(t, "  bare-token-value\n")

	transport := &fakeTransport{exportOK: false}
	resolver := NewResolver(nil, nil)

	cfg := &config.InstagramConfig{SessionFile: path}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed via bare token fallback")
	}
	if transport.sessionID != "bare-token-value" {
		t.Errorf("Expected bare-token-value, got %s", transport.sessionID)
	}
}

func TestResolveAnonymous(t *testing.T) {
	transport := &fakeTransport{}
	resolver := NewResolver(nil, nil)

	// No token, no file
	cfg := &config.InstagramConfig{SessionFile: filepath.Join(t.TempDir(), "missing.session")}
	if resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to fail with no sources")
	}
	if transport.sessionID != "" {
		t.Errorf("Expected no session to be installed, got %s", transport.sessionID)
	}
}

func TestResolutionOrder(t *testing.T) {
	// Configured token wins over a populated credential store and file
	store := auth.NewMockStore()
	_ = store.Store(&auth.Credential{Username: "tracker", SessionID: "stored-token"})

	raw, _ := json.Marshal(map[string]string{"sessionid": "file-token"})
	path := writeSessionFile(t, string(raw))

	transport := &fakeTransport{exportOK: true}
	resolver := NewResolver(store, nil)

	cfg := &config.InstagramConfig{
		Username:    "tracker",
		SessionID:   "configured-token",
		SessionFile: path,
	}
	if !resolver.Resolve(cfg, transport) {
		t.Fatal("Expected resolution to succeed")
	}
	if transport.sessionID != "configured-token" {
		t.Errorf("Expected configured token to win, got %s", transport.sessionID)
	}
	if len(transport.exportPaths) != 0 {
		t.Error("Expected session file to not be consulted")
	}
}
