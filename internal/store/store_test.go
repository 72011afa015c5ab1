package store

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chatcmd.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRestrictsPermissions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "chatcmd.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("database permissions = %o, want 0600", perm)
	}
}

func TestDefaultModelSeeded(t *testing.T) {
	s := openTestStore(t)

	model, provider, err := s.ActiveModel()
	if err != nil {
		t.Fatalf("ActiveModel returned error: %v", err)
	}
	if model != "gpt-3.5-turbo" || provider != "openai" {
		t.Errorf("unexpected seeded selection: %s/%s", model, provider)
	}
}

func TestSetActiveModel(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetActiveModel("claude-3-haiku", "anthropic"); err != nil {
		t.Fatalf("SetActiveModel returned error: %v", err)
	}
	model, provider, err := s.ActiveModel()
	if err != nil {
		t.Fatalf("ActiveModel returned error: %v", err)
	}
	if model != "claude-3-haiku" || provider != "anthropic" {
		t.Errorf("selection not persisted: %s/%s", model, provider)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, found, err := s.Credential("openai"); err != nil || found {
		t.Fatalf("expected no credential initially, found=%v err=%v", found, err)
	}

	if err := s.SetCredential("openai", "sk-first-key-000000000", ""); err != nil {
		t.Fatalf("SetCredential returned error: %v", err)
	}
	c, found, err := s.Credential("openai")
	if err != nil || !found {
		t.Fatalf("expected credential, found=%v err=%v", found, err)
	}
	if c.Secret != "sk-first-key-000000000" {
		t.Errorf("unexpected secret %q", c.Secret)
	}

	// Re-setting must replace, not duplicate.
	if err := s.SetCredential("openai", "sk-second-key-00000000", "https://proxy.example"); err != nil {
		t.Fatalf("SetCredential update returned error: %v", err)
	}
	c, _, err = s.Credential("openai")
	if err != nil {
		t.Fatalf("Credential returned error: %v", err)
	}
	if c.Secret != "sk-second-key-00000000" || c.BaseURL != "https://proxy.example" {
		t.Errorf("credential not replaced: %+v", c)
	}
}

func TestHistoryLifecycle(t *testing.T) {
	s := openTestStore(t)

	prompts := []string{"list files", "disk usage", "running processes"}
	commands := []string{"ls -la", "df -h", "ps aux"}
	for i := range prompts {
		if err := s.AppendHistory(prompts[i], commands[i], "gpt-4", "openai"); err != nil {
			t.Fatalf("AppendHistory returned error: %v", err)
		}
	}

	entries, err := s.LastCommands(2)
	if err != nil {
		t.Fatalf("LastCommands returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Command != "ps aux" || entries[1].Command != "df -h" {
		t.Errorf("unexpected order: %q, %q", entries[0].Command, entries[1].Command)
	}
	if entries[0].ModelName != "gpt-4" || entries[0].Provider != "openai" {
		t.Errorf("missing attribution: %+v", entries[0])
	}

	if err := s.DeleteLastCommand(); err != nil {
		t.Fatalf("DeleteLastCommand returned error: %v", err)
	}
	count, err := s.HistoryCount()
	if err != nil {
		t.Fatalf("HistoryCount returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 entries after delete-last, got %d", count)
	}

	deleted, err := s.ClearHistory()
	if err != nil {
		t.Fatalf("ClearHistory returned error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	count, _ = s.HistoryCount()
	if count != 0 {
		t.Errorf("expected empty history, got %d", count)
	}
}

func TestUsageStats(t *testing.T) {
	s := openTestStore(t)

	if err := s.RecordUsage("openai", "gpt-4", 1.5, true); err != nil {
		t.Fatalf("RecordUsage returned error: %v", err)
	}
	if err := s.RecordUsage("anthropic", "claude-3-haiku", 0, false); err != nil {
		t.Fatalf("RecordUsage returned error: %v", err)
	}

	stats, err := s.UsageStats(30)
	if err != nil {
		t.Fatalf("UsageStats returned error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 records, got %d", len(stats))
	}
	// Newest first.
	if stats[0].Provider != "anthropic" || stats[0].Success {
		t.Errorf("unexpected first record: %+v", stats[0])
	}
	if stats[1].Provider != "openai" || !stats[1].Success || stats[1].ResponseTime != 1.5 {
		t.Errorf("unexpected second record: %+v", stats[1])
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chatcmd.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	if err := s.SetCredential("cohere", "cohere-key-000000000000", ""); err != nil {
		t.Fatalf("SetCredential returned error: %v", err)
	}
	s.Close()

	// Reopening must keep existing data and not reseed over it.
	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	defer s.Close()
	if _, found, err := s.Credential("cohere"); err != nil || !found {
		t.Errorf("credential lost across reopen, found=%v err=%v", found, err)
	}
}
