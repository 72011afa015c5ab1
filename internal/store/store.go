// Package store persists provider credentials, the active model selection,
// lookup history, and usage telemetry in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	DirName    = ".chatcmd"
	DBFileName = "chatcmd.db"

	defaultModel    = "gpt-3.5-turbo"
	defaultProvider = "openai"
)

// Store wraps the SQLite database. The CLI is single-threaded, so there is
// no locking around the connection.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Credential is a provider's stored secret plus optional endpoint
// override. Secret is empty for local providers.
type Credential struct {
	ProviderID int64
	Provider   string
	Secret     string
	BaseURL    string
}

// HistoryEntry is one accepted lookup result.
type HistoryEntry struct {
	ID        int64
	Prompt    string
	Command   string
	ModelName string
	Provider  string
	CreatedAt time.Time
}

// UsageStat is one generation attempt, success or failure.
type UsageStat struct {
	Provider     string
	ModelName    string
	ResponseTime float64
	Success      bool
	CreatedAt    time.Time
}

// DefaultPath returns ~/.chatcmd/chatcmd.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName, DBFileName), nil
}

// Open opens (creating if needed) the database at dbPath and initializes
// the schema. The file is chmodded 0600: it holds API keys.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := os.Chmod(dbPath, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ai_providers (
		id INTEGER PRIMARY KEY,
		provider_name TEXT UNIQUE NOT NULL,
		api_key TEXT,
		base_url TEXT,
		is_active BOOLEAN DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_model TEXT NOT NULL,
		current_provider TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY,
		prompt TEXT,
		command TEXT,
		model_name TEXT,
		provider_name TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS usage_stats (
		id INTEGER PRIMARY KEY,
		provider_name TEXT,
		model_name TEXT,
		response_time REAL,
		success BOOLEAN DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
	CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_stats(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Seed the single config row on first run.
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO config (id, current_model, current_provider)
		VALUES (1, ?, ?)
	`, defaultModel, defaultProvider)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetCredential stores or replaces a provider's API key and base URL.
func (s *Store) SetCredential(provider, apiKey, baseURL string) error {
	_, err := s.db.Exec(`
		INSERT INTO ai_providers (provider_name, api_key, base_url, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_name) DO UPDATE SET
			api_key = excluded.api_key,
			base_url = excluded.base_url,
			updated_at = CURRENT_TIMESTAMP
	`, provider, apiKey, baseURL)
	return err
}

// Credential looks up a provider's stored credential. The second return is
// false when the provider has never been configured.
func (s *Store) Credential(provider string) (Credential, bool, error) {
	var c Credential
	var apiKey, baseURL sql.NullString
	err := s.db.QueryRow(`
		SELECT id, provider_name, api_key, base_url FROM ai_providers
		WHERE provider_name = ?
	`, provider).Scan(&c.ProviderID, &c.Provider, &apiKey, &baseURL)
	if err == sql.ErrNoRows {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, err
	}
	c.Secret = apiKey.String
	c.BaseURL = baseURL.String
	return c, true, nil
}

// ActiveModel returns the current model and provider selection.
func (s *Store) ActiveModel() (model, provider string, err error) {
	err = s.db.QueryRow(`SELECT current_model, current_provider FROM config WHERE id = 1`).
		Scan(&model, &provider)
	if err != nil {
		return "", "", fmt.Errorf("failed to read active model: %w", err)
	}
	return model, provider, nil
}

// SetActiveModel persists the model/provider selection.
func (s *Store) SetActiveModel(model, provider string) error {
	_, err := s.db.Exec(`
		UPDATE config SET current_model = ?, current_provider = ? WHERE id = 1
	`, model, provider)
	return err
}

// AppendHistory records an accepted result with model attribution.
func (s *Store) AppendHistory(prompt, command, modelName, provider string) error {
	_, err := s.db.Exec(`
		INSERT INTO history (prompt, command, model_name, provider_name)
		VALUES (?, ?, ?, ?)
	`, prompt, command, modelName, provider)
	return err
}

// LastCommands returns the n most recent history entries, newest first.
func (s *Store) LastCommands(n int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt, command, model_name, provider_name, created_at
		FROM history ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var model, provider, created sql.NullString
		if err := rows.Scan(&e.ID, &e.Prompt, &e.Command, &model, &provider, &created); err != nil {
			return nil, err
		}
		e.ModelName = model.String
		e.Provider = provider.String
		e.CreatedAt = parseDBTime(created.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteLastCommand removes the most recent history entry.
func (s *Store) DeleteLastCommand() error {
	_, err := s.db.Exec(`DELETE FROM history WHERE id = (SELECT MAX(id) FROM history)`)
	return err
}

// ClearHistory deletes all history entries and returns how many went.
func (s *Store) ClearHistory() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM history`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HistoryCount returns the number of stored history entries.
func (s *Store) HistoryCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&count)
	return count, err
}

// RecordUsage stores one generation attempt. Telemetry is best-effort;
// callers warn and continue on error.
func (s *Store) RecordUsage(provider, modelName string, responseTime float64, success bool) error {
	_, err := s.db.Exec(`
		INSERT INTO usage_stats (provider_name, model_name, response_time, success)
		VALUES (?, ?, ?, ?)
	`, provider, modelName, responseTime, success)
	return err
}

// UsageStats returns attempts from the last N days, newest first.
func (s *Store) UsageStats(days int) ([]UsageStat, error) {
	rows, err := s.db.Query(`
		SELECT provider_name, model_name, response_time, success, created_at
		FROM usage_stats
		WHERE created_at >= datetime('now', ?)
		ORDER BY id DESC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []UsageStat
	for rows.Next() {
		var st UsageStat
		var rt sql.NullFloat64
		var created sql.NullString
		if err := rows.Scan(&st.Provider, &st.ModelName, &rt, &st.Success, &created); err != nil {
			return nil, err
		}
		st.ResponseTime = rt.Float64
		st.CreatedAt = parseDBTime(created.String)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// parseDBTime parses SQLite's CURRENT_TIMESTAMP text form. A zero time is
// fine for display purposes when parsing fails.
func parseDBTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
