package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

const historyDBName = "history.db"

// EncryptedHistory implements domain.HistoryStore using a SQLCipher
// encrypted SQLite database. Timeline events and session summaries carry
// window titles, so they never touch disk unencrypted.
type EncryptedHistory struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedHistory opens (or creates) the encrypted history database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedHistory(dataDir string, key []byte) (*EncryptedHistory, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, historyDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify encryption works by running a query
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	h := &EncryptedHistory{
		db:     db,
		dbPath: dbPath,
	}

	if err := h.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return h, nil
}

// createTables creates the schema if it doesn't exist.
func (h *EncryptedHistory) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS timeline_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		state TEXT NOT NULL,
		app TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_timeline_at ON timeline_events(at);

	CREATE TABLE IF NOT EXISTS session_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		summary TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_at ON session_summaries(at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (h *EncryptedHistory) Path() string {
	return h.dbPath
}

// AppendTimeline stores timeline events in one transaction.
func (h *EncryptedHistory) AppendTimeline(events []domain.TimelineEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO timeline_events (at, state, app, title) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.At.UnixMilli(), string(ev.State), ev.App, ev.Title); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert timeline event: %w", err)
		}
	}
	return tx.Commit()
}

// SaveSummary stores a session summary snapshot as a JSON blob.
func (h *EncryptedHistory) SaveSummary(at time.Time, summary domain.SessionSummary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	_, err = h.db.Exec(`INSERT INTO session_summaries (at, summary) VALUES (?, ?)`,
		at.UnixMilli(), string(blob))
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// RecentSummaries returns up to limit summaries recorded since the cutoff,
// newest first. A limit of 0 means no limit.
func (h *EncryptedHistory) RecentSummaries(since time.Time, limit int) ([]domain.SummaryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(
		`SELECT at, summary FROM session_summaries WHERE at >= ? ORDER BY at DESC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var records []domain.SummaryRecord
	for rows.Next() {
		var atMS int64
		var blob string
		if err := rows.Scan(&atMS, &blob); err != nil {
			return nil, err
		}
		var summary domain.SessionSummary
		if err := json.Unmarshal([]byte(blob), &summary); err != nil {
			// Skip unreadable rows rather than failing the report.
			continue
		}
		records = append(records, domain.SummaryRecord{
			At:      time.UnixMilli(atMS),
			Summary: summary,
		})
	}
	return records, rows.Err()
}

// RecentTimeline returns the most recent events since the cutoff, capped at
// limit, in chronological order. A limit of 0 means no limit.
func (h *EncryptedHistory) RecentTimeline(since time.Time, limit int) ([]domain.TimelineEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(
		`SELECT at, state, app, title FROM timeline_events WHERE at >= ? ORDER BY at DESC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var atMS int64
		var state, app, title string
		if err := rows.Scan(&atMS, &state, &app, &title); err != nil {
			return nil, err
		}
		events = append(events, domain.TimelineEvent{
			At:    time.UnixMilli(atMS),
			State: domain.SessionState(state),
			App:   app,
			Title: title,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse newest-first into chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Prune deletes timeline events and summaries older than the cutoff.
func (h *EncryptedHistory) Prune(olderThan time.Time) error {
	cutoff := olderThan.UnixMilli()
	if _, err := h.db.Exec(`DELETE FROM timeline_events WHERE at < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune timeline: %w", err)
	}
	if _, err := h.db.Exec(`DELETE FROM session_summaries WHERE at < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune summaries: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (h *EncryptedHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Ensure EncryptedHistory implements domain.HistoryStore.
var _ domain.HistoryStore = (*EncryptedHistory)(nil)
