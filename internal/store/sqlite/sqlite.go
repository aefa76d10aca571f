package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/roomcast-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	room TEXT NOT NULL,
	key  TEXT NOT NULL,
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	ts   INTEGER NOT NULL,
	PRIMARY KEY (room, key)
);
`

// SQLiteStore implements store.Log for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite log.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a record under (room, key). Keys are unique per room;
// inserting a duplicate key fails.
func (s *SQLiteStore) Append(ctx context.Context, room, key string, rec store.Record) error {
	query := `
		INSERT INTO history (room, key, name, body, ts)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, room, key, rec.Name, rec.Body, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return nil
}

// likeEscaper neutralizes LIKE wildcards so a prefix matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListByPrefix retrieves the room's records whose key starts with prefix,
// oldest first.
func (s *SQLiteStore) ListByPrefix(ctx context.Context, room, prefix string) ([]store.Record, error) {
	query := `
		SELECT key, name, body, ts
		FROM history
		WHERE room = ? AND key LIKE ? ESCAPE '\'
		ORDER BY key ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.Key, &rec.Name, &rec.Body, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListRecent retrieves up to limit of the room's newest records in
// chronological order.
func (s *SQLiteStore) ListRecent(ctx context.Context, room string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT key, name, body, ts
		FROM history
		WHERE room = ?
		ORDER BY key DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.Key, &rec.Name, &rec.Body, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	// Reverse to get chronological order
	for i := range len(records) / 2 {
		records[i], records[len(records)-1-i] = records[len(records)-1-i], records[i]
	}

	return records, rows.Err()
}

// Ensure SQLiteStore implements store.Log
var _ store.Log = (*SQLiteStore)(nil)
