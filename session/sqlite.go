package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/conclave-ai/conclave/core"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLitePersistence is a durable Persistence backend storing each session's
// context as a JSON blob in SQLite. Thread-safe: sql.DB handles connection
// pooling and concurrent access.
type SQLitePersistence struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path. Use
// ":memory:" for an ephemeral database in tests.
func OpenSQLite(path string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &SQLitePersistence{db: db}, nil
}

// Load implements Persistence.
func (p *SQLitePersistence) Load(ctx context.Context, sessionID string) (*core.Context, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var c core.Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &c, nil
}

// Save implements Persistence.
func (p *SQLitePersistence) Save(ctx context.Context, c *core.Context) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", c.SessionID, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		c.SessionID, data, c.Created, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *SQLitePersistence) Close() error { return p.db.Close() }
