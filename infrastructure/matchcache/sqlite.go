// Package matchcache persists ingested match records in SQLite, one row
// per match ID. The cache is append-only: records are immutable once
// written and a repeated Put of the same match is a no-op.
package matchcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	match_id    TEXT PRIMARY KEY,
	data        TEXT NOT NULL,
	ingested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteCache implements ports.MatchCache over a local SQLite file.
// Records are stored as JSON documents keyed by match ID.
type SQLiteCache struct {
	db *sql.DB
}

var _ ports.MatchCache = (*SQLiteCache)(nil)

// Open creates or opens the cache database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral cache in tests.
func Open(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening match cache at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing match cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteCache) Close() error { return c.db.Close() }

// Get implements ports.MatchCache.
func (c *SQLiteCache) Get(ctx context.Context, matchID string) (domain.MatchRecord, bool, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT data FROM matches WHERE match_id = ?`, matchID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchRecord{}, false, nil
	}
	if err != nil {
		return domain.MatchRecord{}, false, fmt.Errorf("reading match %s: %w", matchID, err)
	}

	var match domain.MatchRecord
	if err := json.Unmarshal([]byte(data), &match); err != nil {
		return domain.MatchRecord{}, false, fmt.Errorf("decoding cached match %s: %w", matchID, err)
	}
	return match, true, nil
}

// Put implements ports.MatchCache. Existing records are left untouched.
func (c *SQLiteCache) Put(ctx context.Context, match domain.MatchRecord) error {
	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", match.MatchID, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO matches (match_id, data) VALUES (?, ?)`,
		match.MatchID, string(data))
	if err != nil {
		return fmt.Errorf("writing match %s: %w", match.MatchID, err)
	}
	return nil
}

// All implements ports.MatchCache. Records are returned in match-ID
// order for deterministic aggregation input.
func (c *SQLiteCache) All(ctx context.Context) ([]domain.MatchRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT data FROM matches ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("listing cached matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.MatchRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var match domain.MatchRecord
		if err := json.Unmarshal([]byte(data), &match); err != nil {
			return nil, fmt.Errorf("decoding cached match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// Count implements ports.MatchCache.
func (c *SQLiteCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cached matches: %w", err)
	}
	return n, nil
}
