// Package sqlite implements the durable record store behind the semantic
// cache. Rows are append-only; ids come from an AUTOINCREMENT key so they keep
// increasing across clears.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/vector"
)

// Store is a SQLite-backed record store.
type Store struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS semantic_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_text TEXT NOT NULL,
	embedding BLOB NOT NULL,
	response_json TEXT NOT NULL
);
`

// synchronous=FULL so a committed append survives power loss in WAL mode.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"

// New opens (or creates) the store at dbPath and runs the migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Append persists a record and returns its id. The row is committed before
// Append returns.
func (s *Store) Append(ctx context.Context, queryText string, embedding []float32, response []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO semantic_cache (query_text, embedding, response_json) VALUES (?, ?, ?)`,
		queryText, vector.Encode(embedding), string(response),
	)
	if err != nil {
		return 0, fmt.Errorf("cache append: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cache append id: %w", err)
	}
	return id, nil
}

// ScanAll calls fn for every record in insertion order. Iteration stops at the
// first error returned by fn.
func (s *Store) ScanAll(ctx context.Context, fn func(models.CacheRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, embedding, response_json FROM semantic_cache ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Fetch returns the record with the given id. The bool is false if no such
// record exists.
func (s *Store) Fetch(ctx context.Context, id int64) (models.CacheRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query_text, embedding, response_json FROM semantic_cache WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheRecord{}, false, nil
	}
	if err != nil {
		return models.CacheRecord{}, false, err
	}
	return rec, true, nil
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM semantic_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM semantic_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.CacheRecord, error) {
	var (
		rec      models.CacheRecord
		blob     []byte
		response string
	)
	if err := sc.Scan(&rec.ID, &rec.QueryText, &blob, &response); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan cache record: %w", err)
	}
	emb, err := vector.Decode(blob)
	if err != nil {
		return rec, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	rec.Embedding = emb
	rec.Response = []byte(response)
	return rec, nil
}
