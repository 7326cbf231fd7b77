package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	type TEXT NOT NULL,
	id   TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (type, id)
) WITHOUT ROWID;`

// sqliteBatch bounds the number of bound parameters per IN query.
const sqliteBatch = 500

// SQLiteStore is a CacheStore persisted in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.CacheStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}
	return &SQLiteStore{db: db}, nil
}

// Put upserts a single entry.
func (s *SQLiteStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	return s.PutAll(ctx, entry.Type, []domain.CacheEntry{entry})
}

// PutAll upserts entries of one type in a single transaction.
func (s *SQLiteStore) PutAll(ctx context.Context, typ string, entries []domain.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (type, id, body) VALUES (?, ?, ?)
		 ON CONFLICT (type, id) DO UPDATE SET body = excluded.body`)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		body, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, typ, e.ID, body); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "id", e.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}

// Get retrieves one entry, or nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, typ, id string) (*domain.CacheEntry, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entries WHERE type = ? AND id = ?`, typ, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "id", id)
	}
	entry, err := decodeEntry(body)
	if err != nil {
		return nil, zerr.With(err, "id", id)
	}
	return &entry, nil
}

// GetAll retrieves the entries that exist among ids.
func (s *SQLiteStore) GetAll(ctx context.Context, typ string, ids []string) ([]domain.CacheEntry, error) {
	return s.GetAllFiltered(ctx, typ, ids, domain.AllRelationships())
}

// GetAllFiltered retrieves the entries that exist among ids with filtered relationships.
func (s *SQLiteStore) GetAllFiltered(
	ctx context.Context, typ string, ids []string, filter domain.RelationshipFilter,
) ([]domain.CacheEntry, error) {
	out := make([]domain.CacheEntry, 0, len(ids))
	for chunk := range slices.Chunk(uniqueSorted(ids), sqliteBatch) {
		args := make([]any, 0, len(chunk)+1)
		args = append(args, typ)
		for _, id := range chunk {
			args = append(args, id)
		}
		query := `SELECT body FROM entries WHERE type = ? AND id IN (?` +
			strings.Repeat(", ?", len(chunk)-1) + `) ORDER BY id`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "type", typ)
		}
		entries, err := scanEntries(rows)
		if err != nil {
			return nil, zerr.With(err, "type", typ)
		}
		out = append(out, entries...)
	}
	return filterEntries(out, filter), nil
}

func scanEntries(rows *sql.Rows) ([]domain.CacheEntry, error) {
	defer func() { _ = rows.Close() }()
	var out []domain.CacheEntry
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		entry, err := decodeEntry(body)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return out, nil
}

// GetAllPattern returns the sorted ids of typ matching pattern.
// The literal prefix narrows the scan; the pattern is then applied per segment.
func (s *SQLiteStore) GetAllPattern(ctx context.Context, typ string, pattern domain.Pattern) ([]string, error) {
	like := escapeLike(pattern.Prefix()) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM entries WHERE type = ? AND id LIKE ? ESCAPE '\' ORDER BY id`, typ, like)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "pattern", pattern.String())
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		if pattern.Match(id) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return ids, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// Evict removes ids of typ.
func (s *SQLiteStore) Evict(ctx context.Context, typ string, ids []string) error {
	for chunk := range slices.Chunk(uniqueSorted(ids), sqliteBatch) {
		args := make([]any, 0, len(chunk)+1)
		args = append(args, typ)
		for _, id := range chunk {
			args = append(args, id)
		}
		query := `DELETE FROM entries WHERE type = ? AND id IN (?` + strings.Repeat(", ?", len(chunk)-1) + `)`
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreEvictFailed.Error()), "type", typ)
		}
	}
	return nil
}

// Types returns the sorted types present in the store.
func (s *SQLiteStore) Types(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT type FROM entries ORDER BY type`)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	defer func() { _ = rows.Close() }()

	types := make([]string, 0)
	for rows.Next() {
		var typ string
		if err := rows.Scan(&typ); err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		types = append(types, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return types, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
