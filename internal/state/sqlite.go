package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLiteStore keeps state in a SQLite table keyed by scope and source.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != MemoryDSN {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrap(err, "resolving state database path")
		}
		if err := paths.EnsureDir(filepath.Dir(abs), paths.DefaultDirPerm); err != nil {
			return nil, errors.Wrap(err, "creating state database directory")
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening state database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kit_state (
			scope TEXT NOT NULL,
			source TEXT NOT NULL,
			names TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (scope, source)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "migrating state database")
		}
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, scope Scope, source Source) (ScopedState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT names FROM kit_state WHERE scope = ? AND source = ?`,
		scope.Key(), string(source),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ScopedState{}, nil
	}
	if err != nil {
		return ScopedState{}, errors.Wrapf(err, "reading state for %s", scope)
	}

	var st ScopedState
	if err := json.Unmarshal([]byte(raw), &st.LastGeneratedKitNames); err != nil {
		return ScopedState{}, errors.Wrapf(err, "decoding state for %s", scope)
	}
	return st, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, scope Scope, source Source, st ScopedState) error {
	names := st.LastGeneratedKitNames
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kit_state (scope, source, names, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, source) DO UPDATE SET names = excluded.names, updated_at = excluded.updated_at`,
		scope.Key(), string(source), string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	return errors.Wrapf(err, "writing state for %s", scope)
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context, scope Scope) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kit_state WHERE scope = ?`, scope.Key())
	return errors.Wrapf(err, "resetting state for %s", scope)
}

// Scopes implements Store.
func (s *SQLiteStore) Scopes(ctx context.Context) ([]Scope, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scope FROM kit_state`)
	if err != nil {
		return nil, errors.Wrap(err, "listing state scopes")
	}
	defer rows.Close()

	var scopes []Scope
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "scanning state scope")
		}
		if sc, err := ParseScopeKey(key); err == nil {
			scopes = append(scopes, sc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing state scopes")
	}
	sortScopes(scopes)
	return scopes, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
