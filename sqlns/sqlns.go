// Package sqlns provides a namespace of variables stored in a SQL table.
//
// The table has the schema
//
//	name TEXT PRIMARY KEY, value REAL NOT NULL
//
// and is created if it does not exist. Any database/sql driver that accepts
// ? placeholders and ON CONFLICT upserts works; Open uses the pure Go SQLite
// driver.
package sqlns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/zephyrtronium/fastexpr"
)

// ErrNaN is returned when storing NaN, which SQL cannot represent as REAL.
var ErrNaN = errors.New("sqlns: cannot store NaN")

// Store is a fastexpr.Namespace backed by a SQL table. It resolves variables
// only. A Store is safe for concurrent use.
type Store struct {
	db    *sql.DB
	table string
	owned bool

	get, set, del string
}

// Open opens or creates a SQLite database at path and uses table within it.
// The Store owns the database, so Close closes it. The path ":memory:"
// opens a private in-memory database.
func Open(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New uses table in db, creating it if needed. The caller retains ownership
// of db.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if !validTable(table) {
		return nil, fmt.Errorf("sqlns: invalid table name %q", table)
	}
	q := `CREATE TABLE IF NOT EXISTS "` + table + `" (
		name TEXT PRIMARY KEY,
		value REAL NOT NULL
	)`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	s := Store{
		db:    db,
		table: table,
		get:   `SELECT value FROM "` + table + `" WHERE name = ?`,
		set: `INSERT INTO "` + table + `" (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		del: `DELETE FROM "` + table + `" WHERE name = ?`,
	}
	return &s, nil
}

// validTable reports whether name is safe to interpolate as a quoted table
// name.
func validTable(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the value of a variable and whether it exists.
func (s *Store) Lookup(ctx context.Context, name string) (float64, bool, error) {
	var x float64
	err := s.db.QueryRowContext(ctx, s.get, name).Scan(&x)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlns: lookup %s: %w", name, err)
	}
	return x, true, nil
}

// Resolve looks up a variable. Calls fail with a *fastexpr.NameError.
func (s *Store) Resolve(name string, args []float64) (float64, error) {
	if len(args) != 0 {
		return 0, &fastexpr.NameError{Name: name, Args: len(args)}
	}
	x, ok, err := s.Lookup(context.Background(), name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &fastexpr.NameError{Name: name}
	}
	return x, nil
}

// Set creates or replaces a variable.
func (s *Store) Set(ctx context.Context, name string, x float64) error {
	if math.IsNaN(x) {
		return ErrNaN
	}
	if _, err := s.db.ExecContext(ctx, s.set, name, x); err != nil {
		return fmt.Errorf("sqlns: set %s: %w", name, err)
	}
	return nil
}

// Delete removes a variable. Deleting a missing variable is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, s.del, name); err != nil {
		return fmt.Errorf("sqlns: delete %s: %w", name, err)
	}
	return nil
}

// Snapshot loads every variable into memory. Evaluating against a snapshot
// avoids a query per name.
func (s *Store) Snapshot(ctx context.Context) (fastexpr.MapNamespace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM "`+s.table+`"`)
	if err != nil {
		return nil, fmt.Errorf("sqlns: snapshot: %w", err)
	}
	defer rows.Close()
	m := make(fastexpr.MapNamespace)
	for rows.Next() {
		var name string
		var x float64
		if err := rows.Scan(&name, &x); err != nil {
			return nil, fmt.Errorf("sqlns: scan: %w", err)
		}
		m[name] = x
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlns: snapshot: %w", err)
	}
	return m, nil
}

// Names returns the sorted names of every variable.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	m, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}
