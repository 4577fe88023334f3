package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Store is a capability-based client for the backing row store:
// select with filter predicates, ordering and range pagination, plus
// insert, update and delete. Handlers never see SQL; they compose
// queries through Table. The handle is stateless and safe for
// concurrent use.
type Store struct {
	db  querier
	tx  *sql.Tx
	sdb *sql.DB
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, sdb: db}
}

// WithTx runs fn against a transactional view of the store, committing
// on nil and rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx != nil {
		return fn(s) // already transactional
	}
	tx, err := s.sdb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStore := &Store{db: tx, tx: tx, sdb: s.sdb}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Columns returns the column names of a table in declaration order.
// Unknown tables return an empty slice, not an error.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Table begins a query against the named table.
func (s *Store) Table(name string) *Query {
	q := &Query{store: s, table: name, from: -1, to: -1}
	if !identPattern.MatchString(name) {
		q.err = fmt.Errorf("invalid table name %q", name)
	}
	return q
}

// Insert writes the given rows. Column order is derived from the first
// row's sorted keys; rows missing a key insert NULL for it.
func (s *Store) Insert(ctx context.Context, table string, rows []Row) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if len(rows) == 0 {
		return nil
	}

	cols := sortedKeys(rows[0])
	for _, c := range cols {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), placeholders)

	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = toDriver(row[c])
		}
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// Update sets the given values on every row matching the where
// conditions (exact equality on each key).
func (s *Store) Update(ctx context.Context, table string, values, where Row) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if len(values) == 0 {
		return nil
	}

	setCols := sortedKeys(values)
	whereCols := sortedKeys(where)
	for _, c := range append(append([]string{}, setCols...), whereCols...) {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}

	sets := make([]string, len(setCols))
	args := make([]any, 0, len(setCols)+len(whereCols))
	for i, c := range setCols {
		sets[i] = c + " = ?"
		args = append(args, toDriver(values[c]))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	if len(whereCols) > 0 {
		conds := make([]string, len(whereCols))
		for i, c := range whereCols {
			conds[i] = c + " = ?"
			args = append(args, toDriver(where[c]))
		}
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

// Delete removes every row matching the where conditions (exact
// equality on each key). An empty where map is rejected to avoid
// accidental full-table deletes.
func (s *Store) Delete(ctx context.Context, table string, where Row) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if len(where) == 0 {
		return fmt.Errorf("refusing to delete from %s without conditions", table)
	}

	whereCols := sortedKeys(where)
	conds := make([]string, len(whereCols))
	args := make([]any, len(whereCols))
	for i, c := range whereCols {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
		conds[i] = c + " = ?"
		args[i] = toDriver(where[c])
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(conds, " AND "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
