package rowstore

import (
	"context"
	"fmt"
	"strings"
)

// Query accumulates filter predicates for a single select round trip.
// Predicates combine with AND; MatchAny contributes one OR group. The
// first invalid field or table name poisons the query and surfaces
// from Execute.
type Query struct {
	store   *Store
	table   string
	cols    []string
	conds   []string
	args    []any
	orConds []string
	orArgs  []any
	orderBy string
	from    int
	to      int
	err     error
}

// Select restricts the fetched columns. Without it all columns are
// returned.
func (q *Query) Select(cols ...string) *Query {
	for _, c := range cols {
		if !identPattern.MatchString(c) {
			q.fail(c)
			return q
		}
	}
	q.cols = cols
	return q
}

func (q *Query) fail(field string) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid column name %q", field)
	}
}

// cond appends one predicate. The expression names the column as %s,
// possibly more than once; every occurrence is substituted.
func (q *Query) cond(field, expr string, args ...any) *Query {
	if !identPattern.MatchString(field) {
		q.fail(field)
		return q
	}
	q.conds = append(q.conds, strings.ReplaceAll(expr, "%s", field))
	q.args = append(q.args, args...)
	return q
}

// Eq adds an exact equality predicate.
func (q *Query) Eq(field string, v any) *Query {
	return q.cond(field, "%s = ?", v)
}

// Neq adds an exact inequality predicate.
func (q *Query) Neq(field string, v any) *Query {
	return q.cond(field, "%s != ?", v)
}

// EqFold adds a case-insensitive equality predicate for text columns.
func (q *Query) EqFold(field, v string) *Query {
	return q.cond(field, "LOWER(%s) = LOWER(?)", v)
}

// NeqFold adds a case-insensitive negated match for text columns.
func (q *Query) NeqFold(field, v string) *Query {
	return q.cond(field, "%s IS NOT NULL AND LOWER(%s) != LOWER(?)", v)
}

// ILike adds a case-insensitive pattern match. The caller supplies the
// wildcards, e.g. "%term%".
func (q *Query) ILike(field, pattern string) *Query {
	return q.cond(field, "%s LIKE ? COLLATE NOCASE", pattern)
}

// NotILike adds a case-insensitive negated pattern match. NULL values
// do not match the pattern and are therefore kept.
func (q *Query) NotILike(field, pattern string) *Query {
	return q.cond(field, "(%s IS NULL OR %s NOT LIKE ? COLLATE NOCASE)", pattern)
}

// Gt adds a numeric greater-than predicate.
func (q *Query) Gt(field string, n float64) *Query {
	return q.cond(field, "%s > ?", n)
}

// Gte adds a greater-or-equal predicate. Also used for ISO date range
// lower bounds, which compare correctly as text.
func (q *Query) Gte(field string, v any) *Query {
	return q.cond(field, "%s >= ?", v)
}

// Lt adds a less-than predicate.
func (q *Query) Lt(field string, v any) *Query {
	return q.cond(field, "%s < ?", v)
}

// IsNull keeps rows where the field is null.
func (q *Query) IsNull(field string) *Query {
	return q.cond(field, "%s IS NULL")
}

// NotNull keeps rows where the field is set.
func (q *Query) NotNull(field string) *Query {
	return q.cond(field, "%s IS NOT NULL")
}

// MatchAny adds one OR group of case-insensitive pattern matches
// across the given fields. Used for free-text search.
func (q *Query) MatchAny(fields []string, pattern string) *Query {
	for _, f := range fields {
		if !identPattern.MatchString(f) {
			q.fail(f)
			return q
		}
		q.orConds = append(q.orConds, f+" LIKE ? COLLATE NOCASE")
		q.orArgs = append(q.orArgs, pattern)
	}
	return q
}

// OrderDesc orders results by the given column, newest first.
func (q *Query) OrderDesc(field string) *Query {
	if !identPattern.MatchString(field) {
		q.fail(field)
		return q
	}
	q.orderBy = field + " DESC"
	return q
}

// Range limits results to the inclusive row window [from, to].
func (q *Query) Range(from, to int) *Query {
	q.from = from
	q.to = to
	return q
}

func (q *Query) build(selectExpr string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectExpr)
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)

	args := append([]any{}, q.args...)
	var where []string
	where = append(where, q.conds...)
	if len(q.orConds) > 0 {
		where = append(where, "("+strings.Join(q.orConds, " OR ")+")")
		args = append(args, q.orArgs...)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	if q.from >= 0 && q.to >= q.from {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.to-q.from+1, q.from)
	}
	return sb.String(), args
}

// Execute runs the query and returns the result-set column order plus
// the rows.
func (q *Query) Execute(ctx context.Context) ([]string, []Row, error) {
	if q.err != nil {
		return nil, nil, q.err
	}

	selectExpr := "*"
	if len(q.cols) > 0 {
		selectExpr = strings.Join(q.cols, ", ")
	}
	stmt, args := q.build(selectExpr)

	rows, err := q.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query against %s failed: %w", q.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = scanValue(raw[i])
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// Count returns the number of matching rows, ignoring any range.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}

	saveFrom, saveTo := q.from, q.to
	q.from, q.to = -1, -1
	stmt, args := q.build("COUNT(*)")
	q.from, q.to = saveFrom, saveTo

	var n int64
	if err := q.store.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count against %s failed: %w", q.table, err)
	}
	return n, nil
}
