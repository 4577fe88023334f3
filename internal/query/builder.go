// Package query translates browse requests (free-text search, indexed
// field/operator/value filters, column selection, pagination) into row
// store calls and returns page-shaped results for rendering.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// DefaultLimit is the page size used when the caller does not supply one.
const DefaultLimit = 10

// MaxPage caps the page parameter; anything above clamps down.
const MaxPage = 9999

// Filter is one structured condition supplied by the caller.
type Filter struct {
	Field    string
	Operator string
	Value    string
}

// Request describes one browse query.
type Request struct {
	Table   string
	Search  string
	Filters []Filter
	Columns []string // empty = all columns
	Page    int
	Limit   int
}

// Result is the page-shaped answer. On a store failure Error carries a
// marker message and the result is an empty single page; the failure
// never propagates to the caller.
type Result struct {
	Headers     []string       `json:"headers"`
	Rows        []rowstore.Row `json:"rows"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	Search      string         `json:"search"`
	Error       string         `json:"error,omitempty"`
}

// searchColumns is the fixed allow-list of likely-textual columns that
// free-text search may touch. Columns outside this list are never
// searched.
var searchColumns = []string{
	"unique_key", "id", "shipment_id", "production", "channel_abb",
	"po_no", "sku", "product",
}

// numericFields are the quantity-like columns that take numeric
// operator semantics; every other field is treated as text.
var numericFields = map[string]bool{
	"produced_qty":   true,
	"rejection":      true,
	"sets":           true,
	"unpair_pcs":     true,
	"pcs_pack":       true,
	"pieces":         true,
	"total_qty":      true,
	"po_qty":         true,
	"dispatched_qty": true,
	"pending_qty":    true,
}

// Builder runs browse requests against an injected row store.
type Builder struct {
	store *rowstore.Store
	log   *slog.Logger
}

// New creates a Builder.
func New(store *rowstore.Store, log *slog.Logger) *Builder {
	return &Builder{store: store, log: log}
}

// Run executes the request. The full filtered set is fetched and the
// requested page sliced off client-side, so TotalPages always reflects
// every matching row. Store failures are logged and folded into an
// empty result with the Error marker set.
func (b *Builder) Run(ctx context.Context, req Request) Result {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := ClampPage(req.Page)

	cols, rows, err := b.fetch(ctx, req)
	if err != nil {
		b.log.Error("query failed",
			slog.String("table", req.Table),
			slog.String("search", req.Search),
			slog.Any("err", err))
		return Result{
			Headers:     []string{},
			Rows:        nil,
			CurrentPage: 1,
			TotalPages:  1,
			Search:      req.Search,
			Error:       "Failed to fetch data",
		}
	}

	total := len(rows)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	pageRows := rows[start:end]

	// Headers come from the requested columns when restricted,
	// otherwise from the returned page. An empty page yields empty
	// headers; that quirk is part of the contract.
	var headers []string
	switch {
	case len(req.Columns) > 0:
		headers = req.Columns
	case len(pageRows) > 0:
		headers = cols
	default:
		headers = []string{}
	}

	return Result{
		Headers:     headers,
		Rows:        pageRows,
		CurrentPage: page,
		TotalPages:  totalPages,
		Search:      req.Search,
	}
}

// All fetches every row matching the request, ignoring pagination.
// Used by exports, which write the complete filtered set.
func (b *Builder) All(ctx context.Context, req Request) ([]string, []rowstore.Row, error) {
	return b.fetch(ctx, req)
}

func (b *Builder) fetch(ctx context.Context, req Request) ([]string, []rowstore.Row, error) {
	tableCols, err := b.store.Columns(ctx, req.Table)
	if err != nil {
		return nil, nil, err
	}

	q := b.store.Table(req.Table)
	if len(req.Columns) > 0 {
		q.Select(req.Columns...)
	}

	if search := strings.TrimSpace(req.Search); search != "" {
		available := req.Columns
		if len(available) == 0 {
			available = tableCols
		}
		searchable := intersect(searchColumns, available)
		// No searchable column present: the term is silently ignored.
		if len(searchable) > 0 {
			q.MatchAny(searchable, "%"+search+"%")
		}
	}

	for i, f := range req.Filters {
		if len(req.Columns) > 0 && !contains(req.Columns, f.Field) {
			continue // filter on a column outside the restricted view
		}
		if err := b.applyFilter(q, i, f); err != nil {
			return nil, nil, err
		}
	}

	if contains(tableCols, "input_timestamp") {
		q.OrderDesc("input_timestamp")
	}

	return q.Execute(ctx)
}

// applyFilter translates one (field, operator, value) triple onto the
// query. Numeric fields get numeric semantics, everything else is
// matched as text, case-insensitively.
func (b *Builder) applyFilter(q *rowstore.Query, idx int, f Filter) error {
	value := strings.TrimSpace(f.Value)
	numeric := numericFields[f.Field]

	switch f.Operator {
	case "equal":
		if numeric {
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				b.dropFilter(idx, f)
				return nil
			}
			q.Eq(f.Field, n)
		} else {
			q.EqFold(f.Field, value)
		}
	case "not_equal":
		if numeric {
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				b.dropFilter(idx, f)
				return nil
			}
			q.Neq(f.Field, n)
		} else {
			q.NeqFold(f.Field, value)
		}
	case "like":
		q.ILike(f.Field, "%"+value+"%")
	case "not_like":
		q.NotILike(f.Field, "%"+value+"%")
	case "is_set":
		q.NotNull(f.Field)
	case "not_set":
		q.IsNull(f.Field)
	case "gt":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("filter %d: gt requires a numeric value, got %q", idx, f.Value)
		}
		q.Gt(f.Field, n)
	case "lt":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("filter %d: lt requires a numeric value, got %q", idx, f.Value)
		}
		q.Lt(f.Field, n)
	default:
		b.dropFilter(idx, f)
	}
	return nil
}

func (b *Builder) dropFilter(idx int, f Filter) {
	b.log.Debug("dropping filter",
		slog.Int("index", idx),
		slog.String("field", f.Field),
		slog.String("operator", f.Operator),
		slog.String("value", f.Value))
}

func intersect(allowed, present []string) []string {
	var out []string
	for _, a := range allowed {
		if contains(present, a) {
			out = append(out, a)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
