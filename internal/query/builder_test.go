package query

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opsdb "github.com/stitchgrid/opsboard/internal/db"
	"github.com/stitchgrid/opsboard/internal/rowstore"
)

func testBuilder(t *testing.T) (*Builder, *rowstore.Store) {
	t.Helper()
	database, err := opsdb.Open(":memory:")
	require.NoError(t, err, "failed to open test db")
	t.Cleanup(func() { database.Close() })
	store := rowstore.New(database)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, log), store
}

func seedN(t *testing.T, store *rowstore.Store, n int) {
	t.Helper()
	rows := make([]rowstore.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, rowstore.Row{
			"id":              rowstore.TextValue(fmt.Sprintf("row-%03d", i)),
			"input_timestamp": rowstore.TextValue(fmt.Sprintf("2024-03-01T10:%02d:00Z", i)),
			"date":            rowstore.TextValue("2024-03-01"),
			"product":         rowstore.TextValue("Towel"),
			"line":            rowstore.TextValue("L1"),
			"design":          rowstore.TextValue("D1"),
			"size":            rowstore.TextValue("M"),
			"pcs_pack":        rowstore.IntValue(6),
			"produced_qty":    rowstore.IntValue(i),
			"rejection":       rowstore.IntValue(0),
			"sets":            rowstore.IntValue(0),
			"unpair_pcs":      rowstore.IntValue(0),
		})
	}
	require.NoError(t, store.Insert(context.Background(), "production", rows))
}

func TestPagesConcatenateToFullSet(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 25)

	seen := map[string]bool{}
	var pages int
	for page := 1; ; page++ {
		res := b.Run(context.Background(), Request{Table: "production", Page: page, Limit: 10})
		require.Empty(t, res.Error)
		pages = res.TotalPages
		for _, row := range res.Rows {
			id := row["id"].Text()
			assert.False(t, seen[id], "row %s appeared twice", id)
			seen[id] = true
		}
		if page >= res.TotalPages {
			break
		}
	}
	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
}

func TestRowsOrderedNewestFirst(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 5)

	res := b.Run(context.Background(), Request{Table: "production", Page: 1, Limit: 10})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, "row-004", res.Rows[0]["id"].Text())
	assert.Equal(t, "row-000", res.Rows[4]["id"].Text())
}

func TestPageNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"abc", 1},
		{"", 1},
		{"0", 1},
		{"-3", 1},
		{"2", 2},
		{"100000", MaxPage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePage(tt.in), "ParsePage(%q)", tt.in)
	}
}

func TestTotalPagesZeroWhenEmpty(t *testing.T) {
	b, _ := testBuilder(t)

	res := b.Run(context.Background(), Request{Table: "production", Page: 1, Limit: 10})
	require.Empty(t, res.Error)
	assert.Zero(t, res.TotalPages)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Headers, "empty page yields empty headers")
}

func TestEqualFilterIsCaseInsensitive(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 3)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Filters: []Filter{{Field: "product", Operator: "equal", Value: "tOwEl"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 3)
}

func TestNotEqualFilterOnText(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 3)
	require.NoError(t, store.Insert(context.Background(), "production", []rowstore.Row{{
		"id":              rowstore.TextValue("robe-1"),
		"input_timestamp": rowstore.TextValue("2024-03-02T10:00:00Z"),
		"product":         rowstore.TextValue("Robe"),
	}}))

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Filters: []Filter{{Field: "product", Operator: "not_equal", Value: "TOWEL"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "robe-1", res.Rows[0]["id"].Text())
}

func TestNumericEqualWithBadValueIsDropped(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 3)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Filters: []Filter{{Field: "produced_qty", Operator: "equal", Value: "lots"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 3, "unusable filter should be ignored")
}

func TestGtWithBadValueReportsError(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 3)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Filters: []Filter{{Field: "produced_qty", Operator: "gt", Value: "many"}},
		Page:    7,
	})
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 1, res.TotalPages)
}

func TestGtFiltersNumerically(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 10)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Filters: []Filter{{Field: "produced_qty", Operator: "gt", Value: "6"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 3) // 7, 8, 9
}

func TestSearchSkippedWithoutSearchableColumn(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 4)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Search:  "row-001",
		Columns: []string{"date", "produced_qty"},
		Page:    1,
	})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 4, "no searchable column selected, term ignored")
	assert.Equal(t, []string{"date", "produced_qty"}, res.Headers)
}

func TestSearchMatchesAllowListedColumns(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 4)

	res := b.Run(context.Background(), Request{Table: "production", Search: "ROW-002", Page: 1})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "row-002", res.Rows[0]["id"].Text())
	assert.Equal(t, "ROW-002", res.Search)
}

func TestFilterOutsideRestrictedColumnsSkipped(t *testing.T) {
	b, store := testBuilder(t)
	seedN(t, store, 4)

	res := b.Run(context.Background(), Request{
		Table:   "production",
		Columns: []string{"id", "date"},
		Filters: []Filter{{Field: "produced_qty", Operator: "gt", Value: "2"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	assert.Len(t, res.Rows, 4)
}

func TestUnknownTableFoldsIntoErrorResult(t *testing.T) {
	b, _ := testBuilder(t)

	res := b.Run(context.Background(), Request{Table: "no_such_table", Page: 1})
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 1, res.TotalPages)
}

func TestNotSetAndIsSetOperators(t *testing.T) {
	b, store := testBuilder(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "cutting", []rowstore.Row{
		{
			"id":              rowstore.TextValue("a"),
			"input_timestamp": rowstore.TextValue("2024-03-01T10:00:00Z"),
			"date":            rowstore.TextValue("2024-03-01"),
			"po_no":           rowstore.TextValue("PO-1"),
			"sku":             rowstore.NullValue(),
			"product":         rowstore.TextValue("Towel"),
		},
		{
			"id":              rowstore.TextValue("b"),
			"input_timestamp": rowstore.TextValue("2024-03-01T11:00:00Z"),
			"date":            rowstore.TextValue("2024-03-01"),
			"po_no":           rowstore.TextValue("PO-2"),
			"sku":             rowstore.TextValue("SKU-9"),
			"product":         rowstore.TextValue("Robe"),
		},
	}))

	res := b.Run(ctx, Request{
		Table:   "cutting",
		Filters: []Filter{{Field: "sku", Operator: "not_set"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "a", res.Rows[0]["id"].Text())

	res = b.Run(ctx, Request{
		Table:   "cutting",
		Filters: []Filter{{Field: "sku", Operator: "is_set"}},
		Page:    1,
	})
	require.Empty(t, res.Error)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "b", res.Rows[0]["id"].Text())
}

func TestParseFiltersStopsAtFirstGap(t *testing.T) {
	params := map[string]string{
		"filter_field_0":    "product",
		"filter_operator_0": "equal",
		"filter_value_0":    "Towel",
		"filter_field_1":    "line",
		"filter_operator_1": "equal",
		"filter_value_1":    "L1",
		// no filter 2
		"filter_field_3":    "size",
		"filter_operator_3": "equal",
		"filter_value_3":    "M",
	}
	filters := ParseFilters(func(k string) string { return params[k] })
	require.Len(t, filters, 2)
	assert.Equal(t, "product", filters[0].Field)
	assert.Equal(t, "line", filters[1].Field)
}
