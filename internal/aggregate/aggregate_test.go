package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

func dispatchRow(date string, qty float64) rowstore.Row {
	return rowstore.Row{
		"etd":            rowstore.TextValue(date),
		"dispatched_qty": rowstore.NumberValue(qty),
	}
}

func TestMonthlySeries(t *testing.T) {
	rows := []rowstore.Row{
		dispatchRow("2024-01-10", 5),
		dispatchRow("2024-01-25", 10),
		dispatchRow("2024-02-03", 7),
		dispatchRow("not-a-date", 100),
	}

	s := MonthlySeries(rows, "etd", "dispatched_qty")
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, s.Labels)
	assert.Equal(t, []float64{15, 7}, s.Values)
	assert.Equal(t, 1, s.Skipped)
}

func TestMonthlySeriesOrdersAcrossYears(t *testing.T) {
	rows := []rowstore.Row{
		dispatchRow("2024-02-01", 1),
		dispatchRow("2023-12-01", 2),
		dispatchRow("2024-01-01", 3),
	}

	s := MonthlySeries(rows, "etd", "dispatched_qty")
	assert.Equal(t, []string{"Dec 2023", "Jan 2024", "Feb 2024"}, s.Labels)
}

func TestMonthlySeriesAcceptsTimestamps(t *testing.T) {
	rows := []rowstore.Row{
		dispatchRow("2024-05-14T09:30:00Z", 4),
		dispatchRow("2024-05-20T18:00:00", 6),
	}

	s := MonthlySeries(rows, "etd", "dispatched_qty")
	require.Equal(t, []string{"May 2024"}, s.Labels)
	assert.Equal(t, []float64{10}, s.Values)
}

func TestQuarterlySeries(t *testing.T) {
	rows := []rowstore.Row{
		dispatchRow("2024-01-10", 5),
		dispatchRow("2024-03-25", 10),
		dispatchRow("2024-04-03", 7),
		dispatchRow("2024-11-01", 2),
	}

	s := QuarterlySeries(rows, "etd", "dispatched_qty")
	assert.Equal(t, []string{"Q1 2024", "Q2 2024", "Q4 2024"}, s.Labels)
	assert.Equal(t, []float64{15, 7, 2}, s.Values)
}

func TestCategoricalSummary(t *testing.T) {
	rows := []rowstore.Row{
		{"channel_abb": rowstore.TextValue("A"), "dispatched_qty": rowstore.NumberValue(10)},
		{"channel_abb": rowstore.TextValue("B"), "dispatched_qty": rowstore.NumberValue(70)},
		{"channel_abb": rowstore.TextValue("A"), "dispatched_qty": rowstore.NumberValue(20)},
	}

	cats := CategoricalSummary(rows, "channel_abb", "dispatched_qty")
	require.Len(t, cats, 2)
	assert.Equal(t, "B", cats[0].Label)
	assert.Equal(t, 70.0, cats[0].Total)
	assert.InDelta(t, 70.0, cats[0].Pct, 1e-9)
	assert.Equal(t, "A", cats[1].Label)
	assert.InDelta(t, 30.0, cats[1].Pct, 1e-9)
}

func TestCategoricalSummaryZeroTotal(t *testing.T) {
	rows := []rowstore.Row{
		{"channel_abb": rowstore.TextValue("A"), "dispatched_qty": rowstore.NumberValue(0)},
	}

	cats := CategoricalSummary(rows, "channel_abb", "dispatched_qty")
	require.Len(t, cats, 1)
	assert.Zero(t, cats[0].Pct)
}

func TestPeriodSummaryISOWeeks(t *testing.T) {
	// Wednesday 2024-03-13, ISO week 11 (Mon 2024-03-11 .. Sun 2024-03-17).
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	rows := []rowstore.Row{
		dispatchRow("2024-03-13", 1),   // today
		dispatchRow("2024-03-12", 100), // yesterday, same week
		dispatchRow("2024-03-11", 2),   // Monday, same week
		dispatchRow("2024-03-17", 4),   // Sunday, same week
		dispatchRow("2024-03-10", 8),   // Sunday, previous week
		dispatchRow("2024-03-01", 16),  // same month only
		dispatchRow("2024-02-20", 200), // previous month
		dispatchRow("2024-01-05", 32),  // same year only
		dispatchRow("2023-12-31", 64),  // previous year
	}

	p := PeriodSummary(rows, "etd", "dispatched_qty", now)
	assert.Equal(t, 1.0, p.Today)
	assert.Equal(t, 100.0, p.Yesterday)
	assert.Equal(t, 107.0, p.ThisWeek)
	assert.Equal(t, 8.0, p.LastWeek)
	assert.Equal(t, 131.0, p.ThisMonth)
	assert.Equal(t, 200.0, p.LastMonth)
	assert.Equal(t, 363.0, p.ThisYear)
}

func TestPeriodSummaryMonthBoundary(t *testing.T) {
	// March 31: the previous month must resolve to February, not an
	// AddDate overflow into March.
	now := time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC)
	rows := []rowstore.Row{
		dispatchRow("2024-02-29", 5),
		dispatchRow("2024-03-02", 7),
	}

	p := PeriodSummary(rows, "etd", "dispatched_qty", now)
	assert.Equal(t, 5.0, p.LastMonth)
	assert.Equal(t, 7.0, p.ThisMonth)
}

func TestCategoricalSummaryWithRejection(t *testing.T) {
	rows := []rowstore.Row{
		{
			"line":         rowstore.TextValue("L1"),
			"produced_qty": rowstore.NumberValue(80),
			"rejection":    rowstore.NumberValue(5),
		},
		{
			"line":         rowstore.TextValue("L2"),
			"produced_qty": rowstore.NumberValue(20),
			"rejection":    rowstore.NumberValue(1),
		},
		{
			"line":         rowstore.TextValue("L1"),
			"produced_qty": rowstore.NumberValue(0),
			"rejection":    rowstore.NumberValue(3),
		},
	}

	cats := CategoricalSummaryWithRejection(rows, "line", "produced_qty", "rejection")
	require.Len(t, cats, 2)
	assert.Equal(t, "L1", cats[0].Label)
	assert.Equal(t, 80.0, cats[0].Total)
	assert.Equal(t, 8.0, cats[0].Rejection)
	assert.InDelta(t, 80.0, cats[0].Pct, 1e-9)
	assert.Equal(t, 1.0, cats[1].Rejection)
}

func TestYearsOfNewestFirst(t *testing.T) {
	rows := []rowstore.Row{
		dispatchRow("2023-01-01", 1),
		dispatchRow("2025-06-01", 1),
		dispatchRow("2024-02-01", 1),
		dispatchRow("2024-09-01", 1),
		dispatchRow("garbage", 1),
	}

	assert.Equal(t, []int{2025, 2024, 2023}, YearsOf(rows, "etd"))
}

func TestValuesParseFromTextCells(t *testing.T) {
	rows := []rowstore.Row{
		{"etd": rowstore.TextValue("2024-01-01"), "dispatched_qty": rowstore.TextValue("12")},
		{"etd": rowstore.TextValue("2024-01-02"), "dispatched_qty": rowstore.TextValue("n/a")},
	}

	s := MonthlySeries(rows, "etd", "dispatched_qty")
	require.Equal(t, []string{"Jan 2024"}, s.Labels)
	assert.Equal(t, []float64{12}, s.Values)
}
