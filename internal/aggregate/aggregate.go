// Package aggregate rolls schema-less rows up into chart-ready series:
// monthly and quarterly totals, categorical percentage breakdowns and
// rolling period summaries.
package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// dateLayouts are the accepted date formats, tried in order. Dates
// travel as ISO-8601 text.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Series is a labelled sequence of totals, ordered for plotting.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	// Skipped counts rows whose date could not be parsed and were
	// left out of the totals.
	Skipped int `json:"-"`
}

// MonthlySeries sums valueCol per calendar month of dateCol and returns
// the months in chronological order, labelled like "Jan 2024". Rows
// with an unparseable date are skipped and counted.
func MonthlySeries(rows []rowstore.Row, dateCol, valueCol string) Series {
	return bucketSeries(rows, dateCol, valueCol, func(t time.Time) (string, string) {
		return t.Format("2006-01"), t.Format("Jan 2006")
	})
}

// QuarterlySeries sums valueCol per calendar quarter of dateCol,
// labelled like "Q1 2024", in chronological order.
func QuarterlySeries(rows []rowstore.Row, dateCol, valueCol string) Series {
	return bucketSeries(rows, dateCol, valueCol, func(t time.Time) (string, string) {
		q := (int(t.Month())-1)/3 + 1
		key := t.Format("2006") + "-Q" + strconv.Itoa(q)
		return key, "Q" + strconv.Itoa(q) + " " + t.Format("2006")
	})
}

// bucketSeries groups rows by a sortable key and reports the buckets in
// key order under their display labels.
func bucketSeries(rows []rowstore.Row, dateCol, valueCol string, keyFn func(time.Time) (string, string)) Series {
	totals := map[string]float64{}
	labels := map[string]string{}
	var skipped int

	for _, row := range rows {
		t, ok := parseDate(row[dateCol].Text())
		if !ok {
			skipped++
			continue
		}
		key, label := keyFn(t)
		totals[key] += rowValue(row, valueCol)
		labels[key] = label
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := Series{Labels: []string{}, Values: []float64{}, Skipped: skipped}
	for _, k := range keys {
		s.Labels = append(s.Labels, labels[k])
		s.Values = append(s.Values, totals[k])
	}
	return s
}

// Category is one slice of a categorical breakdown.
type Category struct {
	Label     string  `json:"label"`
	Total     float64 `json:"total"`
	Rejection float64 `json:"rejection,omitempty"`
	Pct       float64 `json:"pct"`
}

// CategoricalSummary totals valueCol per distinct keyCol value and
// reports each category's share of the grand total, largest first.
// When the grand total is zero every share is zero.
func CategoricalSummary(rows []rowstore.Row, keyCol, valueCol string) []Category {
	return CategoricalSummaryWithRejection(rows, keyCol, valueCol, "")
}

// CategoricalSummaryWithRejection is CategoricalSummary plus a
// per-category rejection sum. Shares are computed from valueCol only.
func CategoricalSummaryWithRejection(rows []rowstore.Row, keyCol, valueCol, rejectCol string) []Category {
	totals := map[string]float64{}
	rejections := map[string]float64{}
	var grand float64
	for _, row := range rows {
		key := row[keyCol].Text()
		v := rowValue(row, valueCol)
		totals[key] += v
		grand += v
		if rejectCol != "" {
			rejections[key] += rowValue(row, rejectCol)
		}
	}

	out := make([]Category, 0, len(totals))
	for label, total := range totals {
		var pct float64
		if grand != 0 {
			pct = total / grand * 100
		}
		out = append(out, Category{
			Label:     label,
			Total:     total,
			Rejection: rejections[label],
			Pct:       pct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pct != out[j].Pct {
			return out[i].Pct > out[j].Pct
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Periods holds rolling totals relative to a reference instant.
type Periods struct {
	Today     float64 `json:"today"`
	Yesterday float64 `json:"yesterday"`
	ThisWeek  float64 `json:"this_week"`
	LastWeek  float64 `json:"last_week"`
	ThisMonth float64 `json:"this_month"`
	LastMonth float64 `json:"last_month"`
	ThisYear  float64 `json:"this_year"`
}

// sameDay reports whether two instants fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// sameMonth reports whether two instants fall in the same calendar
// month.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// PeriodSummary totals valueCol for the calendar periods around now:
// today, yesterday, this and last week, this and last month, this
// year. Weeks are ISO weeks starting on Monday.
func PeriodSummary(rows []rowstore.Row, dateCol, valueCol string, now time.Time) Periods {
	yesterday := now.AddDate(0, 0, -1)
	// Last day of the previous month, to identify it safely even when
	// now is e.g. March 31.
	lastMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	thisYear, thisWeek := now.ISOWeek()
	lastYear, lastWeek := now.AddDate(0, 0, -7).ISOWeek()

	var p Periods
	for _, row := range rows {
		t, ok := parseDate(row[dateCol].Text())
		if !ok {
			continue
		}
		v := rowValue(row, valueCol)
		if sameDay(t, now) {
			p.Today += v
		}
		if sameDay(t, yesterday) {
			p.Yesterday += v
		}
		if y, w := t.ISOWeek(); y == thisYear && w == thisWeek {
			p.ThisWeek += v
		} else if y == lastYear && w == lastWeek {
			p.LastWeek += v
		}
		if sameMonth(t, now) {
			p.ThisMonth += v
		} else if sameMonth(t, lastMonth) {
			p.LastMonth += v
		}
		if t.Year() == now.Year() {
			p.ThisYear += v
		}
	}
	return p
}

// YearsOf returns the distinct years appearing in dateCol, newest
// first. Used to populate year dropdowns.
func YearsOf(rows []rowstore.Row, dateCol string) []int {
	seen := map[int]bool{}
	for _, row := range rows {
		if t, ok := parseDate(row[dateCol].Text()); ok {
			seen[t.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

func rowValue(row rowstore.Row, col string) float64 {
	n, _ := row[col].Float()
	return n
}
