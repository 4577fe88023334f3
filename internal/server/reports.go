package server

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/aggregate"
	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// noisePatterns mark shipment ids that are not real dispatches
// (returns, LPN relabels and the marketplace test channels) and are
// excluded from every report.
var noisePatterns = []string{"%Return%", "%LPN%", "%Mango%", "%FMC%"}

// dispatchRows loads the shipment rows feeding the dispatch reports,
// optionally bounded to one calendar year of ETD.
func (s *Server) dispatchRows(c *fiber.Ctx, year int) ([]rowstore.Row, error) {
	q := s.store.Table("shipments").
		Select("etd", "dispatched_qty", "channel_abb", "production", "branch", "repository", "shipment_id")
	for _, p := range noisePatterns {
		q.NotILike("shipment_id", p)
	}
	if year > 0 {
		q.Gte("etd", fmt.Sprintf("%04d-01-01", year))
		q.Lt("etd", fmt.Sprintf("%04d-01-01", year+1))
	}
	_, rows, err := q.Execute(c.Context())
	return rows, err
}

// reportYear reads the year parameter, defaulting to the current year.
func reportYear(c *fiber.Ctx) int {
	year, err := strconv.Atoi(c.Query("year", ""))
	if err != nil || year < 2000 || year > 2200 {
		return time.Now().UTC().Year()
	}
	return year
}

// DispatchMonthlyData is the payload for the monthly report template.
type DispatchMonthlyData struct {
	Page      string
	Year      int
	Years     []int
	Monthly   aggregate.Series
	Quarterly aggregate.Series
	Channels  []aggregate.Category
	MaxValue  float64
}

// handleDispatchMonthly serves the monthly dispatch report page with
// the year dropdown, monthly and quarterly series and the channel
// breakdown.
func (s *Server) handleDispatchMonthly(c *fiber.Ctx) error {
	year := reportYear(c)

	yearRows, err := s.dispatchRows(c, year)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Int("year", year), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading report data")
	}
	allRows, err := s.dispatchRows(c, 0)
	if err != nil {
		s.log.Error("failed to load dispatch years", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading report data")
	}

	monthly := aggregate.MonthlySeries(yearRows, "etd", "dispatched_qty")
	if monthly.Skipped > 0 {
		s.log.Warn("skipped rows with unparseable etd", slog.Int("count", monthly.Skipped))
	}

	maxValue := 1.0
	for _, v := range monthly.Values {
		if v > maxValue {
			maxValue = v
		}
	}

	return s.render(c, "dispatch_monthly.html", DispatchMonthlyData{
		Page:      "reports",
		Year:      year,
		Years:     aggregate.YearsOf(allRows, "etd"),
		Monthly:   monthly,
		Quarterly: aggregate.QuarterlySeries(yearRows, "etd", "dispatched_qty"),
		Channels:  aggregate.CategoricalSummary(yearRows, "channel_abb", "dispatched_qty"),
		MaxValue:  maxValue,
	})
}

// DispatchSummaryData is the payload for the summary report template.
type DispatchSummaryData struct {
	Page         string
	Periods      aggregate.Periods
	Channels     []aggregate.Category
	Productions  []aggregate.Category
	Branches     []aggregate.Category
	Repositories []aggregate.Category
}

// handleDispatchSummary serves the rolling period summary with the
// channel, production unit, branch and repository breakdowns.
func (s *Server) handleDispatchSummary(c *fiber.Ctx) error {
	rows, err := s.dispatchRows(c, 0)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading report data")
	}

	return s.render(c, "dispatch_summary.html", DispatchSummaryData{
		Page:         "reports",
		Periods:      aggregate.PeriodSummary(rows, "etd", "dispatched_qty", time.Now().UTC()),
		Channels:     aggregate.CategoricalSummary(rows, "channel_abb", "dispatched_qty"),
		Productions:  aggregate.CategoricalSummary(rows, "production", "dispatched_qty"),
		Branches:     aggregate.CategoricalSummary(rows, "branch", "dispatched_qty"),
		Repositories: aggregate.CategoricalSummary(rows, "repository", "dispatched_qty"),
	})
}

// handleAPIDispatchMonthly serves the monthly series as JSON for the
// chart on the report page.
func (s *Server) handleAPIDispatchMonthly(c *fiber.Ctx) error {
	year := reportYear(c)
	rows, err := s.dispatchRows(c, year)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Int("year", year), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load report data"})
	}

	return c.JSON(fiber.Map{
		"year":   year,
		"series": aggregate.MonthlySeries(rows, "etd", "dispatched_qty"),
	})
}

// handleAPIDispatchCompare serves two years of monthly series side by
// side.
func (s *Server) handleAPIDispatchCompare(c *fiber.Ctx) error {
	yearA, errA := strconv.Atoi(c.Query("year_a", ""))
	yearB, errB := strconv.Atoi(c.Query("year_b", ""))
	if errA != nil || errB != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year_a and year_b are required"})
	}

	rowsA, err := s.dispatchRows(c, yearA)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Int("year", yearA), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load report data"})
	}
	rowsB, err := s.dispatchRows(c, yearB)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Int("year", yearB), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load report data"})
	}

	return c.JSON(fiber.Map{
		"year_a":   yearA,
		"year_b":   yearB,
		"series_a": aggregate.MonthlySeries(rowsA, "etd", "dispatched_qty"),
		"series_b": aggregate.MonthlySeries(rowsB, "etd", "dispatched_qty"),
	})
}
