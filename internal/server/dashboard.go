package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/aggregate"
	"github.com/stitchgrid/opsboard/internal/query"
)

// DashboardData is the payload for the landing page template.
type DashboardData struct {
	Page       string
	Dispatched aggregate.Periods
	Produced   aggregate.Periods
	Monthly    aggregate.Series
	MaxValue   float64
	Lines      []aggregate.Category
	Recent     query.Result
}

// handleDashboard serves the landing page: rolling dispatch and
// production totals, the dispatch trend for the current year and the
// latest production entries.
func (s *Server) handleDashboard(c *fiber.Ctx) error {
	now := time.Now().UTC()

	shipmentRows, err := s.dispatchRows(c, 0)
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading dashboard data")
	}

	_, productionRows, err := s.store.Table("production").
		Select("date", "line", "produced_qty", "rejection").
		Execute(c.Context())
	if err != nil {
		s.log.Error("failed to load production rows", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading dashboard data")
	}

	yearRows, err := s.dispatchRows(c, now.Year())
	if err != nil {
		s.log.Error("failed to load dispatch rows", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading dashboard data")
	}
	monthly := aggregate.MonthlySeries(yearRows, "etd", "dispatched_qty")
	maxValue := 1.0
	for _, v := range monthly.Values {
		if v > maxValue {
			maxValue = v
		}
	}

	recent := s.builder.Run(c.Context(), query.Request{
		Table: "production",
		Page:  1,
		Limit: 5,
	})

	return s.render(c, "dashboard.html", DashboardData{
		Page:       "dashboard",
		Dispatched: aggregate.PeriodSummary(shipmentRows, "etd", "dispatched_qty", now),
		Produced:   aggregate.PeriodSummary(productionRows, "date", "produced_qty", now),
		Monthly:    monthly,
		MaxValue:   maxValue,
		Lines:      aggregate.CategoricalSummaryWithRejection(productionRows, "line", "produced_qty", "rejection"),
		Recent:     recent,
	})
}
