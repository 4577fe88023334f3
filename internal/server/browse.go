package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/query"
	"github.com/stitchgrid/opsboard/internal/records"
)

// BrowseData is the payload for the browse template.
type BrowseData struct {
	Page       string
	Table      records.Table
	Result     query.Result
	Filters    []query.Filter
	Limit      int
	AllColumns bool
	Notice     string
}

// browseRequest assembles the query request shared by the browse pages
// and the export endpoints.
func (s *Server) browseRequest(c *fiber.Ctx, tbl records.Table) query.Request {
	limit := tbl.Limit
	if limit <= 0 {
		limit = s.config.PageLimit
	}
	columns := tbl.View
	if c.Query("column_view", "") == "all" {
		columns = nil
	}
	return query.Request{
		Table:   tbl.Name,
		Search:  c.Query("search", ""),
		Filters: query.ParseFilters(func(k string) string { return c.Query(k, "") }),
		Columns: columns,
		Page:    query.ParsePage(c.Query("page", "")),
		Limit:   query.ParseLimit(c.Query("limit", ""), limit),
	}
}

// handleBrowse serves the table browse page for one table.
func (s *Server) handleBrowse(table string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tbl, err := records.Lookup(table)
		if err != nil {
			return c.Status(fiber.StatusNotFound).SendString("Unknown table")
		}

		req := s.browseRequest(c, tbl)
		result := s.builder.Run(c.Context(), req)
		if result.Error != "" {
			s.log.Warn("browse query failed",
				slog.String("table", table),
				slog.String("error", result.Error))
		}

		return s.render(c, "browse.html", BrowseData{
			Page:       table,
			Table:      tbl,
			Result:     result,
			Filters:    req.Filters,
			Limit:      req.Limit,
			AllColumns: c.Query("column_view", "") == "all",
			Notice:     c.Query("notice", ""),
		})
	}
}
