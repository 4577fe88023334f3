package server

import (
	"bytes"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/export"
	"github.com/stitchgrid/opsboard/internal/records"
	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// exportRows fetches the complete filtered set for an export. A nil
// table pointer return means the response has already been written.
func (s *Server) exportRows(c *fiber.Ctx) (*records.Table, []string, []rowstore.Row, error) {
	tbl, err := records.Lookup(c.Params("table"))
	if err != nil {
		return nil, nil, nil, c.Status(fiber.StatusNotFound).SendString("Unknown table")
	}

	req := s.browseRequest(c, tbl)
	headers, rows, err := s.builder.All(c.Context(), req)
	if err != nil {
		s.log.Error("export query failed", slog.String("table", tbl.Name), slog.Any("err", err))
		return nil, nil, nil, c.Redirect("/"+tbl.Name+"?notice=Export+failed", fiber.StatusSeeOther)
	}
	if len(req.Columns) > 0 {
		headers = req.Columns
	}
	if len(rows) == 0 {
		// Nothing matched; send the user back instead of an empty file.
		return nil, nil, nil, c.Redirect("/"+tbl.Name+"?notice=No+rows+to+export", fiber.StatusSeeOther)
	}
	return &tbl, headers, rows, nil
}

// handleExportCSV streams the filtered table as a CSV attachment.
func (s *Server) handleExportCSV(c *fiber.Ctx) error {
	tbl, headers, rows, err := s.exportRows(c)
	if tbl == nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.CSV(&buf, headers, rows); err != nil {
		s.log.Error("csv export failed", slog.String("table", tbl.Name), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Export failed")
	}

	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", `attachment; filename="`+tbl.Name+`.csv"`)
	return c.Send(buf.Bytes())
}

// handleExportXLSX streams the filtered table as an XLSX attachment.
func (s *Server) handleExportXLSX(c *fiber.Ctx) error {
	tbl, headers, rows, err := s.exportRows(c)
	if tbl == nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.XLSX(&buf, tbl.Title, headers, rows); err != nil {
		s.log.Error("xlsx export failed", slog.String("table", tbl.Name), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Export failed")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+tbl.Name+`.xlsx"`)
	return c.Send(buf.Bytes())
}
