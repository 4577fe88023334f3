package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/records"
	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// editableTable resolves a route table parameter and checks that the
// table accepts mutations.
func (s *Server) editableTable(c *fiber.Ctx) (records.Table, error) {
	tbl, err := records.Lookup(c.Params("table"))
	if err != nil {
		return records.Table{}, c.Status(fiber.StatusNotFound).SendString("Unknown table")
	}
	if !tbl.Editable {
		return records.Table{}, c.Status(fiber.StatusForbidden).SendString("Table is read-only")
	}
	return tbl, nil
}

// handleAdd inserts a new record from a form submission and redirects
// back to the table page.
func (s *Server) handleAdd(c *fiber.Ctx) error {
	tbl, err := s.editableTable(c)
	if err != nil {
		return err
	}

	get := func(k string) string { return c.FormValue(k) }
	var row rowstore.Row
	switch tbl.Name {
	case "cutting":
		row = records.CuttingRow(get)
	default:
		row = records.ProductionRow(get)
	}

	if err := s.store.Insert(c.Context(), tbl.Name, []rowstore.Row{row}); err != nil {
		s.log.Error("failed to add record", slog.String("table", tbl.Name), slog.Any("err", err))
		return c.Redirect("/"+tbl.Name+"?notice=Failed+to+add+record", fiber.StatusSeeOther)
	}
	return c.Redirect("/"+tbl.Name, fiber.StatusSeeOther)
}

// handleEdit updates one record in place, recomputing the derived pack
// columns, then redirects back to the table page.
func (s *Server) handleEdit(c *fiber.Ctx) error {
	tbl, err := s.editableTable(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	row := records.EditRow(tbl.Name, func(k string) string { return c.FormValue(k) })
	if row == nil {
		return c.Status(fiber.StatusBadRequest).SendString("Table is not editable")
	}

	err = s.store.Update(c.Context(), tbl.Name, row, rowstore.Row{"id": rowstore.TextValue(id)})
	if err != nil {
		s.log.Error("failed to edit record",
			slog.String("table", tbl.Name), slog.String("id", id), slog.Any("err", err))
		return c.Redirect("/"+tbl.Name+"?notice=Failed+to+update+record", fiber.StatusSeeOther)
	}
	return c.Redirect("/"+tbl.Name, fiber.StatusSeeOther)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// handleBulkDelete removes the posted record ids and reports how many
// deletes were issued.
func (s *Server) handleBulkDelete(c *fiber.Ctx) error {
	tbl, err := s.editableTable(c)
	if err != nil {
		return err
	}

	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no ids given"})
	}

	deleted := 0
	for _, id := range req.IDs {
		if err := s.store.Delete(c.Context(), tbl.Name, rowstore.Row{"id": rowstore.TextValue(id)}); err != nil {
			s.log.Error("failed to delete record",
				slog.String("table", tbl.Name), slog.String("id", id), slog.Any("err", err))
			continue
		}
		deleted++
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
