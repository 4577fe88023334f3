package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stitchgrid/opsboard/internal/query"
	"github.com/stitchgrid/opsboard/internal/records"
)

// SalesOrderListData is the payload for the order list template.
type SalesOrderListData struct {
	Page        string
	Orders      []records.Order
	CurrentPage int
	TotalPages  int
	Search      string
	Status      string
	Branch      string
	Limit       int
	Branches    []string
	Statuses    []string
	Notice      string
}

// SalesOrderFormData is the payload for the new/edit form template.
type SalesOrderFormData struct {
	Page    string
	Order   records.Order
	Items   []records.Item
	Editing bool
	Error   string
}

// SalesOrderViewData is the payload for the read-only detail template.
type SalesOrderViewData struct {
	Page  string
	Order records.Order
	Items []records.Item
}

// handleSalesOrderList serves the paginated order list with the filter
// dropdown values.
func (s *Server) handleSalesOrderList(c *fiber.Ctx) error {
	filter := records.ListFilter{
		Search: c.Query("search", ""),
		Status: c.Query("status", ""),
		Branch: c.Query("branch", ""),
	}
	page := query.ParsePage(c.Query("page", ""))
	limit := query.ParseLimit(c.Query("limit", ""), s.config.PageLimit)

	orders, totalPages, err := s.orders.List(c.Context(), filter, page, limit)
	if err != nil {
		s.log.Error("failed to list sales orders", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading sales orders")
	}

	branches, err := s.orders.Distinct(c.Context(), "branch")
	if err != nil {
		s.log.Warn("failed to load branch dropdown", slog.Any("err", err))
	}
	statuses, err := s.orders.Distinct(c.Context(), "status")
	if err != nil {
		s.log.Warn("failed to load status dropdown", slog.Any("err", err))
	}

	return s.render(c, "sales_order_list.html", SalesOrderListData{
		Page:        "sales_orders",
		Orders:      orders,
		CurrentPage: page,
		TotalPages:  totalPages,
		Search:      filter.Search,
		Status:      filter.Status,
		Branch:      filter.Branch,
		Limit:       limit,
		Branches:    branches,
		Statuses:    statuses,
		Notice:      c.Query("notice", ""),
	})
}

// handleSalesOrderNew serves the empty order form.
func (s *Server) handleSalesOrderNew(c *fiber.Ctx) error {
	return s.render(c, "sales_order_form.html", SalesOrderFormData{
		Page:  "sales_orders",
		Items: []records.Item{{}},
	})
}

// orderFromForm reads the order header fields from the submission.
func orderFromForm(c *fiber.Ctx) records.Order {
	return records.Order{
		PONo:         strings.TrimSpace(c.FormValue("po_no")),
		PODate:       strings.TrimSpace(c.FormValue("po_date")),
		DeliveryDate: strings.TrimSpace(c.FormValue("delivery_date")),
		Branch:       strings.TrimSpace(c.FormValue("branch")),
		Warehouse:    strings.TrimSpace(c.FormValue("warehouse")),
		Status:       strings.TrimSpace(c.FormValue("status")),
		Repository:   strings.TrimSpace(c.FormValue("repository")),
		Country:      strings.TrimSpace(c.FormValue("country")),
		Mode:         strings.TrimSpace(c.FormValue("mode")),
	}
}

// itemsFromForm reads the indexed line item fields item_<name>_N
// starting at N=1, stopping at the first row with neither a SKU nor a
// product.
func itemsFromForm(c *fiber.Ctx) []records.Item {
	var items []records.Item
	for i := 1; ; i++ {
		n := strconv.Itoa(i)
		sku := strings.TrimSpace(c.FormValue("item_sku_" + n))
		product := strings.TrimSpace(c.FormValue("item_product_" + n))
		if sku == "" && product == "" {
			break
		}
		packOf, _ := strconv.Atoi(c.FormValue("item_pack_of_" + n))
		sets, _ := strconv.Atoi(c.FormValue("item_sets_" + n))
		items = append(items, records.Item{
			SKU:      sku,
			Product:  product,
			Category: strings.TrimSpace(c.FormValue("item_category_" + n)),
			Line:     strings.TrimSpace(c.FormValue("item_line_" + n)),
			Design:   strings.TrimSpace(c.FormValue("item_design_" + n)),
			Size:     strings.TrimSpace(c.FormValue("item_size_" + n)),
			PackOf:   packOf,
			Sets:     sets,
		})
	}
	return items
}

// handleSalesOrderCreate stores a new order. A duplicate PO number
// re-renders the form with the submitted values intact.
func (s *Server) handleSalesOrderCreate(c *fiber.Ctx) error {
	order := orderFromForm(c)
	items := itemsFromForm(c)

	if order.PONo == "" {
		return s.render(c, "sales_order_form.html", SalesOrderFormData{
			Page: "sales_orders", Order: order, Items: items,
			Error: "PO number is required",
		})
	}

	err := s.orders.Create(c.Context(), order, items)
	if errors.Is(err, records.ErrPOExists) {
		return s.render(c, "sales_order_form.html", SalesOrderFormData{
			Page: "sales_orders", Order: order, Items: items,
			Error: "PO number " + order.PONo + " already exists",
		})
	}
	if err != nil {
		s.log.Error("failed to create sales order", slog.String("po_no", order.PONo), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error creating sales order")
	}
	return c.Redirect("/sales_orders?notice="+url.QueryEscape("Created "+order.PONo), fiber.StatusSeeOther)
}

// handleSalesOrderView serves the read-only order detail.
func (s *Server) handleSalesOrderView(c *fiber.Ctx) error {
	order, items, err := s.orders.Get(c.Context(), c.Params("po_no"))
	if errors.Is(err, records.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Sales order not found")
	}
	if err != nil {
		s.log.Error("failed to load sales order", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading sales order")
	}
	return s.render(c, "sales_order_detail.html", SalesOrderViewData{
		Page: "sales_orders", Order: order, Items: items,
	})
}

// handleSalesOrderEditForm serves the form prefilled with the stored
// order.
func (s *Server) handleSalesOrderEditForm(c *fiber.Ctx) error {
	order, items, err := s.orders.Get(c.Context(), c.Params("po_no"))
	if errors.Is(err, records.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Sales order not found")
	}
	if err != nil {
		s.log.Error("failed to load sales order", slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading sales order")
	}
	return s.render(c, "sales_order_form.html", SalesOrderFormData{
		Page: "sales_orders", Order: order, Items: items, Editing: true,
	})
}

// handleSalesOrderUpdate replaces the order header and its full item
// list.
func (s *Server) handleSalesOrderUpdate(c *fiber.Ctx) error {
	order := orderFromForm(c)
	order.PONo = c.Params("po_no") // the PO number is the identity, not editable
	items := itemsFromForm(c)

	err := s.orders.Replace(c.Context(), order, items)
	if errors.Is(err, records.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Sales order not found")
	}
	if err != nil {
		s.log.Error("failed to update sales order", slog.String("po_no", order.PONo), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error updating sales order")
	}
	return c.Redirect("/sales_orders?notice="+url.QueryEscape("Updated "+order.PONo), fiber.StatusSeeOther)
}

// handleSalesOrderDelete removes an order with its items.
func (s *Server) handleSalesOrderDelete(c *fiber.Ctx) error {
	poNo := c.Params("po_no")
	err := s.orders.Delete(c.Context(), poNo)
	if errors.Is(err, records.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Sales order not found")
	}
	if err != nil {
		s.log.Error("failed to delete sales order", slog.String("po_no", poNo), slog.Any("err", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Error deleting sales order")
	}
	return c.Redirect("/sales_orders?notice="+url.QueryEscape("Deleted "+poNo), fiber.StatusSeeOther)
}
