package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

var (
	// ErrPOExists reports a create against an already-used PO number.
	ErrPOExists = errors.New("purchase order already exists")
	// ErrNotFound reports a lookup of a missing PO number.
	ErrNotFound = errors.New("purchase order not found")
)

// Order is the sales order header. TotalQty is always derived from the
// line items, never taken from the caller.
type Order struct {
	PONo         string
	PODate       string
	DeliveryDate string
	Branch       string
	Warehouse    string
	Status       string
	Repository   string
	Country      string
	Mode         string
	TotalQty     int
	CreatedAt    string
}

// Item is one sales order line. Pieces is derived as Sets times PackOf.
type Item struct {
	ID       string
	SrNo     int
	PONo     string
	SKU      string
	Product  string
	Category string
	Line     string
	Design   string
	Size     string
	PackOf   int
	Sets     int
	Pieces   int
}

// SalesOrders manages order headers and their line items.
type SalesOrders struct {
	store *rowstore.Store
}

// NewSalesOrders wraps the row store.
func NewSalesOrders(store *rowstore.Store) *SalesOrders {
	return &SalesOrders{store: store}
}

// normalize renumbers the items, derives each item's piece count and
// totals them into the header.
func normalize(order *Order, items []Item) {
	total := 0
	for i := range items {
		items[i].SrNo = i + 1
		items[i].PONo = order.PONo
		items[i].Pieces = items[i].Sets * items[i].PackOf
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		total += items[i].Pieces
	}
	order.TotalQty = total
}

// Create stores a new order with its items. The PO number must be
// unused.
func (s *SalesOrders) Create(ctx context.Context, order Order, items []Item) error {
	n, err := s.store.Table("sales_orders").Eq("po_no", order.PONo).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check po %s: %w", order.PONo, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrPOExists, order.PONo)
	}

	order.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	normalize(&order, items)

	return s.store.WithTx(ctx, func(tx *rowstore.Store) error {
		if err := tx.Insert(ctx, "sales_orders", []rowstore.Row{orderRow(order)}); err != nil {
			return err
		}
		return tx.Insert(ctx, "sales_order_items", itemRows(items))
	})
}

// Replace updates the order header and swaps the full item list in one
// transaction, so a failed reinsert never leaves the order without its
// lines.
func (s *SalesOrders) Replace(ctx context.Context, order Order, items []Item) error {
	existing, _, err := s.Get(ctx, order.PONo)
	if err != nil {
		return err
	}
	order.CreatedAt = existing.CreatedAt
	normalize(&order, items)

	return s.store.WithTx(ctx, func(tx *rowstore.Store) error {
		row := orderRow(order)
		delete(row, "po_no")
		if err := tx.Update(ctx, "sales_orders", row,
			rowstore.Row{"po_no": rowstore.TextValue(order.PONo)}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, "sales_order_items",
			rowstore.Row{"po_no": rowstore.TextValue(order.PONo)}); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Insert(ctx, "sales_order_items", itemRows(items))
	})
}

// Delete removes the order and all of its items.
func (s *SalesOrders) Delete(ctx context.Context, poNo string) error {
	if _, _, err := s.Get(ctx, poNo); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx *rowstore.Store) error {
		if err := tx.Delete(ctx, "sales_order_items",
			rowstore.Row{"po_no": rowstore.TextValue(poNo)}); err != nil {
			return err
		}
		return tx.Delete(ctx, "sales_orders",
			rowstore.Row{"po_no": rowstore.TextValue(poNo)})
	})
}

// Get loads one order with its items in serial-number order.
func (s *SalesOrders) Get(ctx context.Context, poNo string) (Order, []Item, error) {
	_, rows, err := s.store.Table("sales_orders").Eq("po_no", poNo).Execute(ctx)
	if err != nil {
		return Order{}, nil, fmt.Errorf("failed to load po %s: %w", poNo, err)
	}
	if len(rows) == 0 {
		return Order{}, nil, fmt.Errorf("%w: %s", ErrNotFound, poNo)
	}
	order := orderFromRow(rows[0])

	_, itemRows, err := s.store.Table("sales_order_items").Eq("po_no", poNo).Execute(ctx)
	if err != nil {
		return Order{}, nil, fmt.Errorf("failed to load items for %s: %w", poNo, err)
	}
	items := make([]Item, 0, len(itemRows))
	for _, r := range itemRows {
		items = append(items, itemFromRow(r))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SrNo < items[j].SrNo })
	return order, items, nil
}

// ListFilter narrows the order list. Search matches the PO number as a
// substring; Status and Branch match exactly.
type ListFilter struct {
	Search string
	Status string
	Branch string
}

// List returns one page of matching orders, newest first, with the
// total page count. The filter applies to the page and the count alike.
func (s *SalesOrders) List(ctx context.Context, filter ListFilter, page, limit int) ([]Order, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}

	listQuery := func() *rowstore.Query {
		q := s.store.Table("sales_orders")
		if filter.Search != "" {
			q.ILike("po_no", "%"+filter.Search+"%")
		}
		if filter.Status != "" {
			q.Eq("status", filter.Status)
		}
		if filter.Branch != "" {
			q.Eq("branch", filter.Branch)
		}
		return q
	}

	total, err := listQuery().Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales orders: %w", err)
	}

	from := (page - 1) * limit
	_, rows, err := listQuery().
		OrderDesc("created_at").
		Range(from, from+limit-1).
		Execute(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales orders: %w", err)
	}

	orders := make([]Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, orderFromRow(r))
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return orders, totalPages, nil
}

// Distinct returns the sorted distinct non-empty values of one order
// column. Used to populate filter dropdowns on the order list.
func (s *SalesOrders) Distinct(ctx context.Context, column string) ([]string, error) {
	_, rows, err := s.store.Table("sales_orders").Select(column).NotNull(column).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load distinct %s: %w", column, err)
	}
	seen := map[string]bool{}
	for _, r := range rows {
		if v := r[column].Text(); v != "" {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func orderRow(o Order) rowstore.Row {
	return rowstore.Row{
		"po_no":         rowstore.TextValue(o.PONo),
		"po_date":       textOrNull(o.PODate),
		"delivery_date": textOrNull(o.DeliveryDate),
		"branch":        textOrNull(o.Branch),
		"warehouse":     textOrNull(o.Warehouse),
		"status":        textOrNull(o.Status),
		"repository":    textOrNull(o.Repository),
		"country":       textOrNull(o.Country),
		"mode":          textOrNull(o.Mode),
		"total_qty":     rowstore.IntValue(o.TotalQty),
		"created_at":    rowstore.TextValue(o.CreatedAt),
	}
}

func orderFromRow(r rowstore.Row) Order {
	return Order{
		PONo:         r["po_no"].Text(),
		PODate:       r["po_date"].Text(),
		DeliveryDate: r["delivery_date"].Text(),
		Branch:       r["branch"].Text(),
		Warehouse:    r["warehouse"].Text(),
		Status:       r["status"].Text(),
		Repository:   r["repository"].Text(),
		Country:      r["country"].Text(),
		Mode:         r["mode"].Text(),
		TotalQty:     r["total_qty"].Int(),
		CreatedAt:    r["created_at"].Text(),
	}
}

func itemRows(items []Item) []rowstore.Row {
	rows := make([]rowstore.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, rowstore.Row{
			"id":         rowstore.TextValue(it.ID),
			"sr_no":      rowstore.IntValue(it.SrNo),
			"po_no":      rowstore.TextValue(it.PONo),
			"sku":        textOrNull(it.SKU),
			"product":    textOrNull(it.Product),
			"category":   textOrNull(it.Category),
			"line":       textOrNull(it.Line),
			"design":     textOrNull(it.Design),
			"size":       textOrNull(it.Size),
			"pack_of":    rowstore.IntValue(it.PackOf),
			"sets":       rowstore.IntValue(it.Sets),
			"pieces":     rowstore.IntValue(it.Pieces),
			"created_at": rowstore.TextValue(time.Now().UTC().Format(time.RFC3339)),
		})
	}
	return rows
}

func itemFromRow(r rowstore.Row) Item {
	return Item{
		ID:       r["id"].Text(),
		SrNo:     r["sr_no"].Int(),
		PONo:     r["po_no"].Text(),
		SKU:      r["sku"].Text(),
		Product:  r["product"].Text(),
		Category: r["category"].Text(),
		Line:     r["line"].Text(),
		Design:   r["design"].Text(),
		Size:     r["size"].Text(),
		PackOf:   r["pack_of"].Int(),
		Sets:     r["sets"].Int(),
		Pieces:   r["pieces"].Int(),
	}
}

func textOrNull(s string) rowstore.Value {
	if s == "" {
		return rowstore.NullValue()
	}
	return rowstore.TextValue(s)
}
