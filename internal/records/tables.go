// Package records carries the domain rules of the operational tables:
// which tables are browsable, how form submissions become rows, the
// pack arithmetic and the sales order lifecycle.
package records

import "fmt"

// Table describes one browsable table.
type Table struct {
	Name string
	// Title is the heading shown on the browse page.
	Title string
	// View restricts the columns shown and exported; empty means all.
	View []string
	// Limit is the default page size for this table.
	Limit int
	// Editable enables the add/edit/delete actions.
	Editable bool
}

var tables = map[string]Table{
	"production": {
		Name:     "production",
		Title:    "Production",
		Limit:    10,
		Editable: true,
	},
	"cutting": {
		Name:     "cutting",
		Title:    "Cutting",
		Limit:    10,
		Editable: true,
	},
	"shipments": {
		Name:  "shipments",
		Title: "Shipments",
		View: []string{
			"unique_key", "shipment_id", "month", "channel_abb",
			"branch", "production", "mode", "status", "etd",
			"po_qty", "dispatched_qty", "pending_qty",
		},
		Limit: 20,
	},
}

// Lookup resolves a browsable table by name.
func Lookup(name string) (Table, error) {
	t, ok := tables[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

// SplitPacks divides a produced quantity into complete packs and the
// unpaired remainder. A non-positive pack size yields zero packs with
// everything unpaired.
func SplitPacks(qty, pack int) (sets, unpaired int) {
	if pack <= 0 {
		return 0, qty
	}
	return qty / pack, qty % pack
}
