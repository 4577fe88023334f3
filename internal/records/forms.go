package records

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

// FormGetter reads one named form value; missing fields return "".
type FormGetter func(name string) string

// formInt parses a quantity field leniently: anything malformed counts
// as zero rather than failing the submission.
func formInt(get FormGetter, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(get(name)))
	if err != nil {
		return 0
	}
	return n
}

func formText(get FormGetter, name string) rowstore.Value {
	v := strings.TrimSpace(get(name))
	if v == "" {
		return rowstore.NullValue()
	}
	return rowstore.TextValue(v)
}

// ProductionRow builds a production record from a form submission. The
// pack split is derived server-side so sets and unpaired pieces always
// agree with the produced quantity.
func ProductionRow(get FormGetter) rowstore.Row {
	qty := formInt(get, "produced_qty")
	pack := formInt(get, "pcs_pack")
	sets, unpaired := SplitPacks(qty, pack)

	return rowstore.Row{
		"id":              rowstore.TextValue(uuid.NewString()),
		"input_timestamp": rowstore.TextValue(time.Now().UTC().Format(time.RFC3339)),
		"date":            formText(get, "date"),
		"product":         formText(get, "product"),
		"line":            formText(get, "line"),
		"design":          formText(get, "design"),
		"size":            formText(get, "size"),
		"pcs_pack":        rowstore.IntValue(pack),
		"produced_qty":    rowstore.IntValue(qty),
		"rejection":       rowstore.IntValue(formInt(get, "rejection")),
		"sets":            rowstore.IntValue(sets),
		"unpair_pcs":      rowstore.IntValue(unpaired),
	}
}

// CuttingRow builds a cutting record. Same shape as production plus the
// purchase order and SKU references.
func CuttingRow(get FormGetter) rowstore.Row {
	row := ProductionRow(get)
	row["po_no"] = formText(get, "po_no")
	row["sku"] = formText(get, "sku")
	return row
}

// EditableColumns lists the fields an edit form may change on the two
// editable tables. Everything else (id, input_timestamp, derived pack
// columns) is managed server-side.
var EditableColumns = map[string][]string{
	"production": {"date", "product", "line", "design", "size", "pcs_pack", "produced_qty", "rejection"},
	"cutting":    {"date", "product", "line", "design", "size", "pcs_pack", "produced_qty", "rejection", "po_no", "sku"},
}

// EditRow builds the update payload for an edit submission, recomputing
// the pack split from the submitted quantities.
func EditRow(table string, get FormGetter) rowstore.Row {
	cols, ok := EditableColumns[table]
	if !ok {
		return nil
	}

	row := rowstore.Row{}
	for _, c := range cols {
		switch c {
		case "pcs_pack", "produced_qty", "rejection":
			row[c] = rowstore.IntValue(formInt(get, c))
		default:
			row[c] = formText(get, c)
		}
	}

	sets, unpaired := SplitPacks(row["produced_qty"].Int(), row["pcs_pack"].Int())
	row["sets"] = rowstore.IntValue(sets)
	row["unpair_pcs"] = rowstore.IntValue(unpaired)
	return row
}
