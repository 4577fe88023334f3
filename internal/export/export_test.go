package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stitchgrid/opsboard/internal/rowstore"
)

var exportRows = []rowstore.Row{
	{
		"id":           rowstore.TextValue("a"),
		"product":      rowstore.TextValue("Towel"),
		"produced_qty": rowstore.NumberValue(20),
		"sku":          rowstore.NullValue(),
	},
	{
		"id":           rowstore.TextValue("b"),
		"product":      rowstore.TextValue("Robe"),
		"produced_qty": rowstore.NumberValue(7.5),
		"sku":          rowstore.TextValue("SKU-9"),
	},
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"id", "product", "produced_qty", "sku"}
	require.NoError(t, CSV(&buf, headers, exportRows))

	want := "id,product,produced_qty,sku\n" +
		"a,Towel,20,\n" +
		"b,Robe,7.5,SKU-9\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVHeaderOnlyWhenNoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, []string{"id", "product"}, nil))
	assert.Equal(t, "id,product\n", buf.String())
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"id", "produced_qty", "sku"}
	require.NoError(t, XLSX(&buf, "Production", headers, exportRows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Production")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"id", "produced_qty", "sku"}, got[0])
	assert.Equal(t, "a", got[1][0])
	assert.Equal(t, "20", got[1][1])
	assert.Equal(t, "7.5", got[2][1])
	assert.Equal(t, "SKU-9", got[2][2])
}
