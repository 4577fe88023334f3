package db

import (
	"database/sql"
	"fmt"
)

const (
	createProductionTable = `
CREATE TABLE IF NOT EXISTS production (
    id              TEXT    PRIMARY KEY,
    input_timestamp TEXT,
    date            TEXT,
    product         TEXT,
    line            TEXT,
    design          TEXT,
    size            TEXT,
    pcs_pack        INTEGER NOT NULL DEFAULT 0,
    produced_qty    INTEGER NOT NULL DEFAULT 0,
    rejection       INTEGER NOT NULL DEFAULT 0,
    sets            INTEGER NOT NULL DEFAULT 0,
    unpair_pcs      INTEGER NOT NULL DEFAULT 0
)`

	createCuttingTable = `
CREATE TABLE IF NOT EXISTS cutting (
    id              TEXT    PRIMARY KEY,
    input_timestamp TEXT,
    date            TEXT,
    po_no           TEXT,
    sku             TEXT,
    product         TEXT,
    line            TEXT,
    design          TEXT,
    size            TEXT,
    pcs_pack        INTEGER NOT NULL DEFAULT 0,
    produced_qty    INTEGER NOT NULL DEFAULT 0,
    rejection       INTEGER NOT NULL DEFAULT 0,
    sets            INTEGER NOT NULL DEFAULT 0,
    unpair_pcs      INTEGER NOT NULL DEFAULT 0
)`

	createSalesOrdersTable = `
CREATE TABLE IF NOT EXISTS sales_orders (
    po_no         TEXT PRIMARY KEY,
    po_date       TEXT,
    delivery_date TEXT,
    branch        TEXT,
    warehouse     TEXT,
    status        TEXT,
    repository    TEXT,
    country       TEXT,
    mode          TEXT,
    total_qty     INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT
)`

	createSalesOrderItemsTable = `
CREATE TABLE IF NOT EXISTS sales_order_items (
    id         TEXT    PRIMARY KEY,
    sr_no      INTEGER NOT NULL,
    po_no      TEXT    NOT NULL,
    sku        TEXT,
    product    TEXT,
    category   TEXT,
    line       TEXT,
    design     TEXT,
    size       TEXT,
    pack_of    INTEGER NOT NULL DEFAULT 0,
    sets       INTEGER NOT NULL DEFAULT 0,
    pieces     INTEGER NOT NULL DEFAULT 0,
    created_at TEXT
)`

	createShipmentsTable = `
CREATE TABLE IF NOT EXISTS shipments (
    id              TEXT    PRIMARY KEY,
    input_timestamp TEXT,
    unique_key      TEXT,
    shipment_id     TEXT,
    month           TEXT,
    channel_abb     TEXT,
    branch          TEXT,
    repository      TEXT,
    production      TEXT,
    mode            TEXT,
    status          TEXT,
    etd             TEXT,
    po_qty          INTEGER NOT NULL DEFAULT 0,
    dispatched_qty  INTEGER NOT NULL DEFAULT 0,
    pending_qty     INTEGER NOT NULL DEFAULT 0,
    total_qty       INTEGER NOT NULL DEFAULT 0
)`

	createProductionDateIndex = `CREATE INDEX IF NOT EXISTS idx_production_date ON production(date)`
	createCuttingDateIndex    = `CREATE INDEX IF NOT EXISTS idx_cutting_date ON cutting(date)`
	createItemsPOIndex        = `CREATE INDEX IF NOT EXISTS idx_sales_order_items_po ON sales_order_items(po_no)`
	createShipmentsMonthIndex = `CREATE INDEX IF NOT EXISTS idx_shipments_month ON shipments(month)`
)

// Migrate creates all tables and indexes if they don't exist.
func Migrate(db *sql.DB) error {
	statements := []string{
		createProductionTable,
		createCuttingTable,
		createSalesOrdersTable,
		createSalesOrderItemsTable,
		createShipmentsTable,
		createProductionDateIndex,
		createCuttingDateIndex,
		createItemsPOIndex,
		createShipmentsMonthIndex,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
