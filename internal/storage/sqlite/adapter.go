package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/storage/sqldb"
)

const schema = `
	CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL DEFAULT '',
		sale_date TIMESTAMP NOT NULL,
		amount REAL NOT NULL,
		cost REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_id);
	CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_id);

	CREATE TABLE IF NOT EXISTS receivables (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		invoice_date TIMESTAMP NOT NULL,
		amount REAL NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_receivables_open ON receivables(settled, invoice_date);

	CREATE TABLE IF NOT EXISTS inventory (
		product_id TEXT PRIMARY KEY,
		category TEXT,
		on_hand REAL NOT NULL DEFAULT 0,
		allocated REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS shipments (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		shipped_at TIMESTAMP NOT NULL,
		quantity REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shipments_shipped_at ON shipments(shipped_at);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		spec TEXT NOT NULL,
		last_result TEXT,
		schedule TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS report_snapshots (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id),
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_report_snapshots_report ON report_snapshots(report_id);
`

// Dialect is the SQLite flavour of the shared SQL store
var Dialect = sqldb.Dialect{
	Name:      "sqlite",
	Schema:    schema,
	Isolation: sql.LevelDefault,
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := sqldb.New(db, Dialect)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
