package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

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
		sale_date TIMESTAMPTZ NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		cost DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_id);
	CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_id);

	CREATE TABLE IF NOT EXISTS receivables (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		invoice_date TIMESTAMPTZ NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_receivables_open ON receivables(settled, invoice_date);

	CREATE TABLE IF NOT EXISTS inventory (
		product_id TEXT PRIMARY KEY,
		category TEXT,
		on_hand DOUBLE PRECISION NOT NULL DEFAULT 0,
		allocated DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS shipments (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		shipped_at TIMESTAMPTZ NOT NULL,
		quantity DOUBLE PRECISION NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shipments_shipped_at ON shipments(shipped_at);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		spec JSONB NOT NULL,
		last_result JSONB,
		schedule TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS report_snapshots (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id),
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_report_snapshots_report ON report_snapshots(report_id);
`

// Dialect is the PostgreSQL flavour of the shared SQL store.
// Evaluations read under REPEATABLE READ so multi-query strategies see one snapshot.
var Dialect = sqldb.Dialect{
	Name:      "postgres",
	Schema:    schema,
	Isolation: sql.LevelRepeatableRead,
	Numbered:  true,
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := sqldb.New(db, Dialect)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
