package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
	"github.com/kurihiro0119/business-reports/internal/storage"
)

// Store implements storage.Store on a *sql.DB
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. Call Migrate before use.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

var _ storage.Store = (*Store)(nil)

// Migrate runs database migrations
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Schema)
	return err
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadSnapshot runs fn inside a read-only transaction that is always rolled back
func (s *Store) ReadSnapshot(ctx context.Context, fn func(storage.Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.dialect.Isolation, ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&reader{tx: tx, dialect: s.dialect})
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type reader struct {
	tx      queryer
	dialect Dialect
}

var entityColumns = map[domain.EntityKind]string{
	domain.EntityCustomer: "customer_id",
	domain.EntityVendor:   "vendor_id",
	domain.EntityProduct:  "product_id",
}

// build assembles "base WHERE fixed AND constraints suffix" and rebinds placeholders
func (r *reader) build(table, base string, fixed []string, fixedArgs []any, constraints []domain.Constraint, suffix string) (string, []any, error) {
	preds, args, err := whereClause(table, constraints)
	if err != nil {
		return "", nil, err
	}
	all := append(append([]string{}, fixed...), preds...)
	query := base
	if len(all) > 0 {
		query += " WHERE " + strings.Join(all, " AND ")
	}
	if suffix != "" {
		query += " " + suffix
	}
	return r.dialect.Rebind(query), append(append([]any{}, fixedArgs...), args...), nil
}

func (r *reader) scalar(ctx context.Context, query string, args []any) (float64, error) {
	var total float64
	if err := r.tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// SumSales sums sale amounts in the range
func (r *reader) SumSales(ctx context.Context, dr domain.DateRange, constraints []domain.Constraint) (float64, error) {
	query, args, err := r.build("sales",
		"SELECT COALESCE(SUM(amount), 0) FROM sales",
		[]string{"sale_date >= ?", "sale_date < ?"}, []any{dr.From.UTC(), dr.To.UTC()},
		constraints, "")
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query, args)
}

// SumSalesByEntity groups sales by customer, vendor or product
func (r *reader) SumSalesByEntity(ctx context.Context, kind domain.EntityKind, dr domain.DateRange, constraints []domain.Constraint) ([]domain.GroupTotal, error) {
	col, ok := entityColumns[kind]
	if !ok {
		return nil, fmt.Errorf("sales cannot be grouped by %q", kind)
	}
	query, args, err := r.build("sales",
		fmt.Sprintf("SELECT %s, COALESCE(SUM(amount), 0), COALESCE(SUM(cost), 0) FROM sales", col),
		[]string{"sale_date >= ?", "sale_date < ?"}, []any{dr.From.UTC(), dr.To.UTC()},
		constraints, "GROUP BY "+col)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.GroupTotal
	for rows.Next() {
		var g domain.GroupTotal
		if err := rows.Scan(&g.Key, &g.Amount, &g.Cost); err != nil {
			return nil, err
		}
		totals = append(totals, g)
	}
	return totals, rows.Err()
}

// SumOpenReceivablesBefore sums unsettled receivables invoiced at or before cutoff
func (r *reader) SumOpenReceivablesBefore(ctx context.Context, cutoff time.Time, constraints []domain.Constraint) (float64, error) {
	query, args, err := r.build("receivables",
		"SELECT COALESCE(SUM(amount), 0) FROM receivables",
		[]string{"settled = 0", "invoice_date <= ?"}, []any{cutoff.UTC()},
		constraints, "")
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query, args)
}

// OpenReceivables lists unsettled receivables
func (r *reader) OpenReceivables(ctx context.Context, constraints []domain.Constraint) ([]domain.Receivable, error) {
	query, args, err := r.build("receivables",
		"SELECT id, customer_id, invoice_date, amount FROM receivables",
		[]string{"settled = 0"}, nil,
		constraints, "ORDER BY invoice_date")
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receivable
	for rows.Next() {
		var rec domain.Receivable
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.InvoiceDate, &rec.Amount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InventoryByCategory sums on-hand quantity per raw category
func (r *reader) InventoryByCategory(ctx context.Context, constraints []domain.Constraint) ([]domain.CategoryTotal, error) {
	query, args, err := r.build("inventory",
		"SELECT category, COALESCE(SUM(on_hand), 0) FROM inventory",
		nil, nil, constraints, "GROUP BY category")
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryTotal
	for rows.Next() {
		var (
			category sql.NullString
			qty      float64
		)
		if err := rows.Scan(&category, &qty); err != nil {
			return nil, err
		}
		out = append(out, domain.CategoryTotal{Category: category.String, Quantity: qty})
	}
	return out, rows.Err()
}

// ShippedQuantity sums shipped quantity in the range
func (r *reader) ShippedQuantity(ctx context.Context, dr domain.DateRange, constraints []domain.Constraint) (float64, error) {
	query, args, err := r.build("shipments",
		"SELECT COALESCE(SUM(quantity), 0) FROM shipments",
		[]string{"shipped_at >= ?", "shipped_at < ?"}, []any{dr.From.UTC(), dr.To.UTC()},
		constraints, "")
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query, args)
}

// AvailableQuantity sums on-hand minus allocated quantity
func (r *reader) AvailableQuantity(ctx context.Context, constraints []domain.Constraint) (float64, error) {
	query, args, err := r.build("inventory",
		"SELECT COALESCE(SUM(on_hand - allocated), 0) FROM inventory",
		nil, nil, constraints, "")
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query, args)
}

// LookupLabels resolves entity ids to names
func (r *reader) LookupLabels(ctx context.Context, kind domain.EntityKind, keys []string) (map[string]string, error) {
	labels := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return labels, nil
	}

	marks := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, string(kind))
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := r.tx.QueryContext(ctx, r.dialect.Rebind(
		"SELECT id, name FROM entities WHERE kind = ? AND id IN ("+marks+")"), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		labels[id] = name
	}
	return labels, rows.Err()
}

// SaveReport inserts or updates a report definition
func (s *Store) SaveReport(ctx context.Context, report *domain.ReportDefinition) error {
	specJSON, err := json.Marshal(report.Spec)
	if err != nil {
		return err
	}
	var resultJSON sql.NullString
	if report.LastEvaluatedData != nil {
		b, err := json.Marshal(report.LastEvaluatedData)
		if err != nil {
			return err
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := s.dialect.Rebind(`
		INSERT INTO reports (id, name, spec, last_result, schedule, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			spec = excluded.spec,
			last_result = excluded.last_result,
			schedule = excluded.schedule,
			updated_at = excluded.updated_at
	`)
	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.Name,
		string(specJSON),
		resultJSON,
		report.Schedule,
		report.CreatedAt.UTC(),
		report.UpdatedAt.UTC(),
	)
	return err
}

func scanReport(scan func(dest ...any) error) (*domain.ReportDefinition, error) {
	var (
		report     domain.ReportDefinition
		specJSON   string
		resultJSON sql.NullString
	)
	if err := scan(&report.ID, &report.Name, &specJSON, &resultJSON, &report.Schedule, &report.CreatedAt, &report.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specJSON), &report.Spec); err != nil {
		return nil, fmt.Errorf("decode report spec: %w", err)
	}
	if resultJSON.Valid {
		var result domain.EvaluationResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode cached result: %w", err)
		}
		report.LastEvaluatedData = &result
	}
	return &report, nil
}

// GetReport retrieves a report definition by id
func (s *Store) GetReport(ctx context.Context, id string) (*domain.ReportDefinition, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT id, name, spec, last_result, schedule, created_at, updated_at
		FROM reports WHERE id = ?
	`), id)
	report, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("report " + id)
	}
	return report, err
}

// ListReports returns every report definition, newest first
func (s *Store) ListReports(ctx context.Context) ([]*domain.ReportDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, spec, last_result, schedule, created_at, updated_at
		FROM reports ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.ReportDefinition
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// SaveSnapshot inserts a snapshot; an existing id is an error
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *domain.ReportSnapshot) error {
	dataJSON, err := json.Marshal(snapshot.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO report_snapshots (id, report_id, data, created_at)
		VALUES (?, ?, ?, ?)
	`), snapshot.ID, snapshot.ReportID, string(dataJSON), snapshot.Timestamp.UTC())
	return err
}

func scanSnapshot(scan func(dest ...any) error) (*domain.ReportSnapshot, error) {
	var (
		snapshot domain.ReportSnapshot
		dataJSON string
	)
	if err := scan(&snapshot.ID, &snapshot.ReportID, &dataJSON, &snapshot.Timestamp); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dataJSON), &snapshot.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetSnapshot retrieves a snapshot by id
func (s *Store) GetSnapshot(ctx context.Context, id string) (*domain.ReportSnapshot, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT id, report_id, data, created_at FROM report_snapshots WHERE id = ?
	`), id)
	snapshot, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("snapshot " + id)
	}
	return snapshot, err
}

// ListSnapshots returns the snapshots of a report, oldest first
func (s *Store) ListSnapshots(ctx context.Context, reportID string) ([]*domain.ReportSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT id, report_id, data, created_at FROM report_snapshots
		WHERE report_id = ? ORDER BY created_at
	`), reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.ReportSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// batch runs stmt once per item inside a single transaction
func (s *Store) batch(ctx context.Context, stmt string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	prepared, err := tx.PrepareContext(ctx, s.dialect.Rebind(stmt))
	if err != nil {
		return err
	}
	defer prepared.Close()

	for i := 0; i < n; i++ {
		if _, err := prepared.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveEntities upserts customers, vendors and products
func (s *Store) SaveEntities(ctx context.Context, entities []domain.Entity) error {
	return s.batch(ctx, `
		INSERT INTO entities (kind, id, name) VALUES (?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET name = excluded.name
	`, len(entities), func(i int) []any {
		e := entities[i]
		return []any{string(e.Kind), e.ID, e.Name}
	})
}

// SaveSales inserts or replaces sale lines
func (s *Store) SaveSales(ctx context.Context, sales []domain.Sale) error {
	return s.batch(ctx, `
		INSERT INTO sales (id, customer_id, product_id, vendor_id, sale_date, amount, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = excluded.customer_id,
			product_id = excluded.product_id,
			vendor_id = excluded.vendor_id,
			sale_date = excluded.sale_date,
			amount = excluded.amount,
			cost = excluded.cost
	`, len(sales), func(i int) []any {
		sale := sales[i]
		return []any{sale.ID, sale.CustomerID, sale.ProductID, sale.VendorID, sale.SaleDate.UTC(), sale.Amount, sale.Cost}
	})
}

// SaveReceivables inserts or replaces receivables
func (s *Store) SaveReceivables(ctx context.Context, receivables []domain.Receivable) error {
	return s.batch(ctx, `
		INSERT INTO receivables (id, customer_id, invoice_date, amount, settled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = excluded.customer_id,
			invoice_date = excluded.invoice_date,
			amount = excluded.amount,
			settled = excluded.settled
	`, len(receivables), func(i int) []any {
		rec := receivables[i]
		settled := 0
		if rec.Settled {
			settled = 1
		}
		return []any{rec.ID, rec.CustomerID, rec.InvoiceDate.UTC(), rec.Amount, settled}
	})
}

// SaveInventory upserts stock positions
func (s *Store) SaveInventory(ctx context.Context, items []domain.InventoryItem) error {
	return s.batch(ctx, `
		INSERT INTO inventory (product_id, category, on_hand, allocated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			category = excluded.category,
			on_hand = excluded.on_hand,
			allocated = excluded.allocated
	`, len(items), func(i int) []any {
		item := items[i]
		var category sql.NullString
		if item.Category != "" {
			category = sql.NullString{String: item.Category, Valid: true}
		}
		return []any{item.ProductID, category, item.OnHand, item.Allocated}
	})
}

// SaveShipments inserts or replaces shipments
func (s *Store) SaveShipments(ctx context.Context, shipments []domain.Shipment) error {
	return s.batch(ctx, `
		INSERT INTO shipments (id, product_id, shipped_at, quantity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			product_id = excluded.product_id,
			shipped_at = excluded.shipped_at,
			quantity = excluded.quantity
	`, len(shipments), func(i int) []any {
		sh := shipments[i]
		return []any{sh.ID, sh.ProductID, sh.ShippedAt.UTC(), sh.Quantity}
	})
}
