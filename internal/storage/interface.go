package storage

import (
	"context"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// Reader exposes the read-only aggregates evaluator strategies need.
// A Reader is only valid inside the ReadSnapshot callback that produced it.
type Reader interface {
	// SumSales sums sale amounts in r that satisfy every constraint
	SumSales(ctx context.Context, r domain.DateRange, constraints []domain.Constraint) (float64, error)

	// SumSalesByEntity groups sales in r by the key of kind and sums amount and cost
	SumSalesByEntity(ctx context.Context, kind domain.EntityKind, r domain.DateRange, constraints []domain.Constraint) ([]domain.GroupTotal, error)

	// SumOpenReceivablesBefore sums unsettled receivables invoiced at or before cutoff
	SumOpenReceivablesBefore(ctx context.Context, cutoff time.Time, constraints []domain.Constraint) (float64, error)

	// OpenReceivables lists every unsettled receivable
	OpenReceivables(ctx context.Context, constraints []domain.Constraint) ([]domain.Receivable, error)

	// InventoryByCategory sums on-hand quantity per raw category label (empty when unset)
	InventoryByCategory(ctx context.Context, constraints []domain.Constraint) ([]domain.CategoryTotal, error)

	// ShippedQuantity sums shipped quantity in r
	ShippedQuantity(ctx context.Context, r domain.DateRange, constraints []domain.Constraint) (float64, error)

	// AvailableQuantity sums on-hand minus allocated quantity; the result may be negative
	AvailableQuantity(ctx context.Context, constraints []domain.Constraint) (float64, error)

	// LookupLabels resolves entity keys to display names. Missing keys are absent from the map.
	LookupLabels(ctx context.Context, kind domain.EntityKind, keys []string) (map[string]string, error)
}

// Store is the abstract interface for the persistence layer
type Store interface {
	// ReadSnapshot runs fn against one consistent read-only view of the data
	ReadSnapshot(ctx context.Context, fn func(Reader) error) error

	// Report definitions
	SaveReport(ctx context.Context, report *domain.ReportDefinition) error
	GetReport(ctx context.Context, id string) (*domain.ReportDefinition, error)
	ListReports(ctx context.Context) ([]*domain.ReportDefinition, error)

	// Snapshots are insert-only
	SaveSnapshot(ctx context.Context, snapshot *domain.ReportSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*domain.ReportSnapshot, error)
	ListSnapshots(ctx context.Context, reportID string) ([]*domain.ReportSnapshot, error)

	// Business data loading (seeding, fixtures)
	SaveEntities(ctx context.Context, entities []domain.Entity) error
	SaveSales(ctx context.Context, sales []domain.Sale) error
	SaveReceivables(ctx context.Context, receivables []domain.Receivable) error
	SaveInventory(ctx context.Context, items []domain.InventoryItem) error
	SaveShipments(ctx context.Context, shipments []domain.Shipment) error

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
