package aggregator

import (
	"context"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
	"github.com/kurihiro0119/business-reports/internal/storage"
)

// fakeStore is an in-memory storage.Store whose reader returns canned aggregates
type fakeStore struct {
	storage.Store

	salesTotal  float64
	groups      []domain.GroupTotal
	labels      map[string]string
	overdue     float64
	receivables []domain.Receivable
	categories  []domain.CategoryTotal
	shipped     float64
	available   float64
	err         error

	snapshots     int
	lookedUp      []string
	seenRange     domain.DateRange
	seenCutoff    time.Time
	seenFilters   []domain.Constraint
	cancelOnQuery context.CancelFunc
}

func (f *fakeStore) ReadSnapshot(ctx context.Context, fn func(storage.Reader) error) error {
	f.snapshots++
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&fakeReader{f})
}

type fakeReader struct{ f *fakeStore }

func (r *fakeReader) query(ctx context.Context, constraints []domain.Constraint) error {
	r.f.seenFilters = constraints
	if r.f.cancelOnQuery != nil {
		r.f.cancelOnQuery()
		if r.f.err != nil {
			return r.f.err
		}
		return ctx.Err()
	}
	return r.f.err
}

func (r *fakeReader) SumSales(ctx context.Context, dr domain.DateRange, cs []domain.Constraint) (float64, error) {
	r.f.seenRange = dr
	return r.f.salesTotal, r.query(ctx, cs)
}

func (r *fakeReader) SumSalesByEntity(ctx context.Context, kind domain.EntityKind, dr domain.DateRange, cs []domain.Constraint) ([]domain.GroupTotal, error) {
	r.f.seenRange = dr
	out := append([]domain.GroupTotal(nil), r.f.groups...)
	return out, r.query(ctx, cs)
}

func (r *fakeReader) SumOpenReceivablesBefore(ctx context.Context, cutoff time.Time, cs []domain.Constraint) (float64, error) {
	r.f.seenCutoff = cutoff
	return r.f.overdue, r.query(ctx, cs)
}

func (r *fakeReader) OpenReceivables(ctx context.Context, cs []domain.Constraint) ([]domain.Receivable, error) {
	return r.f.receivables, r.query(ctx, cs)
}

func (r *fakeReader) InventoryByCategory(ctx context.Context, cs []domain.Constraint) ([]domain.CategoryTotal, error) {
	return r.f.categories, r.query(ctx, cs)
}

func (r *fakeReader) ShippedQuantity(ctx context.Context, dr domain.DateRange, cs []domain.Constraint) (float64, error) {
	r.f.seenRange = dr
	return r.f.shipped, r.query(ctx, cs)
}

func (r *fakeReader) AvailableQuantity(ctx context.Context, cs []domain.Constraint) (float64, error) {
	return r.f.available, r.query(ctx, cs)
}

func (r *fakeReader) LookupLabels(ctx context.Context, kind domain.EntityKind, keys []string) (map[string]string, error) {
	r.f.lookedUp = append(r.f.lookedUp, keys...)
	out := make(map[string]string)
	for _, k := range keys {
		if l, ok := r.f.labels[k]; ok {
			out[k] = l
		}
	}
	return out, nil
}
