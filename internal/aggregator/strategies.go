package aggregator

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
	"github.com/kurihiro0119/business-reports/internal/filter"
	"github.com/kurihiro0119/business-reports/internal/storage"
)

// Default row caps per metric family
const (
	DefaultGroupedLimit  = 50
	DefaultCategoryLimit = 100
)

// UncategorizedLabel replaces a missing category in rollups
const UncategorizedLabel = "Uncategorized"

var salesCapabilities = filter.Membership(filter.FieldCustomerID, filter.FieldVendorID, filter.FieldProductID).
	WithRange(filter.FieldSaleDate, filter.FieldAmount)

// scalarSum sums one numeric field into a single {label, amount} row
type scalarSum struct {
	caps filter.Capabilities
	sum  func(ctx context.Context, r storage.Reader, in input) (float64, error)
}

func salesTotal() *scalarSum {
	return &scalarSum{
		caps: salesCapabilities,
		sum: func(ctx context.Context, r storage.Reader, in input) (float64, error) {
			return r.SumSales(ctx, in.Range, in.Constraints)
		},
	}
}

// receivablesOver90 sums open receivables that would land in the >90 aging bucket.
// Aging is measured from the evaluation time, not the requested window.
func receivablesOver90() *scalarSum {
	return &scalarSum{
		caps: filter.Membership(filter.FieldCustomerID).WithRange(filter.FieldAmount),
		sum: func(ctx context.Context, r storage.Reader, in input) (float64, error) {
			cutoff := in.Now.Add(-91 * 24 * time.Hour)
			return r.SumOpenReceivablesBefore(ctx, cutoff, in.Constraints)
		},
	}
}

func (s *scalarSum) capabilities() filter.Capabilities { return s.caps }

func (s *scalarSum) evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error) {
	total, err := s.sum(ctx, r, in)
	if err != nil {
		return nil, err
	}
	return &domain.EvaluationResult{
		Rows: []domain.Row{{"label": in.Metric.Label, "amount": total}},
		Meta: domain.ResultMeta{RecommendedViz: domain.VizKPI, LabelField: "label", ValueField: "amount"},
	}, nil
}

// groupedSum sums sales per entity, keeps the top N and labels them via lookup
type groupedSum struct {
	kind       domain.EntityKind
	withMargin bool
}

func (g *groupedSum) capabilities() filter.Capabilities { return salesCapabilities }

func (g *groupedSum) evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error) {
	totals, err := r.SumSalesByEntity(ctx, g.kind, in.Range, in.Constraints)
	if err != nil {
		return nil, err
	}

	order := in.Spec.OrderBy
	sort.SliceStable(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		switch order {
		case domain.OrderValueAsc:
			if a.Amount != b.Amount {
				return a.Amount < b.Amount
			}
		case domain.OrderLabelAsc:
			// labels are unknown until lookup; order by key, re-sorted below
		default:
			if a.Amount != b.Amount {
				return a.Amount > b.Amount
			}
		}
		return a.Key < b.Key
	})
	totals = truncate(totals, in.Spec.Limit, DefaultGroupedLimit)

	keys := make([]string, len(totals))
	for i, t := range totals {
		keys[i] = t.Key
	}
	labels, err := r.LookupLabels(ctx, g.kind, keys)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Row, 0, len(totals))
	for _, t := range totals {
		label, ok := labels[t.Key]
		if !ok || label == "" {
			label = t.Key
		}
		row := domain.Row{"key": t.Key, "label": label, "amount": t.Amount}
		if g.withMargin {
			row["cost"] = t.Cost
			row["margin"] = t.Amount - t.Cost
		}
		rows = append(rows, row)
	}
	if order == domain.OrderLabelAsc {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i]["label"].(string) < rows[j]["label"].(string)
		})
	}

	return &domain.EvaluationResult{
		Rows: rows,
		Meta: domain.ResultMeta{RecommendedViz: domain.VizBar, LabelField: "label", ValueField: "amount"},
	}, nil
}

// AgingBucket is an inclusive upper bound in days; MaxDays < 0 means unbounded
type AgingBucket struct {
	Label   string
	MaxDays int
}

// DefaultAgingBuckets are the reference receivables aging windows
var DefaultAgingBuckets = []AgingBucket{
	{Label: "0-30", MaxDays: 30},
	{Label: "31-60", MaxDays: 60},
	{Label: "61-90", MaxDays: 90},
	{Label: ">90", MaxDays: -1},
}

// AgeInDays returns whole days elapsed from since to now; future dates are age 0
func AgeInDays(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// bucketIndex places age into the first bucket whose bound is >= age
func bucketIndex(buckets []AgingBucket, age int) int {
	for i, b := range buckets {
		if b.MaxDays < 0 || age <= b.MaxDays {
			return i
		}
	}
	return len(buckets) - 1
}

// agingBuckets classifies every open receivable into exactly one bucket
type agingBuckets struct {
	buckets []AgingBucket
}

func (a *agingBuckets) capabilities() filter.Capabilities {
	return filter.Membership(filter.FieldCustomerID).WithRange(filter.FieldAmount)
}

func (a *agingBuckets) evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error) {
	open, err := r.OpenReceivables(ctx, in.Constraints)
	if err != nil {
		return nil, err
	}

	amounts := make([]float64, len(a.buckets))
	counts := make([]int, len(a.buckets))
	for _, rec := range open {
		i := bucketIndex(a.buckets, AgeInDays(rec.InvoiceDate, in.Now))
		amounts[i] += rec.Amount
		counts[i]++
	}

	rows := make([]domain.Row, len(a.buckets))
	for i, b := range a.buckets {
		rows[i] = domain.Row{"bucket": b.Label, "amount": amounts[i], "count": counts[i]}
	}

	return &domain.EvaluationResult{
		Rows: rows,
		Meta: domain.ResultMeta{RecommendedViz: domain.VizBar, LabelField: "bucket", ValueField: "amount"},
	}, nil
}

// categoricalRollup sums inventory quantity per category label
type categoricalRollup struct{}

func (c *categoricalRollup) capabilities() filter.Capabilities {
	return filter.Membership(filter.FieldProductID)
}

func (c *categoricalRollup) evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error) {
	totals, err := r.InventoryByCategory(ctx, in.Constraints)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]float64, len(totals))
	for _, t := range totals {
		category := t.Category
		if category == "" {
			category = UncategorizedLabel
		}
		merged[category] += t.Quantity
	}

	categories := make([]string, 0, len(merged))
	for k := range merged {
		categories = append(categories, k)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		switch in.Spec.OrderBy {
		case domain.OrderLabelAsc:
			return a < b
		case domain.OrderValueAsc:
			if merged[a] != merged[b] {
				return merged[a] < merged[b]
			}
		default:
			if merged[a] != merged[b] {
				return merged[a] > merged[b]
			}
		}
		return a < b
	})
	categories = truncate(categories, in.Spec.Limit, DefaultCategoryLimit)

	rows := make([]domain.Row, len(categories))
	for i, category := range categories {
		rows[i] = domain.Row{"category": category, "quantity": merged[category]}
	}

	return &domain.EvaluationResult{
		Rows: rows,
		Meta: domain.ResultMeta{RecommendedViz: domain.VizBar, LabelField: "category", ValueField: "quantity"},
	}, nil
}

// inventoryTurns divides trailing-12-month shipments by available stock
type inventoryTurns struct{}

func (t *inventoryTurns) capabilities() filter.Capabilities {
	return filter.Membership(filter.FieldProductID)
}

func (t *inventoryTurns) evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error) {
	trailing := domain.DateRange{From: in.Range.To.AddDate(-1, 0, 0), To: in.Range.To}
	shipped, err := r.ShippedQuantity(ctx, trailing, in.Constraints)
	if err != nil {
		return nil, err
	}
	available, err := r.AvailableQuantity(ctx, in.Constraints)
	if err != nil {
		return nil, err
	}
	available = math.Max(available, 0)

	return &domain.EvaluationResult{
		Rows: []domain.Row{{
			"label":     in.Metric.Label,
			"value":     SafeRatio(shipped, available),
			"shipped":   shipped,
			"available": available,
		}},
		Meta: domain.ResultMeta{RecommendedViz: domain.VizKPI, LabelField: "label", ValueField: "value"},
	}, nil
}

// SafeRatio returns num/den, or 0 when den <= 0 or the result is not finite
func SafeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func truncate[T any](items []T, limit, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
