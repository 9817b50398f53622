package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/business-reports/internal/daterange"
	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
	"github.com/kurihiro0119/business-reports/internal/filter"
	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/validator"
)

// Aggregator evaluates validated specifications against the store
type Aggregator interface {
	// Evaluate resolves the date range, compiles filters for the metric's strategy
	// and runs the aggregation inside one read snapshot.
	Evaluate(ctx context.Context, spec *validator.ValidSpec, now time.Time) (*domain.EvaluationResult, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage storage.Store
	log     logrus.FieldLogger
}

// NewAggregator creates a new aggregator
func NewAggregator(store storage.Store, log logrus.FieldLogger) Aggregator {
	return &aggregator{
		storage: store,
		log:     log,
	}
}

// input is everything a strategy needs for one evaluation
type input struct {
	Metric      domain.MetricDefinition
	Spec        domain.ReportSpecification
	Range       domain.DateRange
	Constraints []domain.Constraint
	Now         time.Time
}

// strategy is one aggregation family
type strategy interface {
	// capabilities lists the filter fields and operators the strategy can compile
	capabilities() filter.Capabilities
	evaluate(ctx context.Context, r storage.Reader, in input) (*domain.EvaluationResult, error)
}

// strategyFor is the dispatch table. Every MetricID constant must appear here;
// metrics that have no aggregation yet return ok=false.
func strategyFor(id domain.MetricID) (strategy, bool) {
	switch id {
	case domain.MetricSalesTotal:
		return salesTotal(), true
	case domain.MetricSalesByCustomer:
		return &groupedSum{kind: domain.EntityCustomer}, true
	case domain.MetricSalesByProduct:
		return &groupedSum{kind: domain.EntityProduct, withMargin: true}, true
	case domain.MetricReceivablesOver90:
		return receivablesOver90(), true
	case domain.MetricReceivablesAging:
		return &agingBuckets{buckets: DefaultAgingBuckets}, true
	case domain.MetricInventoryByCategory:
		return &categoricalRollup{}, true
	case domain.MetricInventoryTurns:
		return &inventoryTurns{}, true
	case domain.MetricOnTimeDelivery:
		return nil, false
	}
	return nil, false
}

// Evaluate runs the metric's strategy
func (a *aggregator) Evaluate(ctx context.Context, spec *validator.ValidSpec, now time.Time) (*domain.EvaluationResult, error) {
	metric := spec.Metric
	log := a.log.WithField("metric", metric.ID)

	strat, ok := strategyFor(metric.ID)
	if !ok {
		log.Debug("no strategy registered, returning empty result")
		result := domain.EmptyResult(metric.ID)
		result.EvaluatedAt = now
		return result, nil
	}

	dr, err := daterange.Resolve(spec.Spec.DateRange, now)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	constraints, err := filter.Compile(metric.ID, spec.Spec.Filters.Clauses(), strat.capabilities())
	if err != nil {
		return nil, err
	}

	if spec.Spec.Dimension != "" || spec.Spec.Breakdown != "" {
		log.WithFields(logrus.Fields{
			"dimension": spec.Spec.Dimension,
			"breakdown": spec.Spec.Breakdown,
		}).Debug("grouping axes are fixed by the metric and were not applied")
	}

	in := input{
		Metric:      metric,
		Spec:        spec.Spec,
		Range:       dr,
		Constraints: constraints,
		Now:         now,
	}

	start := time.Now()
	var result *domain.EvaluationResult
	err = a.storage.ReadSnapshot(ctx, func(r storage.Reader) error {
		res, err := strat.evaluate(ctx, r, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	// drivers report aborted statements with their own errors
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		return nil, a.classify(log, metric.ID, err)
	}

	if result.Meta.RecommendedViz == "" {
		result.Meta.RecommendedViz = metric.DefaultViz
	}
	result.Metric = metric.ID
	result.Meta.Viz = result.Meta.RecommendedViz
	result.Meta.RowCount = len(result.Rows)
	result.Range = dr
	result.EvaluatedAt = now

	log.WithFields(logrus.Fields{
		"rows":     result.Meta.RowCount,
		"duration": time.Since(start),
	}).Debug("evaluated")

	return result, nil
}

// classify separates caller aborts from store failures; partial rows are always dropped
func (a *aggregator) classify(log logrus.FieldLogger, metric domain.MetricID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Info("evaluation cancelled")
		return apperrors.NewCancelledError(string(metric), err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	log.WithError(err).Error("evaluation failed")
	return apperrors.NewEvaluationError(string(metric), err)
}
