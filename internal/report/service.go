// Package report orchestrates validation, evaluation, persistence and export of reports.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/business-reports/internal/aggregator"
	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
	"github.com/kurihiro0119/business-reports/internal/export"
	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/validator"
	"github.com/kurihiro0119/business-reports/internal/viz"
)

// DefaultDashboardParallelism caps concurrent widget evaluations
const DefaultDashboardParallelism = 8

// Evaluation is a result with its final viz applied and its chart points
type Evaluation struct {
	Result *domain.EvaluationResult `json:"result"`
	Points []domain.ChartPoint      `json:"points"`
}

// Widget is one dashboard tile
type Widget struct {
	Spec domain.ReportSpecification `json:"spec"`
	Viz  domain.Viz                 `json:"viz,omitempty"`
}

// Service is the entry point for every report operation
type Service struct {
	catalog     *catalog.Catalog
	validator   *validator.Validator
	aggregator  aggregator.Aggregator
	store       storage.Store
	policy      *export.Policy
	now         func() time.Time
	parallelism int
	log         logrus.FieldLogger
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the wall clock used as the evaluation instant
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPolicy replaces the default redaction policy
func WithPolicy(p *export.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithParallelism caps concurrent dashboard widget evaluations
func WithParallelism(n int) Option {
	return func(s *Service) { s.parallelism = n }
}

// NewService wires the catalog, store and logger into a Service
func NewService(cat *catalog.Catalog, store storage.Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		catalog:     cat,
		validator:   validator.New(cat),
		aggregator:  aggregator.NewAggregator(store, log),
		store:       store,
		policy:      export.DefaultPolicy(),
		now:         time.Now,
		parallelism: DefaultDashboardParallelism,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the service validates against
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Evaluate validates spec, evaluates it and resolves the final viz.
// An invalid spec returns every problem at once and never reaches the store.
func (s *Service) Evaluate(ctx context.Context, spec domain.ReportSpecification, requested domain.Viz) (*Evaluation, error) {
	valid, errs := s.validator.Validate(spec)
	if requested != "" && !requested.Valid() {
		errs = append(errs, apperrors.ValidationError{
			Code:    apperrors.ErrCodeValidation,
			Field:   "viz",
			Message: "unknown chart kind " + string(requested),
		})
	}
	if len(errs) > 0 {
		return nil, apperrors.NewValidationError(errs)
	}

	result, err := s.aggregator.Evaluate(ctx, valid, s.now())
	if err != nil {
		return nil, err
	}

	result = viz.Apply(result, requested, valid.Metric.DefaultViz)
	return &Evaluation{Result: result, Points: viz.ChartPoints(result)}, nil
}

// EvaluateDashboard evaluates widgets in parallel and returns results in widget order.
// The first failure cancels the remaining evaluations.
func (s *Service) EvaluateDashboard(ctx context.Context, widgets []Widget) ([]*Evaluation, error) {
	results := make([]*Evaluation, len(widgets))

	g, gctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for i, w := range widgets {
		i, w := i, w
		g.Go(func() error {
			res, err := s.Evaluate(gctx, w.Spec, w.Viz)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.WithField("widgets", len(widgets)).Debug("dashboard evaluated")
	return results, nil
}

// CreateReport evaluates spec and persists it with its result cached
func (s *Service) CreateReport(ctx context.Context, name string, spec domain.ReportSpecification, schedule string) (*domain.ReportDefinition, error) {
	eval, err := s.Evaluate(ctx, spec, domain.VizAuto)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &domain.ReportDefinition{
		ID:                uuid.New().String(),
		Name:              name,
		Spec:              spec,
		LastEvaluatedData: eval.Result,
		Schedule:          schedule,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"report_id": report.ID, "metric": spec.Metric}).Info("report created")
	return report, nil
}

// GetReport returns a persisted report definition
func (s *Service) GetReport(ctx context.Context, id string) (*domain.ReportDefinition, error) {
	return s.store.GetReport(ctx, id)
}

// ListReports returns every persisted report definition
func (s *Service) ListReports(ctx context.Context) ([]*domain.ReportDefinition, error) {
	return s.store.ListReports(ctx)
}

// RefreshReport re-evaluates a report and replaces its cached result
func (s *Service) RefreshReport(ctx context.Context, id string) (*domain.ReportDefinition, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, report)
}

func (s *Service) refresh(ctx context.Context, report *domain.ReportDefinition) (*domain.ReportDefinition, error) {
	eval, err := s.Evaluate(ctx, report.Spec, domain.VizAuto)
	if err != nil {
		return nil, err
	}
	report.LastEvaluatedData = eval.Result
	report.UpdatedAt = s.now()
	if err := s.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateSnapshot freezes the report's cached result, evaluating it first if nothing is cached
func (s *Service) CreateSnapshot(ctx context.Context, reportID string) (*domain.ReportSnapshot, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.LastEvaluatedData == nil {
		if report, err = s.refresh(ctx, report); err != nil {
			return nil, err
		}
	}

	snapshot := &domain.ReportSnapshot{
		ID:        uuid.New().String(),
		ReportID:  report.ID,
		Data:      *report.LastEvaluatedData,
		Timestamp: s.now(),
	}
	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"report_id": report.ID, "snapshot_id": snapshot.ID}).Info("snapshot created")
	return snapshot, nil
}

// ListSnapshots returns a report's snapshots
func (s *Service) ListSnapshots(ctx context.Context, reportID string) ([]*domain.ReportSnapshot, error) {
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, reportID)
}

// ExportReport redacts and aligns a report's cached result for role
func (s *Service) ExportReport(ctx context.Context, reportID, role string) (*export.Document, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.LastEvaluatedData == nil {
		if report, err = s.refresh(ctx, report); err != nil {
			return nil, err
		}
	}
	return s.export(report.LastEvaluatedData, role), nil
}

// ExportSnapshot redacts and aligns a snapshot's frozen result for role
func (s *Service) ExportSnapshot(ctx context.Context, snapshotID, role string) (*export.Document, error) {
	snapshot, err := s.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.export(&snapshot.Data, role), nil
}

func (s *Service) export(result *domain.EvaluationResult, role string) *export.Document {
	redacted := s.policy.RedactedFields(role)
	if len(redacted) > 0 {
		s.log.WithFields(logrus.Fields{"role": role, "redacted": redacted}).Debug("redacting export")
	}
	return s.policy.Export(result.Rows, role)
}
