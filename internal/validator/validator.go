// Package validator checks report specifications against the catalog before evaluation.
package validator

import (
	"encoding/json"
	"fmt"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

// ValidSpec is a specification that passed validation
type ValidSpec struct {
	Spec   domain.ReportSpecification
	Metric domain.MetricDefinition
}

// Validator validates specifications against an injected catalog
type Validator struct {
	catalog *catalog.Catalog
}

// New creates a validator bound to cat
func New(cat *catalog.Catalog) *Validator {
	return &Validator{catalog: cat}
}

// Validate checks spec and returns every problem found. It never touches the store.
func (v *Validator) Validate(spec domain.ReportSpecification) (*ValidSpec, apperrors.ValidationErrors) {
	var errs apperrors.ValidationErrors

	metric, err := v.catalog.GetMetric(spec.Metric)
	if err != nil {
		errs = append(errs, apperrors.ValidationError{
			Code:    apperrors.ErrCodeUnknownMetric,
			Field:   "metric",
			Message: fmt.Sprintf("unknown metric %q", spec.Metric),
		})
	}

	if spec.Dimension != "" && !v.catalog.HasDimension(spec.Dimension) {
		errs = append(errs, invalid("dimension", "unknown dimension %q", spec.Dimension))
	}
	if spec.Breakdown != "" && !v.catalog.HasBreakdown(spec.Breakdown) {
		errs = append(errs, invalid("breakdown", "unknown breakdown %q", spec.Breakdown))
	}

	for _, clause := range spec.Filters.Clauses() {
		errs = append(errs, v.validateFilter(clause)...)
	}

	errs = append(errs, validateDateRange(spec.DateRange)...)

	if spec.Limit < 0 {
		errs = append(errs, invalid("limit", "must not be negative"))
	}
	if !spec.OrderBy.Valid() {
		errs = append(errs, invalid("orderBy", "unknown ordering %q", spec.OrderBy))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &ValidSpec{Spec: spec, Metric: metric}, nil
}

func (v *Validator) validateFilter(c domain.FilterClause) apperrors.ValidationErrors {
	path := "filters." + c.Field
	def, ok := v.catalog.FilterField(c.Field)
	if !ok {
		return apperrors.ValidationErrors{invalid(path, "unknown filter field %q", c.Field)}
	}
	if !c.Op.Valid() {
		return apperrors.ValidationErrors{invalid(path, "unknown operator %q", c.Op)}
	}
	if c.Value == nil {
		return apperrors.ValidationErrors{invalid(path, "value is required")}
	}

	if c.Op == domain.OpIn {
		items, ok := asList(c.Value)
		if !ok {
			return apperrors.ValidationErrors{invalid(path, "operator in requires an array value")}
		}
		if len(items) == 0 {
			return apperrors.ValidationErrors{invalid(path, "operator in requires at least one value")}
		}
		for _, item := range items {
			if !matchesType(def.Type, item) {
				return apperrors.ValidationErrors{invalid(path, "array values must be of type %s", def.Type)}
			}
		}
		return nil
	}

	if !matchesType(def.Type, c.Value) {
		return apperrors.ValidationErrors{invalid(path, "value must be of type %s", def.Type)}
	}
	return nil
}

func validateDateRange(r domain.DateRangeSpec) apperrors.ValidationErrors {
	switch r.Mode {
	case domain.DateRangeRelative:
		if r.From != "" || r.To != "" {
			return apperrors.ValidationErrors{invalid("dateRange", "relative range must not set from/to")}
		}
		if !r.Value.Valid() {
			return apperrors.ValidationErrors{invalid("dateRange.value", "unknown relative range %q", r.Value)}
		}
		return nil

	case domain.DateRangeAbsolute:
		var errs apperrors.ValidationErrors
		if r.Value != "" {
			errs = append(errs, invalid("dateRange", "absolute range must not set value"))
		}
		from, fromErr := domain.ParseDate(r.From)
		if fromErr != nil {
			errs = append(errs, invalid("dateRange.from", "invalid date %q", r.From))
		}
		to, toErr := domain.ParseDate(r.To)
		if toErr != nil {
			errs = append(errs, invalid("dateRange.to", "invalid date %q", r.To))
		}
		if fromErr == nil && toErr == nil && to.Before(from) {
			errs = append(errs, invalid("dateRange", "from must not be after to"))
		}
		return errs
	}

	return apperrors.ValidationErrors{invalid("dateRange.mode", "must be relative or absolute")}
}

func invalid(field, format string, args ...any) apperrors.ValidationError {
	return apperrors.ValidationError{
		Code:    apperrors.ErrCodeValidation,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(list))
		for i, f := range list {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func matchesType(t domain.FieldType, v any) bool {
	switch t {
	case domain.FieldTypeSelect, domain.FieldTypeText:
		_, ok := v.(string)
		return ok
	case domain.FieldTypeNumber:
		switch v.(type) {
		case float64, float32, int, int64, json.Number:
			return true
		}
	}
	return false
}
