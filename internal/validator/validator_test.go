package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

func validSpec() domain.ReportSpecification {
	var filters domain.FilterSet
	filters.Upsert(domain.FilterClause{Field: "customerId", Op: domain.OpIn, Value: []any{"c1"}})
	return domain.ReportSpecification{
		Metric:    domain.MetricSalesByCustomer,
		Dimension: "customer",
		DateRange: domain.Relative(domain.RangeLast30Days),
		Filters:   filters,
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	v := New(catalog.Default())

	valid, errs := v.Validate(validSpec())
	require.Empty(t, errs)
	require.NotNil(t, valid)
	assert.Equal(t, "Sales by Customer", valid.Metric.Label)
}

func TestValidateUnknownMetric(t *testing.T) {
	v := New(catalog.Default())
	spec := validSpec()
	spec.Metric = "gross_margin"

	valid, errs := v.Validate(spec)
	assert.Nil(t, valid)
	require.NotEmpty(t, errs)
	assert.Equal(t, apperrors.ErrCodeUnknownMetric, errs[0].Code)
	assert.Equal(t, "metric", errs[0].Field)
}

func TestValidateReportsAllProblems(t *testing.T) {
	v := New(catalog.Default())

	spec := domain.ReportSpecification{
		Metric:    "nope",
		Dimension: "weekday",
		Breakdown: "planet",
		DateRange: domain.Relative("90d"),
		Limit:     -1,
		OrderBy:   "random",
	}
	spec.Filters.Upsert(domain.FilterClause{Field: "colour", Op: domain.OpEq, Value: "red"})

	_, errs := v.Validate(spec)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"metric", "dimension", "breakdown", "filters.colour", "dateRange.value", "limit", "orderBy"}, fields)
}

func TestValidateFilterValueTypes(t *testing.T) {
	v := New(catalog.Default())

	tests := []struct {
		name   string
		clause domain.FilterClause
		ok     bool
	}{
		{"select scalar", domain.FilterClause{Field: "vendorId", Op: domain.OpEq, Value: "v1"}, true},
		{"select array", domain.FilterClause{Field: "vendorId", Op: domain.OpIn, Value: []any{"v1", "v2"}}, true},
		{"select number", domain.FilterClause{Field: "vendorId", Op: domain.OpEq, Value: 3.0}, false},
		{"in scalar", domain.FilterClause{Field: "vendorId", Op: domain.OpIn, Value: "v1"}, false},
		{"in empty", domain.FilterClause{Field: "vendorId", Op: domain.OpIn, Value: []any{}}, false},
		{"number", domain.FilterClause{Field: "amount", Op: domain.OpGt, Value: 10.0}, true},
		{"number as string", domain.FilterClause{Field: "amount", Op: domain.OpGt, Value: "10"}, false},
		{"text contains", domain.FilterClause{Field: "saleDate", Op: domain.OpContains, Value: "2024"}, true},
		{"unknown op", domain.FilterClause{Field: "amount", Op: "between", Value: 1.0}, false},
		{"nil value", domain.FilterClause{Field: "amount", Op: domain.OpEq}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Filters = nil
			spec.Filters.Upsert(tt.clause)
			_, errs := v.Validate(spec)
			if tt.ok {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	v := New(catalog.Default())

	tests := []struct {
		name string
		r    domain.DateRangeSpec
		ok   bool
	}{
		{"relative", domain.Relative(domain.RangeYearToDate), true},
		{"absolute", domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: "2024-01-01", To: "2024-01-31"}, true},
		{"absolute same day", domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: "2024-01-01", To: "2024-01-01"}, true},
		{"absolute reversed", domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: "2024-02-01", To: "2024-01-01"}, false},
		{"absolute malformed", domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: "Jan 1", To: "2024-01-01"}, false},
		{"both shapes", domain.DateRangeSpec{Mode: domain.DateRangeRelative, Value: domain.RangeToday, From: "2024-01-01"}, false},
		{"no mode", domain.DateRangeSpec{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.DateRange = tt.r
			_, errs := v.Validate(spec)
			assert.Equal(t, tt.ok, len(errs) == 0, "%v", errs)
		})
	}
}

func TestValidationErrorsWrap(t *testing.T) {
	_, errs := New(catalog.Default()).Validate(domain.ReportSpecification{Metric: "x"})
	err := apperrors.NewValidationError(errs)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, errs, apperrors.ValidationDetails(err))
}
