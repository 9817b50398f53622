package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
)

func TestParseFilter(t *testing.T) {
	cat := catalog.Default()

	clause, err := parseFilter("customerId:in:c1, c2", cat)
	require.NoError(t, err)
	assert.Equal(t, domain.FilterClause{Field: "customerId", Op: domain.OpIn, Value: []any{"c1", "c2"}}, clause)

	clause, err = parseFilter("amount:gte:1500.5", cat)
	require.NoError(t, err)
	assert.Equal(t, 1500.5, clause.Value)

	clause, err = parseFilter("saleDate:lt:2024-01-01T00:00:00Z", cat)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", clause.Value)

	_, err = parseFilter("amount:gt:lots", cat)
	assert.Error(t, err)
	_, err = parseFilter("customerId", cat)
	assert.Error(t, err)
}

func TestSpecFlagsBuild(t *testing.T) {
	cat := catalog.Default()

	f := &specFlags{
		metric:   "sales_by_customer",
		rangeTok: "30d",
		filters:  []string{"customerId:eq:c1", "customerId:eq:c2"},
		limit:    5,
		orderBy:  "value_asc",
	}
	spec, err := f.build(cat)
	require.NoError(t, err)
	assert.Equal(t, domain.Relative(domain.RangeLast30Days), spec.DateRange)
	assert.Len(t, spec.Filters, 1)
	assert.Equal(t, "c2", spec.Filters["customerId"].Value)
	assert.Equal(t, domain.OrderValueAsc, spec.OrderBy)

	f = &specFlags{metric: "sales_total", rangeTok: "30d", from: "2024-01-01", to: "2024-01-31"}
	spec, err = f.build(cat)
	require.NoError(t, err)
	assert.Equal(t, domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: "2024-01-01", To: "2024-01-31"}, spec.DateRange)
}
