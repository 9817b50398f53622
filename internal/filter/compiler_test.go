package filter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

func TestCompileMembership(t *testing.T) {
	caps := Membership(FieldCustomerID, FieldProductID)

	constraints, err := Compile(domain.MetricSalesTotal, []domain.FilterClause{
		{Field: FieldCustomerID, Op: domain.OpIn, Value: []any{"c1", "c2"}},
		{Field: FieldProductID, Op: domain.OpEq, Value: "p9"},
	}, caps)
	require.NoError(t, err)
	require.Len(t, constraints, 2)

	assert.Equal(t, domain.Constraint{Field: FieldCustomerID, Op: domain.OpIn, Values: []any{"c1", "c2"}}, constraints[0])
	assert.Equal(t, domain.Constraint{Field: FieldProductID, Op: domain.OpIn, Values: []any{"p9"}}, constraints[1])
}

func TestCompileRange(t *testing.T) {
	caps := Membership(FieldCustomerID).WithRange(FieldSaleDate, FieldAmount)

	constraints, err := Compile(domain.MetricSalesTotal, []domain.FilterClause{
		{Field: FieldSaleDate, Op: domain.OpGte, Value: "2024-01-10"},
		{Field: FieldAmount, Op: domain.OpGt, Value: 100},
	}, caps)
	require.NoError(t, err)
	require.Len(t, constraints, 2)

	assert.Equal(t, domain.OpGte, constraints[0].Op)
	assert.Equal(t, []any{time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)}, constraints[0].Values)
	assert.Equal(t, []any{float64(100)}, constraints[1].Values)
}

func TestCompileRejectsUnsupportedOperator(t *testing.T) {
	caps := Membership(FieldCustomerID)

	for _, clause := range []domain.FilterClause{
		{Field: FieldCustomerID, Op: domain.OpNeq, Value: "c1"},
		{Field: FieldCustomerID, Op: domain.OpContains, Value: "c"},
		{Field: FieldVendorID, Op: domain.OpIn, Value: []any{"v1"}},
	} {
		_, err := Compile(domain.MetricSalesByCustomer, []domain.FilterClause{clause}, caps)
		require.Error(t, err)
		assert.True(t, apperrors.IsUnsupportedOperator(err), "%+v", clause)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, string(domain.MetricSalesByCustomer), appErr.Metric)
	}
}

func TestCompileRejectsBadValues(t *testing.T) {
	caps := Membership(FieldCustomerID).WithRange(FieldAmount)

	_, err := Compile(domain.MetricSalesTotal, []domain.FilterClause{
		{Field: FieldCustomerID, Op: domain.OpIn, Value: []any{}},
	}, caps)
	assert.Error(t, err)

	_, err = Compile(domain.MetricSalesTotal, []domain.FilterClause{
		{Field: FieldAmount, Op: domain.OpLt, Value: true},
	}, caps)
	assert.Error(t, err)
}

func TestCompileEmpty(t *testing.T) {
	constraints, err := Compile(domain.MetricSalesTotal, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, constraints)
}

func TestCompileAcceptsJSONNumber(t *testing.T) {
	caps := Membership().WithRange(FieldAmount)

	constraints, err := Compile(domain.MetricSalesTotal, []domain.FilterClause{
		{Field: FieldAmount, Op: domain.OpGte, Value: json.Number("250.5")},
	}, caps)
	require.NoError(t, err)
	require.Len(t, constraints, 1)
	assert.Equal(t, []any{250.5}, constraints[0].Values)
}
