package sqldb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM t WHERE a = ? AND b IN (?, ?)"
	assert.Equal(t, q, Dialect{}.Rebind(q))
	assert.Equal(t, "SELECT 1 FROM t WHERE a = $1 AND b IN ($2, $3)", Dialect{Numbered: true}.Rebind(q))
}

func TestWhereClause(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	preds, args, err := whereClause("sales", []domain.Constraint{
		{Field: "customerId", Op: domain.OpIn, Values: []any{"c1", "c2"}},
		{Field: "saleDate", Op: domain.OpLt, Values: []any{at}},
		{Field: "amount", Op: domain.OpGte, Values: []any{10.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id IN (?,?)", "sale_date < ?", "amount >= ?"}, preds)
	assert.Equal(t, []any{"c1", "c2", at.UTC(), 10.0}, args)
}

func TestWhereClauseRejectsUnknownColumns(t *testing.T) {
	_, _, err := whereClause("sales", []domain.Constraint{{Field: "customer_id; DROP TABLE sales", Op: domain.OpEq, Values: []any{"x"}}})
	assert.Error(t, err)

	_, _, err = whereClause("inventory", []domain.Constraint{{Field: "customerId", Op: domain.OpIn, Values: []any{"x"}}})
	assert.Error(t, err)

	_, _, err = whereClause("nope", nil)
	assert.Error(t, err)
}
