package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	cancelled := fmt.Errorf("dashboard: %w", NewCancelledError("sales_total", context.Canceled))
	assert.True(t, IsCancelled(cancelled))
	assert.ErrorIs(t, cancelled, context.Canceled)
	assert.False(t, IsNotFound(cancelled))

	assert.True(t, IsNotFound(NewNotFoundError("report x")))
	assert.True(t, IsUnsupportedOperator(NewUnsupportedOperatorError("sales_total", "customerId", "contains")))
	assert.True(t, IsValidation(NewUnknownMetricError("churn")))
	assert.Equal(t, ErrCode(""), CodeOf(errors.New("plain")))
}

func TestValidationDetails(t *testing.T) {
	list := ValidationErrors{
		{Code: ErrCodeUnknownMetric, Field: "metric", Message: "unknown metric"},
		{Code: ErrCodeValidation, Field: "limit", Message: "must not be negative"},
	}
	err := NewValidationError(list)

	assert.True(t, IsValidation(err))
	assert.Equal(t, list, ValidationDetails(err))
	assert.Contains(t, err.Error(), "limit: must not be negative")
	assert.Nil(t, ValidationDetails(NewNotFoundError("x")))
}

func TestEvaluationErrorCarriesMetric(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewEvaluationError("inventory_turns", cause)

	assert.Equal(t, "inventory_turns", err.Metric)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsCancelled(err))
}
