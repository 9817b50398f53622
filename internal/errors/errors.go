package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound            ErrCode = "NOT_FOUND"
	ErrCodeInternal            ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest          ErrCode = "BAD_REQUEST"
	ErrCodeValidation          ErrCode = "VALIDATION_FAILED"
	ErrCodeUnknownMetric       ErrCode = "UNKNOWN_METRIC"
	ErrCodeUnsupportedOperator ErrCode = "UNSUPPORTED_FILTER_OPERATOR"
	ErrCodeEvaluation          ErrCode = "EVALUATION_FAILURE"
	ErrCodeCancelled           ErrCode = "CANCELLED"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	// Metric is the metric being evaluated when the error occurred, if any
	Metric string
	Err    error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Metric != "" {
		msg = fmt.Sprintf("%s [metric=%s]", msg, e.Metric)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ValidationError is one caller-correctable problem with a specification
type ValidationError struct {
	Code    ErrCode `json:"code"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one validation pass
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "invalid specification: " + strings.Join(parts, "; ")
}

// NewValidationError wraps a list of validation problems
func NewValidationError(errs ValidationErrors) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%d validation error(s)", len(errs)),
		Err:     errs,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnknownMetricError creates an error for a catalog lookup miss
func NewUnknownMetricError(metric string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownMetric,
		Message: fmt.Sprintf("unknown metric %q", metric),
		Metric:  metric,
	}
}

// NewUnsupportedOperatorError creates an error for a filter the metric cannot compile
func NewUnsupportedOperatorError(metric, field, op string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedOperator,
		Message: fmt.Sprintf("operator %q is not supported on field %q", op, field),
		Metric:  metric,
	}
}

// NewEvaluationError creates an error for a store or lookup failure during aggregation
func NewEvaluationError(metric string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeEvaluation,
		Message: "evaluation failed",
		Metric:  metric,
		Err:     err,
	}
}

// NewCancelledError creates an error for a caller-initiated abort
func NewCancelledError(metric string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCancelled,
		Message: "evaluation cancelled",
		Metric:  metric,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsCancelled checks if the error is a caller-initiated abort
func IsCancelled(err error) bool {
	return CodeOf(err) == ErrCodeCancelled
}

// IsValidation checks if the error is a validation failure (including unknown metrics)
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeValidation || code == ErrCodeUnknownMetric
}

// IsUnsupportedOperator checks if a filter could not be compiled for a metric
func IsUnsupportedOperator(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedOperator
}

// ValidationDetails returns the validation problems carried by err, if any
func ValidationDetails(err error) ValidationErrors {
	var list ValidationErrors
	if errors.As(err, &list) {
		return list
	}
	return nil
}
