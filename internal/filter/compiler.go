// Package filter compiles validated filter clauses into store constraints.
package filter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

// Reference filter fields resolved through the lookup collaborator
const (
	FieldCustomerID = "customerId"
	FieldVendorID   = "vendorId"
	FieldProductID  = "productId"
	FieldSaleDate   = "saleDate"
	FieldAmount     = "amount"
)

var (
	membershipOps = []domain.FilterOp{domain.OpIn, domain.OpEq}
	rangeOps      = []domain.FilterOp{domain.OpEq, domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte}
)

// Capabilities maps each field a strategy can constrain to the operators it implements
type Capabilities map[string][]domain.FilterOp

// Supports reports whether op can be compiled for field
func (c Capabilities) Supports(field string, op domain.FilterOp) bool {
	for _, supported := range c[field] {
		if supported == op {
			return true
		}
	}
	return false
}

// Membership returns capabilities for "in"-style membership on the given reference fields
func Membership(fields ...string) Capabilities {
	caps := make(Capabilities, len(fields))
	for _, f := range fields {
		caps[f] = membershipOps
	}
	return caps
}

// WithRange returns a copy of c that also supports range operators on the given fields
func (c Capabilities) WithRange(fields ...string) Capabilities {
	out := make(Capabilities, len(c)+len(fields))
	for k, v := range c {
		out[k] = v
	}
	for _, f := range fields {
		out[f] = rangeOps
	}
	return out
}

// Compile turns each clause into exactly one constraint. A clause whose field or
// operator is not in caps fails with UnsupportedFilterOperator rather than being dropped.
func Compile(metric domain.MetricID, clauses []domain.FilterClause, caps Capabilities) ([]domain.Constraint, error) {
	constraints := make([]domain.Constraint, 0, len(clauses))
	for _, c := range clauses {
		if !caps.Supports(c.Field, c.Op) {
			return nil, apperrors.NewUnsupportedOperatorError(string(metric), c.Field, string(c.Op))
		}

		var (
			constraint domain.Constraint
			err        error
		)
		switch c.Op {
		case domain.OpIn, domain.OpEq:
			if isMembershipField(c.Field) {
				constraint, err = compileMembership(c)
			} else {
				constraint, err = compileComparison(c)
			}
		default:
			constraint, err = compileComparison(c)
		}
		if err != nil {
			return nil, apperrors.NewBadRequestError(fmt.Sprintf("filter %s: %v", c.Field, err))
		}
		constraints = append(constraints, constraint)
	}
	return constraints, nil
}

func isMembershipField(field string) bool {
	switch field {
	case FieldCustomerID, FieldVendorID, FieldProductID:
		return true
	}
	return false
}

// compileMembership always emits an "in" constraint; eq becomes a one-member set
func compileMembership(c domain.FilterClause) (domain.Constraint, error) {
	var values []any
	switch v := c.Value.(type) {
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return domain.Constraint{}, fmt.Errorf("membership values must be strings, got %T", item)
			}
			values = append(values, s)
		}
	case []string:
		for _, s := range v {
			values = append(values, s)
		}
	case string:
		values = []any{v}
	default:
		return domain.Constraint{}, fmt.Errorf("unsupported membership value %T", c.Value)
	}
	if len(values) == 0 {
		return domain.Constraint{}, fmt.Errorf("membership set is empty")
	}
	return domain.Constraint{Field: c.Field, Op: domain.OpIn, Values: values}, nil
}

func compileComparison(c domain.FilterClause) (domain.Constraint, error) {
	var value any
	switch c.Field {
	case FieldSaleDate:
		s, ok := c.Value.(string)
		if !ok {
			return domain.Constraint{}, fmt.Errorf("date value must be a string, got %T", c.Value)
		}
		t, err := domain.ParseDate(s)
		if err != nil {
			return domain.Constraint{}, err
		}
		value = t
	default:
		f, err := toFloat(c.Value)
		if err != nil {
			return domain.Constraint{}, err
		}
		value = f
	}
	return domain.Constraint{Field: c.Field, Op: c.Op, Values: []any{value}}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
