package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/domain"
)

// specFlags are the command-line form of a report specification
type specFlags struct {
	metric    string
	dimension string
	breakdown string
	rangeTok  string
	from      string
	to        string
	filters   []string
	limit     int
	orderBy   string
}

// build turns the flags into a specification. Filter values are typed from the catalog
// so number fields are sent as numbers; the validator reports anything else.
func (f *specFlags) build(cat *catalog.Catalog) (domain.ReportSpecification, error) {
	spec := domain.ReportSpecification{
		Metric:    domain.MetricID(f.metric),
		Dimension: f.dimension,
		Breakdown: f.breakdown,
		Limit:     f.limit,
		OrderBy:   domain.OrderBy(f.orderBy),
	}

	if f.from != "" || f.to != "" {
		spec.DateRange = domain.DateRangeSpec{Mode: domain.DateRangeAbsolute, From: f.from, To: f.to}
	} else {
		spec.DateRange = domain.Relative(domain.RelativeRange(f.rangeTok))
	}

	for _, raw := range f.filters {
		clause, err := parseFilter(raw, cat)
		if err != nil {
			return spec, err
		}
		spec.Filters.Upsert(clause)
	}
	return spec, nil
}

// parseFilter parses "field:op:value". For "in", value is a comma-separated list.
func parseFilter(raw string, cat *catalog.Catalog) (domain.FilterClause, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return domain.FilterClause{}, fmt.Errorf("invalid filter %q, expected field:op:value", raw)
	}
	field, op, value := parts[0], domain.FilterOp(parts[1]), parts[2]

	fieldType := domain.FieldTypeText
	if def, ok := cat.FilterField(field); ok {
		fieldType = def.Type
	}

	typed := func(s string) (any, error) {
		if fieldType != domain.FieldTypeNumber {
			return s, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %q is not a number", field, s)
		}
		return n, nil
	}

	if op == domain.OpIn {
		var values []any
		for _, item := range strings.Split(value, ",") {
			v, err := typed(strings.TrimSpace(item))
			if err != nil {
				return domain.FilterClause{}, err
			}
			values = append(values, v)
		}
		return domain.FilterClause{Field: field, Op: op, Value: values}, nil
	}

	v, err := typed(value)
	if err != nil {
		return domain.FilterClause{}, err
	}
	return domain.FilterClause{Field: field, Op: op, Value: v}, nil
}
