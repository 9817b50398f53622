// Package viz resolves the final chart kind of an evaluation and maps rows to chart points.
package viz

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// Select resolves the chart kind shown to the caller.
// An explicit request wins, then the strategy's recommendation, then the metric default.
func Select(requested, recommended, metricDefault domain.Viz) domain.Viz {
	for _, v := range []domain.Viz{requested, recommended, metricDefault} {
		if v != "" && v != domain.VizAuto && v.Valid() {
			return v
		}
	}
	return domain.VizTable
}

// Apply sets result.Meta.Viz for the requested kind. It returns a copy; result is untouched.
func Apply(result *domain.EvaluationResult, requested, metricDefault domain.Viz) *domain.EvaluationResult {
	out := *result
	out.Meta.Viz = Select(requested, result.Meta.RecommendedViz, metricDefault)
	return &out
}

// ChartPoints maps every row to a {label, value, raw} point using the result's label
// and value fields. Non-numeric values plot as 0.
func ChartPoints(result *domain.EvaluationResult) []domain.ChartPoint {
	labelField, valueField := result.Meta.LabelField, result.Meta.ValueField
	if labelField == "" {
		labelField = "label"
	}
	if valueField == "" {
		valueField = "value"
	}

	points := make([]domain.ChartPoint, 0, len(result.Rows))
	for _, row := range result.Rows {
		points = append(points, domain.ChartPoint{
			Label: labelOf(row[labelField]),
			Value: ToFloat(row[valueField]),
			Raw:   row,
		})
	}
	return points
}

func labelOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ToFloat converts a row value to float64; unknown shapes yield 0
func ToFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
