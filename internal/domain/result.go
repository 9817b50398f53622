package domain

import "time"

// Row is one result record. Keys vary by metric.
type Row map[string]any

// ResultMeta describes the shape of an evaluation result
type ResultMeta struct {
	RowCount       int `json:"rowCount"`
	Viz            Viz `json:"viz"`
	RecommendedViz Viz `json:"recommendedViz"`
	// LabelField and ValueField name the row keys charts plot
	LabelField string `json:"labelField,omitempty"`
	ValueField string `json:"valueField,omitempty"`
}

// EvaluationResult is the output of evaluating a specification
type EvaluationResult struct {
	Metric      MetricID   `json:"metric"`
	Rows        []Row      `json:"rows"`
	Meta        ResultMeta `json:"meta"`
	Range       DateRange  `json:"range"`
	EvaluatedAt time.Time  `json:"evaluatedAt"`
}

// EmptyResult is returned when a metric has nothing to dispatch
func EmptyResult(metric MetricID) *EvaluationResult {
	return &EvaluationResult{
		Metric: metric,
		Rows:   []Row{},
		Meta:   ResultMeta{RowCount: 0, Viz: VizTable, RecommendedViz: VizTable},
	}
}

// ChartPoint is one plotted point; Raw keeps the source row for drill-down
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Raw   Row     `json:"raw"`
}
