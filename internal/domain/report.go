package domain

import "time"

// ReportDefinition is a persisted specification with its cached result
type ReportDefinition struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Spec              ReportSpecification `json:"spec"`
	LastEvaluatedData *EvaluationResult   `json:"lastEvaluatedData,omitempty"`
	Schedule          string              `json:"schedule,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ReportSnapshot is an immutable copy of a past evaluation
type ReportSnapshot struct {
	ID        string           `json:"id"`
	ReportID  string           `json:"reportId"`
	Data      EvaluationResult `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}
