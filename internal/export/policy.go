// Package export redacts evaluated rows by role and serializes them for download.
package export

import (
	"sort"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// Built-in roles, lowest clearance first
const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Policy maps roles to a clearance level and sensitive fields to the level required to see them
type Policy struct {
	Clearances map[string]int
	Sensitive  map[string]int
}

// DefaultPolicy hides cost and margin from anyone below manager
func DefaultPolicy() *Policy {
	return &Policy{
		Clearances: map[string]int{
			RoleViewer:  0,
			RoleAnalyst: 1,
			RoleManager: 2,
			RoleAdmin:   3,
		},
		Sensitive: map[string]int{
			"cost":   2,
			"margin": 2,
		},
	}
}

// RedactedFields returns the sorted fields role may not see.
// An unknown role sees no sensitive field at all.
func (p *Policy) RedactedFields(role string) []string {
	clearance, known := p.Clearances[role]
	fields := make([]string, 0, len(p.Sensitive))
	for field, required := range p.Sensitive {
		if !known || clearance < required {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Sanitize returns copies of rows without the fields role may not see.
// Input rows are never modified, and sanitizing twice equals sanitizing once.
func (p *Policy) Sanitize(rows []domain.Row, role string) []domain.Row {
	redacted := make(map[string]struct{})
	for _, f := range p.RedactedFields(role) {
		redacted[f] = struct{}{}
	}

	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		clean := make(domain.Row, len(row))
		for k, v := range row {
			if _, hide := redacted[k]; hide {
				continue
			}
			clean[k] = v
		}
		out[i] = clean
	}
	return out
}
