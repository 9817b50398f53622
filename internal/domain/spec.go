package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// FilterOp is a filter clause operator
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpNeq      FilterOp = "neq"
	OpGt       FilterOp = "gt"
	OpLt       FilterOp = "lt"
	OpGte      FilterOp = "gte"
	OpLte      FilterOp = "lte"
	OpContains FilterOp = "contains"
	OpIn       FilterOp = "in"
)

// Valid reports whether op is a known operator
func (op FilterOp) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpContains, OpIn:
		return true
	}
	return false
}

// FilterClause is a single "field op value" predicate
type FilterClause struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value any      `json:"value"`
}

// FilterSet holds at most one clause per field
type FilterSet map[string]FilterClause

// Upsert replaces any existing clause for the same field
func (s *FilterSet) Upsert(c FilterClause) {
	if *s == nil {
		*s = make(FilterSet)
	}
	(*s)[c.Field] = c
}

// Remove drops the clause for field, if any
func (s FilterSet) Remove(field string) {
	delete(s, field)
}

// Clauses returns the clauses ordered by field name. The map key is the field.
func (s FilterSet) Clauses() []FilterClause {
	out := make([]FilterClause, 0, len(s))
	for field, c := range s {
		c.Field = field
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// MarshalJSON encodes the set as an array of clauses
func (s FilterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Clauses())
}

// UnmarshalJSON decodes an array of clauses; later clauses for a field win
func (s *FilterSet) UnmarshalJSON(data []byte) error {
	var clauses []FilterClause
	if err := json.Unmarshal(data, &clauses); err != nil {
		return err
	}
	*s = make(FilterSet, len(clauses))
	for _, c := range clauses {
		s.Upsert(c)
	}
	return nil
}

// DateRangeMode selects the populated shape of a DateRangeSpec
type DateRangeMode string

const (
	DateRangeRelative DateRangeMode = "relative"
	DateRangeAbsolute DateRangeMode = "absolute"
)

// RelativeRange is a named window ending at "now"
type RelativeRange string

const (
	RangeToday        RelativeRange = "today"
	RangeLast7Days    RelativeRange = "7d"
	RangeLast30Days   RelativeRange = "30d"
	RangeQuarterToDay RelativeRange = "qtd"
	RangeYearToDate   RelativeRange = "ytd"
)

// RelativeRanges lists the accepted relative tokens
var RelativeRanges = []RelativeRange{RangeToday, RangeLast7Days, RangeLast30Days, RangeQuarterToDay, RangeYearToDate}

// Valid reports whether r is an accepted relative token
func (r RelativeRange) Valid() bool {
	for _, v := range RelativeRanges {
		if v == r {
			return true
		}
	}
	return false
}

// DateRangeSpec is either {mode: relative, value} or {mode: absolute, from, to}.
// From and To accept "2006-01-02" or RFC 3339.
type DateRangeSpec struct {
	Mode  DateRangeMode `json:"mode"`
	Value RelativeRange `json:"value,omitempty"`
	From  string        `json:"from,omitempty"`
	To    string        `json:"to,omitempty"`
}

// Relative builds a relative date range spec
func Relative(r RelativeRange) DateRangeSpec {
	return DateRangeSpec{Mode: DateRangeRelative, Value: r}
}

// Absolute builds an absolute date range spec
func Absolute(from, to time.Time) DateRangeSpec {
	return DateRangeSpec{Mode: DateRangeAbsolute, From: from.Format(time.RFC3339), To: to.Format(time.RFC3339)}
}

// DateRange is a concrete half-open interval [From, To)
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

const dateOnly = "2006-01-02"

// ParseDate parses a date-only or RFC 3339 timestamp. Date-only values are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, s)
}

// ParseRangeEnd parses the exclusive end of a range. A date-only value names a
// whole day, so it resolves to the following midnight; timestamps are kept as-is.
func ParseRangeEnd(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, 1), nil
}

// OrderBy controls row ordering for grouped results
type OrderBy string

const (
	OrderValueDesc OrderBy = "value_desc"
	OrderValueAsc  OrderBy = "value_asc"
	OrderLabelAsc  OrderBy = "label_asc"
)

// Valid reports whether o is empty or a known ordering
func (o OrderBy) Valid() bool {
	switch o {
	case "", OrderValueDesc, OrderValueAsc, OrderLabelAsc:
		return true
	}
	return false
}

// ReportSpecification is the sole input to an evaluation
type ReportSpecification struct {
	Metric    MetricID      `json:"metric"`
	Dimension string        `json:"dimension,omitempty"`
	Breakdown string        `json:"breakdown,omitempty"`
	DateRange DateRangeSpec `json:"dateRange"`
	Filters   FilterSet     `json:"filters"`
	Limit     int           `json:"limit,omitempty"`
	OrderBy   OrderBy       `json:"orderBy,omitempty"`
}

// Constraint is a compiled, store-level predicate. Constraints compose by AND.
type Constraint struct {
	Field  string
	Op     FilterOp
	Values []any
}
