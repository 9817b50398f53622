// Package catalog holds the registry of legal metrics, dimensions, breakdowns
// and filter fields. A Catalog is immutable after Load and safe for concurrent reads.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is a read-only registry
type Catalog struct {
	metrics      []domain.MetricDefinition
	dimensions   []domain.DimensionDefinition
	breakdowns   []domain.BreakdownDefinition
	filterFields []domain.FilterFieldDefinition

	metricIndex    map[domain.MetricID]domain.MetricDefinition
	dimensionIndex map[string]struct{}
	breakdownIndex map[string]struct{}
	fieldIndex     map[string]domain.FilterFieldDefinition
}

type catalogFile struct {
	Metrics      []domain.MetricDefinition      `yaml:"metrics"`
	Dimensions   []domain.DimensionDefinition   `yaml:"dimensions"`
	Breakdowns   []domain.BreakdownDefinition   `yaml:"breakdowns"`
	FilterFields []domain.FilterFieldDefinition `yaml:"filter_fields"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in catalog is invalid: %v", err))
	}
	return c
}

// LoadFile loads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog and checks it for duplicates and unknown enums
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Metrics, file.Dimensions, file.Breakdowns, file.FilterFields)
}

// New builds a catalog from explicit definitions
func New(metrics []domain.MetricDefinition, dimensions []domain.DimensionDefinition, breakdowns []domain.BreakdownDefinition, fields []domain.FilterFieldDefinition) (*Catalog, error) {
	c := &Catalog{
		metrics:        append([]domain.MetricDefinition(nil), metrics...),
		dimensions:     append([]domain.DimensionDefinition(nil), dimensions...),
		breakdowns:     append([]domain.BreakdownDefinition(nil), breakdowns...),
		filterFields:   append([]domain.FilterFieldDefinition(nil), fields...),
		metricIndex:    make(map[domain.MetricID]domain.MetricDefinition, len(metrics)),
		dimensionIndex: make(map[string]struct{}, len(dimensions)),
		breakdownIndex: make(map[string]struct{}, len(breakdowns)),
		fieldIndex:     make(map[string]domain.FilterFieldDefinition, len(fields)),
	}

	for _, m := range c.metrics {
		if m.ID == "" {
			return nil, fmt.Errorf("metric with empty id")
		}
		if _, dup := c.metricIndex[m.ID]; dup {
			return nil, fmt.Errorf("duplicate metric %q", m.ID)
		}
		if !m.Domain.Valid() {
			return nil, fmt.Errorf("metric %q: unknown domain %q", m.ID, m.Domain)
		}
		if m.DefaultViz == "" {
			m.DefaultViz = domain.VizTable
		}
		c.metricIndex[m.ID] = m
	}
	for _, d := range c.dimensions {
		if _, dup := c.dimensionIndex[d.ID]; dup {
			return nil, fmt.Errorf("duplicate dimension %q", d.ID)
		}
		c.dimensionIndex[d.ID] = struct{}{}
	}
	for _, b := range c.breakdowns {
		if _, dup := c.breakdownIndex[b.ID]; dup {
			return nil, fmt.Errorf("duplicate breakdown %q", b.ID)
		}
		c.breakdownIndex[b.ID] = struct{}{}
	}
	for _, f := range c.filterFields {
		switch f.Type {
		case domain.FieldTypeSelect, domain.FieldTypeText, domain.FieldTypeNumber:
		default:
			return nil, fmt.Errorf("filter field %q: unknown type %q", f.Field, f.Type)
		}
		if _, dup := c.fieldIndex[f.Field]; dup {
			return nil, fmt.Errorf("duplicate filter field %q", f.Field)
		}
		c.fieldIndex[f.Field] = f
	}

	return c, nil
}

// ListMetrics returns every registered metric in catalog order
func (c *Catalog) ListMetrics() []domain.MetricDefinition {
	return append([]domain.MetricDefinition(nil), c.metrics...)
}

// ListDimensions returns every registered dimension
func (c *Catalog) ListDimensions() []domain.DimensionDefinition {
	return append([]domain.DimensionDefinition(nil), c.dimensions...)
}

// ListBreakdowns returns every registered breakdown
func (c *Catalog) ListBreakdowns() []domain.BreakdownDefinition {
	return append([]domain.BreakdownDefinition(nil), c.breakdowns...)
}

// ListFilterFields returns every registered filter field
func (c *Catalog) ListFilterFields() []domain.FilterFieldDefinition {
	return append([]domain.FilterFieldDefinition(nil), c.filterFields...)
}

// GetMetric returns the metric with the given id or an UnknownMetric error
func (c *Catalog) GetMetric(id domain.MetricID) (domain.MetricDefinition, error) {
	m, ok := c.metricIndex[id]
	if !ok {
		return domain.MetricDefinition{}, apperrors.NewUnknownMetricError(string(id))
	}
	return m, nil
}

// HasDimension reports whether id is a registered dimension
func (c *Catalog) HasDimension(id string) bool {
	_, ok := c.dimensionIndex[id]
	return ok
}

// HasBreakdown reports whether id is a registered breakdown
func (c *Catalog) HasBreakdown(id string) bool {
	_, ok := c.breakdownIndex[id]
	return ok
}

// FilterField returns the definition of a filter field
func (c *Catalog) FilterField(field string) (domain.FilterFieldDefinition, bool) {
	f, ok := c.fieldIndex[field]
	return f, ok
}
