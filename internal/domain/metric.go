package domain

// MetricID identifies a catalog metric
type MetricID string

const (
	MetricSalesTotal          MetricID = "sales_total"
	MetricSalesByCustomer     MetricID = "sales_by_customer"
	MetricSalesByProduct      MetricID = "sales_by_product"
	MetricReceivablesOver90   MetricID = "receivables_over_90"
	MetricReceivablesAging    MetricID = "receivables_aging"
	MetricInventoryByCategory MetricID = "inventory_by_category"
	MetricInventoryTurns      MetricID = "inventory_turns"
	MetricOnTimeDelivery      MetricID = "on_time_delivery"
)

// MetricDomain is the business area a metric belongs to
type MetricDomain string

const (
	DomainSales      MetricDomain = "SALES"
	DomainFinance    MetricDomain = "FINANCE"
	DomainInventory  MetricDomain = "INVENTORY"
	DomainOperations MetricDomain = "OPERATIONS"
)

// Valid reports whether d is one of the known domains
func (d MetricDomain) Valid() bool {
	switch d {
	case DomainSales, DomainFinance, DomainInventory, DomainOperations:
		return true
	}
	return false
}

// Viz is a chart kind understood by the rendering layer
type Viz string

const (
	VizAuto  Viz = "auto"
	VizKPI   Viz = "kpi"
	VizBar   Viz = "bar"
	VizLine  Viz = "line"
	VizPie   Viz = "pie"
	VizTable Viz = "table"
)

// Valid reports whether v is a known chart kind, including auto
func (v Viz) Valid() bool {
	switch v {
	case VizAuto, VizKPI, VizBar, VizLine, VizPie, VizTable:
		return true
	}
	return false
}

// MetricDefinition describes a registered metric
type MetricDefinition struct {
	ID         MetricID     `json:"id" yaml:"id"`
	Label      string       `json:"label" yaml:"label"`
	Domain     MetricDomain `json:"domain" yaml:"domain"`
	DefaultViz Viz          `json:"defaultViz" yaml:"default_viz"`
}

// DimensionDefinition is a "group by" axis
type DimensionDefinition struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// BreakdownDefinition is a secondary grouping axis
type BreakdownDefinition struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// FieldType is the value shape of a filter field
type FieldType string

const (
	FieldTypeSelect FieldType = "select"
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
)

// FilterFieldDefinition describes a legal filter target
type FilterFieldDefinition struct {
	Field string    `json:"field" yaml:"field"`
	Label string    `json:"label" yaml:"label"`
	Type  FieldType `json:"type" yaml:"type"`
	// LookupKind names the entity kind whose options the lookup collaborator supplies.
	LookupKind EntityKind `json:"lookupKind,omitempty" yaml:"lookup_kind"`
}
