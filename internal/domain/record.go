package domain

import "time"

// EntityKind is the kind of a referenced business entity
type EntityKind string

const (
	EntityCustomer EntityKind = "customer"
	EntityVendor   EntityKind = "vendor"
	EntityProduct  EntityKind = "product"
)

// Entity is a labelled customer, vendor or product
type Entity struct {
	Kind EntityKind
	ID   string
	Name string
}

// Sale is a completed sale line
type Sale struct {
	ID         string
	CustomerID string
	ProductID  string
	VendorID   string
	SaleDate   time.Time
	Amount     float64
	Cost       float64
}

// Receivable is an invoice owed by a customer
type Receivable struct {
	ID          string
	CustomerID  string
	InvoiceDate time.Time
	Amount      float64
	Settled     bool
}

// InventoryItem is the current stock position of a product
type InventoryItem struct {
	ProductID string
	Category  string // empty means uncategorized
	OnHand    float64
	Allocated float64
}

// Shipment is an outbound shipment of a product
type Shipment struct {
	ID        string
	ProductID string
	ShippedAt time.Time
	Quantity  float64
}

// GroupTotal is an aggregate keyed by entity id
type GroupTotal struct {
	Key    string
	Amount float64
	Cost   float64
}

// CategoryTotal is a quantity rolled up by category label
type CategoryTotal struct {
	Category string
	Quantity float64
}
