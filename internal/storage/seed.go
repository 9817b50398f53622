package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/kurihiro0119/business-reports/internal/domain"
)

// DemoData is a deterministic demo dataset
type DemoData struct {
	Entities    []domain.Entity
	Sales       []domain.Sale
	Receivables []domain.Receivable
	Inventory   []domain.InventoryItem
	Shipments   []domain.Shipment
}

var (
	demoCustomers = []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries"}
	demoVendors   = []string{"Northwind", "Contoso", "Fabrikam"}
	demoProducts  = []struct {
		Name     string
		Category string
		Price    float64
	}{
		{"Widget", "Hardware", 120},
		{"Gadget", "Hardware", 340},
		{"Sprocket", "Parts", 18},
		{"License", "Software", 900},
		{"Support Plan", "Services", 450},
		{"Sample Kit", "", 25},
	}
)

// NewDemoData builds a year of activity ending at now. The same seed and now give the same data.
func NewDemoData(now time.Time, seed int64) *DemoData {
	rng := rand.New(rand.NewSource(seed))
	d := &DemoData{}

	for i, name := range demoCustomers {
		d.Entities = append(d.Entities, domain.Entity{Kind: domain.EntityCustomer, ID: fmt.Sprintf("cust-%d", i+1), Name: name})
	}
	for i, name := range demoVendors {
		d.Entities = append(d.Entities, domain.Entity{Kind: domain.EntityVendor, ID: fmt.Sprintf("vend-%d", i+1), Name: name})
	}
	for i, p := range demoProducts {
		id := fmt.Sprintf("prod-%d", i+1)
		d.Entities = append(d.Entities, domain.Entity{Kind: domain.EntityProduct, ID: id, Name: p.Name})
		onHand := float64(20 + rng.Intn(200))
		d.Inventory = append(d.Inventory, domain.InventoryItem{
			ProductID: id,
			Category:  p.Category,
			OnHand:    onHand,
			Allocated: math.Floor(onHand * rng.Float64() * 0.5),
		})
	}

	start := now.AddDate(-1, 0, 0)
	for i := 0; i < 400; i++ {
		p := rng.Intn(len(demoProducts))
		qty := float64(1 + rng.Intn(20))
		at := start.Add(time.Duration(rng.Int63n(int64(now.Sub(start)))))
		amount := math.Round(qty*demoProducts[p].Price*100) / 100
		productID := fmt.Sprintf("prod-%d", p+1)

		d.Sales = append(d.Sales, domain.Sale{
			ID:         fmt.Sprintf("sale-%04d", i+1),
			CustomerID: fmt.Sprintf("cust-%d", rng.Intn(len(demoCustomers))+1),
			ProductID:  productID,
			VendorID:   fmt.Sprintf("vend-%d", rng.Intn(len(demoVendors))+1),
			SaleDate:   at,
			Amount:     amount,
			Cost:       math.Round(amount*(0.4+rng.Float64()*0.4)*100) / 100,
		})
		d.Shipments = append(d.Shipments, domain.Shipment{
			ID:        fmt.Sprintf("ship-%04d", i+1),
			ProductID: productID,
			ShippedAt: at.Add(time.Duration(rng.Intn(72)) * time.Hour),
			Quantity:  qty,
		})
	}

	for i := 0; i < 60; i++ {
		age := rng.Intn(150)
		d.Receivables = append(d.Receivables, domain.Receivable{
			ID:          fmt.Sprintf("inv-%04d", i+1),
			CustomerID:  fmt.Sprintf("cust-%d", rng.Intn(len(demoCustomers))+1),
			InvoiceDate: now.AddDate(0, 0, -age),
			Amount:      float64(100 + rng.Intn(9900)),
			Settled:     rng.Intn(3) == 0,
		})
	}
	return d
}

// Seed loads d into store. Loading is an upsert, so seeding twice is harmless.
func Seed(ctx context.Context, store Store, d *DemoData) error {
	if err := store.SaveEntities(ctx, d.Entities); err != nil {
		return fmt.Errorf("failed to save entities: %w", err)
	}
	if err := store.SaveSales(ctx, d.Sales); err != nil {
		return fmt.Errorf("failed to save sales: %w", err)
	}
	if err := store.SaveReceivables(ctx, d.Receivables); err != nil {
		return fmt.Errorf("failed to save receivables: %w", err)
	}
	if err := store.SaveInventory(ctx, d.Inventory); err != nil {
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	if err := store.SaveShipments(ctx, d.Shipments); err != nil {
		return fmt.Errorf("failed to save shipments: %w", err)
	}
	return nil
}
