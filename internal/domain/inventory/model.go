// Package inventory tracks on-hand filter stock per warehouse location and the
// append-only ledger of filters consumed by maintenances.
package inventory

import (
	"time"

	"aquaops/internal/core/id"
)

// Stock is the on-hand quantity of one item at one location.
// Quantity never goes below zero.
type Stock struct {
	ID id.ID `db:"id" json:"id"`

	// FilterID is nil for legacy rows that track something other than a catalog filter.
	FilterID *id.ID `db:"filter_id" json:"filterId,omitempty"`
	// SKU is denormalized from the filter on read, empty when FilterID is nil.
	SKU string `db:"sku" json:"sku,omitempty"`
	// ItemName labels rows without a filter.
	ItemName string `db:"item_name" json:"itemName,omitempty"`

	Location      string     `db:"location" json:"location"`
	Quantity      int        `db:"quantity" json:"quantity"`
	MinStock      int        `db:"min_stock" json:"minStock"`
	LastRestocked *time.Time `db:"last_restocked" json:"lastRestocked,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewStock creates an empty stock row for a filter at location.
func NewStock(filterID id.ID, location string) *Stock {
	fid := filterID
	return &Stock{
		ID:        id.New(),
		FilterID:  &fid,
		Location:  location,
		UpdatedAt: time.Now().UTC(),
	}
}

// IsLow reports whether the row is under its reorder threshold.
func (s Stock) IsLow() bool {
	return s.Quantity < s.MinStock
}

// Usage is one ledger row: a filter quantity consumed by a maintenance.
// Rows are never updated or deleted.
type Usage struct {
	ID            id.ID     `db:"id" json:"id"`
	MaintenanceID id.ID     `db:"maintenance_id" json:"maintenanceId"`
	FilterID      id.ID     `db:"filter_id" json:"filterId"`
	SKU           string    `db:"sku" json:"sku"`
	QuantityUsed  int       `db:"quantity_used" json:"quantityUsed"`
	PackageCode   string    `db:"package_code" json:"packageCode"`
	Location      string    `db:"location" json:"location"`
	DeductedAt    time.Time `db:"deducted_at" json:"deductedAt"`
	Notes         string    `db:"notes" json:"notes"`
}

// Line is a requested deduction of one filter.
type Line struct {
	FilterID id.ID
	SKU      string
	Quantity int
}

// Deduction reports the before/after quantity of one decremented row.
type Deduction struct {
	FilterID id.ID  `json:"filterId"`
	SKU      string `json:"sku"`
	Required int    `json:"required"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	MinStock int    `json:"minStock"`
}

// LowStockWarning is raised when a deduction leaves a row below its minimum.
type LowStockWarning struct {
	FilterID id.ID  `json:"filterId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	MinStock int    `json:"minStock"`
	Shortage int    `json:"shortage"`
}

// Overview is the read model behind GET /inventory.
type Overview struct {
	Filters       []FilterStock `json:"filters"`
	RecentUsage   []Usage       `json:"recentUsage"`
	LowStockCount int           `json:"lowStockCount"`
}

// FilterStock aggregates all locations of one filter.
type FilterStock struct {
	FilterID      id.ID   `json:"filterId"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	TotalQuantity int     `json:"totalQuantity"`
	MinStock      int     `json:"minStock"`
	IsLow         bool    `json:"isLow"`
	Locations     []Stock `json:"locations"`
}
