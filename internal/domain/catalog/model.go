// Package catalog holds the filter reference data: filter SKUs, filter packages
// (bills of materials) and the plan/cycle to package mappings.
package catalog

import (
	"context"
	"strings"
	"time"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
)

// Filter is a stock keeping unit consumed during maintenances.
type Filter struct {
	ID        id.ID     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewFilter creates a filter with a generated ID.
func NewFilter(sku, name, category string) *Filter {
	return &Filter{
		ID:        id.New(),
		SKU:       strings.TrimSpace(sku),
		Name:      strings.TrimSpace(name),
		Category:  strings.TrimSpace(category),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate implements entity validation.
func (f *Filter) Validate(ctx context.Context) error {
	if f.SKU == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if f.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Package is a fixed bill of materials installed during one service visit.
type Package struct {
	ID          id.ID     `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	// Table part: filters and quantities, ordered by LineNo
	Items []PackageItem `db:"-" json:"items"`
}

// PackageItem is one filter line of a package.
type PackageItem struct {
	PackageID id.ID `db:"package_id" json:"-"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	FilterID  id.ID `db:"filter_id" json:"filterId"`
	// SKU is denormalized from the filter on read.
	SKU      string `db:"sku" json:"sku"`
	Quantity int    `db:"quantity" json:"quantity"`
}

// NewPackage creates a package with a generated ID and no items.
func NewPackage(code, name, description string) *Package {
	return &Package{
		ID:          id.New(),
		Code:        strings.TrimSpace(code),
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]PackageItem, 0),
	}
}

// AddItem appends a filter line and numbers it.
func (p *Package) AddItem(filterID id.ID, sku string, quantity int) {
	p.Items = append(p.Items, PackageItem{
		PackageID: p.ID,
		LineNo:    len(p.Items) + 1,
		FilterID:  filterID,
		SKU:       sku,
		Quantity:  quantity,
	})
}

// Validate implements entity validation.
func (p *Package) Validate(ctx context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(p.Items) == 0 {
		return apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}

	seen := make(map[id.ID]struct{}, len(p.Items))
	for i, item := range p.Items {
		if id.IsNil(item.FilterID) {
			return apperror.NewValidation("filter is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.Quantity < 1 {
			return apperror.NewValidation("quantity must be at least 1").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if _, dup := seen[item.FilterID]; dup {
			return apperror.NewValidation("filter appears more than once").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		seen[item.FilterID] = struct{}{}
	}
	return nil
}

// Mapping says which package a plan uses at a given service cycle.
// (PlanCode, CycleMonths) is unique.
type Mapping struct {
	ID          id.ID     `db:"id" json:"id"`
	PlanCode    string    `db:"plan_code" json:"planCode"`
	CycleMonths int       `db:"cycle_months" json:"cycleMonths"`
	PackageID   id.ID     `db:"package_id" json:"packageId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// NewMapping creates a mapping with a generated ID.
func NewMapping(planCode string, cycleMonths int, packageID id.ID) *Mapping {
	return &Mapping{
		ID:          id.New(),
		PlanCode:    strings.TrimSpace(planCode),
		CycleMonths: cycleMonths,
		PackageID:   packageID,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate implements entity validation.
func (m *Mapping) Validate(ctx context.Context) error {
	if m.PlanCode == "" {
		return apperror.NewValidation("planCode is required").WithDetail("field", "planCode")
	}
	if !IsCycleMonths(m.CycleMonths) {
		return apperror.NewInvalidField("cycleMonths", m.CycleMonths, "cycleMonths must be one of 6, 12, 18, 24")
	}
	if id.IsNil(m.PackageID) {
		return apperror.NewValidation("packageId is required").WithDetail("field", "packageId")
	}
	return nil
}

// References counts rows pointing at a catalog entry.
type References struct {
	Mappings      int `db:"mappings"`
	PackageItems  int `db:"package_items"`
	InventoryRows int `db:"inventory_rows"`
	UsageRows     int `db:"usage_rows"`
}
