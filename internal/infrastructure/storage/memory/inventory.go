package memory

import (
	"context"
	"sort"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/inventory"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	s *Store
}

var _ inventory.Repository = (*InventoryRepo)(nil)

func (r *InventoryRepo) find(filterID id.ID, location string) (inventory.Stock, bool) {
	for _, row := range r.s.state.stock {
		if row.FilterID != nil && *row.FilterID == filterID && row.Location == location {
			return r.withSKU(row), true
		}
	}
	return inventory.Stock{}, false
}

func (r *InventoryRepo) withSKU(row inventory.Stock) inventory.Stock {
	if row.FilterID != nil {
		if f, ok := r.s.state.filters[*row.FilterID]; ok {
			row.SKU = f.SKU
		}
	}
	return row
}

// Get returns the stock row of a filter at location.
func (r *InventoryRepo) Get(ctx context.Context, filterID id.ID, location string) (*inventory.Stock, error) {
	defer r.s.lock(ctx)()
	row, ok := r.find(filterID, location)
	if !ok {
		return nil, apperror.NewNotFound("inventory", filterID)
	}
	return &row, nil
}

// GetForUpdate is Get; the transaction already holds the store lock.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, filterID id.ID, location string) (*inventory.Stock, error) {
	return r.Get(ctx, filterID, location)
}

// Create stores a new stock row.
func (r *InventoryRepo) Create(ctx context.Context, s *inventory.Stock) error {
	defer r.s.lock(ctx)()
	if s.FilterID != nil {
		if _, ok := r.find(*s.FilterID, s.Location); ok {
			return apperror.NewDuplicate("inventory", "filter and location", s.Location)
		}
	}
	if s.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative")
	}
	r.s.state.stock[s.ID] = *s
	return nil
}

// Save replaces a stock row. Negative quantities are rejected.
func (r *InventoryRepo) Save(ctx context.Context, s *inventory.Stock) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.state.stock[s.ID]; !ok {
		return apperror.NewNotFound("inventory", s.ID)
	}
	// Mirrors the CHECK (quantity >= 0) constraint.
	if s.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative")
	}
	r.s.state.stock[s.ID] = *s
	return nil
}

// List returns all stock rows sorted by SKU then location.
func (r *InventoryRepo) List(ctx context.Context) ([]inventory.Stock, error) {
	defer r.s.lock(ctx)()
	out := make([]inventory.Stock, 0, len(r.s.state.stock))
	for _, row := range r.s.state.stock {
		out = append(out, r.withSKU(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// InsertUsage appends ledger rows.
func (r *InventoryRepo) InsertUsage(ctx context.Context, rows []inventory.Usage) error {
	defer r.s.lock(ctx)()
	r.s.state.usage = append(r.s.state.usage, rows...)
	return nil
}

// ListUsageByMaintenance returns the ledger rows of one maintenance.
func (r *InventoryRepo) ListUsageByMaintenance(ctx context.Context, maintenanceID id.ID) ([]inventory.Usage, error) {
	defer r.s.lock(ctx)()
	var out []inventory.Usage
	for _, u := range r.s.state.usage {
		if u.MaintenanceID == maintenanceID {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListRecentUsage returns the newest rows first.
func (r *InventoryRepo) ListRecentUsage(ctx context.Context, limit int) ([]inventory.Usage, error) {
	defer r.s.lock(ctx)()
	if limit < 0 {
		limit = 0
	}
	out := make([]inventory.Usage, 0, limit)
	for i := len(r.s.state.usage) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.state.usage[i])
	}
	return out, nil
}
