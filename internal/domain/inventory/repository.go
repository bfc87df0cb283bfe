package inventory

import (
	"context"

	"aquaops/internal/core/id"
)

// Repository defines persistence for stock rows and the usage ledger.
type Repository interface {
	// Get returns the row for a filter at location, NOT_FOUND when absent.
	Get(ctx context.Context, filterID id.ID, location string) (*Stock, error)

	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, filterID id.ID, location string) (*Stock, error)

	// Create inserts a row; DUPLICATE_ENTRY when (filter, location) exists.
	Create(ctx context.Context, s *Stock) error

	// Save writes quantity, min stock and restock timestamp of an existing row.
	Save(ctx context.Context, s *Stock) error

	// List returns every row ordered by SKU then location.
	List(ctx context.Context) ([]Stock, error)

	// InsertUsage appends ledger rows.
	InsertUsage(ctx context.Context, rows []Usage) error

	ListUsageByMaintenance(ctx context.Context, maintenanceID id.ID) ([]Usage, error)
	ListRecentUsage(ctx context.Context, limit int) ([]Usage, error)
}
