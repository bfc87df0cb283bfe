package workorder

import (
	"context"
	"time"

	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
)

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Year  int
	Month int
}

// Repository defines persistence for work orders.
type Repository interface {
	// Create inserts a work order. A second order for the same period and
	// delivery type fails with DUPLICATE_ENTRY from the unique index.
	Create(ctx context.Context, wo *WorkOrder) error

	GetByID(ctx context.Context, workOrderID id.ID) (*WorkOrder, error)

	// GetForUpdate locks the work order row until the transaction ends.
	GetForUpdate(ctx context.Context, workOrderID id.ID) (*WorkOrder, error)

	// FindByPeriod returns NOT_FOUND when no order exists for the slot.
	FindByPeriod(ctx context.Context, year, month int, deliveryType maintenance.DeliveryType) (*WorkOrder, error)

	// List returns orders newest period first.
	List(ctx context.Context, filter ListFilter) ([]WorkOrder, error)

	UpdateStatus(ctx context.Context, workOrderID id.ID, status Status, updatedAt time.Time) error
}
