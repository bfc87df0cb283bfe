package maintenance

import (
	"context"
	"time"

	"aquaops/internal/core/id"
)

// PeriodFilter selects maintenances scheduled in [From, To).
type PeriodFilter struct {
	From   time.Time
	To     time.Time
	Status Status

	// DeliveryType restricts to one delivery type when set.
	DeliveryType *DeliveryType

	// UnlinkedOnly skips maintenances already grouped in a work order.
	UnlinkedOnly bool
}

// Repository defines persistence for maintenances.
type Repository interface {
	Get(ctx context.Context, maintenanceID id.ID) (*Assignment, error)

	// GetForUpdate locks the maintenance row until the transaction ends.
	GetForUpdate(ctx context.Context, maintenanceID id.ID) (*Assignment, error)

	// List returns maintenances ordered by scheduled date then ID.
	List(ctx context.Context, filter PeriodFilter) ([]Assignment, error)

	ListByWorkOrder(ctx context.Context, workOrderID id.ID) ([]Maintenance, error)

	// LinkWorkOrder sets work_order_id on the given maintenances that are still
	// PENDING and unlinked, and returns how many rows changed.
	LinkWorkOrder(ctx context.Context, workOrderID id.ID, maintenanceIDs []id.ID) (int64, error)

	// SaveCompletion writes status, dates and completion notes. It fails with
	// CONFLICT when the stored row is no longer in a completable state.
	SaveCompletion(ctx context.Context, m *Maintenance) error

	SetPlanOverride(ctx context.Context, maintenanceID id.ID, planCode *string) error
}
