package memory

import (
	"context"
	"sort"
	"time"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/workorder"
)

// WorkOrderRepo implements workorder.Repository.
type WorkOrderRepo struct {
	s *Store
}

var _ workorder.Repository = (*WorkOrderRepo)(nil)

// Create stores wo. A second order for the same slot is DUPLICATE_ENTRY.
func (r *WorkOrderRepo) Create(ctx context.Context, wo *workorder.WorkOrder) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.state.workOrders {
		if existing.Year == wo.Year && existing.Month == wo.Month && existing.DeliveryType == wo.DeliveryType {
			return apperror.NewDuplicate("work order", "period and delivery type", string(wo.DeliveryType))
		}
	}
	r.s.state.workOrders[wo.ID] = cloneWorkOrder(*wo)
	return nil
}

// GetByID returns a work order header.
func (r *WorkOrderRepo) GetByID(ctx context.Context, workOrderID id.ID) (*workorder.WorkOrder, error) {
	defer r.s.lock(ctx)()
	wo, ok := r.s.state.workOrders[workOrderID]
	if !ok {
		return nil, apperror.NewNotFound("work order", workOrderID)
	}
	wo = cloneWorkOrder(wo)
	return &wo, nil
}

// GetForUpdate is GetByID under the store lock.
func (r *WorkOrderRepo) GetForUpdate(ctx context.Context, workOrderID id.ID) (*workorder.WorkOrder, error) {
	return r.GetByID(ctx, workOrderID)
}

// FindByPeriod returns the order of a slot or NOT_FOUND.
func (r *WorkOrderRepo) FindByPeriod(ctx context.Context, year, month int, deliveryType maintenance.DeliveryType) (*workorder.WorkOrder, error) {
	defer r.s.lock(ctx)()
	for _, wo := range r.s.state.workOrders {
		if wo.Year == year && wo.Month == month && wo.DeliveryType == deliveryType {
			wo = cloneWorkOrder(wo)
			return &wo, nil
		}
	}
	return nil, apperror.NewNotFound("work order", map[string]any{"year": year, "month": month, "deliveryType": deliveryType})
}

// List returns orders newest period first.
func (r *WorkOrderRepo) List(ctx context.Context, filter workorder.ListFilter) ([]workorder.WorkOrder, error) {
	defer r.s.lock(ctx)()
	out := make([]workorder.WorkOrder, 0)
	for _, wo := range r.s.state.workOrders {
		if filter.Year != 0 && wo.Year != filter.Year {
			continue
		}
		if filter.Month != 0 && wo.Month != filter.Month {
			continue
		}
		out = append(out, cloneWorkOrder(wo))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].DeliveryType < out[j].DeliveryType
	})
	return out, nil
}

// UpdateStatus writes status and update time.
func (r *WorkOrderRepo) UpdateStatus(ctx context.Context, workOrderID id.ID, status workorder.Status, updatedAt time.Time) error {
	defer r.s.lock(ctx)()
	wo, ok := r.s.state.workOrders[workOrderID]
	if !ok {
		return apperror.NewNotFound("work order", workOrderID)
	}
	wo.Status = status
	wo.UpdatedAt = updatedAt
	r.s.state.workOrders[workOrderID] = wo
	return nil
}
