package memory

import (
	"context"
	"sort"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
)

// MaintenanceRepo implements maintenance.Repository and holds clients and contracts.
type MaintenanceRepo struct {
	s *Store
}

var _ maintenance.Repository = (*MaintenanceRepo)(nil)

// PutClient inserts or replaces a client.
func (r *MaintenanceRepo) PutClient(ctx context.Context, c maintenance.Client) {
	defer r.s.lock(ctx)()
	r.s.state.clients[c.ID] = c
}

// PutContract inserts or replaces a contract. Activating it deactivates the
// client's other contracts.
func (r *MaintenanceRepo) PutContract(ctx context.Context, c maintenance.Contract) {
	defer r.s.lock(ctx)()
	if c.Active {
		for k, other := range r.s.state.contracts {
			if other.ClientID == c.ClientID && other.ID != c.ID && other.Active {
				other.Active = false
				r.s.state.contracts[k] = other
			}
		}
	}
	r.s.state.contracts[c.ID] = c
}

// PutMaintenance inserts or replaces a maintenance.
func (r *MaintenanceRepo) PutMaintenance(ctx context.Context, m maintenance.Maintenance) {
	defer r.s.lock(ctx)()
	r.s.state.maintenances[m.ID] = m
}

func (r *MaintenanceRepo) assignment(m maintenance.Maintenance) maintenance.Assignment {
	a := maintenance.Assignment{Maintenance: m}
	for _, c := range r.s.state.contracts {
		if c.ClientID == m.ClientID && c.Active {
			cid := c.ID
			a.ContractID = &cid
			a.ContractPlanCode = c.PlanCode
			break
		}
	}
	return a
}

// Get returns a maintenance with its client's active contract.
func (r *MaintenanceRepo) Get(ctx context.Context, maintenanceID id.ID) (*maintenance.Assignment, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.maintenances[maintenanceID]
	if !ok {
		return nil, apperror.NewNotFound("maintenance", maintenanceID)
	}
	a := r.assignment(m)
	return &a, nil
}

// GetForUpdate is Get; the store lock already serializes transactions.
func (r *MaintenanceRepo) GetForUpdate(ctx context.Context, maintenanceID id.ID) (*maintenance.Assignment, error) {
	return r.Get(ctx, maintenanceID)
}

// List returns maintenances matching filter, ordered by scheduled date then ID.
func (r *MaintenanceRepo) List(ctx context.Context, filter maintenance.PeriodFilter) ([]maintenance.Assignment, error) {
	defer r.s.lock(ctx)()
	var out []maintenance.Assignment
	for _, m := range r.s.state.maintenances {
		if !filter.From.IsZero() && m.ScheduledDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !m.ScheduledDate.Before(filter.To) {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.DeliveryType != nil && m.DeliveryType != *filter.DeliveryType {
			continue
		}
		if filter.UnlinkedOnly && m.WorkOrderID != nil {
			continue
		}
		out = append(out, r.assignment(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ListByWorkOrder returns maintenances linked to a work order.
func (r *MaintenanceRepo) ListByWorkOrder(ctx context.Context, workOrderID id.ID) ([]maintenance.Maintenance, error) {
	defer r.s.lock(ctx)()
	out := make([]maintenance.Maintenance, 0)
	for _, m := range r.s.state.maintenances {
		if m.WorkOrderID != nil && *m.WorkOrderID == workOrderID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// LinkWorkOrder links the PENDING, unlinked maintenances among maintenanceIDs.
func (r *MaintenanceRepo) LinkWorkOrder(ctx context.Context, workOrderID id.ID, maintenanceIDs []id.ID) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for _, mid := range maintenanceIDs {
		m, ok := r.s.state.maintenances[mid]
		if !ok || m.WorkOrderID != nil || m.Status != maintenance.StatusPending {
			continue
		}
		woID := workOrderID
		m.WorkOrderID = &woID
		r.s.state.maintenances[mid] = m
		n++
	}
	return n, nil
}

// SaveCompletion writes the completion fields while the row is still completable.
func (r *MaintenanceRepo) SaveCompletion(ctx context.Context, m *maintenance.Maintenance) error {
	defer r.s.lock(ctx)()
	current, ok := r.s.state.maintenances[m.ID]
	if !ok {
		return apperror.NewNotFound("maintenance", m.ID)
	}
	if !current.Status.CanComplete() {
		return apperror.NewConflict("maintenance is no longer completable").WithDetail("maintenanceId", m.ID.String())
	}
	current.Status = m.Status
	current.CompletedDate = m.CompletedDate
	current.ActualDate = m.ActualDate
	current.Notes = m.Notes
	current.TechnicianID = m.TechnicianID
	current.Observations = m.Observations
	current.UpdatedAt = m.UpdatedAt
	r.s.state.maintenances[m.ID] = current
	return nil
}

// SetPlanOverride stores or clears the substitute plan code.
func (r *MaintenanceRepo) SetPlanOverride(ctx context.Context, maintenanceID id.ID, planCode *string) error {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.maintenances[maintenanceID]
	if !ok {
		return apperror.NewNotFound("maintenance", maintenanceID)
	}
	m.PlanOverride = planCode
	r.s.state.maintenances[maintenanceID] = m
	return nil
}
