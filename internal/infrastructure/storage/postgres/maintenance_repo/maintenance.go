// Package maintenance_repo provides the PostgreSQL implementation of maintenance.Repository.
package maintenance_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/infrastructure/storage/postgres"
)

const maintenancesTable = "maintenances"

var assignmentColumns = []string{
	"m.id", "m.client_id", "m.status", "m.delivery_type", "m.scheduled_date", "m.cycle_number",
	"m.plan_override", "m.work_order_id", "m.completed_date", "m.actual_date",
	"m.notes", "m.technician_id", "m.observations", "m.created_at", "m.updated_at",
	"c.id AS contract_id", "c.plan_code AS contract_plan_code",
}

// Repo implements maintenance.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ maintenance.Repository = (*Repo)(nil)

// New creates a maintenance repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// assignmentSelect joins each maintenance with its client's active contract.
func assignmentSelect(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return b.Select(assignmentColumns...).
		From(maintenancesTable + " m").
		LeftJoin("contracts c ON c.client_id = m.client_id AND c.active")
}

// listQuery applies a PeriodFilter.
func listQuery(b squirrel.StatementBuilderType, f maintenance.PeriodFilter) squirrel.SelectBuilder {
	q := assignmentSelect(b)
	if !f.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"m.scheduled_date": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(squirrel.Lt{"m.scheduled_date": f.To})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"m.status": f.Status})
	}
	if f.DeliveryType != nil {
		q = q.Where(squirrel.Eq{"m.delivery_type": *f.DeliveryType})
	}
	if f.UnlinkedOnly {
		q = q.Where(squirrel.Eq{"m.work_order_id": nil})
	}
	return q.OrderBy("m.scheduled_date", "m.id")
}

func (r *Repo) getOne(ctx context.Context, q squirrel.SelectBuilder, maintenanceID id.ID) (*maintenance.Assignment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var a maintenance.Assignment
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		return nil, postgres.MapError(err, "maintenance", maintenanceID)
	}
	return &a, nil
}

// Get retrieves a maintenance with its client's active contract.
func (r *Repo) Get(ctx context.Context, maintenanceID id.ID) (*maintenance.Assignment, error) {
	return r.getOne(ctx, assignmentSelect(r.builder).Where(squirrel.Eq{"m.id": maintenanceID}), maintenanceID)
}

// GetForUpdate locks only the maintenance row; the contract is read as of the statement.
func (r *Repo) GetForUpdate(ctx context.Context, maintenanceID id.ID) (*maintenance.Assignment, error) {
	q := assignmentSelect(r.builder).
		Where(squirrel.Eq{"m.id": maintenanceID}).
		Suffix("FOR UPDATE OF m")
	return r.getOne(ctx, q, maintenanceID)
}

// List returns maintenances matching filter, ordered by scheduled date then ID.
func (r *Repo) List(ctx context.Context, filter maintenance.PeriodFilter) ([]maintenance.Assignment, error) {
	sql, args, err := listQuery(r.builder, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []maintenance.Assignment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select maintenances: %w", err)
	}
	return rows, nil
}

// ListByWorkOrder returns the maintenances linked to a work order.
func (r *Repo) ListByWorkOrder(ctx context.Context, workOrderID id.ID) ([]maintenance.Maintenance, error) {
	sql, args, err := r.builder.Select(assignmentColumns[:15]...).
		From(maintenancesTable + " m").
		Where(squirrel.Eq{"m.work_order_id": workOrderID}).
		OrderBy("m.scheduled_date", "m.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows := []maintenance.Maintenance{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select work order maintenances: %w", err)
	}
	return rows, nil
}

func linkQuery(b squirrel.StatementBuilderType, workOrderID id.ID, ids []id.ID) squirrel.UpdateBuilder {
	return b.Update(maintenancesTable).
		Set("work_order_id", workOrderID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": ids}).
		Where(squirrel.Eq{"work_order_id": nil}).
		Where(squirrel.Eq{"status": maintenance.StatusPending})
}

// LinkWorkOrder links the PENDING, unlinked rows among maintenanceIDs and reports how many changed.
func (r *Repo) LinkWorkOrder(ctx context.Context, workOrderID id.ID, maintenanceIDs []id.ID) (int64, error) {
	if len(maintenanceIDs) == 0 {
		return 0, nil
	}
	sql, args, err := linkQuery(r.builder, workOrderID, maintenanceIDs).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("link maintenances: %w", err)
	}
	return tag.RowsAffected(), nil
}

// completionQuery writes the completion only while the row is still completable.
func completionQuery(b squirrel.StatementBuilderType, m *maintenance.Maintenance) squirrel.UpdateBuilder {
	return b.Update(maintenancesTable).
		Set("status", m.Status).
		Set("completed_date", m.CompletedDate).
		Set("actual_date", m.ActualDate).
		Set("notes", m.Notes).
		Set("technician_id", m.TechnicianID).
		Set("observations", m.Observations).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		Where(squirrel.Eq{"status": maintenance.CompletableStatuses})
}

// SaveCompletion writes the completion of a maintenance locked by GetForUpdate.
func (r *Repo) SaveCompletion(ctx context.Context, m *maintenance.Maintenance) error {
	sql, args, err := completionQuery(r.builder, m).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update maintenance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("maintenance is no longer completable").WithDetail("maintenanceId", m.ID.String())
	}
	return nil
}

// SetPlanOverride stores or clears (nil) the substitute plan code.
func (r *Repo) SetPlanOverride(ctx context.Context, maintenanceID id.ID, planCode *string) error {
	sql, args, err := r.builder.Update(maintenancesTable).
		Set("plan_override", planCode).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": maintenanceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set plan override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("maintenance", maintenanceID)
	}
	return nil
}
