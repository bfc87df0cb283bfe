// Package workorder_repo provides the PostgreSQL implementation of workorder.Repository.
package workorder_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/workorder"
	"aquaops/internal/infrastructure/storage/postgres"
)

const workOrdersTable = "work_orders"

var workOrderColumns = []string{
	"id", "year", "month", "delivery_type", "status",
	"package_summary", "filter_summary", "total_maintenances", "unmapped_count",
	"delivery_date", "created_at", "updated_at",
}

// Repo implements workorder.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ workorder.Repository = (*Repo)(nil)

// New creates a work order repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create relies on the (year, month, delivery_type) unique index to reject a second order.
func (r *Repo) Create(ctx context.Context, wo *workorder.WorkOrder) error {
	sql, args, err := r.builder.Insert(workOrdersTable).
		SetMap(postgres.ColumnMap(wo, workOrderColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("work order", "period and delivery type",
				fmt.Sprintf("%d-%02d/%s", wo.Year, wo.Month, wo.DeliveryType)).WithCause(err)
		}
		return fmt.Errorf("insert work order: %w", err)
	}
	return nil
}

func (r *Repo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*workorder.WorkOrder, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var wo workorder.WorkOrder
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &wo, sql, args...); err != nil {
		return nil, postgres.MapError(err, "work order", key)
	}
	return &wo, nil
}

// GetByID retrieves a work order header.
func (r *Repo) GetByID(ctx context.Context, workOrderID id.ID) (*workorder.WorkOrder, error) {
	q := r.builder.Select(workOrderColumns...).From(workOrdersTable).Where(squirrel.Eq{"id": workOrderID})
	return r.getOne(ctx, q, workOrderID)
}

// GetForUpdate locks the work order row until the transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, workOrderID id.ID) (*workorder.WorkOrder, error) {
	q := r.builder.Select(workOrderColumns...).From(workOrdersTable).
		Where(squirrel.Eq{"id": workOrderID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, workOrderID)
}

func periodQuery(b squirrel.StatementBuilderType, year, month int, deliveryType maintenance.DeliveryType) squirrel.SelectBuilder {
	return b.Select(workOrderColumns...).From(workOrdersTable).
		Where(squirrel.Eq{"year": year, "month": month, "delivery_type": deliveryType})
}

// FindByPeriod looks up the order of a (year, month, delivery type) slot.
func (r *Repo) FindByPeriod(ctx context.Context, year, month int, deliveryType maintenance.DeliveryType) (*workorder.WorkOrder, error) {
	key := fmt.Sprintf("%d-%02d/%s", year, month, deliveryType)
	return r.getOne(ctx, periodQuery(r.builder, year, month, deliveryType), key)
}

// List returns orders newest period first.
func (r *Repo) List(ctx context.Context, filter workorder.ListFilter) ([]workorder.WorkOrder, error) {
	q := r.builder.Select(workOrderColumns...).From(workOrdersTable)
	if filter.Year != 0 {
		q = q.Where(squirrel.Eq{"year": filter.Year})
	}
	if filter.Month != 0 {
		q = q.Where(squirrel.Eq{"month": filter.Month})
	}
	sql, args, err := q.OrderBy("year DESC", "month DESC", "delivery_type").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []workorder.WorkOrder
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select work orders: %w", err)
	}
	return rows, nil
}

// UpdateStatus writes the new status and update time.
func (r *Repo) UpdateStatus(ctx context.Context, workOrderID id.ID, status workorder.Status, updatedAt time.Time) error {
	sql, args, err := r.builder.Update(workOrdersTable).
		Set("status", status).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": workOrderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update work order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("work order", workOrderID)
	}
	return nil
}
