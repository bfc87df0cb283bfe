// Package inventory_repo provides the PostgreSQL implementation of inventory.Repository.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/infrastructure/storage/postgres"
)

const (
	stockTable = "inventory"
	usageTable = "maintenance_filter_usage"
)

var (
	stockColumns = []string{"id", "filter_id", "item_name", "location", "quantity", "min_stock", "last_restocked", "updated_at"}
	usageColumns = []string{"id", "maintenance_id", "filter_id", "quantity_used", "package_code", "location", "deducted_at", "notes"}
)

// Repo implements inventory.Repository.
type Repo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var _ inventory.Repository = (*Repo)(nil)

// New creates an inventory repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// stockSelect joins the filter SKU onto stock rows.
func stockSelect(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return b.Select(
		"s.id", "s.filter_id", "COALESCE(f.sku, '') AS sku", "s.item_name", "s.location",
		"s.quantity", "s.min_stock", "s.last_restocked", "s.updated_at",
	).
		From(stockTable + " s").
		LeftJoin("filters f ON f.id = s.filter_id")
}

// lockQuery selects one row with FOR UPDATE OF s so the lock covers only the stock row.
func lockQuery(b squirrel.StatementBuilderType, filterID id.ID, location string) squirrel.SelectBuilder {
	return stockSelect(b).
		Where(squirrel.Eq{"s.filter_id": filterID, "s.location": location}).
		Suffix("FOR UPDATE OF s")
}

func (r *Repo) getOne(ctx context.Context, q squirrel.SelectBuilder, filterID id.ID) (*inventory.Stock, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var s inventory.Stock
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		return nil, postgres.MapError(err, "inventory", filterID)
	}
	return &s, nil
}

// Get retrieves the stock row of a filter at location.
func (r *Repo) Get(ctx context.Context, filterID id.ID, location string) (*inventory.Stock, error) {
	q := stockSelect(r.builder).Where(squirrel.Eq{"s.filter_id": filterID, "s.location": location})
	return r.getOne(ctx, q, filterID)
}

// GetForUpdate locks the stock row with FOR UPDATE until the transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, filterID id.ID, location string) (*inventory.Stock, error) {
	return r.getOne(ctx, lockQuery(r.builder, filterID, location), filterID)
}

// Create inserts a stock row. One row per filter and location.
func (r *Repo) Create(ctx context.Context, s *inventory.Stock) error {
	sql, args, err := r.builder.Insert(stockTable).SetMap(postgres.ColumnMap(s, stockColumns)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "inventory", s.Location)
	}
	return nil
}

// Save writes quantity, min stock and restock time. The CHECK constraint rejects negative stock.
func (r *Repo) Save(ctx context.Context, s *inventory.Stock) error {
	sql, args, err := r.builder.Update(stockTable).
		Set("quantity", s.Quantity).
		Set("min_stock", s.MinStock).
		Set("last_restocked", s.LastRestocked).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "inventory", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", s.ID)
	}
	return nil
}

// List returns every stock row with its filter SKU.
func (r *Repo) List(ctx context.Context) ([]inventory.Stock, error) {
	sql, args, err := stockSelect(r.builder).OrderBy("sku", "s.location", "s.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []inventory.Stock
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	return rows, nil
}

// InsertUsage appends ledger rows with COPY inside a transaction, plain INSERT otherwise.
func (r *Repo) InsertUsage(ctx context.Context, rows []inventory.Usage) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	for _, u := range rows {
		values = append(values, []any{
			u.ID, u.MaintenanceID, u.FilterID, u.QuantityUsed,
			u.PackageCode, u.Location, u.DeductedAt, u.Notes,
		})
	}

	if r.txm.GetTx(ctx) != nil {
		if _, err := r.batch.CopyFromSlice(ctx, usageTable, usageColumns, values); err != nil {
			return fmt.Errorf("copy usage rows: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(usageTable).Columns(usageColumns...)
	for _, v := range values {
		q = q.Values(v...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert usage rows: %w", err)
	}
	return nil
}

func usageSelect(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return b.Select(
		"u.id", "u.maintenance_id", "u.filter_id", "f.sku", "u.quantity_used",
		"u.package_code", "u.location", "u.deducted_at", "u.notes",
	).
		From(usageTable + " u").
		Join("filters f ON f.id = u.filter_id")
}

func (r *Repo) selectUsage(ctx context.Context, q squirrel.SelectBuilder) ([]inventory.Usage, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []inventory.Usage
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select usage: %w", err)
	}
	return rows, nil
}

// ListUsageByMaintenance returns the ledger rows of one maintenance.
func (r *Repo) ListUsageByMaintenance(ctx context.Context, maintenanceID id.ID) ([]inventory.Usage, error) {
	return r.selectUsage(ctx, usageSelect(r.builder).
		Where(squirrel.Eq{"u.maintenance_id": maintenanceID}).
		OrderBy("f.sku"))
}

// ListRecentUsage returns the newest ledger rows, at most limit.
func (r *Repo) ListRecentUsage(ctx context.Context, limit int) ([]inventory.Usage, error) {
	if limit <= 0 {
		return []inventory.Usage{}, nil
	}
	return r.selectUsage(ctx, usageSelect(r.builder).
		OrderBy("u.deducted_at DESC", "u.id DESC").
		Limit(uint64(limit)))
}
