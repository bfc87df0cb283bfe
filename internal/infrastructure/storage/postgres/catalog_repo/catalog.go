// Package catalog_repo provides the PostgreSQL implementation of catalog.Repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/infrastructure/storage/postgres"
)

const (
	filtersTable  = "filters"
	packagesTable = "filter_packages"
	itemsTable    = "filter_package_items"
	mappingsTable = "equipment_filter_mappings"
)

var (
	filterColumns  = []string{"id", "sku", "name", "category", "created_at"}
	packageColumns = []string{"id", "code", "name", "description", "created_at"}
	itemColumns    = []string{"package_id", "line_no", "filter_id", "quantity"}
	mappingColumns = []string{"id", "plan_code", "cycle_months", "package_id", "created_at"}
)

// Repo implements catalog.Repository.
type Repo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var _ catalog.Repository = (*Repo)(nil)

// New creates a catalog repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) get(ctx context.Context, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dst, sql, args...)
}

func (r *Repo) selectAll(ctx context.Context, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...)
}

// --- Filters ---

// CreateFilter inserts a filter. A taken SKU maps to DUPLICATE_ENTRY.
func (r *Repo) CreateFilter(ctx context.Context, f *catalog.Filter) error {
	q := r.builder.Insert(filtersTable).SetMap(postgres.ColumnMap(f, filterColumns))
	if _, err := r.exec(ctx, q); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("filter", "sku", f.SKU).WithCause(err)
		}
		return fmt.Errorf("insert filter: %w", err)
	}
	return nil
}

// GetFilter retrieves a filter by ID.
func (r *Repo) GetFilter(ctx context.Context, filterID id.ID) (*catalog.Filter, error) {
	var f catalog.Filter
	q := r.builder.Select(filterColumns...).From(filtersTable).Where(squirrel.Eq{"id": filterID})
	if err := r.get(ctx, &f, q); err != nil {
		return nil, postgres.MapError(err, "filter", filterID)
	}
	return &f, nil
}

// ListFilters returns all filters ordered by SKU.
func (r *Repo) ListFilters(ctx context.Context) ([]catalog.Filter, error) {
	var filters []catalog.Filter
	q := r.builder.Select(filterColumns...).From(filtersTable).OrderBy("sku")
	if err := r.selectAll(ctx, &filters, q); err != nil {
		return nil, fmt.Errorf("select filters: %w", err)
	}
	return filters, nil
}

// DeleteFilter removes a filter row.
func (r *Repo) DeleteFilter(ctx context.Context, filterID id.ID) error {
	n, err := r.exec(ctx, r.builder.Delete(filtersTable).Where(squirrel.Eq{"id": filterID}))
	if err != nil {
		return postgres.MapError(err, "filter", filterID)
	}
	if n == 0 {
		return apperror.NewNotFound("filter", filterID)
	}
	return nil
}

func filterReferencesQuery(b squirrel.StatementBuilderType, filterID id.ID) squirrel.SelectBuilder {
	return b.Select().
		Column(squirrel.Expr("0 AS mappings")).
		Column(squirrel.Expr("(SELECT count(*) FROM filter_package_items WHERE filter_id = ?) AS package_items", filterID)).
		Column(squirrel.Expr("(SELECT count(*) FROM inventory WHERE filter_id = ?) AS inventory_rows", filterID)).
		Column(squirrel.Expr("(SELECT count(*) FROM maintenance_filter_usage WHERE filter_id = ?) AS usage_rows", filterID))
}

// FilterReferences counts package items, inventory rows and ledger rows pointing at a filter.
func (r *Repo) FilterReferences(ctx context.Context, filterID id.ID) (catalog.References, error) {
	var refs catalog.References
	if err := r.get(ctx, &refs, filterReferencesQuery(r.builder, filterID)); err != nil {
		return refs, fmt.Errorf("count filter references: %w", err)
	}
	return refs, nil
}

// --- Packages ---

// CreatePackage inserts the package header and queues one insert per item in a single batch.
func (r *Repo) CreatePackage(ctx context.Context, p *catalog.Package) error {
	q := r.builder.Insert(packagesTable).SetMap(postgres.ColumnMap(p, packageColumns))
	if _, err := r.exec(ctx, q); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("filter package", "code", p.Code).WithCause(err)
		}
		return fmt.Errorf("insert filter package: %w", err)
	}

	queries := make([]postgres.BatchQuery, 0, len(p.Items))
	for _, item := range p.Items {
		sql, args, err := r.builder.Insert(itemsTable).SetMap(postgres.ColumnMap(item, itemColumns)).ToSql()
		if err != nil {
			return fmt.Errorf("build item insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert package items: %w", err)
	}
	return nil
}

func itemsQuery(b squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return b.Select("i.package_id", "i.line_no", "i.filter_id", "f.sku", "i.quantity").
		From(itemsTable + " i").
		Join(filtersTable + " f ON f.id = i.filter_id").
		OrderBy("i.package_id", "i.line_no")
}

// attachItems loads items for the given packages in one query.
func (r *Repo) attachItems(ctx context.Context, packages []catalog.Package) error {
	if len(packages) == 0 {
		return nil
	}
	ids := make([]id.ID, len(packages))
	byID := make(map[id.ID]int, len(packages))
	for i := range packages {
		ids[i] = packages[i].ID
		byID[packages[i].ID] = i
		packages[i].Items = []catalog.PackageItem{}
	}

	var items []catalog.PackageItem
	if err := r.selectAll(ctx, &items, itemsQuery(r.builder).Where(squirrel.Eq{"i.package_id": ids})); err != nil {
		return fmt.Errorf("select package items: %w", err)
	}
	for _, item := range items {
		if i, ok := byID[item.PackageID]; ok {
			packages[i].Items = append(packages[i].Items, item)
		}
	}
	return nil
}

// GetPackage retrieves a package with its items and their SKUs.
func (r *Repo) GetPackage(ctx context.Context, packageID id.ID) (*catalog.Package, error) {
	var p catalog.Package
	q := r.builder.Select(packageColumns...).From(packagesTable).Where(squirrel.Eq{"id": packageID})
	if err := r.get(ctx, &p, q); err != nil {
		return nil, postgres.MapError(err, "filter package", packageID)
	}
	packages := []catalog.Package{p}
	if err := r.attachItems(ctx, packages); err != nil {
		return nil, err
	}
	return &packages[0], nil
}

// ListPackages returns all packages with items, ordered by code.
func (r *Repo) ListPackages(ctx context.Context) ([]catalog.Package, error) {
	var packages []catalog.Package
	q := r.builder.Select(packageColumns...).From(packagesTable).OrderBy("code")
	if err := r.selectAll(ctx, &packages, q); err != nil {
		return nil, fmt.Errorf("select filter packages: %w", err)
	}
	if err := r.attachItems(ctx, packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// DeletePackage removes a package; items cascade.
func (r *Repo) DeletePackage(ctx context.Context, packageID id.ID) error {
	n, err := r.exec(ctx, r.builder.Delete(packagesTable).Where(squirrel.Eq{"id": packageID}))
	if err != nil {
		return postgres.MapError(err, "filter package", packageID)
	}
	if n == 0 {
		return apperror.NewNotFound("filter package", packageID)
	}
	return nil
}

// PackageReferences counts mappings by ID and ledger rows by package code.
func (r *Repo) PackageReferences(ctx context.Context, p *catalog.Package) (catalog.References, error) {
	var refs catalog.References
	q := r.builder.Select().
		Column(squirrel.Expr("(SELECT count(*) FROM equipment_filter_mappings WHERE package_id = ?) AS mappings", p.ID)).
		Column(squirrel.Expr("0 AS package_items")).
		Column(squirrel.Expr("0 AS inventory_rows")).
		Column(squirrel.Expr("(SELECT count(*) FROM maintenance_filter_usage WHERE package_code = ?) AS usage_rows", p.Code))
	if err := r.get(ctx, &refs, q); err != nil {
		return refs, fmt.Errorf("count package references: %w", err)
	}
	return refs, nil
}

// --- Mappings ---

// CreateMapping inserts a (plan, cycle) mapping. The unique index rejects a second one.
func (r *Repo) CreateMapping(ctx context.Context, m *catalog.Mapping) error {
	q := r.builder.Insert(mappingsTable).SetMap(postgres.ColumnMap(m, mappingColumns))
	if _, err := r.exec(ctx, q); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("equipment mapping", "plan and cycle", fmt.Sprintf("%s/%d", m.PlanCode, m.CycleMonths)).WithCause(err)
		}
		return fmt.Errorf("insert equipment mapping: %w", err)
	}
	return nil
}

// ListMappings returns all mappings ordered by plan and cycle.
func (r *Repo) ListMappings(ctx context.Context) ([]catalog.Mapping, error) {
	var mappings []catalog.Mapping
	q := r.builder.Select(mappingColumns...).From(mappingsTable).OrderBy("plan_code", "cycle_months")
	if err := r.selectAll(ctx, &mappings, q); err != nil {
		return nil, fmt.Errorf("select equipment mappings: %w", err)
	}
	return mappings, nil
}

// DeleteMapping removes a mapping.
func (r *Repo) DeleteMapping(ctx context.Context, mappingID id.ID) error {
	n, err := r.exec(ctx, r.builder.Delete(mappingsTable).Where(squirrel.Eq{"id": mappingID}))
	if err != nil {
		return postgres.MapError(err, "equipment mapping", mappingID)
	}
	if n == 0 {
		return apperror.NewNotFound("equipment mapping", mappingID)
	}
	return nil
}

func mappedPackageQuery(b squirrel.StatementBuilderType, planCode string, cycleMonths int) squirrel.SelectBuilder {
	return b.Select("p.id", "p.code", "p.name", "p.description", "p.created_at").
		From(packagesTable + " p").
		Join(mappingsTable + " m ON m.package_id = p.id").
		Where(squirrel.Eq{"m.plan_code": planCode, "m.cycle_months": cycleMonths})
}

// FindMappedPackage returns the package mapped to planCode and cycleMonths, or NOT_FOUND.
func (r *Repo) FindMappedPackage(ctx context.Context, planCode string, cycleMonths int) (*catalog.Package, error) {
	var p catalog.Package
	if err := r.get(ctx, &p, mappedPackageQuery(r.builder, planCode, cycleMonths)); err != nil {
		return nil, postgres.MapError(err, "equipment mapping", fmt.Sprintf("%s/%d", planCode, cycleMonths))
	}
	packages := []catalog.Package{p}
	if err := r.attachItems(ctx, packages); err != nil {
		return nil, err
	}
	return &packages[0], nil
}
