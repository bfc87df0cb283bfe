package memory

import (
	"context"
	"sort"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	s *Store
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// CreateFilter stores f, rejecting a duplicate SKU.
func (r *CatalogRepo) CreateFilter(ctx context.Context, f *catalog.Filter) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.state.filters {
		if existing.SKU == f.SKU {
			return apperror.NewDuplicate("filter", "sku", f.SKU)
		}
	}
	r.s.state.filters[f.ID] = *f
	return nil
}

// GetFilter returns a copy of the filter.
func (r *CatalogRepo) GetFilter(ctx context.Context, filterID id.ID) (*catalog.Filter, error) {
	defer r.s.lock(ctx)()
	f, ok := r.s.state.filters[filterID]
	if !ok {
		return nil, apperror.NewNotFound("filter", filterID)
	}
	return &f, nil
}

// ListFilters returns filters sorted by SKU.
func (r *CatalogRepo) ListFilters(ctx context.Context) ([]catalog.Filter, error) {
	defer r.s.lock(ctx)()
	out := make([]catalog.Filter, 0, len(r.s.state.filters))
	for _, f := range r.s.state.filters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// DeleteFilter removes a filter.
func (r *CatalogRepo) DeleteFilter(ctx context.Context, filterID id.ID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.state.filters[filterID]; !ok {
		return apperror.NewNotFound("filter", filterID)
	}
	delete(r.s.state.filters, filterID)
	return nil
}

// FilterReferences counts what still points at a filter.
func (r *CatalogRepo) FilterReferences(ctx context.Context, filterID id.ID) (catalog.References, error) {
	defer r.s.lock(ctx)()
	var refs catalog.References
	for _, p := range r.s.state.packages {
		for _, item := range p.Items {
			if item.FilterID == filterID {
				refs.PackageItems++
			}
		}
	}
	for _, row := range r.s.state.stock {
		if row.FilterID != nil && *row.FilterID == filterID {
			refs.InventoryRows++
		}
	}
	for _, u := range r.s.state.usage {
		if u.FilterID == filterID {
			refs.UsageRows++
		}
	}
	return refs, nil
}

// CreatePackage stores p, rejecting a duplicate code.
func (r *CatalogRepo) CreatePackage(ctx context.Context, p *catalog.Package) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.state.packages {
		if existing.Code == p.Code {
			return apperror.NewDuplicate("filter package", "code", p.Code)
		}
	}
	r.s.state.packages[p.ID] = clonePackage(*p)
	return nil
}

// GetPackage returns a copy with item SKUs filled in.
func (r *CatalogRepo) GetPackage(ctx context.Context, packageID id.ID) (*catalog.Package, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.state.packages[packageID]
	if !ok {
		return nil, apperror.NewNotFound("filter package", packageID)
	}
	p = r.withSKUs(clonePackage(p))
	return &p, nil
}

// withSKUs refreshes the denormalized SKU of each item, as a join would.
func (r *CatalogRepo) withSKUs(p catalog.Package) catalog.Package {
	for i := range p.Items {
		if f, ok := r.s.state.filters[p.Items[i].FilterID]; ok {
			p.Items[i].SKU = f.SKU
		}
	}
	return p
}

// ListPackages returns packages sorted by code.
func (r *CatalogRepo) ListPackages(ctx context.Context) ([]catalog.Package, error) {
	defer r.s.lock(ctx)()
	out := make([]catalog.Package, 0, len(r.s.state.packages))
	for _, p := range r.s.state.packages {
		out = append(out, r.withSKUs(clonePackage(p)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// DeletePackage removes a package and its items.
func (r *CatalogRepo) DeletePackage(ctx context.Context, packageID id.ID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.state.packages[packageID]; !ok {
		return apperror.NewNotFound("filter package", packageID)
	}
	delete(r.s.state.packages, packageID)
	return nil
}

// PackageReferences counts mappings and ledger rows for a package.
func (r *CatalogRepo) PackageReferences(ctx context.Context, p *catalog.Package) (catalog.References, error) {
	defer r.s.lock(ctx)()
	var refs catalog.References
	for _, m := range r.s.state.mappings {
		if m.PackageID == p.ID {
			refs.Mappings++
		}
	}
	for _, u := range r.s.state.usage {
		if u.PackageCode == p.Code {
			refs.UsageRows++
		}
	}
	return refs, nil
}

// CreateMapping stores m, rejecting a second mapping for the same plan and cycle.
func (r *CatalogRepo) CreateMapping(ctx context.Context, m *catalog.Mapping) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.state.mappings {
		if existing.PlanCode == m.PlanCode && existing.CycleMonths == m.CycleMonths {
			return apperror.NewDuplicate("equipment mapping", "plan and cycle", m.PlanCode)
		}
	}
	r.s.state.mappings[m.ID] = *m
	return nil
}

// ListMappings returns mappings sorted by plan then cycle.
func (r *CatalogRepo) ListMappings(ctx context.Context) ([]catalog.Mapping, error) {
	defer r.s.lock(ctx)()
	out := make([]catalog.Mapping, 0, len(r.s.state.mappings))
	for _, m := range r.s.state.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlanCode != out[j].PlanCode {
			return out[i].PlanCode < out[j].PlanCode
		}
		return out[i].CycleMonths < out[j].CycleMonths
	})
	return out, nil
}

// DeleteMapping removes a mapping.
func (r *CatalogRepo) DeleteMapping(ctx context.Context, mappingID id.ID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.state.mappings[mappingID]; !ok {
		return apperror.NewNotFound("equipment mapping", mappingID)
	}
	delete(r.s.state.mappings, mappingID)
	return nil
}

// FindMappedPackage returns the package mapped to planCode and cycleMonths.
func (r *CatalogRepo) FindMappedPackage(ctx context.Context, planCode string, cycleMonths int) (*catalog.Package, error) {
	defer r.s.lock(ctx)()
	for _, m := range r.s.state.mappings {
		if m.PlanCode != planCode || m.CycleMonths != cycleMonths {
			continue
		}
		p, ok := r.s.state.packages[m.PackageID]
		if !ok {
			break
		}
		p = r.withSKUs(clonePackage(p))
		return &p, nil
	}
	return nil, apperror.NewNotFound("equipment mapping", planCode)
}
