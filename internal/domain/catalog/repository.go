package catalog

import (
	"context"

	"aquaops/internal/core/id"
)

// Repository defines persistence for catalog data.
// Create methods return a DUPLICATE_ENTRY AppError when a unique key is taken.
type Repository interface {
	CreateFilter(ctx context.Context, f *Filter) error
	GetFilter(ctx context.Context, filterID id.ID) (*Filter, error)
	ListFilters(ctx context.Context) ([]Filter, error)
	DeleteFilter(ctx context.Context, filterID id.ID) error
	FilterReferences(ctx context.Context, filterID id.ID) (References, error)

	// CreatePackage stores the header and its items.
	CreatePackage(ctx context.Context, p *Package) error
	GetPackage(ctx context.Context, packageID id.ID) (*Package, error)
	ListPackages(ctx context.Context) ([]Package, error)
	DeletePackage(ctx context.Context, packageID id.ID) error
	PackageReferences(ctx context.Context, p *Package) (References, error)

	CreateMapping(ctx context.Context, m *Mapping) error
	ListMappings(ctx context.Context) ([]Mapping, error)
	DeleteMapping(ctx context.Context, mappingID id.ID) error

	// FindMappedPackage returns the package for a plan and cycle, NOT_FOUND when unmapped.
	FindMappedPackage(ctx context.Context, planCode string, cycleMonths int) (*Package, error)
}
