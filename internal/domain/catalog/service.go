package catalog

import (
	"context"
	"fmt"
	"strings"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/core/tx"
	"aquaops/pkg/logger"
)

// Service provides catalog administration and package resolution.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// CreateFilter registers a new filter SKU.
func (s *Service) CreateFilter(ctx context.Context, f *Filter) error {
	if err := f.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.CreateFilter(ctx, f); err != nil {
		return apperror.Normalize(err)
	}
	logger.Info(ctx, "filter created", "id", f.ID, "sku", f.SKU)
	return nil
}

// ListFilters returns all filters ordered by SKU.
func (s *Service) ListFilters(ctx context.Context) ([]Filter, error) {
	filters, err := s.repo.ListFilters(ctx)
	return filters, apperror.Normalize(err)
}

// DeleteFilter removes a filter nobody references.
func (s *Service) DeleteFilter(ctx context.Context, filterID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetFilter(ctx, filterID); err != nil {
			return err
		}
		refs, err := s.repo.FilterReferences(ctx, filterID)
		if err != nil {
			return fmt.Errorf("count filter references: %w", err)
		}
		switch {
		case refs.PackageItems > 0:
			return apperror.NewReferenced("filter", filterID, "filter packages")
		case refs.InventoryRows > 0:
			return apperror.NewReferenced("filter", filterID, "inventory")
		case refs.UsageRows > 0:
			return apperror.NewReferenced("filter", filterID, "usage ledger")
		}
		return s.repo.DeleteFilter(ctx, filterID)
	})
	if err != nil {
		return apperror.Normalize(err)
	}
	logger.Info(ctx, "filter deleted", "id", filterID)
	return nil
}

// PackageLine is an input line for CreatePackage.
type PackageLine struct {
	FilterID id.ID
	Quantity int
}

// CreatePackage creates a package from lines referencing existing filters.
func (s *Service) CreatePackage(ctx context.Context, code, name, description string, lines []PackageLine) (*Package, error) {
	pkg := NewPackage(code, name, description)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i, line := range lines {
			f, err := s.repo.GetFilter(ctx, line.FilterID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewValidation("filter does not exist").
						WithDetail("field", "items").
						WithDetail("lineNo", i+1).
						WithDetail("filterId", line.FilterID)
				}
				return err
			}
			pkg.AddItem(f.ID, f.SKU, line.Quantity)
		}
		if err := pkg.Validate(ctx); err != nil {
			return err
		}
		return s.repo.CreatePackage(ctx, pkg)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "filter package created", "id", pkg.ID, "code", pkg.Code, "items", len(pkg.Items))
	return pkg, nil
}

// GetPackage returns a package with its items.
func (s *Service) GetPackage(ctx context.Context, packageID id.ID) (*Package, error) {
	pkg, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	return pkg, nil
}

// ListPackages returns all packages with items.
func (s *Service) ListPackages(ctx context.Context) ([]Package, error) {
	packages, err := s.repo.ListPackages(ctx)
	return packages, apperror.Normalize(err)
}

// DeletePackage removes a package that is neither mapped nor present in the usage ledger.
func (s *Service) DeletePackage(ctx context.Context, packageID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		pkg, err := s.repo.GetPackage(ctx, packageID)
		if err != nil {
			return err
		}
		refs, err := s.repo.PackageReferences(ctx, pkg)
		if err != nil {
			return fmt.Errorf("count package references: %w", err)
		}
		if refs.Mappings > 0 {
			return apperror.NewReferenced("filter package", packageID, "equipment mappings")
		}
		if refs.UsageRows > 0 {
			return apperror.NewReferenced("filter package", packageID, "usage ledger")
		}
		return s.repo.DeletePackage(ctx, packageID)
	})
	if err != nil {
		return apperror.Normalize(err)
	}
	logger.Info(ctx, "filter package deleted", "id", packageID)
	return nil
}

// CreateMapping binds a plan and cycle to a package.
// A second mapping for the same plan and cycle fails with DUPLICATE_ENTRY.
func (s *Service) CreateMapping(ctx context.Context, m *Mapping) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetPackage(ctx, m.PackageID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewInvalidField("packageId", m.PackageID, "filter package does not exist")
			}
			return err
		}
		return s.repo.CreateMapping(ctx, m)
	})
	if err != nil {
		return apperror.Normalize(err)
	}
	logger.Info(ctx, "equipment mapping created",
		"id", m.ID,
		"plan_code", m.PlanCode,
		"cycle_months", m.CycleMonths,
		"package_id", m.PackageID,
	)
	return nil
}

// ListMappings returns all mappings.
func (s *Service) ListMappings(ctx context.Context) ([]Mapping, error) {
	mappings, err := s.repo.ListMappings(ctx)
	return mappings, apperror.Normalize(err)
}

// DeleteMapping removes a mapping. Maintenances on that plan and cycle become unmapped.
func (s *Service) DeleteMapping(ctx context.Context, mappingID id.ID) error {
	if err := s.repo.DeleteMapping(ctx, mappingID); err != nil {
		return apperror.Normalize(err)
	}
	logger.Info(ctx, "equipment mapping deleted", "id", mappingID)
	return nil
}

// LoadIndex reads the whole mapping table once for a batch operation.
func (s *Service) LoadIndex(ctx context.Context) (*Index, error) {
	mappings, err := s.repo.ListMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	packages, err := s.repo.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return NewIndex(mappings, packages), nil
}

// ResolvePackage looks up a single plan and cycle without loading the full table.
// A missing mapping is reported through the Resolution, not as an error.
func (s *Service) ResolvePackage(ctx context.Context, planCode string, cycleMonths int) (Resolution, error) {
	planCode = strings.TrimSpace(planCode)
	if planCode == "" {
		return Unmapped("", cycleMonths, NoPlanReason), nil
	}
	pkg, err := s.repo.FindMappedPackage(ctx, planCode, cycleMonths)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Unmapped(planCode, cycleMonths, UnmappedReason(planCode, cycleMonths)), nil
		}
		return Resolution{}, fmt.Errorf("find mapped package: %w", err)
	}
	return Resolution{PlanCode: planCode, CycleMonths: cycleMonths, Package: pkg}, nil
}
