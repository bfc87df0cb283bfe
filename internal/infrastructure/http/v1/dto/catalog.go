package dto

import (
	"aquaops/internal/domain/catalog"
)

// CreateFilterRequest is the body of POST /catalog/filters.
type CreateFilterRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

// ToEntity converts the request to a new filter.
func (r CreateFilterRequest) ToEntity() *catalog.Filter {
	return catalog.NewFilter(r.SKU, r.Name, r.Category)
}

// PackageItemRequest is one line of a package.
type PackageItemRequest struct {
	FilterID string `json:"filterId" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CreatePackageRequest is the body of POST /catalog/packages.
type CreatePackageRequest struct {
	Code        string               `json:"code" binding:"required"`
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Items       []PackageItemRequest `json:"items"`
}

// Lines parses the item filter ids.
func (r CreatePackageRequest) Lines() ([]catalog.PackageLine, error) {
	lines := make([]catalog.PackageLine, 0, len(r.Items))
	for _, item := range r.Items {
		fid, err := ParseID("filterId", item.FilterID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, catalog.PackageLine{FilterID: fid, Quantity: item.Quantity})
	}
	return lines, nil
}

// CreateMappingRequest is the body of POST /catalog/mappings.
type CreateMappingRequest struct {
	PlanCode    string `json:"planCode" binding:"required"`
	CycleMonths int    `json:"cycleMonths"`
	PackageID   string `json:"packageId" binding:"required"`
}

// ToEntity converts the request to a new mapping.
func (r CreateMappingRequest) ToEntity() (*catalog.Mapping, error) {
	pid, err := ParseID("packageId", r.PackageID)
	if err != nil {
		return nil, err
	}
	return catalog.NewMapping(r.PlanCode, r.CycleMonths, pid), nil
}
