package dto

import (
	"aquaops/internal/domain/inventory"
)

// RestockRequest is the body of POST /inventory/restock.
type RestockRequest struct {
	FilterID string `json:"filterId" binding:"required"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
	MinStock *int   `json:"minStock"`
}

// ToInput converts the request to a restock input.
func (r RestockRequest) ToInput() (inventory.RestockInput, error) {
	fid, err := ParseID("filterId", r.FilterID)
	if err != nil {
		return inventory.RestockInput{}, err
	}
	return inventory.RestockInput{
		FilterID: fid,
		Location: r.Location,
		Quantity: r.Quantity,
		MinStock: r.MinStock,
	}, nil
}

// SetMinStockRequest is the body of PUT /inventory/:filterId/min-stock.
type SetMinStockRequest struct {
	Location string `json:"location"`
	MinStock int    `json:"minStock"`
}
