// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
)

// IDResponse is returned by endpoints that only report the created id.
type IDResponse struct {
	ID string `json:"id"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse builds a list response, never with null items.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// ParseID parses a UUID field, reporting the field name on failure.
func ParseID(field, value string) (id.ID, error) {
	v, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperror.NewInvalidField(field, value, field+" must be a UUID")
	}
	return v, nil
}
