// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Every failure leaving a domain service is an *AppError so handlers can map it
// to a status code without guessing.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Request conflicts with stored catalog, contract or stock state (409)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnmappedPackage   = "UNMAPPED_PACKAGE"
	CodeMissingContract   = "MISSING_CONTRACT"

	// Not found (404)
	CodeNotFound          = "NOT_FOUND"
	CodeNoInventoryRecord = "NO_INVENTORY_RECORD"
	CodeNothingToGenerate = "NOTHING_TO_GENERATE"

	// Conflict (409)
	CodeConflict                = "CONFLICT"
	CodeDuplicate               = "DUPLICATE_ENTRY"
	CodeWorkOrderExists         = "WORK_ORDER_EXISTS"
	CodeAlreadyCompleted        = "ALREADY_COMPLETED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeReferencedEntity        = "REFERENCED_ENTITY"
)

// AppError is the standard error type for the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidField creates a validation error naming the offending field and value.
func NewInvalidField(field string, value any, message string) *AppError {
	return NewValidation(message).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error for one filter line.
func NewInsufficientStock(sku string, required, available int) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("insufficient stock for %s: required %d, available %d", sku, required, available),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"sku":       sku,
			"required":  required,
			"available": available,
		},
	}
}

// NewNoInventoryRecord is returned when a filter has no stock row at the deduction location.
func NewNoInventoryRecord(sku, location string) *AppError {
	return &AppError{
		Code:       CodeNoInventoryRecord,
		Message:    fmt.Sprintf("no inventory record for %s at %s", sku, location),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"sku": sku, "location": location},
	}
}

// NewUnmappedPackage is returned when no filter package is configured for a plan and cycle.
// It needs catalog data to be fixed by an operator, retrying will not help.
func NewUnmappedPackage(planCode string, cycleMonths int, reason string) *AppError {
	return &AppError{
		Code:       CodeUnmappedPackage,
		Message:    reason,
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"planCode":    planCode,
			"cycleMonths": cycleMonths,
		},
	}
}

// NewMissingContract is returned when a client has no active contract or the contract has no plan.
func NewMissingContract(clientID any, reason string) *AppError {
	return &AppError{
		Code:       CodeMissingContract,
		Message:    reason,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"clientId": clientID},
	}
}

// NewWorkOrderExists carries the id of the work order already generated for a period.
func NewWorkOrderExists(existingID any, year, month int, deliveryType string) *AppError {
	return &AppError{
		Code:       CodeWorkOrderExists,
		Message:    "work order already exists for this period and delivery type",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"existingId":   existingID,
			"year":         year,
			"month":        month,
			"deliveryType": deliveryType,
		},
	}
}

// NewNothingToGenerate is returned when no maintenance is eligible for a work order.
func NewNothingToGenerate(year, month int, deliveryType string) *AppError {
	return &AppError{
		Code:       CodeNothingToGenerate,
		Message:    "no pending maintenances for this period and delivery type",
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"year":         year,
			"month":        month,
			"deliveryType": deliveryType,
		},
	}
}

// NewAlreadyCompleted rejects a second completion of the same maintenance.
func NewAlreadyCompleted(maintenanceID any) *AppError {
	return &AppError{
		Code:       CodeAlreadyCompleted,
		Message:    "maintenance already completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"maintenanceId": maintenanceID},
	}
}

// NewInvalidStatusTransition rejects a state change not allowed by the entity lifecycle.
func NewInvalidStatusTransition(entity string, from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidStatusTransition,
		Message:    fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "from": from, "to": to},
	}
}

// NewReferenced blocks deletion of an entity still referenced elsewhere.
func NewReferenced(entity string, id any, referencedBy string) *AppError {
	return &AppError{
		Code:       CodeReferencedEntity,
		Message:    fmt.Sprintf("%s is referenced by %s and cannot be deleted", entity, referencedBy),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id, "referencedBy": referencedBy},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Normalize returns err as an *AppError, wrapping unknown errors as internal.
// Nil stays nil.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewInternal(err)
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsDuplicate checks if error is CodeDuplicate
func IsDuplicate(err error) bool {
	return HasCode(err, CodeDuplicate)
}
