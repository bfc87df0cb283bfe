// Package workorder groups pending maintenances of one month and delivery type
// into a single work order with package and filter totals.
package workorder

import (
	"time"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/maintenance"
)

// Status is the lifecycle state of a work order.
type Status string

const (
	StatusGenerated  Status = "GENERATED"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusGenerated:  {StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether a work order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusGenerated, StatusDispatched, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", apperror.NewInvalidField("status", s, "status must be GENERATED, DISPATCHED, DELIVERED or CANCELLED")
}

// Summary counts by key: package code for packages, SKU for filters.
type Summary map[string]int

// Add increments key by n.
func (s Summary) Add(key string, n int) {
	s[key] += n
}

// WorkOrder is the header generated once per (year, month, delivery type).
type WorkOrder struct {
	ID                id.ID                    `db:"id" json:"id"`
	Year              int                      `db:"year" json:"year"`
	Month             int                      `db:"month" json:"month"`
	DeliveryType      maintenance.DeliveryType `db:"delivery_type" json:"deliveryType"`
	Status            Status                   `db:"status" json:"status"`
	PackageSummary    Summary                  `db:"package_summary" json:"packageSummary"`
	FilterSummary     Summary                  `db:"filter_summary" json:"filterSummary"`
	TotalMaintenances int                      `db:"total_maintenances" json:"totalMaintenances"`
	UnmappedCount     int                      `db:"unmapped_count" json:"unmappedCount"`
	DeliveryDate      time.Time                `db:"delivery_date" json:"deliveryDate"`
	CreatedAt         time.Time                `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time                `db:"updated_at" json:"updatedAt"`

	Maintenances []maintenance.Maintenance `db:"-" json:"maintenances,omitempty"`
}

// UnmappedEntry describes a maintenance whose package could not be resolved.
type UnmappedEntry struct {
	MaintenanceID id.ID     `json:"maintenanceId"`
	ClientID      id.ID     `json:"clientId"`
	ScheduledDate time.Time `json:"scheduledDate"`
	CycleNumber   int       `json:"cycleNumber"`
	PlanCode      string    `json:"planCode,omitempty"`
	CycleMonths   int       `json:"cycleMonths"`
	Reason        string    `json:"reason"`
	WorkOrderID   *id.ID    `json:"workOrderId,omitempty"`
}

// Aggregation is the result of resolving a batch of maintenances.
type Aggregation struct {
	Packages Summary
	Filters  Summary
	Total    int
	Unmapped []UnmappedEntry
}

// Period identifies the work order slot.
type Period struct {
	Year         int
	Month        int
	DeliveryType maintenance.DeliveryType
}
