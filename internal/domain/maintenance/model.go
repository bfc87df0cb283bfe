// Package maintenance models scheduled service visits and their completion,
// which is the only path that consumes filters from stock.
package maintenance

import (
	"strings"
	"time"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
)

// Status is the lifecycle state of a maintenance.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusScheduled   Status = "SCHEDULED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

// CompletableStatuses are the states a maintenance may be completed from.
var CompletableStatuses = []Status{StatusPending, StatusScheduled, StatusInProgress, StatusRescheduled}

// CanComplete reports whether a maintenance in this state may be completed.
func (s Status) CanComplete() bool {
	for _, c := range CompletableStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// IsFinal reports whether the state no longer changes.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DeliveryType is how filters reach the client.
type DeliveryType string

const (
	// DeliveryHome sends a technician to the client address.
	DeliveryHome DeliveryType = "DOMICILIO"
	// DeliveryInPerson has the client come to the office.
	DeliveryInPerson DeliveryType = "PRESENCIAL"
)

// ParseDeliveryType accepts the canonical names and their legacy synonyms
// ("Delivery", "Presencial"), case-insensitively.
func ParseDeliveryType(s string) (DeliveryType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOMICILIO", "DELIVERY":
		return DeliveryHome, nil
	case "PRESENCIAL":
		return DeliveryInPerson, nil
	}
	return "", apperror.NewInvalidField("deliveryType", s, "deliveryType must be DOMICILIO (Delivery) or PRESENCIAL (Presencial)")
}

// String implements fmt.Stringer.
func (d DeliveryType) String() string {
	return string(d)
}

// Maintenance is one scheduled service visit for a client.
type Maintenance struct {
	ID            id.ID        `db:"id" json:"id"`
	ClientID      id.ID        `db:"client_id" json:"clientId"`
	Status        Status       `db:"status" json:"status"`
	DeliveryType  DeliveryType `db:"delivery_type" json:"deliveryType"`
	ScheduledDate time.Time    `db:"scheduled_date" json:"scheduledDate"`
	// CycleNumber is the ordinal index of this visit for the client, starting at 1.
	CycleNumber int `db:"cycle_number" json:"cycleNumber"`
	// PlanOverride replaces the contract plan for package resolution.
	PlanOverride  *string    `db:"plan_override" json:"planOverride,omitempty"`
	WorkOrderID   *id.ID     `db:"work_order_id" json:"workOrderId,omitempty"`
	CompletedDate *time.Time `db:"completed_date" json:"completedDate,omitempty"`
	ActualDate    *time.Time `db:"actual_date" json:"actualDate,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	TechnicianID  *string    `db:"technician_id" json:"technicianId,omitempty"`
	Observations  *string    `db:"observations" json:"observations,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// Assignment is a maintenance joined with its client's active contract.
type Assignment struct {
	Maintenance

	ContractID       *id.ID  `db:"contract_id" json:"contractId,omitempty"`
	ContractPlanCode *string `db:"contract_plan_code" json:"contractPlanCode,omitempty"`
}

// EffectivePlan returns the plan code used to resolve the package, or a reason when none applies.
func (a Assignment) EffectivePlan() (string, string) {
	if a.PlanOverride != nil && strings.TrimSpace(*a.PlanOverride) != "" {
		return strings.TrimSpace(*a.PlanOverride), ""
	}
	if a.ContractID == nil {
		return "", "no active contract for client"
	}
	if a.ContractPlanCode == nil || strings.TrimSpace(*a.ContractPlanCode) == "" {
		return "", catalog.NoPlanReason
	}
	return strings.TrimSpace(*a.ContractPlanCode), ""
}

// ResolvePackage resolves the assignment against a preloaded mapping index.
func ResolvePackage(idx *catalog.Index, a Assignment) catalog.Resolution {
	months, err := catalog.EffectiveCycle(a.CycleNumber)
	if err != nil {
		plan, _ := a.EffectivePlan()
		return catalog.Unmapped(plan, 0, "invalid cycle number")
	}
	plan, reason := a.EffectivePlan()
	if plan == "" {
		return catalog.Unmapped("", months, reason)
	}
	return idx.Resolve(plan, months)
}

// Client is the customer a maintenance belongs to.
type Client struct {
	ID           id.ID        `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	DeliveryType DeliveryType `db:"delivery_type" json:"deliveryType"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// Contract is a client's subscription to a plan. At most one is active per client.
type Contract struct {
	ID        id.ID     `db:"id" json:"id"`
	ClientID  id.ID     `db:"client_id" json:"clientId"`
	PlanCode  *string   `db:"plan_code" json:"planCode,omitempty"`
	Active    bool      `db:"active" json:"active"`
	StartDate time.Time `db:"start_date" json:"startDate"`
}

// CompleteInput carries the optional fields recorded on completion.
type CompleteInput struct {
	ActualDate   *time.Time
	Notes        *string
	TechnicianID *string
	Observations *string
}

// PackageRef identifies the package consumed by a completion.
type PackageRef struct {
	ID   id.ID  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
