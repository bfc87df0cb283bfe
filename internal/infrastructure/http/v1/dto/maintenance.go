package dto

import (
	"time"

	"aquaops/internal/domain/maintenance"
)

// CompleteMaintenanceRequest is the body of POST /maintenances/:id/complete.
// Every field is optional.
type CompleteMaintenanceRequest struct {
	ActualDate   *time.Time `json:"actualDate"`
	Notes        *string    `json:"notes"`
	TechnicianID *string    `json:"technicianId"`
	Observations *string    `json:"observations"`
}

// ToInput converts the request to a completion input.
func (r CompleteMaintenanceRequest) ToInput() maintenance.CompleteInput {
	return maintenance.CompleteInput{
		ActualDate:   r.ActualDate,
		Notes:        r.Notes,
		TechnicianID: r.TechnicianID,
		Observations: r.Observations,
	}
}

// PlanOverrideRequest is the body of POST /maintenances/:id/plan-override.
// An empty plan code clears the override.
type PlanOverrideRequest struct {
	PlanCode string `json:"planCode"`
}
