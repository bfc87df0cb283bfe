package handlers

import (
	"github.com/gin-gonic/gin"

	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/infrastructure/http/v1/dto"
)

// MaintenanceHandler handles maintenance completion and plan overrides.
type MaintenanceHandler struct {
	*BaseHandler
	service   *maintenance.Service
	inventory *inventory.Service
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(base *BaseHandler, service *maintenance.Service, inventory *inventory.Service) *MaintenanceHandler {
	return &MaintenanceHandler{BaseHandler: base, service: service, inventory: inventory}
}

// Get handles GET /maintenances/:id
func (h *MaintenanceHandler) Get(c *gin.Context) {
	maintenanceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), maintenanceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, a)
}

// Complete handles POST /maintenances/:id/complete
// The body is optional; the maintenance, its stock deduction and ledger rows
// commit together or not at all.
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	maintenanceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteMaintenanceRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	result, err := h.service.Complete(c.Request.Context(), maintenanceID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Usage handles GET /maintenances/:id/usage
func (h *MaintenanceHandler) Usage(c *gin.Context) {
	maintenanceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	rows, err := h.inventory.UsageByMaintenance(c.Request.Context(), maintenanceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(rows))
}

// PlanOverride handles POST /maintenances/:id/plan-override
func (h *MaintenanceHandler) PlanOverride(c *gin.Context) {
	maintenanceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.PlanOverrideRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := h.service.AssignPlanOverride(c.Request.Context(), maintenanceID, req.PlanCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, a)
}
