package handlers

import (
	"github.com/gin-gonic/gin"

	"aquaops/internal/domain/workorder"
	"aquaops/internal/infrastructure/http/v1/dto"
)

// WorkOrderHandler handles monthly work order generation.
type WorkOrderHandler struct {
	*BaseHandler
	service *workorder.Service
}

// NewWorkOrderHandler creates a new work order handler.
func NewWorkOrderHandler(base *BaseHandler, service *workorder.Service) *WorkOrderHandler {
	return &WorkOrderHandler{BaseHandler: base, service: service}
}

// Generate handles POST /work-orders/generate
func (h *WorkOrderHandler) Generate(c *gin.Context) {
	var req dto.GenerateWorkOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req.Year, req.Month, req.DeliveryType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Reconciliation handles GET /work-orders/reconciliation?year=&month=&deliveryType=
func (h *WorkOrderHandler) Reconciliation(c *gin.Context) {
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, err := h.service.Reconcile(c.Request.Context(), q.Year, q.Month, q.DeliveryType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// List handles GET /work-orders?year=&month=
func (h *WorkOrderHandler) List(c *gin.Context) {
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	orders, err := h.service.List(c.Request.Context(), workorder.ListFilter{Year: q.Year, Month: q.Month})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(orders))
}

// Get handles GET /work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	workOrderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	wo, err := h.service.Get(c.Request.Context(), workOrderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, wo)
}

// UpdateStatus handles PATCH /work-orders/:id/status
func (h *WorkOrderHandler) UpdateStatus(c *gin.Context) {
	workOrderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateWorkOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.UpdateStatus(c.Request.Context(), workOrderID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, wo)
}
