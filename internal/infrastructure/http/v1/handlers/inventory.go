package handlers

import (
	"github.com/gin-gonic/gin"

	"aquaops/internal/core/apperror"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/projection"
	"aquaops/internal/infrastructure/http/v1/dto"
)

const defaultRecentUsage = 20

// InventoryHandler handles warehouse stock and the stock projection.
type InventoryHandler struct {
	*BaseHandler
	service    *inventory.Service
	projection *projection.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service, projection *projection.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service, projection: projection}
}

// Overview handles GET /inventory?recent=20
func (h *InventoryHandler) Overview(c *gin.Context) {
	recent, ok := h.ParseIntQuery(c, "recent", defaultRecentUsage)
	if !ok {
		return
	}
	if recent < 0 {
		h.Error(c, apperror.NewInvalidField("recent", recent, "recent cannot be negative"))
		return
	}
	overview, err := h.service.Overview(c.Request.Context(), recent)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, overview)
}

// LowStock handles GET /inventory/low-stock
func (h *InventoryHandler) LowStock(c *gin.Context) {
	rows, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(rows))
}

// Restock handles POST /inventory/restock
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	stock, err := h.service.Restock(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stock)
}

// SetMinStock handles PUT /inventory/:filterId/min-stock
func (h *InventoryHandler) SetMinStock(c *gin.Context) {
	filterID, ok := h.ParamID(c, "filterId")
	if !ok {
		return
	}
	var req dto.SetMinStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stock, err := h.service.SetMinStock(c.Request.Context(), filterID, req.Location, req.MinStock)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stock)
}

// StockProjection handles GET /inventory/stock-projection?horizonMonths=&criticalThresholdMonths=
// Omitted parameters fall back to the configured defaults.
func (h *InventoryHandler) StockProjection(c *gin.Context) {
	horizon, ok := h.positiveQuery(c, "horizonMonths")
	if !ok {
		return
	}
	critical, ok := h.positiveQuery(c, "criticalThresholdMonths")
	if !ok {
		return
	}
	p, err := h.projection.Project(c.Request.Context(), projection.Options{
		HorizonMonths:  horizon,
		CriticalMonths: critical,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// positiveQuery returns 0 for an absent parameter.
func (h *InventoryHandler) positiveQuery(c *gin.Context, key string) (int, bool) {
	v, ok := h.ParseIntQuery(c, key, 0)
	if !ok {
		return 0, false
	}
	if c.Query(key) != "" && v < 1 {
		h.Error(c, apperror.NewInvalidField(key, v, key+" must be at least 1"))
		return 0, false
	}
	return v, true
}
