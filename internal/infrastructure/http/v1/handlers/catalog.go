package handlers

import (
	"github.com/gin-gonic/gin"

	"aquaops/internal/core/apperror"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/infrastructure/http/v1/dto"
)

// CatalogHandler handles filters, packages and equipment mappings.
type CatalogHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service *catalog.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

// ListFilters handles GET /catalog/filters
func (h *CatalogHandler) ListFilters(c *gin.Context) {
	filters, err := h.service.ListFilters(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(filters))
}

// CreateFilter handles POST /catalog/filters
func (h *CatalogHandler) CreateFilter(c *gin.Context) {
	var req dto.CreateFilterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	f := req.ToEntity()
	if err := h.service.CreateFilter(c.Request.Context(), f); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, f)
}

// DeleteFilter handles DELETE /catalog/filters/:id
func (h *CatalogHandler) DeleteFilter(c *gin.Context) {
	filterID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteFilter(c.Request.Context(), filterID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ListPackages handles GET /catalog/packages
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	packages, err := h.service.ListPackages(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(packages))
}

// GetPackage handles GET /catalog/packages/:id
func (h *CatalogHandler) GetPackage(c *gin.Context) {
	packageID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	pkg, err := h.service.GetPackage(c.Request.Context(), packageID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pkg)
}

// CreatePackage handles POST /catalog/packages
func (h *CatalogHandler) CreatePackage(c *gin.Context) {
	var req dto.CreatePackageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := req.Lines()
	if err != nil {
		h.Error(c, err)
		return
	}
	pkg, err := h.service.CreatePackage(c.Request.Context(), req.Code, req.Name, req.Description, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, pkg)
}

// DeletePackage handles DELETE /catalog/packages/:id
func (h *CatalogHandler) DeletePackage(c *gin.Context) {
	packageID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePackage(c.Request.Context(), packageID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ListMappings handles GET /catalog/mappings
func (h *CatalogHandler) ListMappings(c *gin.Context) {
	mappings, err := h.service.ListMappings(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(mappings))
}

// CreateMapping handles POST /catalog/mappings
func (h *CatalogHandler) CreateMapping(c *gin.Context) {
	var req dto.CreateMappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.CreateMapping(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// DeleteMapping handles DELETE /catalog/mappings/:id
func (h *CatalogHandler) DeleteMapping(c *gin.Context) {
	mappingID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMapping(c.Request.Context(), mappingID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Resolve handles GET /catalog/resolve?planCode=&cycleNumber=
// An unmapped plan and cycle answers with UNMAPPED_PACKAGE.
func (h *CatalogHandler) Resolve(c *gin.Context) {
	cycleNumber, ok := h.ParseIntQuery(c, "cycleNumber", 0)
	if !ok {
		return
	}
	months, err := catalog.EffectiveCycle(cycleNumber)
	if err != nil {
		h.Error(c, err)
		return
	}
	planCode := c.Query("planCode")
	if planCode == "" {
		h.Error(c, apperror.NewValidation("planCode is required").WithDetail("field", "planCode"))
		return
	}

	res, err := h.service.ResolvePackage(c.Request.Context(), planCode, months)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !res.Mapped() {
		h.Error(c, res.Err())
		return
	}
	h.OK(c, res)
}
