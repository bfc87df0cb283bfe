// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/projection"
	"aquaops/internal/domain/workorder"
	"aquaops/internal/infrastructure/http/v1/handlers"
	"aquaops/internal/infrastructure/http/v1/middleware"
	"aquaops/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Store backs the readiness probe
	Store handlers.Pinger

	// StorageName labels the store in health responses
	StorageName string

	// Release switches gin to release mode
	Release bool

	Catalog     *catalog.Service
	Inventory   *inventory.Service
	Maintenance *maintenance.Service
	WorkOrders  *workorder.Service
	Projection  *projection.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.StorageName)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	base := handlers.NewBaseHandler()

	registerCatalogRoutes(v1, base, cfg)
	registerInventoryRoutes(v1, base, cfg)
	registerMaintenanceRoutes(v1, base, cfg)
	registerWorkOrderRoutes(v1, base, cfg)

	return router
}

// registerCatalogRoutes registers filter, package and mapping endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewCatalogHandler(base, cfg.Catalog)
	catalogs := rg.Group("/catalog")

	RegisterResourceRoutes(catalogs.Group("/filters"), ResourceRoutes{
		List:   handler.ListFilters,
		Create: handler.CreateFilter,
		Delete: handler.DeleteFilter,
	})
	RegisterResourceRoutes(catalogs.Group("/packages"), ResourceRoutes{
		List:   handler.ListPackages,
		Create: handler.CreatePackage,
		Get:    handler.GetPackage,
		Delete: handler.DeletePackage,
	})
	RegisterResourceRoutes(catalogs.Group("/mappings"), ResourceRoutes{
		List:   handler.ListMappings,
		Create: handler.CreateMapping,
		Delete: handler.DeleteMapping,
	})
	catalogs.GET("/resolve", handler.Resolve)
}

// registerInventoryRoutes registers stock and projection endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewInventoryHandler(base, cfg.Inventory, cfg.Projection)
	inv := rg.Group("/inventory")
	{
		inv.GET("", handler.Overview)
		inv.GET("/low-stock", handler.LowStock)
		inv.GET("/stock-projection", handler.StockProjection)
		inv.POST("/restock", handler.Restock)
		inv.PUT("/:filterId/min-stock", handler.SetMinStock)
	}
}

// registerMaintenanceRoutes registers completion endpoints.
func registerMaintenanceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewMaintenanceHandler(base, cfg.Maintenance, cfg.Inventory)
	m := rg.Group("/maintenances")
	{
		m.GET("/:id", handler.Get)
		m.GET("/:id/usage", handler.Usage)
		m.POST("/:id/complete", handler.Complete)
		m.POST("/:id/plan-override", handler.PlanOverride)
	}
}

// registerWorkOrderRoutes registers work order endpoints.
func registerWorkOrderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewWorkOrderHandler(base, cfg.WorkOrders)
	wo := rg.Group("/work-orders")
	{
		wo.GET("", handler.List)
		wo.POST("/generate", handler.Generate)
		wo.GET("/reconciliation", handler.Reconciliation)
		wo.GET("/:id", handler.Get)
		wo.PATCH("/:id/status", handler.UpdateStatus)
	}
}
