package v1

import (
	"github.com/gin-gonic/gin"
)

// ResourceRoutes names the handlers of one catalog collection.
// Nil handlers are not registered.
type ResourceRoutes struct {
	List   gin.HandlerFunc
	Create gin.HandlerFunc
	Get    gin.HandlerFunc
	Delete gin.HandlerFunc
}

// RegisterResourceRoutes registers the standard collection routes for a resource.
//
// Usage:
//
//	RegisterResourceRoutes(catalog.Group("/filters"), ResourceRoutes{
//		List:   handler.ListFilters,
//		Create: handler.CreateFilter,
//		Delete: handler.DeleteFilter,
//	})
func RegisterResourceRoutes(group *gin.RouterGroup, routes ResourceRoutes) {
	if routes.List != nil {
		group.GET("", routes.List)
	}
	if routes.Create != nil {
		group.POST("", routes.Create)
	}
	if routes.Get != nil {
		group.GET("/:id", routes.Get)
	}
	if routes.Delete != nil {
		group.DELETE("/:id", routes.Delete)
	}
}
