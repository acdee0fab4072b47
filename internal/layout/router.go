package layout

import (
	"github.com/gin-gonic/gin"
)

func SetupLayoutRoutes(rg *gin.RouterGroup, controller *Controller, admin ...gin.HandlerFunc) {
	layouts := rg.Group("/layouts")
	{
		layouts.GET("/:layoutId", controller.GetLayout) // GET /api/v1/layouts/:layoutId?event_id=xxx
	}

	adminLayouts := rg.Group("/admin/layouts")
	adminLayouts.Use(admin...)
	{
		adminLayouts.DELETE("/:layoutId/cache", controller.InvalidateLayout) // DELETE /api/v1/admin/layouts/:layoutId/cache?event_id=xxx
	}
}
