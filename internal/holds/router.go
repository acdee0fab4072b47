package holds

import (
	"github.com/gin-gonic/gin"
)

func SetupHoldRoutes(rg *gin.RouterGroup, controller *Controller, auth ...gin.HandlerFunc) {
	group := rg.Group("")
	group.Use(auth...)
	registerRoutes(group, controller)
}

func registerRoutes(rg *gin.RouterGroup, controller *Controller) {
	holds := rg.Group("/holds")
	{
		holds.POST("", controller.CreateHold)            // POST /api/v1/holds
		holds.GET("/:holdId", controller.GetHold)        // GET /api/v1/holds/:holdId
		holds.DELETE("/:holdId", controller.ReleaseHold) // DELETE /api/v1/holds/:holdId
	}
}
