package chart

import (
	"github.com/gin-gonic/gin"
)

// SetupChartRoutes registers the chart session API. auth guards the buyer routes, admin the delta
// injection route.
func SetupChartRoutes(rg *gin.RouterGroup, controller *Controller, auth []gin.HandlerFunc, admin []gin.HandlerFunc) {
	group := rg.Group("")
	group.Use(auth...)
	registerRoutes(group, controller)

	adminGroup := rg.Group("/charts")
	adminGroup.Use(admin...)
	{
		adminGroup.POST("/deltas", controller.InjectDelta) // POST /api/v1/charts/deltas
	}
}

func registerRoutes(rg *gin.RouterGroup, controller *Controller) {
	sessions := rg.Group("/charts/sessions")
	{
		sessions.POST("", controller.OpenSession)
		sessions.GET("/:sessionId", controller.GetSession)
		sessions.DELETE("/:sessionId", controller.CloseSession)
		sessions.GET("/:sessionId/frame", controller.GetFrame)
		sessions.GET("/:sessionId/events", controller.Events)

		sessions.POST("/:sessionId/tap", controller.Tap)
		sessions.POST("/:sessionId/seats", controller.SelectSeat)
		sessions.PUT("/:sessionId/seats", controller.SetSelection)
		sessions.POST("/:sessionId/gestures", controller.Gesture)
		sessions.POST("/:sessionId/focus", controller.Focus)
		sessions.POST("/:sessionId/clear", controller.Clear)
		sessions.POST("/:sessionId/hold/extend", controller.ExtendHold)
		sessions.POST("/:sessionId/checkout", controller.Checkout)
		sessions.POST("/:sessionId/booked", controller.MarkBooked)
	}
}
