package layout

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"seatchart/internal/shared/utils/response"
	"seatchart/pkg/logger"
)

type Controller struct {
	loader *Loader
}

func NewController(loader *Loader) *Controller {
	return &Controller{loader: loader}
}

// GetLayout godoc
// @Summary Get a decoded venue layout
// @Tags layouts
// @Produce json
// @Param layoutId path string true "Layout ID"
// @Param event_id query string false "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /layouts/{layoutId} [get]
func (c *Controller) GetLayout(ctx *gin.Context) {
	layoutID := ctx.Param("layoutId")
	if layoutID == "" {
		response.Error(ctx, http.StatusBadRequest, "Layout ID is required", "missing layout ID")
		return
	}

	l, err := c.loader.Load(ctx.Request.Context(), Request{LayoutID: layoutID, EventID: ctx.Query("event_id")})
	if err != nil {
		var netErr *NetworkError
		switch {
		case errors.Is(err, ErrLayoutNotFound):
			response.Error(ctx, http.StatusNotFound, "Layout not found", err.Error())
		case IsCancelled(err):
			// client went away; nothing useful to send
			ctx.Status(499)
		case errors.As(err, &netErr):
			response.Error(ctx, http.StatusBadGateway, "Failed to fetch layout", err.Error())
		default:
			logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.Error(ctx, http.StatusInternalServerError, "Failed to load layout", err.Error())
		}
		return
	}

	response.Success(ctx, http.StatusOK, "Layout retrieved successfully", l)
}

// InvalidateLayout drops the cached copy so the next load refetches.
func (c *Controller) InvalidateLayout(ctx *gin.Context) {
	layoutID := ctx.Param("layoutId")
	if err := c.loader.Invalidate(ctx.Request.Context(), layoutID, ctx.Query("event_id")); err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to invalidate layout", err.Error())
		return
	}
	response.Success(ctx, http.StatusOK, "Layout cache invalidated", nil)
}
