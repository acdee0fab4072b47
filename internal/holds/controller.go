package holds

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"seatchart/internal/shared/middleware"
	"seatchart/internal/shared/utils/response"
	"seatchart/pkg/logger"
)

type CreateHoldRequest struct {
	EventID  string   `json:"event_id" binding:"required"`
	LayoutID string   `json:"layout_id"`
	UserID   string   `json:"user_id"`
	SeatIDs  []string `json:"seat_ids" binding:"required,min=1"`
}

type ReleaseResponse struct {
	HoldID   string `json:"hold_id"`
	Released int    `json:"released"`
}

type Controller struct {
	locker    Locker
	validator *validator.Validate
}

func NewController(locker Locker) *Controller {
	return &Controller{
		locker:    locker,
		validator: validator.New(),
	}
}

// CreateHold godoc
// @Summary Hold seats
// @Tags holds
// @Accept json
// @Produce json
// @Param request body CreateHoldRequest true "Seats to hold"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /holds [post]
func (c *Controller) CreateHold(ctx *gin.Context) {
	var req CreateHoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	lockReq := LockRequest{
		EventID:  req.EventID,
		LayoutID: req.LayoutID,
		UserID:   req.UserID,
		SeatIDs:  req.SeatIDs,
	}
	if userID := middleware.CurrentUserID(ctx); userID != "" {
		lockReq.UserID = userID
	}
	if err := c.validator.Struct(&lockReq); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	hold, err := c.locker.Lock(ctx.Request.Context(), lockReq)
	if err != nil {
		var rejected *LockRejectedError
		switch {
		case errors.As(err, &rejected):
			response.Error(ctx, http.StatusConflict, "Seats could not be held", rejected.Reason)
		case errors.Is(err, ErrRedisUnavailable):
			response.Error(ctx, http.StatusServiceUnavailable, "Seat holds unavailable", err.Error())
		default:
			logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.Error(ctx, http.StatusInternalServerError, "Failed to hold seats", err.Error())
		}
		return
	}

	response.Success(ctx, http.StatusCreated, "Seats held successfully", hold)
}

// GetHold godoc
// @Summary Get a hold
// @Tags holds
// @Produce json
// @Param holdId path string true "Hold ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /holds/{holdId} [get]
func (c *Controller) GetHold(ctx *gin.Context) {
	hold, ok := c.lookup(ctx)
	if !ok {
		return
	}
	response.Success(ctx, http.StatusOK, "Hold retrieved successfully", hold)
}

// ReleaseHold godoc
// @Summary Release a hold
// @Tags holds
// @Produce json
// @Param holdId path string true "Hold ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /holds/{holdId} [delete]
func (c *Controller) ReleaseHold(ctx *gin.Context) {
	hold, ok := c.lookup(ctx)
	if !ok {
		return
	}
	if userID := middleware.CurrentUserID(ctx); userID != "" && userID != hold.UserID {
		response.Error(ctx, http.StatusForbidden, "Hold belongs to another user", nil)
		return
	}

	released, err := c.locker.Release(ctx.Request.Context(), hold.ID)
	if err != nil {
		c.respondError(ctx, err, "Failed to release hold")
		return
	}
	response.Success(ctx, http.StatusOK, "Hold released successfully", ReleaseResponse{HoldID: hold.ID, Released: released})
}

func (c *Controller) lookup(ctx *gin.Context) (*Hold, bool) {
	holdID := ctx.Param("holdId")
	if holdID == "" {
		response.Error(ctx, http.StatusBadRequest, "Hold ID is required", "missing hold ID")
		return nil, false
	}
	hold, err := c.locker.Get(ctx.Request.Context(), holdID)
	if err != nil {
		c.respondError(ctx, err, "Failed to get hold")
		return nil, false
	}
	return hold, true
}

func (c *Controller) respondError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrHoldNotFound):
		response.Error(ctx, http.StatusNotFound, "Hold not found", err.Error())
	case errors.Is(err, ErrRedisUnavailable):
		response.Error(ctx, http.StatusServiceUnavailable, message, err.Error())
	default:
		logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.Error(ctx, http.StatusInternalServerError, message, err.Error())
	}
}
