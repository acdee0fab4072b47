package chart

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"seatchart/internal/geometry"
	"seatchart/internal/holds"
	"seatchart/internal/layout"
	"seatchart/internal/realtime"
	"seatchart/internal/selection"
	"seatchart/internal/shared/middleware"
	"seatchart/internal/shared/utils/response"
	"seatchart/pkg/logger"
)

type TapRequest struct {
	Point   geometry.Point `json:"point"`
	Confirm bool           `json:"confirm"`
}

type SelectSeatRequest struct {
	SeatID    string `json:"seat_id" binding:"required"`
	SectionID string `json:"section_id"`
	RowID     string `json:"row_id"`
	Confirm   bool   `json:"confirm"`
}

type SetSelectionRequest struct {
	Seats []selection.Target `json:"seats"`
}

type ExtendHoldRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1"`
}

type FocusRequest struct {
	SectionID string `json:"section_id" binding:"required"`
	RowID     string `json:"row_id"`
}

type FocusResponse struct {
	Applied bool `json:"applied"`
	View    View `json:"view"`
}

type BookedResponse struct {
	SeatIDs []string `json:"seat_ids"`
}

type DeltaResponse struct {
	Sessions int `json:"sessions"`
}

type Controller struct {
	manager   *Manager
	validator *validator.Validate
}

func NewController(manager *Manager) *Controller {
	return &Controller{
		manager:   manager,
		validator: validator.New(),
	}
}

// OpenSession godoc
// @Summary Open a chart session
// @Tags charts
// @Accept json
// @Produce json
// @Param request body OpenRequest true "Layout and viewport"
// @Success 201 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /charts/sessions [post]
func (c *Controller) OpenSession(ctx *gin.Context) {
	var req OpenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	req.UserID = middleware.CurrentUserID(ctx)

	s, err := c.manager.Open(ctx.Request.Context(), req)
	if err != nil {
		var netErr *layout.NetworkError
		switch {
		case errors.Is(err, layout.ErrLayoutNotFound):
			response.Error(ctx, http.StatusNotFound, "Layout not found", err.Error())
		case layout.IsCancelled(err):
			ctx.Status(499)
		case errors.As(err, &netErr):
			response.Error(ctx, http.StatusBadGateway, "Failed to fetch layout", err.Error())
		default:
			logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.Error(ctx, http.StatusInternalServerError, "Failed to open chart", err.Error())
		}
		return
	}

	state, err := s.State(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to open chart")
		return
	}
	response.Success(ctx, http.StatusCreated, "Chart session opened", state)
}

// GetSession godoc
// @Summary Get a chart session's selection and view
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId} [get]
func (c *Controller) GetSession(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	state, err := s.State(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to get chart session")
		return
	}
	response.Success(ctx, http.StatusOK, "Chart session retrieved", state)
}

// GetFrame godoc
// @Summary Render the current view
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/frame [get]
func (c *Controller) GetFrame(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	frame, err := s.Frame(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to render chart")
		return
	}
	response.Success(ctx, http.StatusOK, "Frame rendered", frame)
}

// Tap godoc
// @Summary Tap a screen point
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body TapRequest true "Tap point"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/tap [post]
func (c *Controller) Tap(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req TapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	res, err := s.Tap(ctx.Request.Context(), req.Point, req.Confirm)
	if err != nil {
		c.respondError(ctx, err, "Failed to handle tap")
		return
	}
	response.Success(ctx, http.StatusOK, "Tap handled", res)
}

// SelectSeat godoc
// @Summary Toggle a seat by id
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body SelectSeatRequest true "Seat"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Failure 422 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/seats [post]
func (c *Controller) SelectSeat(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req SelectSeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	target := selection.Target{SeatID: req.SeatID, SectionID: req.SectionID, RowID: req.RowID}
	res, err := s.SelectSeat(ctx.Request.Context(), target, req.Confirm)
	if err != nil {
		c.respondError(ctx, err, "Failed to select seat")
		return
	}
	if res.Rejection != nil {
		code := http.StatusConflict
		if res.Rejection.NeedsConfirmation || isValidation(res.Rejection.Reason) {
			code = http.StatusUnprocessableEntity
		}
		response.RespondJSON(ctx, response.StatusError, code, res.Rejection.Message, res, res.Rejection.Reason)
		return
	}
	response.Success(ctx, http.StatusOK, "Selection updated", res)
}

// SetSelection godoc
// @Summary Replace the selection
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body SetSelectionRequest true "Seats"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/seats [put]
func (c *Controller) SetSelection(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req SetSelectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	for i := range req.Seats {
		if err := c.validator.Struct(&req.Seats[i]); err != nil {
			response.Error(ctx, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
	}
	sel, err := s.SetSelection(ctx.Request.Context(), req.Seats)
	if err != nil {
		c.respondError(ctx, err, "Failed to set selection")
		return
	}
	response.Success(ctx, http.StatusOK, "Selection updated", sel)
}

// Gesture godoc
// @Summary Forward a pointer, touch, wheel or zoom input
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body GestureInput true "Input event"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/gestures [post]
func (c *Controller) Gesture(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var in GestureInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	res, err := s.Gesture(ctx.Request.Context(), in)
	if err != nil {
		c.respondError(ctx, err, "Failed to handle gesture")
		return
	}
	response.Success(ctx, http.StatusOK, "Gesture handled", res)
}

// Clear godoc
// @Summary Clear the selection
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/clear [post]
func (c *Controller) Clear(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := s.Clear(ctx.Request.Context()); err != nil {
		c.respondError(ctx, err, "Failed to clear selection")
		return
	}
	c.respondState(ctx, s, "Selection cleared")
}

// ExtendHold godoc
// @Summary Extend the hold countdown
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body ExtendHoldRequest true "Seconds to add"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/hold/extend [post]
func (c *Controller) ExtendHold(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req ExtendHoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	extended, err := s.ExtendHold(ctx.Request.Context(), req.Seconds)
	if err != nil {
		c.respondError(ctx, err, "Failed to extend hold")
		return
	}
	if !extended {
		response.Error(ctx, http.StatusConflict, "No active hold to extend", nil)
		return
	}
	c.respondState(ctx, s, "Hold extended")
}

// Checkout godoc
// @Summary Lock the selected seats before checkout
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/checkout [post]
func (c *Controller) Checkout(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	hold, err := s.Checkout(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to lock seats")
		return
	}
	response.Success(ctx, http.StatusCreated, "Seats locked for checkout", hold)
}

// MarkBooked godoc
// @Summary Mark the selection as booked
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/booked [post]
func (c *Controller) MarkBooked(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	ids, err := s.MarkBooked(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to mark seats booked")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.Success(ctx, http.StatusOK, "Seats marked booked", BookedResponse{SeatIDs: ids})
}

// Focus godoc
// @Summary Deep-link the view to a section or row
// @Tags charts
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body FocusRequest true "Section and optional row"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId}/focus [post]
func (c *Controller) Focus(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req FocusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	applied, err := s.Focus(ctx.Request.Context(), req.SectionID, req.RowID)
	if err != nil {
		c.respondError(ctx, err, "Failed to focus chart")
		return
	}
	state, err := s.State(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to focus chart")
		return
	}
	response.Success(ctx, http.StatusOK, "Chart focused", FocusResponse{Applied: applied, View: state.View})
}

// Events godoc
// @Summary Stream selection snapshots, notices, view and seat changes
// @Tags charts
// @Produce text/event-stream
// @Param sessionId path string true "Session ID"
// @Router /charts/sessions/{sessionId}/events [get]
func (c *Controller) Events(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	state, err := s.State(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, "Failed to open event stream")
		return
	}

	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.SSEvent(string(EventSelection), Event{Type: EventSelection, Selection: &state.Selection})

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Request.Context().Done():
			return false
		case ev, open := <-ch:
			if !open {
				return false
			}
			ctx.SSEvent(string(ev.Type), ev)
			return ev.Type != EventClosed
		}
	})
}

// CloseSession godoc
// @Summary Close a chart session
// @Tags charts
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /charts/sessions/{sessionId} [delete]
func (c *Controller) CloseSession(ctx *gin.Context) {
	if _, ok := c.session(ctx); !ok {
		return
	}
	if err := c.manager.Close(ctx.Param("sessionId"), "closed by client"); err != nil {
		c.respondError(ctx, err, "Failed to close chart session")
		return
	}
	response.Success(ctx, http.StatusOK, "Chart session closed", nil)
}

// InjectDelta godoc
// @Summary Apply a seat-status delta to open sessions
// @Tags charts
// @Accept json
// @Produce json
// @Param request body realtime.Delta true "Seat-status delta"
// @Success 200 {object} response.StandardApiResponse
// @Router /charts/deltas [post]
func (c *Controller) InjectDelta(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	d, err := realtime.DecodeDelta(body)
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid seat-status delta", err.Error())
		return
	}
	n := c.manager.ApplyDelta(ctx.Request.Context(), d)
	response.Success(ctx, http.StatusOK, "Delta applied", DeltaResponse{Sessions: n})
}

func (c *Controller) session(ctx *gin.Context) (*Session, bool) {
	id := ctx.Param("sessionId")
	if id == "" {
		response.Error(ctx, http.StatusBadRequest, "Session ID is required", "missing session ID")
		return nil, false
	}
	s, err := c.manager.Get(id)
	if err != nil {
		c.respondError(ctx, err, "Failed to get chart session")
		return nil, false
	}
	if owner := s.UserID(); owner != "" && owner != middleware.CurrentUserID(ctx) {
		response.Error(ctx, http.StatusForbidden, "Chart session belongs to another user", nil)
		return nil, false
	}
	return s, true
}

func (c *Controller) respondState(ctx *gin.Context, s *Session, message string) {
	state, err := s.State(ctx.Request.Context())
	if err != nil {
		c.respondError(ctx, err, message)
		return
	}
	response.Success(ctx, http.StatusOK, message, state)
}

func (c *Controller) respondError(ctx *gin.Context, err error, message string) {
	var (
		verr     *selection.ValidationError
		cerr     *selection.ConflictError
		rejected *holds.LockRejectedError
	)
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		response.Error(ctx, http.StatusNotFound, "Chart session not found", err.Error())
	case errors.Is(err, ErrSectionNotFound):
		response.Error(ctx, http.StatusNotFound, "Section not found", err.Error())
	case errors.Is(err, ErrEmptySelection), errors.Is(err, ErrUnknownGesture):
		response.Error(ctx, http.StatusBadRequest, message, err.Error())
	case errors.As(err, &verr):
		response.Error(ctx, http.StatusUnprocessableEntity, err.Error(), verr)
	case errors.As(err, &cerr):
		response.Error(ctx, http.StatusConflict, err.Error(), cerr)
	case errors.As(err, &rejected):
		response.Error(ctx, http.StatusConflict, "Seats could not be held", rejected.Reason)
	case errors.Is(err, holds.ErrRedisUnavailable):
		response.Error(ctx, http.StatusServiceUnavailable, message, err.Error())
	case errors.Is(err, context.Canceled):
		ctx.Status(499)
	default:
		logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.Error(ctx, http.StatusInternalServerError, message, err.Error())
	}
}

func isValidation(r selection.Reason) bool {
	switch r {
	case selection.ReasonCategoryMismatch, selection.ReasonMaxSeats, selection.ReasonCategoryLimit:
		return true
	}
	return false
}
