package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Invalid(c, "invalid query parameters", err)
		return
	}

	filter := booking.Filter{
		UserID:   req.UserID,
		ClassID:  req.ClassID,
		Status:   booking.Status(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	list, total, err := h.service.List(c.Request.Context(), auth.GetPrincipal(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(list))
	for i, b := range list {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Create requests a seat in a class. The booking starts pending.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), auth.GetPrincipal(c), body.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, BookingMessageResponse{
		Message: fmt.Sprintf("Booking for %s is pending admin approval.", b.ClassName),
		Booking: NewBookingResponse(b),
	})
}

// Decide approves or rejects a pending booking.
func (h *Handler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Invalid(c, "invalid request", err)
		return
	}

	b, err := h.service.Decide(c.Request.Context(), auth.GetPrincipal(c), req.ID, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingMessageResponse{
		Message: fmt.Sprintf("Booking for %s %s.", b.ClassName, b.Status),
		Booking: NewBookingResponse(b),
	})
}

// Cancel cancels one of the caller's active bookings.
func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Invalid(c, "invalid request", err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), auth.GetPrincipal(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingMessageResponse{
		Message: "Booking successfully cancelled.",
		Booking: NewBookingResponse(b),
	})
}
