package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
)

type Handler struct {
	service class.Service
}

func NewHandler(service class.Service) *Handler {
	return &Handler{service: service}
}

// List returns every class with its confirmed booking count.
func (h *Handler) List(c *gin.Context) {
	summaries, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ClassResponse, len(summaries))
	for i, s := range summaries {
		items[i] = NewSummaryResponse(s)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create adds a class. The role is checked before the body is bound.
func (h *Handler) Create(c *gin.Context) {
	p := auth.GetPrincipal(c)
	if err := access.Authorize(p, access.OpAddClass); err != nil {
		response.Error(c, err)
		return
	}

	var body CreateClassRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, "invalid request body", err)
		return
	}

	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	req := class.CreateRequest{
		Name:     body.Name,
		Time:     body.Time,
		Capacity: body.Capacity,
		Price:    *body.Price,
		Trainer:  body.Trainer,
	}

	created, err := h.service.Add(c.Request.Context(), p, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewClassResponse(created))
}

// Delete removes a class and cancels all of its bookings.
func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Invalid(c, "invalid request", err)
		return
	}

	n, err := h.service.Remove(c.Request.Context(), auth.GetPrincipal(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RemoveClassResponse{
		Message:           "Class and its bookings removed.",
		CancelledBookings: n,
	})
}
