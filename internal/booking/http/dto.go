package http

import (
	"time"

	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/request"
)

type BookingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	ClassID   *string   `json:"class_id"`
	ClassName string    `json:"class_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	// A removed class leaves the booking without a class reference.
	var classID *string
	if b.ClassID != "" {
		id := b.ClassID
		classID = &id
	}

	return BookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		UserName:  b.UserName,
		ClassID:   classID,
		ClassName: b.ClassName,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// ListBookingsRequest defines query parameters for listing bookings.
// UserID only narrows an admin's listing; users always see their own.
type ListBookingsRequest struct {
	request.ListParams
	UserID  string `form:"user_id" binding:"omitempty,uuid"`
	ClassID string `form:"class_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending confirmed rejected cancelled"`
}

type CreateBookingRequest struct {
	ClassID string `json:"class_id" binding:"required,uuid"`
}

// DecideRequest binds POST /bookings/:id/:action.
type DecideRequest struct {
	ID     string `uri:"id" binding:"required,uuid"`
	Action string `uri:"action" binding:"required"`
}

type BookingMessageResponse struct {
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
}
