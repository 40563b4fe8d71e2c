package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/class-booking-backend/internal/class"
)

type ClassResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Time            string          `json:"time"`
	Capacity        int             `json:"capacity"`
	Price           decimal.Decimal `json:"price"`
	Trainer         string          `json:"trainer"`
	CurrentBookings int             `json:"current_bookings"`
	SeatsLeft       int             `json:"seats_left"`
	CreatedAt       time.Time       `json:"created_at"`
}

func NewClassResponse(c *class.Class) ClassResponse {
	return NewSummaryResponse(&class.Summary{Class: *c})
}

func NewSummaryResponse(s *class.Summary) ClassResponse {
	return ClassResponse{
		ID:              s.ID,
		Name:            s.Name,
		Time:            s.Time,
		Capacity:        s.Capacity,
		Price:           s.Price,
		Trainer:         s.Trainer,
		CurrentBookings: s.ConfirmedCount,
		SeatsLeft:       s.SeatsLeft(),
		CreatedAt:       s.CreatedAt,
	}
}

// CreateClassRequest is the payload of POST /classes. Price accepts a JSON
// number or a decimal string.
type CreateClassRequest struct {
	Name     string           `json:"name" binding:"required,notblank"`
	Time     string           `json:"time" binding:"required,notblank"`
	Capacity int              `json:"capacity" binding:"required,gt=0"`
	Price    *decimal.Decimal `json:"price" binding:"required"`
	Trainer  string           `json:"trainer" binding:"required,notblank"`
}

// Validate performs checks the binding tags cannot express.
func (r *CreateClassRequest) Validate() error {
	if r.Price == nil {
		return class.ErrPriceRequired
	}
	if r.Price.IsNegative() {
		return class.ErrInvalidPrice
	}
	return nil
}

type RemoveClassResponse struct {
	Message           string `json:"message"`
	CancelledBookings int64  `json:"cancelled_bookings"`
}
