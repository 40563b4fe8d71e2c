package class

import (
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

// Bounds of the classes columns: capacity is an integer, price numeric(12,2).
const (
	MaxCapacity = math.MaxInt32
	PriceScale  = 2
)

// MaxPrice is the first price the price column can no longer hold.
var MaxPrice = decimal.New(1, 10)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "class not found")
	ErrNameRequired     = apperror.New(http.StatusBadRequest, "name is required")
	ErrTimeRequired     = apperror.New(http.StatusBadRequest, "time is required")
	ErrTrainerRequired  = apperror.New(http.StatusBadRequest, "trainer is required")
	ErrInvalidCapacity  = apperror.New(http.StatusBadRequest, "capacity must be between 1 and 2147483647")
	ErrInvalidPrice     = apperror.New(http.StatusBadRequest, "price must be a non-negative amount below 10000000000 with at most 2 decimals")
	ErrPriceRequired    = apperror.New(http.StatusBadRequest, "price is required")
	ErrDuplicateClassID = apperror.New(http.StatusConflict, "class id already exists")
)

// Class is a scheduled session with a fixed number of seats.
type Class struct {
	ID        string
	Name      string
	Time      string // free-form label, e.g. "Mon 18:00"
	Capacity  int
	Price     decimal.Decimal
	Trainer   string
	CreatedAt time.Time
}

// Summary is a class together with its confirmed booking count.
type Summary struct {
	Class
	ConfirmedCount int
}

// SeatsLeft returns the number of seats not taken by confirmed bookings.
func (s *Summary) SeatsLeft() int {
	if left := s.Capacity - s.ConfirmedCount; left > 0 {
		return left
	}
	return 0
}
