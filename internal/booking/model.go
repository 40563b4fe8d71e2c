package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrPendingNotFound   = apperror.New(http.StatusNotFound, "pending booking not found")
	ErrActiveNotFound    = apperror.New(http.StatusNotFound, "active booking not found or unauthorized")
	ErrClassNotFound     = apperror.New(http.StatusNotFound, "class not found")
	ErrAlreadyBooked     = apperror.New(http.StatusConflict, "you already have an active booking for this class")
	ErrClassFull         = apperror.New(http.StatusConflict, "class is full")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "booking status cannot change that way")
	ErrTxConflict        = apperror.New(http.StatusConflict, "booking contention, please retry")
	ErrInvalidAction     = apperror.New(http.StatusBadRequest, "invalid action")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid booking status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// transitions lists the only legal status edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Active reports whether the booking still holds or requests a seat.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is a legal edge.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Action is an admin decision on a pending booking.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction converts s to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", ErrInvalidAction
}

// Target is the status a pending booking moves to under a.
func (a Action) Target() Status {
	if a == ActionApprove {
		return StatusConfirmed
	}
	return StatusRejected
}

type Booking struct {
	ID        string
	UserID    string
	UserName  string
	ClassID   string // empty once the class has been removed
	ClassName string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filter struct {
	UserID   string
	ClassID  string
	Status   Status
	Page     int
	PageSize int
}
