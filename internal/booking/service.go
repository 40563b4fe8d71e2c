package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/metrics"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

// Service drives the booking lifecycle. Every method authorizes the principal
// first and runs its check-then-act sequence inside one store transaction.
type Service interface {
	Create(ctx context.Context, p *access.Principal, classID string) (*Booking, error)
	// Decide approves or rejects a pending booking.
	Decide(ctx context.Context, p *access.Principal, bookingID, action string) (*Booking, error)
	// Cancel cancels an active booking owned by p.
	Cancel(ctx context.Context, p *access.Principal, bookingID string) (*Booking, error)
	// List returns the bookings p is allowed to see, narrowed by filter.
	List(ctx context.Context, p *access.Principal, filter Filter) ([]*Booking, int, error)
	ConfirmedCount(ctx context.Context, classID string) (int, error)
}

type service struct {
	repo       Repository
	accountant *Accountant
	now        func() time.Time
}

// NewService creates a new booking service.
func NewService(repo Repository) Service {
	return &service{
		repo:       repo,
		accountant: NewAccountant(repo),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, p *access.Principal, classID string) (*Booking, error) {
	if err := access.Authorize(p, access.OpCreateBooking); err != nil {
		return nil, s.reject("create", err)
	}

	var created *Booking
	err := s.repo.WithinTx(ctx, func(tx TxRepository) error {
		c, err := tx.LockClass(ctx, classID)
		if err != nil {
			return err
		}

		active, err := tx.HasActive(ctx, p.ID, c.ID)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadyBooked
		}

		if err := ensureRoom(ctx, tx, c); err != nil {
			return err
		}

		b := &Booking{
			ID:        uuid.NewString(),
			UserID:    p.ID,
			UserName:  p.Name,
			ClassID:   c.ID,
			ClassName: c.Name,
			Status:    StatusPending,
			CreatedAt: s.now(),
		}
		if err := tx.Create(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, s.reject("create", err)
	}

	metrics.RecordTransition("", string(StatusPending))
	return created, nil
}

func (s *service) Decide(ctx context.Context, p *access.Principal, bookingID, action string) (*Booking, error) {
	if err := access.Authorize(p, access.OpDecideBooking); err != nil {
		return nil, s.reject("decide", err)
	}
	act, err := ParseAction(action)
	if err != nil {
		return nil, s.reject("decide", err)
	}
	target := act.Target()

	var decided *Booking
	err = s.repo.WithinTx(ctx, func(tx TxRepository) error {
		// The class is locked before the booking, the same order Create and
		// class removal use.
		classID, err := tx.ClassOf(ctx, bookingID)
		if err != nil {
			return pendingNotFound(err)
		}
		if classID == "" {
			return ErrPendingNotFound
		}

		c, err := tx.LockClass(ctx, classID)
		if err != nil {
			if errors.Is(err, ErrClassNotFound) {
				return ErrPendingNotFound
			}
			return err
		}

		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return pendingNotFound(err)
		}
		if b.Status != StatusPending || b.ClassID != c.ID {
			return ErrPendingNotFound
		}
		if !b.Status.CanTransitionTo(target) {
			return ErrInvalidTransition
		}

		if target == StatusConfirmed {
			if err := ensureRoom(ctx, tx, c); err != nil {
				return err
			}
		}

		if err := tx.UpdateStatus(ctx, b.ID, target); err != nil {
			return err
		}
		b.Status = target
		b.UpdatedAt = s.now()
		decided = b
		return nil
	})
	if err != nil {
		return nil, s.reject("decide", err)
	}

	metrics.RecordTransition(string(StatusPending), string(target))
	return decided, nil
}

func pendingNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrPendingNotFound
	}
	return err
}

func (s *service) Cancel(ctx context.Context, p *access.Principal, bookingID string) (*Booking, error) {
	if err := access.Authorize(p, access.OpCancelBooking); err != nil {
		return nil, s.reject("cancel", err)
	}

	var (
		cancelled *Booking
		from      Status
	)
	err := s.repo.WithinTx(ctx, func(tx TxRepository) error {
		b, err := tx.LockActiveOwned(ctx, bookingID, p.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrActiveNotFound
			}
			return err
		}
		if !b.Status.CanTransitionTo(StatusCancelled) {
			return ErrActiveNotFound
		}

		if err := tx.UpdateStatus(ctx, b.ID, StatusCancelled); err != nil {
			return err
		}
		from = b.Status
		b.Status = StatusCancelled
		b.UpdatedAt = s.now()
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, s.reject("cancel", err)
	}

	metrics.RecordTransition(string(from), string(StatusCancelled))
	return cancelled, nil
}

func (s *service) List(ctx context.Context, p *access.Principal, filter Filter) ([]*Booking, int, error) {
	if err := access.Authorize(p, access.OpListOwnBookings); err != nil {
		return nil, 0, err
	}

	scope := access.BookingScope(p)
	switch {
	case scope.None:
		return []*Booking{}, 0, nil
	case !scope.All:
		filter.UserID = scope.UserID
	}

	if filter.Status != "" {
		if _, err := ParseStatus(string(filter.Status)); err != nil {
			return nil, 0, err
		}
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.From(err)
	}
	if bookings == nil {
		bookings = []*Booking{}
	}
	return bookings, total, nil
}

func (s *service) ConfirmedCount(ctx context.Context, classID string) (int, error) {
	n, err := s.accountant.ConfirmedCount(ctx, classID)
	if err != nil {
		return 0, apperror.From(err)
	}
	return n, nil
}

// reject records a refused operation and normalises err for the caller.
func (s *service) reject(operation string, err error) error {
	err = apperror.From(err)
	metrics.RecordRejection(operation, string(apperror.KindOf(err)))
	return err
}
