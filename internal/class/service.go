package class

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/metrics"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

// CreateRequest carries the fields of a new class.
type CreateRequest struct {
	Name     string
	Time     string
	Capacity int
	Price    decimal.Decimal
	Trainer  string
}

// ConfirmedCounter reports confirmed booking counts per class.
// Classes without bookings may be missing from the result.
type ConfirmedCounter interface {
	ConfirmedCounts(ctx context.Context, classIDs []string) (map[string]int, error)
}

// Service defines business logic for the class registry.
type Service interface {
	Add(ctx context.Context, p *access.Principal, req CreateRequest) (*Class, error)
	GetByID(ctx context.Context, id string) (*Class, error)
	List(ctx context.Context) ([]*Summary, error)
	// Remove deletes a class and cancels its bookings; it returns how many
	// bookings were cancelled.
	Remove(ctx context.Context, p *access.Principal, id string) (int64, error)
}

type service struct {
	repo    Repository
	counter ConfirmedCounter
}

// NewService creates a new class service.
func NewService(repo Repository, counter ConfirmedCounter) Service {
	return &service{repo: repo, counter: counter}
}

func (s *service) Add(ctx context.Context, p *access.Principal, req CreateRequest) (*Class, error) {
	if err := access.Authorize(p, access.OpAddClass); err != nil {
		return nil, err
	}

	c := &Class{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(req.Name),
		Time:     strings.TrimSpace(req.Time),
		Capacity: req.Capacity,
		Price:    req.Price,
		Trainer:  strings.TrimSpace(req.Trainer),
	}
	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperror.From(err)
	}
	return c, nil
}

func validate(c *Class) error {
	switch {
	case c.Name == "":
		return ErrNameRequired
	case c.Time == "":
		return ErrTimeRequired
	case c.Trainer == "":
		return ErrTrainerRequired
	case c.Capacity <= 0, c.Capacity > MaxCapacity:
		return ErrInvalidCapacity
	case c.Price.IsNegative(), c.Price.GreaterThanOrEqual(MaxPrice):
		return ErrInvalidPrice
	case !c.Price.Equal(c.Price.Round(PriceScale)):
		return ErrInvalidPrice
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Class, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.From(err)
	}
	return c, nil
}

func (s *service) List(ctx context.Context) ([]*Summary, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.From(err)
	}

	ids := make([]string, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}

	counts, err := s.counter.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, apperror.From(err)
	}

	summaries := make([]*Summary, len(classes))
	for i, c := range classes {
		summaries[i] = &Summary{Class: *c, ConfirmedCount: counts[c.ID]}
	}
	return summaries, nil
}

func (s *service) Remove(ctx context.Context, p *access.Principal, id string) (int64, error) {
	if err := access.Authorize(p, access.OpRemoveClass); err != nil {
		return 0, err
	}

	n, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		return 0, apperror.From(err)
	}
	metrics.RecordClassRemoved()
	return n, nil
}
