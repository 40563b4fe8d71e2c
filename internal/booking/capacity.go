package booking

import (
	"context"

	"github.com/nekogravitycat/class-booking-backend/internal/class"
)

// confirmedCounter is implemented by Repository and by TxRepository.
type confirmedCounter interface {
	CountConfirmed(ctx context.Context, classID string) (int, error)
}

// HasRoom reports whether a class with the given number of confirmed
// bookings can take one more. Pending bookings never count.
func HasRoom(confirmed, capacity int) bool {
	return confirmed < capacity
}

// ensureRoom fails with ErrClassFull when c has no seat left. Inside a
// transaction the caller must hold the class lock for the count to be exact.
func ensureRoom(ctx context.Context, counter confirmedCounter, c *class.Class) error {
	n, err := counter.CountConfirmed(ctx, c.ID)
	if err != nil {
		return err
	}
	if !HasRoom(n, c.Capacity) {
		return ErrClassFull
	}
	return nil
}

// Accountant answers confirmed-count queries outside of a booking
// transaction. It satisfies class.ConfirmedCounter.
type Accountant struct {
	repo Repository
}

func NewAccountant(repo Repository) *Accountant {
	return &Accountant{repo: repo}
}

// ConfirmedCount returns the number of confirmed bookings of a class.
// An unknown class has zero.
func (a *Accountant) ConfirmedCount(ctx context.Context, classID string) (int, error) {
	return a.repo.CountConfirmed(ctx, classID)
}

// ConfirmedCounts returns confirmed counts keyed by class id, taken from one
// snapshot. Classes without confirmed bookings are omitted.
func (a *Accountant) ConfirmedCounts(ctx context.Context, classIDs []string) (map[string]int, error) {
	if len(classIDs) == 0 {
		return map[string]int{}, nil
	}
	return a.repo.CountConfirmedByClass(ctx, classIDs)
}

var _ class.ConfirmedCounter = (*Accountant)(nil)
