package testutil

import (
	"context"
	"slices"
	"strings"

	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
)

type classRepo struct{ s *Store }

func (r *classRepo) Create(_ context.Context, c *class.Class) error {
	return r.s.atomically(func() error {
		if err := r.s.fail("class.create"); err != nil {
			return err
		}
		if _, ok := r.s.st.classes[c.ID]; ok {
			return class.ErrDuplicateClassID
		}
		c.CreatedAt = r.s.now()
		r.s.st.classes[c.ID] = *c
		r.s.st.classOrder = append(r.s.st.classOrder, c.ID)
		return nil
	})
}

func (r *classRepo) GetByID(_ context.Context, id string) (*class.Class, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.classes[id]
	if !ok {
		return nil, class.ErrNotFound
	}
	return &c, nil
}

func (r *classRepo) List(_ context.Context) ([]*class.Class, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*class.Class, 0, len(r.s.st.classOrder))
	for _, id := range r.s.st.classOrder {
		c := r.s.st.classes[id]
		out = append(out, &c)
	}
	return out, nil
}

func (r *classRepo) DeleteCascade(_ context.Context, id string) (int64, error) {
	var n int64
	err := r.s.atomically(func() error {
		if _, ok := r.s.st.classes[id]; !ok {
			return class.ErrNotFound
		}
		now := r.s.now()
		for bid, b := range r.s.st.bookings {
			if b.ClassID != id {
				continue
			}
			if b.Status != booking.StatusCancelled {
				r.s.st.transitions = append(r.s.st.transitions, Transition{BookingID: bid, From: b.Status, To: booking.StatusCancelled})
			}
			b.Status = booking.StatusCancelled
			b.UpdatedAt = now
			r.s.st.bookings[bid] = b
			n++
		}
		if err := r.s.fail("class.delete"); err != nil {
			return err
		}
		// Detach the cancelled bookings like ON DELETE SET NULL.
		for bid, b := range r.s.st.bookings {
			if b.ClassID == id {
				b.ClassID = ""
				r.s.st.bookings[bid] = b
			}
		}
		delete(r.s.st.classes, id)
		r.s.st.classOrder = slices.DeleteFunc(r.s.st.classOrder, func(v string) bool { return v == id })
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) WithinTx(_ context.Context, fn func(tx booking.TxRepository) error) error {
	return r.s.atomically(func() error {
		return fn(&bookingTx{r.s})
	})
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return r.s.view(b), nil
}

func (r *bookingRepo) List(_ context.Context, f booking.Filter) ([]*booking.Booking, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*booking.Booking
	// Newest first.
	for i := len(r.s.st.bookOrder) - 1; i >= 0; i-- {
		b := r.s.st.bookings[r.s.st.bookOrder[i]]
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.ClassID != "" && b.ClassID != f.ClassID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		matched = append(matched, r.s.view(b))
	}

	start, end := page(len(matched), f.Page, f.PageSize)
	return matched[start:end], len(matched), nil
}

func (r *bookingRepo) CountConfirmed(_ context.Context, classID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("booking.count"); err != nil {
		return 0, err
	}
	return r.s.countConfirmed(classID), nil
}

func (r *bookingRepo) CountConfirmedByClass(_ context.Context, ids []string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("booking.count"); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		if n := r.s.countConfirmed(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// bookingTx runs with the store lock already held.
type bookingTx struct{ s *Store }

func (t *bookingTx) LockClass(_ context.Context, classID string) (*class.Class, error) {
	c, ok := t.s.st.classes[classID]
	if !ok {
		return nil, booking.ErrClassNotFound
	}
	return &c, nil
}

func (t *bookingTx) CountConfirmed(_ context.Context, classID string) (int, error) {
	if err := t.s.fail("booking.count"); err != nil {
		return 0, err
	}
	return t.s.countConfirmed(classID), nil
}

func (t *bookingTx) HasActive(_ context.Context, userID, classID string) (bool, error) {
	return t.s.hasActive(userID, classID), nil
}

func (t *bookingTx) Create(_ context.Context, b *booking.Booking) error {
	if err := t.s.fail("booking.create"); err != nil {
		return err
	}
	if t.s.hasActive(b.UserID, b.ClassID) {
		return booking.ErrAlreadyBooked
	}
	b.UpdatedAt = b.CreatedAt
	stored := *b
	stored.UserName, stored.ClassName = "", ""
	t.s.st.bookings[b.ID] = stored
	t.s.st.bookOrder = append(t.s.st.bookOrder, b.ID)
	return nil
}

func (t *bookingTx) ClassOf(_ context.Context, bookingID string) (string, error) {
	b, ok := t.s.st.bookings[bookingID]
	if !ok {
		return "", booking.ErrNotFound
	}
	return b.ClassID, nil
}

func (t *bookingTx) LockBooking(_ context.Context, bookingID string) (*booking.Booking, error) {
	b, ok := t.s.st.bookings[bookingID]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return t.s.view(b), nil
}

func (t *bookingTx) LockActiveOwned(_ context.Context, bookingID, userID string) (*booking.Booking, error) {
	b, ok := t.s.st.bookings[bookingID]
	if !ok || b.UserID != userID || !b.Status.Active() {
		return nil, booking.ErrNotFound
	}
	return t.s.view(b), nil
}

func (t *bookingTx) UpdateStatus(_ context.Context, bookingID string, status booking.Status) error {
	if err := t.s.fail("booking.update"); err != nil {
		return err
	}
	b, ok := t.s.st.bookings[bookingID]
	if !ok {
		return booking.ErrNotFound
	}
	t.s.st.transitions = append(t.s.st.transitions, Transition{BookingID: bookingID, From: b.Status, To: status})
	b.Status = status
	b.UpdatedAt = t.s.now()
	t.s.st.bookings[bookingID] = b
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	return r.s.atomically(func() error {
		if err := r.s.fail("user.create"); err != nil {
			return err
		}
		for _, existing := range r.s.st.users {
			if existing.Username == u.Username {
				return user.ErrUsernameTaken
			}
		}
		u.CreatedAt = r.s.now()
		r.s.st.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) List(_ context.Context, f user.UserFilter) ([]*user.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*user.User
	for _, u := range r.s.st.users {
		if f.Username != "" && !containsFold(u.Username, f.Username) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		matched = append(matched, &u)
	}
	slices.SortFunc(matched, func(a, b *user.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	start, end := page(len(matched), f.Page, f.PageSize)
	return matched[start:end], len(matched), nil
}
