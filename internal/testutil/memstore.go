// Package testutil provides an in-memory store that satisfies the class,
// booking and user repositories for unit tests.
//
// Transactions are serialised by a single mutex and roll back to a snapshot
// when the callback fails, which mirrors the atomicity the services rely on.
package testutil

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
)

// Transition is a committed status change.
type Transition struct {
	BookingID string
	From, To  booking.Status
}

type state struct {
	users       map[string]user.User
	classes     map[string]class.Class
	classOrder  []string
	bookings    map[string]booking.Booking
	bookOrder   []string
	transitions []Transition
}

func (st *state) clone() state {
	cp := state{
		users:       make(map[string]user.User, len(st.users)),
		classes:     make(map[string]class.Class, len(st.classes)),
		classOrder:  slices.Clone(st.classOrder),
		bookings:    make(map[string]booking.Booking, len(st.bookings)),
		bookOrder:   slices.Clone(st.bookOrder),
		transitions: slices.Clone(st.transitions),
	}
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.classes {
		cp.classes[k] = v
	}
	for k, v := range st.bookings {
		cp.bookings[k] = v
	}
	return cp
}

// Store is a goroutine-safe in-memory database.
type Store struct {
	mu    sync.Mutex
	st    state
	fails map[string]error
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: state{
			users:    map[string]user.User{},
			classes:  map[string]class.Class{},
			bookings: map[string]booking.Booking{},
		},
		fails: map[string]error{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes the next call reaching point return err. Points are
// "class.create", "class.delete", "booking.create", "booking.update",
// "booking.count" and "user.create".
func (s *Store) FailOn(point string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[point] = err
}

func (s *Store) fail(point string) error {
	if err, ok := s.fails[point]; ok {
		delete(s.fails, point)
		return err
	}
	return nil
}

// Atomically runs fn under the store lock and restores the previous state if
// fn returns an error.
func (s *Store) atomically(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Transitions returns every committed status change in order.
func (s *Store) Transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.transitions)
}

// AllBookings returns a copy of every stored booking in insertion order.
func (s *Store) AllBookings() []booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]booking.Booking, 0, len(s.st.bookOrder))
	for _, id := range s.st.bookOrder {
		out = append(out, s.st.bookings[id])
	}
	return out
}

// HasClass reports whether a class record exists.
func (s *Store) HasClass(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.st.classes[id]
	return ok
}

// PutUser inserts u directly, bypassing validation.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.st.users[u.ID] = u
}

// PutClass inserts c directly, bypassing validation.
func (s *Store) PutClass(c class.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if _, ok := s.st.classes[c.ID]; !ok {
		s.st.classOrder = append(s.st.classOrder, c.ID)
	}
	s.st.classes[c.ID] = c
}

// PutBooking inserts b directly, bypassing the lifecycle rules.
func (s *Store) PutBooking(b booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	if _, ok := s.st.bookings[b.ID]; !ok {
		s.st.bookOrder = append(s.st.bookOrder, b.ID)
	}
	s.st.bookings[b.ID] = b
}

// Classes returns a class.Repository view of the store.
func (s *Store) Classes() class.Repository { return &classRepo{s} }

// Bookings returns a booking.Repository view of the store.
func (s *Store) Bookings() booking.Repository { return &bookingRepo{s} }

// Users returns a user.Repository view of the store.
func (s *Store) Users() user.Repository { return &userRepo{s} }

// Helpers below expect s.mu to be held.

func (s *Store) countConfirmed(classID string) int {
	n := 0
	for _, b := range s.st.bookings {
		if b.ClassID == classID && b.Status == booking.StatusConfirmed {
			n++
		}
	}
	return n
}

func (s *Store) hasActive(userID, classID string) bool {
	for _, b := range s.st.bookings {
		if b.UserID == userID && b.ClassID == classID && b.Status.Active() {
			return true
		}
	}
	return false
}

// view joins b with its user and class names.
func (s *Store) view(b booking.Booking) *booking.Booking {
	b.UserName = s.st.users[b.UserID].Username
	if c, ok := s.st.classes[b.ClassID]; ok {
		b.ClassName = c.Name
	}
	return &b
}

func page(n, pageNum, size int) (int, int) {
	if pageNum < 1 {
		pageNum = 1
	}
	if size < 1 {
		size = 20
	}
	start := min((pageNum-1)*size, n)
	return start, min(start+size, n)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
