package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/class-booking-backend/internal/testutil"
)

type fixture struct {
	store *testutil.Store
	svc   booking.Service
	admin *access.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore()
	return &fixture{
		store: store,
		svc:   booking.NewService(store.Bookings()),
		admin: store.SeedUser("root", access.RoleAdmin),
	}
}

func (f *fixture) confirmed(t *testing.T, classID string) int {
	t.Helper()
	n, err := f.svc.ConfirmedCount(context.Background(), classID)
	require.NoError(t, err)
	return n
}

func TestCreate_Pending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 2)

	b, err := f.svc.Create(ctx, u1, c.ID)

	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, u1.ID, b.UserID)
	assert.Equal(t, c.ID, b.ClassID)
	assert.Equal(t, "Yoga", b.ClassName)
	assert.NotEmpty(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, 0, f.confirmed(t, c.ID), "pending bookings do not count")
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 1)

	_, err := f.svc.Create(ctx, nil, c.ID)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	_, err = f.svc.Create(ctx, f.admin, c.ID)
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.svc.Create(ctx, u1, "missing")
	assert.ErrorIs(t, err, booking.ErrClassNotFound)

	assert.Empty(t, f.store.AllBookings())
}

func TestCreate_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 1)
	f.store.FailOn("booking.create", errors.New("connection reset"))

	_, err := f.svc.Create(context.Background(), u1, c.ID)

	assert.Equal(t, apperror.KindStorageFailure, apperror.KindOf(err))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
	assert.Empty(t, f.store.AllBookings())
}

// Approval moves a pending booking into the confirmed count.
func TestCreateApprove_CountsConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 2)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	decided, err := f.svc.Decide(ctx, f.admin, b.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, decided.Status)
	assert.Equal(t, "Yoga", decided.ClassName)
	assert.Equal(t, 1, f.confirmed(t, c.ID))
}

// A second approval on a single-seat class is refused.
func TestApprove_FullClassConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	u2 := f.store.SeedUser("bob", access.RoleUser)
	c := f.store.SeedClass("Spin", 1)

	first, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, u2, c.ID)
	require.NoError(t, err, "pending bookings leave room for more requests")

	_, err = f.svc.Decide(ctx, f.admin, first.ID, "approve")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, f.admin, second.ID, "approve")
	assert.ErrorIs(t, err, booking.ErrClassFull)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	got, err := f.store.Bookings().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, 1, f.confirmed(t, c.ID))
}

func TestCreate_FullClassConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	u2 := f.store.SeedUser("bob", access.RoleUser)
	c := f.store.SeedClass("Spin", 1)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.admin, b.ID, "approve")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, u2, c.ID)
	assert.ErrorIs(t, err, booking.ErrClassFull)
}

// A user holds at most one active booking per class.
func TestCreate_DuplicateActiveConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 5)

	first, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, u1, c.ID)
	assert.ErrorIs(t, err, booking.ErrAlreadyBooked)

	_, err = f.svc.Decide(ctx, f.admin, first.ID, "approve")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, u1, c.ID)
	assert.ErrorIs(t, err, booking.ErrAlreadyBooked, "confirmed bookings are active too")

	_, err = f.svc.Cancel(ctx, u1, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, u1, c.ID)
	assert.NoError(t, err, "a cancelled booking frees the slot")
}

// Cancelling a confirmed booking frees its seat.
func TestCancel_FreesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	u2 := f.store.SeedUser("bob", access.RoleUser)
	c := f.store.SeedClass("Spin", 1)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.admin, b.ID, "approve")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, u2, c.ID)
	require.ErrorIs(t, err, booking.ErrClassFull)

	cancelled, err := f.svc.Cancel(ctx, u1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, f.confirmed(t, c.ID))

	_, err = f.svc.Create(ctx, u2, c.ID)
	assert.NoError(t, err)
}

func TestDecide_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 1)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	decided, err := f.svc.Decide(ctx, f.admin, b.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusRejected, decided.Status)
	assert.Equal(t, 0, f.confirmed(t, c.ID))
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 3)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	t.Run("user may not decide", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, u1, b.ID, "approve")
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("invalid action", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, f.admin, b.ID, "maybe")
		assert.ErrorIs(t, err, booking.ErrInvalidAction)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, f.admin, "missing", "approve")
		assert.ErrorIs(t, err, booking.ErrPendingNotFound)
	})

	t.Run("second decision looks absent", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, f.admin, b.ID, "approve")
		require.NoError(t, err)

		_, err = f.svc.Decide(ctx, f.admin, b.ID, "reject")
		assert.ErrorIs(t, err, booking.ErrPendingNotFound)
		_, err = f.svc.Decide(ctx, f.admin, b.ID, "approve")
		assert.ErrorIs(t, err, booking.ErrPendingNotFound)
		assert.Equal(t, 1, f.confirmed(t, c.ID))
	})
}

func TestDecide_StorageFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 3)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	f.store.FailOn("booking.update", errors.New("commit failed"))
	_, err = f.svc.Decide(ctx, f.admin, b.ID, "approve")
	assert.Equal(t, apperror.KindStorageFailure, apperror.KindOf(err))

	got, err := f.store.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)
}

func TestCancel_HidesForeignAndInactiveBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	u2 := f.store.SeedUser("bob", access.RoleUser)
	c := f.store.SeedClass("Yoga", 3)

	b, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, u2, b.ID)
	assert.ErrorIs(t, err, booking.ErrActiveNotFound)

	_, err = f.svc.Cancel(ctx, u1, "missing")
	assert.ErrorIs(t, err, booking.ErrActiveNotFound)

	_, err = f.svc.Cancel(ctx, f.admin, b.ID)
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.svc.Cancel(ctx, u1, b.ID)
	require.NoError(t, err, "pending bookings can be cancelled")

	_, err = f.svc.Cancel(ctx, u1, b.ID)
	assert.ErrorIs(t, err, booking.ErrActiveNotFound, "cancelled is absorbing")

	rejected, err := f.svc.Create(ctx, u1, c.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.admin, rejected.ID, "reject")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, u1, rejected.ID)
	assert.ErrorIs(t, err, booking.ErrActiveNotFound, "rejected is absorbing")
}

func TestList_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	u2 := f.store.SeedUser("bob", access.RoleUser)
	yoga := f.store.SeedClass("Yoga", 3)
	spin := f.store.SeedClass("Spin", 3)

	for _, p := range []*access.Principal{u1, u2} {
		for _, c := range []string{yoga.ID, spin.ID} {
			_, err := f.svc.Create(ctx, p, c)
			require.NoError(t, err)
		}
	}

	own, total, err := f.svc.List(ctx, u1, booking.Filter{UserID: u2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, b := range own {
		assert.Equal(t, u1.ID, b.UserID, "users only ever see their own bookings")
		assert.Equal(t, "alice", b.UserName)
	}

	all, total, err := f.svc.List(ctx, f.admin, booking.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	_, total, err = f.svc.List(ctx, f.admin, booking.Filter{ClassID: spin.ID, Status: booking.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	paged, total, err := f.svc.List(ctx, f.admin, booking.Filter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, paged, 1)

	_, _, err = f.svc.List(ctx, f.admin, booking.Filter{Status: "approved"})
	assert.ErrorIs(t, err, booking.ErrInvalidStatus)

	_, _, err = f.svc.List(ctx, nil, booking.Filter{})
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

// Two users race for the last seat and an admin approves both concurrently.
func TestConcurrentCreateAndApprove_NeverOverbooks(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		c := f.store.SeedClass("Spin", 1)
		users := []*access.Principal{
			f.store.SeedUser("alice", access.RoleUser),
			f.store.SeedUser("bob", access.RoleUser),
		}

		ids := make([]string, len(users))
		var wg sync.WaitGroup
		for i, u := range users {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b, err := f.svc.Create(ctx, u, c.ID)
				if assert.NoError(t, err) {
					ids[i] = b.ID
				}
			}()
		}
		wg.Wait()

		errs := make([]error, len(ids))
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.svc.Decide(ctx, f.admin, id, "approve")
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, booking.ErrClassFull)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, f.confirmed(t, c.ID))
	}
}

func TestConcurrentCreate_SameUserOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("alice", access.RoleUser)
	c := f.store.SeedClass("Yoga", 10)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, u1, c.ID)
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, booking.ErrAlreadyBooked)
	}
	assert.Equal(t, 1, created)
}

// Drives a mixed sequence of operations and checks the invariants after each step.
func TestInvariantsHoldAcrossOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.store.SeedClass("Box", 2)

	var users []*access.Principal
	for _, name := range []string{"a", "b", "c", "d"} {
		users = append(users, f.store.SeedUser(name, access.RoleUser))
	}

	check := func() {
		t.Helper()
		assert.LessOrEqual(t, f.confirmed(t, c.ID), c.Capacity)
		active := map[string]int{}
		for _, b := range f.store.AllBookings() {
			if b.Status.Active() {
				active[b.UserID+"/"+b.ClassID]++
			}
		}
		for key, n := range active {
			assert.Equal(t, 1, n, "duplicate active booking for %s", key)
		}
	}

	var ids []string
	for round := 0; round < 3; round++ {
		for _, u := range users {
			if b, err := f.svc.Create(ctx, u, c.ID); err == nil {
				ids = append(ids, b.ID)
			}
			check()
		}
		for i, id := range ids {
			action := "approve"
			if i%3 == 2 {
				action = "reject"
			}
			_, _ = f.svc.Decide(ctx, f.admin, id, action)
			check()
		}
		for _, u := range users[:2] {
			for _, id := range ids {
				_, _ = f.svc.Cancel(ctx, u, id)
			}
			check()
		}
	}

	for _, tr := range f.store.Transitions() {
		assert.True(t, tr.From.CanTransitionTo(tr.To), "illegal transition %s -> %s", tr.From, tr.To)
	}
	for _, b := range f.store.AllBookings() {
		assert.Contains(t, []booking.Status{
			booking.StatusPending, booking.StatusConfirmed, booking.StatusRejected, booking.StatusCancelled,
		}, b.Status)
	}
}
