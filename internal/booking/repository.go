package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/db"
)

type Repository interface {
	// WithinTx runs fn in one transaction. Any error returned by fn rolls the
	// transaction back. Store-level concurrency failures come back as
	// ErrTxConflict.
	WithinTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	CountConfirmed(ctx context.Context, classID string) (int, error)
	CountConfirmedByClass(ctx context.Context, classIDs []string) (map[string]int, error)
}

// TxRepository is the view of the store available inside WithinTx.
// Locks taken through it are held until the transaction ends. Callers lock a
// class before any booking of that class.
type TxRepository interface {
	// LockClass loads and exclusively locks a class row. ErrClassNotFound if absent.
	LockClass(ctx context.Context, classID string) (*class.Class, error)
	CountConfirmed(ctx context.Context, classID string) (int, error)
	HasActive(ctx context.Context, userID, classID string) (bool, error)
	Create(ctx context.Context, b *Booking) error

	// ClassOf returns the class id of a booking without locking it.
	// ErrNotFound if the booking does not exist.
	ClassOf(ctx context.Context, bookingID string) (string, error)
	// LockBooking loads and locks a booking. ErrNotFound if absent.
	LockBooking(ctx context.Context, bookingID string) (*Booking, error)
	// LockActiveOwned loads and locks a pending or confirmed booking owned by
	// userID. ErrNotFound covers absent, foreign and inactive bookings alike.
	LockActiveOwned(ctx context.Context, bookingID, userID string) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, status Status) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.user_id", "u.username", "COALESCE(b.class_id::text, '')", "COALESCE(c.name, '')",
	"b.status", "b.created_at", "b.updated_at",
}

func bookingSelect(extra ...string) squirrel.SelectBuilder {
	return psql.Select(append(bookingColumns, extra...)...).
		From("public.bookings b").
		Join("public.users u ON b.user_id = u.id").
		LeftJoin("public.classes c ON b.class_id = c.id")
}

func (r *pgxRepository) WithinTx(ctx context.Context, fn func(tx TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgxTx{tx: tx})
	})
	if err != nil && db.IsTxConflict(err) {
		return ErrTxConflict.WithCause(err)
	}
	return err
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := bookingSelect().
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.UserName, &b.ClassID, &b.ClassName,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := bookingSelect("count(*) OVER() as total_count")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.ClassID != "" {
		query = query.Where(squirrel.Eq{"b.class_id": filter.ClassID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("b.created_at DESC", "b.id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.UserName, &b.ClassID, &b.ClassName,
			&b.Status, &b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) CountConfirmed(ctx context.Context, classID string) (int, error) {
	return countConfirmed(ctx, r.pool, classID)
}

func (r *pgxRepository) CountConfirmedByClass(ctx context.Context, classIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(classIDs))
	if len(classIDs) == 0 {
		return counts, nil
	}

	query, args, err := psql.Select("class_id::text", "count(*)").
		From("public.bookings").
		Where(squirrel.Eq{"class_id": classIDs, "status": StatusConfirmed}).
		GroupBy("class_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count confirmed query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count confirmed bookings failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan confirmed count failed: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed counts failed: %w", err)
	}
	return counts, nil
}

func countConfirmed(ctx context.Context, q db.Querier, classID string) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("public.bookings").
		Where(squirrel.Eq{"class_id": classID, "status": StatusConfirmed}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count confirmed query failed: %w", err)
	}

	var n int
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		if db.IsInvalidText(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count confirmed bookings failed: %w", err)
	}
	return n, nil
}

// pgxTx implements TxRepository on top of a live pgx transaction.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) LockClass(ctx context.Context, classID string) (*class.Class, error) {
	query, args, err := psql.Select("id", "name", "time_label", "capacity", "price", "trainer", "created_at").
		From("public.classes").
		Where(squirrel.Eq{"id": classID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock class query failed: %w", err)
	}

	var c class.Class
	if err := t.tx.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.Time, &c.Capacity, &c.Price, &c.Trainer, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("lock class failed: %w", err)
	}
	return &c, nil
}

func (t *pgxTx) CountConfirmed(ctx context.Context, classID string) (int, error) {
	return countConfirmed(ctx, t.tx, classID)
}

func (t *pgxTx) HasActive(ctx context.Context, userID, classID string) (bool, error) {
	sub, args, err := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{
			"user_id":  userID,
			"class_id": classID,
			"status":   []Status{StatusPending, StatusConfirmed},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build active booking query failed: %w", err)
	}

	var exists bool
	if err := t.tx.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active booking failed: %w", err)
	}
	return exists, nil
}

func (t *pgxTx) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns("id", "user_id", "class_id", "status", "created_at", "updated_at").
		Values(b.ID, b.UserID, b.ClassID, b.Status, b.CreatedAt, b.CreatedAt).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := t.tx.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err, db.ActiveBookingIndex) {
			return ErrAlreadyBooked
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (t *pgxTx) ClassOf(ctx context.Context, bookingID string) (string, error) {
	query, args, err := psql.Select("COALESCE(class_id::text, '')").
		From("public.bookings").
		Where(squirrel.Eq{"id": bookingID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build booking class query failed: %w", err)
	}

	var classID string
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&classID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get booking class failed: %w", err)
	}
	return classID, nil
}

func (t *pgxTx) LockBooking(ctx context.Context, bookingID string) (*Booking, error) {
	return t.lockOne(ctx, squirrel.Eq{"b.id": bookingID})
}

func (t *pgxTx) LockActiveOwned(ctx context.Context, bookingID, userID string) (*Booking, error) {
	return t.lockOne(ctx, squirrel.Eq{
		"b.id":      bookingID,
		"b.user_id": userID,
		"b.status":  []Status{StatusPending, StatusConfirmed},
	})
}

func (t *pgxTx) lockOne(ctx context.Context, where squirrel.Eq) (*Booking, error) {
	query, args, err := bookingSelect().
		Where(where).
		Suffix("FOR UPDATE OF b").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock booking query failed: %w", err)
	}

	var b Booking
	if err := t.tx.QueryRow(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.UserName, &b.ClassID, &b.ClassName,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock booking failed: %w", err)
	}
	return &b, nil
}

func (t *pgxTx) UpdateStatus(ctx context.Context, bookingID string, status Status) error {
	query, args, err := psql.Update("public.bookings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": bookingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	ct, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
