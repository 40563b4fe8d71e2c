package class

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/class-booking-backend/internal/db"
)

// Repository defines methods for accessing class data from storage.
type Repository interface {
	Create(ctx context.Context, c *Class) error
	GetByID(ctx context.Context, id string) (*Class, error)
	List(ctx context.Context) ([]*Class, error)

	// DeleteCascade cancels every booking of the class and deletes the class
	// in one transaction. It returns the number of bookings it cancelled.
	DeleteCascade(ctx context.Context, id string) (int64, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var classColumns = []string{"id", "name", "time_label", "capacity", "price", "trainer", "created_at"}

func scanClass(row pgx.Row) (*Class, error) {
	var c Class
	if err := row.Scan(&c.ID, &c.Name, &c.Time, &c.Capacity, &c.Price, &c.Trainer, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgxRepository) Create(ctx context.Context, c *Class) error {
	query, args, err := psql.Insert("public.classes").
		Columns("id", "name", "time_label", "capacity", "price", "trainer").
		Values(c.ID, c.Name, c.Time, c.Capacity, c.Price, c.Trainer).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create class query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&c.CreatedAt); err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateClassID
		}
		return fmt.Errorf("create class failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Class, error) {
	query, args, err := psql.Select(classColumns...).
		From("public.classes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get class query failed: %w", err)
	}

	c, err := scanClass(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get class failed: %w", err)
	}
	return c, nil
}

func (r *pgxRepository) List(ctx context.Context) ([]*Class, error) {
	query, args, err := psql.Select(classColumns...).
		From("public.classes").
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list classes query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list classes failed: %w", err)
	}
	defer rows.Close()

	var classes []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class failed: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes failed: %w", err)
	}
	return classes, nil
}

func (r *pgxRepository) DeleteCascade(ctx context.Context, id string) (int64, error) {
	var cancelled int64

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the class so no booking can be created or approved meanwhile.
		lockSQL, lockArgs, err := psql.Select("id").
			From("public.classes").
			Where(squirrel.Eq{"id": id}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("build lock class query failed: %w", err)
		}
		var locked string
		if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock class failed: %w", err)
		}

		cancelSQL, cancelArgs, err := psql.Update("public.bookings").
			Set("status", "cancelled").
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"class_id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build cancel bookings query failed: %w", err)
		}
		ct, err := tx.Exec(ctx, cancelSQL, cancelArgs...)
		if err != nil {
			return fmt.Errorf("cancel class bookings failed: %w", err)
		}
		cancelled = ct.RowsAffected()

		deleteSQL, deleteArgs, err := psql.Delete("public.classes").
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete class query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteSQL, deleteArgs...); err != nil {
			return fmt.Errorf("delete class failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}
