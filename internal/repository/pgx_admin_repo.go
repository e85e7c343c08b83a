package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rollcall-dev/rollcall/internal/db"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
)

type Admin struct {
	ID           int64     `db:"id"`
	PlatformID   string    `db:"platform_id"`
	DisplayName  string    `db:"display_name"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByPlatformID(ctx context.Context, platformID string) (*Admin, error)
}

type pgxAdminRepository struct {
	pool *pgxpool.Pool
}

func NewPgxAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &pgxAdminRepository{pool: pool}
}

// Create inserts an admin and sets admin.ID and the timestamps. A duplicate
// platform_id surfaces as ErrAlreadyExists via the unique constraint, not a
// separate existence check.
func (p *pgxAdminRepository) Create(ctx context.Context, admin *Admin) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "platform_id", "display_name", "password_hash", "is_admin"),
		im.Values(psql.Arg(admin.PlatformID), psql.Arg(admin.DisplayName), psql.Arg(admin.PasswordHash), psql.Arg(admin.IsAdmin)),
		im.Returning("id", "created_at", "updated_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxAdminRepository) GetByPlatformID(ctx context.Context, platformID string) (*Admin, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "platform_id", "display_name", "password_hash", "is_admin", "created_at", "updated_at"),
		sm.From("users"),
		sm.Where(psql.Quote("platform_id").EQ(psql.Arg(platformID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	admin := &Admin{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&admin.ID,
		&admin.PlatformID,
		&admin.DisplayName,
		&admin.PasswordHash,
		&admin.IsAdmin,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return admin, nil
}
