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

type Team struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	AdminID   int64     `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
}

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, teamID int64) (*Team, error)
	GetByName(ctx context.Context, name string) (*Team, error)
	ListByAdmin(ctx context.Context, adminID int64) ([]*Team, error)
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

// Create inserts a team and sets team.ID and team.CreatedAt. Team names are
// unique per owning admin; a duplicate maps to ErrAlreadyExists.
func (p *pgxTeamRepository) Create(ctx context.Context, team *Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("teams", "name", "admin_id"),
		im.Values(psql.Arg(team.Name), psql.Arg(team.AdminID)),
		im.Returning("id", "created_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&team.ID, &team.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxTeamRepository) Get(ctx context.Context, teamID int64) (*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "admin_id", "created_at"),
		sm.From("teams"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return p.scanOne(ctx, e, sql, args)
}

func (p *pgxTeamRepository) GetByName(ctx context.Context, name string) (*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "admin_id", "created_at"),
		sm.From("teams"),
		sm.Where(psql.Quote("name").EQ(psql.Arg(name))),
		sm.OrderBy("id"),
		sm.Limit(1),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return p.scanOne(ctx, e, sql, args)
}

func (p *pgxTeamRepository) ListByAdmin(ctx context.Context, adminID int64) ([]*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "admin_id", "created_at"),
		sm.From("teams"),
		sm.Where(psql.Quote("admin_id").EQ(psql.Arg(adminID))),
		sm.OrderBy("id"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Team, error) {
		team := &Team{}
		if err = row.Scan(&team.ID, &team.Name, &team.AdminID, &team.CreatedAt); err != nil {
			return nil, err
		}
		return team, nil
	})
	if err != nil {
		return nil, err
	}

	return teams, nil
}

func (p *pgxTeamRepository) scanOne(ctx context.Context, e db.Executor, sql string, args []any) (*Team, error) {
	team := &Team{}
	if err := e.QueryRow(ctx, sql, args...).Scan(&team.ID, &team.Name, &team.AdminID, &team.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return team, nil
}
