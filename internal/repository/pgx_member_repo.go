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

type Member struct {
	ID          int64     `db:"id"`
	TeamID      int64     `db:"team_id"`
	PlatformID  string    `db:"platform_id"`
	DisplayName string    `db:"display_name"`
	Position    string    `db:"position"`
	JoinDate    time.Time `db:"join_date"`
}

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	Get(ctx context.Context, memberID int64) (*Member, error)
	GetByPlatformID(ctx context.Context, platformID string) (*Member, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*Member, error)
}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool}
}

// Create inserts a member and sets member.ID and member.JoinDate. A duplicate
// (team_id, platform_id) pair maps to ErrAlreadyExists.
func (p *pgxMemberRepository) Create(ctx context.Context, member *Member) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("members", "team_id", "platform_id", "display_name", "position"),
		im.Values(psql.Arg(member.TeamID), psql.Arg(member.PlatformID), psql.Arg(member.DisplayName), psql.Arg(member.Position)),
		im.Returning("id", "join_date"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&member.ID, &member.JoinDate)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxMemberRepository) Get(ctx context.Context, memberID int64) (*Member, error) {
	q := psql.Select(
		sm.Columns("id", "team_id", "platform_id", "display_name", "position", "join_date"),
		sm.From("members"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(memberID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return p.scanOne(ctx, sql, args)
}

// GetByPlatformID resolves a member by external platform identity. Members
// belong to exactly one team, so the platform id is globally resolvable.
func (p *pgxMemberRepository) GetByPlatformID(ctx context.Context, platformID string) (*Member, error) {
	q := psql.Select(
		sm.Columns("id", "team_id", "platform_id", "display_name", "position", "join_date"),
		sm.From("members"),
		sm.Where(psql.Quote("platform_id").EQ(psql.Arg(platformID))),
		sm.OrderBy("id"),
		sm.Limit(1),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return p.scanOne(ctx, sql, args)
}

func (p *pgxMemberRepository) ListByTeam(ctx context.Context, teamID int64) ([]*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "team_id", "platform_id", "display_name", "position", "join_date"),
		sm.From("members"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
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

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Member, error) {
		member := &Member{}
		if err = row.Scan(&member.ID, &member.TeamID, &member.PlatformID, &member.DisplayName, &member.Position, &member.JoinDate); err != nil {
			return nil, err
		}
		return member, nil
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (p *pgxMemberRepository) scanOne(ctx context.Context, sql string, args []any) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	member := &Member{}
	if err := e.QueryRow(ctx, sql, args...).Scan(
		&member.ID,
		&member.TeamID,
		&member.PlatformID,
		&member.DisplayName,
		&member.Position,
		&member.JoinDate,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return member, nil
}
