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
	"github.com/stephenafamo/bob/dialect/psql/um"
)

type Session struct {
	ID           int64      `db:"id"`
	TeamID       int64      `db:"team_id"`
	MemberID     int64      `db:"member_id"`
	Date         time.Time  `db:"date"`
	CheckInTime  time.Time  `db:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time"`
	Status       string     `db:"status"`
}

// ReportRow is the raw join of a session with its member, before the service
// applies the "N/A" projection.
type ReportRow struct {
	Username     *string    `db:"platform_id"`
	CheckInTime  *time.Time `db:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time"`
	Status       *string    `db:"status"`
}

type AttendanceRepository interface {
	CheckIn(ctx context.Context, session *Session) error
	CheckOut(ctx context.Context, memberID int64, at time.Time) (remaining int64, err error)
	ListByTeam(ctx context.Context, teamID int64) ([]*ReportRow, error)
}

type pgxAttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewPgxAttendanceRepository(pool *pgxpool.Pool) AttendanceRepository {
	return &pgxAttendanceRepository{pool: pool}
}

// CheckIn inserts an open session and sets session.ID. The partial unique
// index on (member_id) WHERE check_out_time IS NULL turns a concurrent second
// check-in into a 23505, reported as ErrAlreadyExists. Single round trip, no
// read-then-insert race.
func (p *pgxAttendanceRepository) CheckIn(ctx context.Context, session *Session) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("member_attendance", "team_id", "member_id", "date", "check_in_time", "status"),
		im.Values(
			psql.Arg(session.TeamID),
			psql.Arg(session.MemberID),
			psql.Arg(session.Date),
			psql.Arg(session.CheckInTime),
			psql.Arg(session.Status),
		),
		im.Returning("id"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&session.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

// CheckOut closes the earliest open session of the member. ErrNotFound means
// there was no open session. remaining is the number of open sessions still
// left afterwards; anything above zero is an invariant breach the caller is
// expected to report, not repair.
func (p *pgxAttendanceRepository) CheckOut(ctx context.Context, memberID int64, at time.Time) (int64, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("member_attendance"),
		um.SetCol("check_out_time").ToArg(at),
		um.Where(psql.Quote("id").EQ(
			psql.Select(
				sm.Columns("id"),
				sm.From("member_attendance"),
				sm.Where(psql.Quote("member_id").EQ(psql.Arg(memberID))),
				sm.Where(psql.Quote("check_out_time").IsNull()),
				sm.OrderBy("check_in_time"),
				sm.Limit(1),
			),
		)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	return p.countOpen(ctx, e, memberID)
}

func (p *pgxAttendanceRepository) countOpen(ctx context.Context, e db.Executor, memberID int64) (int64, error) {
	q := psql.Select(
		sm.Columns("count(*)"),
		sm.From("member_attendance"),
		sm.Where(psql.Quote("member_id").EQ(psql.Arg(memberID))),
		sm.Where(psql.Quote("check_out_time").IsNull()),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	var open int64
	if err = e.QueryRow(ctx, sql, args...).Scan(&open); err != nil {
		return 0, err
	}
	return open, nil
}

func (p *pgxAttendanceRepository) ListByTeam(ctx context.Context, teamID int64) ([]*ReportRow, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("members.platform_id", "member_attendance.check_in_time", "member_attendance.check_out_time", "member_attendance.status"),
		sm.From("member_attendance"),
		sm.LeftJoin("members").On(psql.Quote("member_attendance", "member_id").EQ(psql.Quote("members", "id"))),
		sm.Where(psql.Quote("member_attendance", "team_id").EQ(psql.Arg(teamID))),
		sm.OrderBy("member_attendance.check_in_time"),
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

	report, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ReportRow, error) {
		r := &ReportRow{}
		if err = row.Scan(&r.Username, &r.CheckInTime, &r.CheckOutTime, &r.Status); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}
