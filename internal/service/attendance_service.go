package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rollcall-dev/rollcall/internal/db"
	"github.com/rollcall-dev/rollcall/internal/model"
	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

// notAvailable is the sentinel rendered for absent optional report fields.
const notAvailable = "N/A"

const reportTimeLayout = "2006-01-02 15:04:05"

// AttendanceService tracks check-in/check-out sessions. Per member the state
// machine is NoOpenSession <-> CheckedIn; the store's partial unique index
// keeps the CheckedIn state unique under concurrency.
type AttendanceService struct {
	tx db.Transactor

	teams    repository.TeamRepository
	members  repository.MemberRepository
	sessions repository.AttendanceRepository

	now func() time.Time
}

func NewAttendanceService(tx db.Transactor) *AttendanceService {
	return &AttendanceService{
		tx:  tx,
		now: time.Now,
	}
}

// CheckIn opens a session for the member in the team. Member and team are
// validated inside the same transaction as the insert, so a failed validation
// leaves no attendance row behind. A second open session is rejected by the
// store, not by a racy pre-check.
func (s *AttendanceService) CheckIn(ctx context.Context, memberID, teamID int64, status string) *Error {
	l := logger.FromContext(ctx)
	l.Info("checking in",
		zap.Int64("member_id", memberID),
		zap.Int64("team_id", teamID),
		zap.String("status", status))

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.members.Get(txCtx, memberID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				l.Warn("member not found", zap.Int64("member_id", memberID))
				return NewError(ErrorCodeNotFound, "member not found")
			}
			l.Error("failed to get member", zap.Int64("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get member")
		}

		if _, err := s.teams.Get(txCtx, teamID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				l.Warn("team not found", zap.Int64("team_id", teamID))
				return NewError(ErrorCodeNotFound, "team not found")
			}
			l.Error("failed to get team", zap.Int64("team_id", teamID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get team")
		}

		now := s.now().UTC()
		err := s.sessions.CheckIn(txCtx, &repository.Session{
			TeamID:      teamID,
			MemberID:    memberID,
			Date:        now.Truncate(24 * time.Hour),
			CheckInTime: now,
			Status:      status,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("open session already exists", zap.Int64("member_id", memberID))
			return NewError(ErrorCodeSessionOpen, "member already has an open session")
		}
		if err != nil {
			l.Error("failed to insert session", zap.Int64("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to check in")
		}

		return nil
	})
	if err != nil {
		var res *Error
		if errors.As(err, &res) {
			return res
		}
		// Begin or commit failed; nothing was persisted.
		l.Error("transaction failed", zap.Int64("member_id", memberID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to check in")
	}

	return nil
}

// CheckOut closes the member's open session. Check-out is scoped per member,
// not per team: the open-session invariant is member-global, so there is at
// most one session to close. Should the store ever hold more than one, the
// earliest is closed and the breach is logged, never silently repaired.
func (s *AttendanceService) CheckOut(ctx context.Context, memberID int64) *Error {
	l := logger.FromContext(ctx)
	l.Info("checking out", zap.Int64("member_id", memberID))

	remaining, err := s.sessions.CheckOut(ctx, memberID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("no active check-in", zap.Int64("member_id", memberID))
		return NewError(ErrorCodeNotFound, "no active check-in found")
	}
	if err != nil {
		l.Error("failed to check out", zap.Int64("member_id", memberID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to check out")
	}

	if remaining > 0 {
		l.Error("open session invariant violated, extra open sessions left untouched",
			zap.Int64("member_id", memberID),
			zap.Int64("open_sessions", remaining))
	}

	return nil
}

// Report resolves the team by name and returns one row per session, joined
// with the member's platform identity. Absent optionals render as "N/A".
func (s *AttendanceService) Report(ctx context.Context, teamName string) ([]*model.AttendanceRow, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("building attendance report", zap.String("team_name", teamName))

	team, err := s.teams.GetByName(ctx, teamName)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("team not found", zap.String("team_name", teamName))
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_name", teamName), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	rowsRepo, err := s.sessions.ListByTeam(ctx, team.ID)
	if err != nil {
		l.Error("failed to list sessions", zap.String("team_name", teamName), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to build report")
	}

	rows := make([]*model.AttendanceRow, 0, len(rowsRepo))
	for _, row := range rowsRepo {
		rows = append(rows, &model.AttendanceRow{
			Username:     stringOrNA(row.Username),
			CheckInTime:  timeOrNA(row.CheckInTime),
			CheckOutTime: timeOrNA(row.CheckOutTime),
			Status:       stringOrNA(row.Status),
		})
	}

	return rows, nil
}

func stringOrNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailable
	}
	return *s
}

func timeOrNA(t *time.Time) string {
	if t == nil {
		return notAvailable
	}
	return t.Format(reportTimeLayout)
}

func (s *AttendanceService) WithTeamRepo(r repository.TeamRepository) *AttendanceService {
	s.teams = r
	return s
}

func (s *AttendanceService) WithMemberRepo(r repository.MemberRepository) *AttendanceService {
	s.members = r
	return s
}

func (s *AttendanceService) WithAttendanceRepo(r repository.AttendanceRepository) *AttendanceService {
	s.sessions = r
	return s
}

// WithClock overrides the time source, used by tests for deterministic rows.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	if now != nil {
		s.now = now
	}
	return s
}
