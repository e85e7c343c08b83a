package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rollcall-dev/rollcall/internal/db"
	"github.com/rollcall-dev/rollcall/internal/model"
	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

// DefaultPosition is the role assigned to members added without an explicit
// position.
const DefaultPosition = "Default"

// RegistryService owns team creation and membership.
type RegistryService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	members repository.MemberRepository
}

func NewRegistryService(tx db.Transactor) *RegistryService {
	return &RegistryService{tx: tx}
}

// CreateTeam inserts a team owned by the admin and returns its id. Names are
// unique per owner.
func (s *RegistryService) CreateTeam(ctx context.Context, adminID int64, name string) (int64, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating team", zap.Int64("admin_id", adminID), zap.String("team_name", name))

	team := &repository.Team{
		Name:    name,
		AdminID: adminID,
	}

	err := s.teams.Create(ctx, team)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("team already exists", zap.Int64("admin_id", adminID), zap.String("team_name", name))
		return 0, NewError(ErrorCodeTeamExists, "team_name already exists for this admin")
	}
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", name), zap.Error(err))
		return 0, NewError(ErrorCodeUnspecified, "failed to create team")
	}

	return team.ID, nil
}

// AddMember adds a member to an existing team. The team lookup and the insert
// run in one transaction so the membership cannot land on a team that
// disappeared between the two.
func (s *RegistryService) AddMember(ctx context.Context, teamID int64, platformID, displayName string) *Error {
	l := logger.FromContext(ctx)
	l.Info("adding member", zap.Int64("team_id", teamID), zap.String("platform_id", platformID))

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		_, err := s.teams.Get(txCtx, teamID)
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("team not found", zap.Int64("team_id", teamID))
			return NewError(ErrorCodeNotFound, "team not found")
		}
		if err != nil {
			l.Error("failed to get team", zap.Int64("team_id", teamID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get team")
		}

		err = s.members.Create(txCtx, &repository.Member{
			TeamID:      teamID,
			PlatformID:  platformID,
			DisplayName: displayName,
			Position:    DefaultPosition,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("member already in team", zap.Int64("team_id", teamID), zap.String("platform_id", platformID))
			return NewError(ErrorCodeMemberExists, "member already in team")
		}
		if err != nil {
			l.Error("failed to add member", zap.Int64("team_id", teamID), zap.String("platform_id", platformID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to add member")
		}

		return nil
	})
	if err != nil {
		var res *Error
		if errors.As(err, &res) {
			return res
		}
		// Begin or commit failed; nothing was persisted.
		l.Error("transaction failed", zap.Int64("team_id", teamID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to add member")
	}

	return nil
}

// ListTeamsByAdmin returns the admin's teams in creation order, possibly
// empty.
func (s *RegistryService) ListTeamsByAdmin(ctx context.Context, adminID int64) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("listing teams", zap.Int64("admin_id", adminID))

	teamsRepo, err := s.teams.ListByAdmin(ctx, adminID)
	if err != nil {
		l.Error("failed to list teams", zap.Int64("admin_id", adminID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
	}

	teams := make([]*model.Team, 0, len(teamsRepo))
	for _, team := range teamsRepo {
		teams = append(teams, &model.Team{
			ID:        team.ID,
			Name:      team.Name,
			AdminID:   team.AdminID,
			CreatedAt: team.CreatedAt,
		})
	}

	return teams, nil
}

// ListMembers returns the members of a team, possibly empty.
func (s *RegistryService) ListMembers(ctx context.Context, teamID int64) ([]*model.Member, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("listing members", zap.Int64("team_id", teamID))

	membersRepo, err := s.members.ListByTeam(ctx, teamID)
	if err != nil {
		l.Error("failed to list members", zap.Int64("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list members")
	}

	members := make([]*model.Member, 0, len(membersRepo))
	for _, member := range membersRepo {
		members = append(members, &model.Member{
			ID:          member.ID,
			TeamID:      member.TeamID,
			PlatformID:  member.PlatformID,
			DisplayName: member.DisplayName,
			Position:    member.Position,
			JoinDate:    member.JoinDate,
		})
	}

	return members, nil
}

// GetTeamByName resolves a team by name for the adapters.
func (s *RegistryService) GetTeamByName(ctx context.Context, name string) (*model.Team, *Error) {
	team, err := s.teams.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get team", zap.String("team_name", name), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	return &model.Team{
		ID:        team.ID,
		Name:      team.Name,
		AdminID:   team.AdminID,
		CreatedAt: team.CreatedAt,
	}, nil
}

// GetMemberByPlatformID resolves a member by external platform identity for
// the adapters.
func (s *RegistryService) GetMemberByPlatformID(ctx context.Context, platformID string) (*model.Member, *Error) {
	member, err := s.members.GetByPlatformID(ctx, platformID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "member not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get member", zap.String("platform_id", platformID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get member")
	}

	return &model.Member{
		ID:          member.ID,
		TeamID:      member.TeamID,
		PlatformID:  member.PlatformID,
		DisplayName: member.DisplayName,
		Position:    member.Position,
		JoinDate:    member.JoinDate,
	}, nil
}

func (s *RegistryService) WithTeamRepo(r repository.TeamRepository) *RegistryService {
	s.teams = r
	return s
}

func (s *RegistryService) WithMemberRepo(r repository.MemberRepository) *RegistryService {
	s.members = r
	return s
}
