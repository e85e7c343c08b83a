package command

import (
	"context"

	"github.com/rollcall-dev/rollcall/internal/model"
	"github.com/rollcall-dev/rollcall/internal/service"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

// Result carries the structured outcome of a command. Rendering it as chat
// text or a table is the transport's job.
type Result struct {
	Token   string                 `json:"token,omitempty"`
	Teams   []*model.Team          `json:"teams,omitempty"`
	Members []*model.Member        `json:"members,omitempty"`
	Rows    []*model.AttendanceRow `json:"rows,omitempty"`
}

type Dispatcher struct {
	identity   *service.IdentityService
	registry   *service.RegistryService
	attendance *service.AttendanceService
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch resolves the caller and any referenced entities and invokes the
// matching service operation. callerPlatformID is the chat identity of the
// message author.
func (d *Dispatcher) Dispatch(ctx context.Context, callerPlatformID string, cmd *Command) (*Result, *service.Error) {
	l := logger.FromContext(ctx)
	l.Info("dispatching command",
		zap.String("kind", string(cmd.Kind)),
		zap.String("caller", callerPlatformID))

	switch cmd.Kind {
	case KindRegisterAdmin:
		if err := d.identity.Register(ctx, callerPlatformID, cmd.DisplayName, cmd.Password); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case KindLogin:
		ok, err := d.identity.Authenticate(ctx, callerPlatformID, cmd.Password)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, service.NewError(service.ErrorCodeInvalidCredentials, "invalid credentials")
		}
		token, err := d.identity.IssueToken(ctx, callerPlatformID)
		if err != nil {
			return nil, err
		}
		return &Result{Token: token}, nil

	case KindCreateTeam:
		admin, err := d.identity.GetAdmin(ctx, callerPlatformID)
		if err != nil {
			return nil, err
		}
		if _, err = d.registry.CreateTeam(ctx, admin.ID, cmd.TeamName); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case KindAddMember:
		team, err := d.registry.GetTeamByName(ctx, cmd.TeamName)
		if err != nil {
			return nil, err
		}
		if err = d.registry.AddMember(ctx, team.ID, cmd.PlatformID, cmd.DisplayName); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case KindListTeams:
		admin, err := d.identity.GetAdmin(ctx, callerPlatformID)
		if err != nil {
			return nil, err
		}
		teams, err := d.registry.ListTeamsByAdmin(ctx, admin.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Teams: teams}, nil

	case KindListMembers:
		team, err := d.registry.GetTeamByName(ctx, cmd.TeamName)
		if err != nil {
			return nil, err
		}
		members, err := d.registry.ListMembers(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Members: members}, nil

	case KindCheckIn:
		member, err := d.registry.GetMemberByPlatformID(ctx, callerPlatformID)
		if err != nil {
			return nil, err
		}
		team, err := d.registry.GetTeamByName(ctx, cmd.TeamName)
		if err != nil {
			return nil, err
		}
		if err = d.attendance.CheckIn(ctx, member.ID, team.ID, cmd.Status); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case KindCheckOut:
		member, err := d.registry.GetMemberByPlatformID(ctx, callerPlatformID)
		if err != nil {
			return nil, err
		}
		if err = d.attendance.CheckOut(ctx, member.ID); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case KindReport:
		rows, err := d.attendance.Report(ctx, cmd.TeamName)
		if err != nil {
			return nil, err
		}
		return &Result{Rows: rows}, nil

	default:
		return nil, service.NewError(service.ErrorCodeInvalidBody, "unknown command")
	}
}

func (d *Dispatcher) WithIdentityService(s *service.IdentityService) *Dispatcher {
	d.identity = s
	return d
}

func (d *Dispatcher) WithRegistryService(s *service.RegistryService) *Dispatcher {
	d.registry = s
	return d
}

func (d *Dispatcher) WithAttendanceService(s *service.AttendanceService) *Dispatcher {
	d.attendance = s
	return d
}
