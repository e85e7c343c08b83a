package command

import (
	"context"
	"testing"
	"time"

	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/rollcall-dev/rollcall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// The dispatcher runs against real services backed by mocked repositories, so
// these tests cover the resolution chain from chat identity to typed calls.

func newTestDispatcher(
	adminRepo *service.MockAdminRepository,
	teamRepo *service.MockTeamRepository,
	memberRepo *service.MockMemberRepository,
	attendanceRepo *service.MockAttendanceRepository,
) *Dispatcher {
	tx := new(service.MockTransactor)

	identity := service.NewIdentityService(tx).WithAdminRepo(adminRepo)
	registry := service.NewRegistryService(tx).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo)
	attendance := service.NewAttendanceService(tx).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo).
		WithAttendanceRepo(attendanceRepo)

	return NewDispatcher().
		WithIdentityService(identity).
		WithRegistryService(registry).
		WithAttendanceService(attendance)
}

func TestDispatcher_CheckIn(t *testing.T) {
	adminRepo := new(service.MockAdminRepository)
	teamRepo := new(service.MockTeamRepository)
	memberRepo := new(service.MockMemberRepository)
	attendanceRepo := new(service.MockAttendanceRepository)

	memberRepo.On("GetByPlatformID", mock.Anything, "u42").
		Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
	teamRepo.On("GetByName", mock.Anything, "Eng").
		Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
	memberRepo.On("Get", mock.Anything, int64(5)).
		Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
	teamRepo.On("Get", mock.Anything, int64(42)).
		Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
	attendanceRepo.On("CheckIn", mock.Anything, mock.MatchedBy(func(s *repository.Session) bool {
		return s.MemberID == 5 && s.TeamID == 42 && s.Status == "Present"
	})).Return(nil)

	d := newTestDispatcher(adminRepo, teamRepo, memberRepo, attendanceRepo)

	cmd, err := Parse("check-in Eng Present")
	require.NoError(t, err)

	res, svcErr := d.Dispatch(context.Background(), "u42", cmd)
	require.Nil(t, svcErr)
	assert.NotNil(t, res)

	memberRepo.AssertExpectations(t)
	teamRepo.AssertExpectations(t)
	attendanceRepo.AssertExpectations(t)
}

func TestDispatcher_CheckIn_UnknownCaller(t *testing.T) {
	adminRepo := new(service.MockAdminRepository)
	teamRepo := new(service.MockTeamRepository)
	memberRepo := new(service.MockMemberRepository)
	attendanceRepo := new(service.MockAttendanceRepository)

	memberRepo.On("GetByPlatformID", mock.Anything, "ghost").
		Return(nil, repository.ErrNotFound)

	d := newTestDispatcher(adminRepo, teamRepo, memberRepo, attendanceRepo)

	cmd, err := Parse("check-in Eng Present")
	require.NoError(t, err)

	res, svcErr := d.Dispatch(context.Background(), "ghost", cmd)
	require.Error(t, svcErr)
	assert.Nil(t, res)
	assert.Equal(t, service.ErrorCodeNotFound, svcErr.Code)
}

func TestDispatcher_CreateTeamResolvesCaller(t *testing.T) {
	adminRepo := new(service.MockAdminRepository)
	teamRepo := new(service.MockTeamRepository)
	memberRepo := new(service.MockMemberRepository)
	attendanceRepo := new(service.MockAttendanceRepository)

	adminRepo.On("GetByPlatformID", mock.Anything, "a1").Return(&repository.Admin{
		ID:         1,
		PlatformID: "a1",
		IsAdmin:    true,
	}, nil)
	teamRepo.On("Create", mock.Anything, mock.MatchedBy(func(team *repository.Team) bool {
		return team.Name == "Eng" && team.AdminID == 1
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.Team).ID = 42
		args.Get(1).(*repository.Team).CreatedAt = time.Now()
	}).Return(nil)

	d := newTestDispatcher(adminRepo, teamRepo, memberRepo, attendanceRepo)

	cmd, err := Parse("team create Eng")
	require.NoError(t, err)

	res, svcErr := d.Dispatch(context.Background(), "a1", cmd)
	require.Nil(t, svcErr)
	assert.NotNil(t, res)

	adminRepo.AssertExpectations(t)
	teamRepo.AssertExpectations(t)
}

func TestDispatcher_ListTeams(t *testing.T) {
	adminRepo := new(service.MockAdminRepository)
	teamRepo := new(service.MockTeamRepository)
	memberRepo := new(service.MockMemberRepository)
	attendanceRepo := new(service.MockAttendanceRepository)

	adminRepo.On("GetByPlatformID", mock.Anything, "a1").Return(&repository.Admin{
		ID:         1,
		PlatformID: "a1",
		IsAdmin:    true,
	}, nil)
	teamRepo.On("ListByAdmin", mock.Anything, int64(1)).Return([]*repository.Team{
		{ID: 42, Name: "Eng", AdminID: 1},
	}, nil)

	d := newTestDispatcher(adminRepo, teamRepo, memberRepo, attendanceRepo)

	cmd, err := Parse("teams")
	require.NoError(t, err)

	res, svcErr := d.Dispatch(context.Background(), "a1", cmd)
	require.Nil(t, svcErr)
	require.Len(t, res.Teams, 1)
	assert.Equal(t, "Eng", res.Teams[0].Name)
}
