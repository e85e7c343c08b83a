package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rollcall-dev/rollcall/internal/model"
	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAttendanceService_CheckIn(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		memberID      int64
		teamID        int64
		status        string
		setupMocks    func(*MockTeamRepository, *MockMemberRepository, *MockAttendanceRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success",
			memberID: 5,
			teamID:   42,
			status:   "Present",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, ar *MockAttendanceRepository) {
				mr.On("Get", mock.Anything, int64(5)).Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
				tr.On("Get", mock.Anything, int64(42)).Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("CheckIn", mock.Anything, mock.MatchedBy(func(s *repository.Session) bool {
					return s.MemberID == 5 && s.TeamID == 42 && s.Status == "Present" &&
						s.CheckInTime.Equal(now) && s.CheckOutTime == nil
				})).Return(nil)
			},
			expectedError: false,
		},
		{
			name:     "member not found",
			memberID: 99,
			teamID:   42,
			status:   "Present",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, ar *MockAttendanceRepository) {
				mr.On("Get", mock.Anything, int64(99)).Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:     "team not found leaves no session behind",
			memberID: 5,
			teamID:   77,
			status:   "Present",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, ar *MockAttendanceRepository) {
				mr.On("Get", mock.Anything, int64(5)).Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
				tr.On("Get", mock.Anything, int64(77)).Return(nil, repository.ErrNotFound)
				// No CheckIn expectation: validation failure must not insert.
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:     "second open session rejected",
			memberID: 5,
			teamID:   42,
			status:   "Late",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, ar *MockAttendanceRepository) {
				mr.On("Get", mock.Anything, int64(5)).Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
				tr.On("Get", mock.Anything, int64(42)).Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("CheckIn", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeSessionOpen,
		},
		{
			name:     "storage failure",
			memberID: 5,
			teamID:   42,
			status:   "Present",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, ar *MockAttendanceRepository) {
				mr.On("Get", mock.Anything, int64(5)).Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
				tr.On("Get", mock.Anything, int64(42)).Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("CheckIn", mock.Anything, mock.Anything).Return(errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockTeamRepo := new(MockTeamRepository)
			mockMemberRepo := new(MockMemberRepository)
			mockAttendanceRepo := new(MockAttendanceRepository)

			tt.setupMocks(mockTeamRepo, mockMemberRepo, mockAttendanceRepo)

			service := NewAttendanceService(mockTx).
				WithTeamRepo(mockTeamRepo).
				WithMemberRepo(mockMemberRepo).
				WithAttendanceRepo(mockAttendanceRepo).
				WithClock(fixedClock(now))

			err := service.CheckIn(context.Background(), tt.memberID, tt.teamID, tt.status)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
			}

			mockTeamRepo.AssertExpectations(t)
			mockMemberRepo.AssertExpectations(t)
			mockAttendanceRepo.AssertExpectations(t)
		})
	}
}

// A commit failure after a successful closure must surface as an error; a
// check-in that was never persisted cannot be reported as a success.
func TestAttendanceService_CheckIn_CommitFailure(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	mockTx := &MockTransactor{Err: errors.New("failed to commit transaction: conn closed")}
	mockTeamRepo := new(MockTeamRepository)
	mockMemberRepo := new(MockMemberRepository)
	mockAttendanceRepo := new(MockAttendanceRepository)

	mockMemberRepo.On("Get", mock.Anything, int64(5)).Return(&repository.Member{ID: 5, TeamID: 42, PlatformID: "u42"}, nil)
	mockTeamRepo.On("Get", mock.Anything, int64(42)).Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
	mockAttendanceRepo.On("CheckIn", mock.Anything, mock.Anything).Return(nil)

	service := NewAttendanceService(mockTx).
		WithTeamRepo(mockTeamRepo).
		WithMemberRepo(mockMemberRepo).
		WithAttendanceRepo(mockAttendanceRepo).
		WithClock(fixedClock(now))

	err := service.CheckIn(context.Background(), 5, 42, "Present")
	require.Error(t, err)
	assert.Equal(t, ErrorCodeUnspecified, err.Code)
}

func TestAttendanceService_CheckOut(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		memberID      int64
		setupMocks    func(*MockAttendanceRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success",
			memberID: 5,
			setupMocks: func(ar *MockAttendanceRepository) {
				ar.On("CheckOut", mock.Anything, int64(5), now).Return(int64(0), nil)
			},
			expectedError: false,
		},
		{
			name:     "no open session",
			memberID: 5,
			setupMocks: func(ar *MockAttendanceRepository) {
				ar.On("CheckOut", mock.Anything, int64(5), now).Return(int64(0), repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:     "extra open sessions are reported but check-out succeeds",
			memberID: 5,
			setupMocks: func(ar *MockAttendanceRepository) {
				ar.On("CheckOut", mock.Anything, int64(5), now).Return(int64(1), nil)
			},
			expectedError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockAttendanceRepo := new(MockAttendanceRepository)

			tt.setupMocks(mockAttendanceRepo)

			service := NewAttendanceService(mockTx).
				WithAttendanceRepo(mockAttendanceRepo).
				WithClock(fixedClock(now))

			err := service.CheckOut(context.Background(), tt.memberID)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
			}

			mockAttendanceRepo.AssertExpectations(t)
		})
	}
}

// Double check-out: the first close succeeds, the second finds no open
// session and fails with NotFound.
func TestAttendanceService_CheckOutTwice(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	mockTx := new(MockTransactor)
	mockAttendanceRepo := new(MockAttendanceRepository)

	mockAttendanceRepo.On("CheckOut", mock.Anything, int64(5), now).Return(int64(0), nil).Once()
	mockAttendanceRepo.On("CheckOut", mock.Anything, int64(5), now).Return(int64(0), repository.ErrNotFound).Once()

	service := NewAttendanceService(mockTx).
		WithAttendanceRepo(mockAttendanceRepo).
		WithClock(fixedClock(now))

	require.Nil(t, service.CheckOut(context.Background(), 5))

	err := service.CheckOut(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeNotFound, err.Code)

	mockAttendanceRepo.AssertExpectations(t)
}

func TestAttendanceService_Report(t *testing.T) {
	checkIn := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	checkOut := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	username := "u42"
	status := "Present"

	tests := []struct {
		name          string
		teamName      string
		setupMocks    func(*MockTeamRepository, *MockAttendanceRepository)
		expectedRows  []*model.AttendanceRow
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "open session renders N/A check-out",
			teamName: "Eng",
			setupMocks: func(tr *MockTeamRepository, ar *MockAttendanceRepository) {
				tr.On("GetByName", mock.Anything, "Eng").Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("ListByTeam", mock.Anything, int64(42)).Return([]*repository.ReportRow{
					{Username: &username, CheckInTime: &checkIn, CheckOutTime: nil, Status: &status},
				}, nil)
			},
			expectedRows: []*model.AttendanceRow{
				{Username: "u42", CheckInTime: "2025-03-01 09:30:00", CheckOutTime: "N/A", Status: "Present"},
			},
		},
		{
			name:     "closed session renders both timestamps",
			teamName: "Eng",
			setupMocks: func(tr *MockTeamRepository, ar *MockAttendanceRepository) {
				tr.On("GetByName", mock.Anything, "Eng").Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("ListByTeam", mock.Anything, int64(42)).Return([]*repository.ReportRow{
					{Username: &username, CheckInTime: &checkIn, CheckOutTime: &checkOut, Status: &status},
				}, nil)
			},
			expectedRows: []*model.AttendanceRow{
				{Username: "u42", CheckInTime: "2025-03-01 09:30:00", CheckOutTime: "2025-03-01 18:00:00", Status: "Present"},
			},
		},
		{
			name:     "missing optionals render as N/A, not errors",
			teamName: "Eng",
			setupMocks: func(tr *MockTeamRepository, ar *MockAttendanceRepository) {
				tr.On("GetByName", mock.Anything, "Eng").Return(&repository.Team{ID: 42, Name: "Eng", AdminID: 1}, nil)
				ar.On("ListByTeam", mock.Anything, int64(42)).Return([]*repository.ReportRow{
					{Username: nil, CheckInTime: nil, CheckOutTime: nil, Status: nil},
				}, nil)
			},
			expectedRows: []*model.AttendanceRow{
				{Username: "N/A", CheckInTime: "N/A", CheckOutTime: "N/A", Status: "N/A"},
			},
		},
		{
			name:     "unknown team",
			teamName: "Ghost",
			setupMocks: func(tr *MockTeamRepository, ar *MockAttendanceRepository) {
				tr.On("GetByName", mock.Anything, "Ghost").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockTeamRepo := new(MockTeamRepository)
			mockAttendanceRepo := new(MockAttendanceRepository)

			tt.setupMocks(mockTeamRepo, mockAttendanceRepo)

			service := NewAttendanceService(mockTx).
				WithTeamRepo(mockTeamRepo).
				WithAttendanceRepo(mockAttendanceRepo)

			rows, err := service.Report(context.Background(), tt.teamName)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, tt.expectedRows, rows)
			}

			mockTeamRepo.AssertExpectations(t)
			mockAttendanceRepo.AssertExpectations(t)
		})
	}
}
