package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rollcall-dev/rollcall/internal/auth"
	"github.com/rollcall-dev/rollcall/internal/db"
	"github.com/rollcall-dev/rollcall/internal/model"
	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

const defaultTokenTTL = 24 * time.Hour

type IdentityService struct {
	tx db.Transactor

	admins repository.AdminRepository

	tokenTTL time.Duration
}

func NewIdentityService(tx db.Transactor) *IdentityService {
	return &IdentityService{
		tx:       tx,
		tokenTTL: defaultTokenTTL,
	}
}

// Register creates an admin account for the platform identity. The unique
// constraint on platform_id is the duplicate check, so two concurrent
// registrations cannot both succeed.
func (s *IdentityService) Register(ctx context.Context, platformID, displayName, password string) *Error {
	l := logger.FromContext(ctx)
	l.Info("registering admin", zap.String("platform_id", platformID))

	hash, err := auth.HashPassword(password)
	if err != nil {
		l.Error("failed to hash password", zap.String("platform_id", platformID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to register admin")
	}

	err = s.admins.Create(ctx, &repository.Admin{
		PlatformID:   platformID,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("admin already registered", zap.String("platform_id", platformID))
		return NewError(ErrorCodeAdminExists, "platform_id already registered")
	}
	if err != nil {
		l.Error("failed to create admin", zap.String("platform_id", platformID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to register admin")
	}

	return nil
}

// Authenticate verifies the password of a registered admin. A wrong password
// is (false, nil); a missing admin is NotFound; a verification failure such
// as a corrupt stored hash is surfaced, never reported as a mismatch.
func (s *IdentityService) Authenticate(ctx context.Context, platformID, password string) (bool, *Error) {
	l := logger.FromContext(ctx)

	admin, err := s.admins.GetByPlatformID(ctx, platformID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("admin not found", zap.String("platform_id", platformID))
		return false, NewError(ErrorCodeNotFound, "admin not found")
	}
	if err != nil {
		l.Error("failed to get admin", zap.String("platform_id", platformID), zap.Error(err))
		return false, NewError(ErrorCodeUnspecified, "failed to get admin")
	}

	ok, err := auth.VerifyPassword(admin.PasswordHash, password)
	if err != nil {
		l.Error("password verification failed", zap.String("platform_id", platformID), zap.Error(err))
		return false, NewError(ErrorCodeUnspecified, "failed to verify password")
	}

	return ok, nil
}

// IssueToken issues a signed token for a registered admin. The TTL is one
// policy for every surface, configured at construction.
func (s *IdentityService) IssueToken(ctx context.Context, platformID string) (string, *Error) {
	l := logger.FromContext(ctx)

	admin, err := s.admins.GetByPlatformID(ctx, platformID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", NewError(ErrorCodeNotFound, "admin not found")
	}
	if err != nil {
		l.Error("failed to get admin", zap.String("platform_id", platformID), zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to get admin")
	}

	token, err := auth.GenerateToken(admin.PlatformID, s.tokenTTL)
	if err != nil {
		l.Error("failed to generate token", zap.String("platform_id", platformID), zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to issue token")
	}

	return token, nil
}

// GetAdmin resolves an admin by platform identity for the adapters.
func (s *IdentityService) GetAdmin(ctx context.Context, platformID string) (*model.Admin, *Error) {
	admin, err := s.admins.GetByPlatformID(ctx, platformID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "admin not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get admin", zap.String("platform_id", platformID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get admin")
	}

	return &model.Admin{
		ID:          admin.ID,
		PlatformID:  admin.PlatformID,
		DisplayName: admin.DisplayName,
		IsAdmin:     admin.IsAdmin,
		CreatedAt:   admin.CreatedAt,
		UpdatedAt:   admin.UpdatedAt,
	}, nil
}

func (s *IdentityService) WithAdminRepo(r repository.AdminRepository) *IdentityService {
	s.admins = r
	return s
}

func (s *IdentityService) WithTokenTTL(d time.Duration) *IdentityService {
	if d > 0 {
		s.tokenTTL = d
	}
	return s
}
