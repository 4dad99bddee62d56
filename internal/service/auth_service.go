package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// AuthService coordinates officer login.
type AuthService struct {
	officers   repository.OfficerRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, officers repository.OfficerRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		officers:   officers,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// LoginOfficer authenticates an officer and returns a scope-bearing token.
// Unknown email, wrong password and inactive account share one message.
func (s *AuthService) LoginOfficer(ctx context.Context, email, password string) (*domain.Officer, string, time.Time, error) {
	officer, err := s.officers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !officer.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(officer.PasswordHash, password); err != nil {
		s.logger.Info("officer login failed", zap.String("officer_id", officer.ID))
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(*officer)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return officer, token, exp, nil
}

// BootstrapSuperAdmin creates the first super admin when the officer table is
// empty. It does nothing when either credential is unset.
func (s *AuthService) BootstrapSuperAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	count, err := s.officers.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.Officer{
		Name:         "Super Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		Active:       true,
	}
	if err := s.officers.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap super admin created", zap.String("officer_id", admin.ID))
	return nil
}
