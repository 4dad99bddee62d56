package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// OfficerService manages officer accounts.
type OfficerService struct {
	officers    repository.OfficerRepository
	wards       access.WardDirectory
	departments domain.DepartmentTable
	bcryptCost  int
}

// OfficerDependencies bundles collaborators for officer management.
type OfficerDependencies struct {
	OfficerRepo repository.OfficerRepository
	Wards       access.WardDirectory
	Departments domain.DepartmentTable
	BcryptCost  int
}

// NewOfficerService constructs the service.
func NewOfficerService(deps OfficerDependencies) *OfficerService {
	return &OfficerService{
		officers:    deps.OfficerRepo,
		wards:       deps.Wards,
		departments: deps.Departments,
		bcryptCost:  deps.BcryptCost,
	}
}

// OfficerInput describes a new officer account.
type OfficerInput struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	Role         domain.Role
	WardID       int
	ZoneID       int
	DepartmentID string
}

func requireSuperAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewScopeDenied("super admin role required")
	}
	return nil
}

// CreateOfficer adds an officer. Only the fields that define the role's scope
// are kept; a ward officer's zone is derived from the ward directory.
func (s *OfficerService) CreateOfficer(ctx context.Context, actor domain.Actor, in OfficerInput) (*domain.Officer, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	officer := &domain.Officer{
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:  strings.TrimSpace(in.Phone),
		Role:   in.Role,
		Active: true,
	}

	details := map[string]any{}
	if officer.Name == "" {
		details["name"] = "required"
	}
	if !strings.Contains(officer.Email, "@") {
		details["email"] = "must be a valid email"
	}
	switch in.Role {
	case domain.RoleWardOfficer, domain.RoleCouncillor:
		zone, ok := s.wards.ZoneOf(in.WardID)
		if !ok {
			details["ward_id"] = "unknown ward"
		}
		officer.WardID, officer.ZoneID = in.WardID, zone
	case domain.RoleZonalOfficer:
		if in.ZoneID <= 0 {
			details["zone_id"] = "required"
		}
		officer.ZoneID = in.ZoneID
	case domain.RoleDeptHead:
		if _, ok := s.departments.Lookup(in.DepartmentID); !ok {
			details["department_id"] = "unknown department"
		}
		officer.DepartmentID = in.DepartmentID
	case domain.RoleCommissioner, domain.RoleSuperAdmin:
	default:
		details["role"] = "not an officer role"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid officer", details)
	}

	if _, err := s.officers.GetByEmail(ctx, officer.Email); err == nil {
		return nil, apperrors.NewConflict("officer email already exists", map[string]any{"email": officer.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, apperrors.NewValidationError("invalid officer", map[string]any{"password": "must be at least 8 characters"})
		}
		return nil, apperrors.NewInternalError(err)
	}
	officer.PasswordHash = hash

	if err := s.officers.Create(ctx, officer); err != nil {
		return nil, apperrors.MapError(err)
	}
	return officer, nil
}
