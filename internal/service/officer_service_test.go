package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/wards"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

var superAdmin = domain.Actor{ID: "admin-1", Role: domain.RoleSuperAdmin}

func newOfficerService(t *testing.T) (*OfficerService, *repository.MemoryOfficers) {
	t.Helper()
	dir, err := wards.Default()
	require.NoError(t, err)
	officers := repository.NewMemoryOfficers()
	return NewOfficerService(OfficerDependencies{
		OfficerRepo: officers,
		Wards:       dir,
		Departments: domain.DefaultDepartments(),
		BcryptCost:  4,
	}), officers
}

func TestCreateOfficerScopes(t *testing.T) {
	cases := []struct {
		name     string
		actor    domain.Actor
		in       OfficerInput
		wantCode string
		check    func(t *testing.T, o *domain.Officer)
	}{
		{
			name:  "ward officer zone is derived",
			actor: superAdmin,
			in:    OfficerInput{Name: "Asha", Email: "Asha@City.gov", Password: "longenough", Role: domain.RoleWardOfficer, WardID: 25, ZoneID: 9},
			check: func(t *testing.T, o *domain.Officer) {
				assert.Equal(t, "asha@city.gov", o.Email)
				assert.Equal(t, 25, o.WardID)
				assert.Equal(t, 2, o.ZoneID)
				assert.NotEmpty(t, o.PasswordHash)
			},
		},
		{
			name:  "dept head keeps only department",
			actor: superAdmin,
			in:    OfficerInput{Name: "Ravi", Email: "ravi@city.gov", Password: "longenough", Role: domain.RoleDeptHead, WardID: 3, DepartmentID: "D04"},
			check: func(t *testing.T, o *domain.Officer) {
				assert.Equal(t, "D04", o.DepartmentID)
				assert.Zero(t, o.WardID)
			},
		},
		{
			name:     "only super admin",
			actor:    domain.Actor{ID: "c-1", Role: domain.RoleCommissioner},
			in:       OfficerInput{Name: "X", Email: "x@city.gov", Password: "longenough", Role: domain.RoleCommissioner},
			wantCode: apperrors.CodeScopeDenied,
		},
		{
			name:     "unknown ward",
			actor:    superAdmin,
			in:       OfficerInput{Name: "Y", Email: "y@city.gov", Password: "longenough", Role: domain.RoleWardOfficer, WardID: 999},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "zonal without zone",
			actor:    superAdmin,
			in:       OfficerInput{Name: "Z", Email: "z@city.gov", Password: "longenough", Role: domain.RoleZonalOfficer},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "citizen is not an officer",
			actor:    superAdmin,
			in:       OfficerInput{Name: "C", Email: "c@city.gov", Password: "longenough", Role: domain.RoleCitizen},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "weak password",
			actor:    superAdmin,
			in:       OfficerInput{Name: "W", Email: "w@city.gov", Password: "short", Role: domain.RoleCommissioner},
			wantCode: apperrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newOfficerService(t)
			officer, err := svc.CreateOfficer(context.Background(), tc.actor, tc.in)
			if tc.wantCode != "" {
				assert.True(t, apperrors.HasCode(err, tc.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			tc.check(t, officer)
		})
	}
}

func TestCreateOfficerRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newOfficerService(t)
	in := OfficerInput{Name: "Asha", Email: "asha@city.gov", Password: "longenough", Role: domain.RoleCommissioner}

	_, err := svc.CreateOfficer(context.Background(), superAdmin, in)
	require.NoError(t, err)
	_, err = svc.CreateOfficer(context.Background(), superAdmin, in)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestLoginOfficer(t *testing.T) {
	ctx := context.Background()
	svc, officers := newOfficerService(t)
	tokens := auth.NewTokenManager("secret", time.Hour)
	authSvc := NewAuthService(config.AuthConfig{BcryptCost: 4}, officers, tokens, nil)

	created, err := svc.CreateOfficer(ctx, superAdmin, OfficerInput{
		Name: "Asha", Email: "asha@city.gov", Password: "longenough", Role: domain.RoleWardOfficer, WardID: 10,
	})
	require.NoError(t, err)

	officer, token, _, err := authSvc.LoginOfficer(ctx, " ASHA@city.gov ", "longenough")
	require.NoError(t, err)
	assert.Equal(t, created.ID, officer.ID)
	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.Actor(), claims.Actor())

	for _, attempt := range []struct{ email, password string }{
		{"asha@city.gov", "wrong-password"},
		{"nobody@city.gov", "longenough"},
	} {
		_, _, _, err := authSvc.LoginOfficer(ctx, attempt.email, attempt.password)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	}
}

func TestBootstrapSuperAdminOnlyOnEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	officers := repository.NewMemoryOfficers()
	authSvc := NewAuthService(config.AuthConfig{BcryptCost: 4}, officers, auth.NewTokenManager("secret", time.Hour), nil)

	require.NoError(t, authSvc.BootstrapSuperAdmin(ctx, "root@city.gov", "longenough"))
	require.NoError(t, authSvc.BootstrapSuperAdmin(ctx, "other@city.gov", "longenough"))

	count, err := officers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	admin, err := officers.GetByEmail(ctx, "root@city.gov")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, admin.Role)
}
