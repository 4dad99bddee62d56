package access

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

type staticWards map[int]int

func (w staticWards) ZoneOf(ward int) (int, bool) {
	zone, ok := w[ward]
	return zone, ok
}

func newTestResolver() *Resolver {
	return NewResolver(DefaultTable(), staticWards{10: 1, 11: 1, 20: 2})
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func isDenied(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeScopeDenied)
}

func ticketIn(ward, zone int, dept string) domain.Ticket {
	return domain.Ticket{Code: "CIV-2026-00001", WardID: ward, ZoneID: zone, DepartmentID: dept, Status: domain.TicketStatusOpen}
}

func TestResolveScopeWardOfficer(t *testing.T) {
	r := newTestResolver()
	officer := domain.Actor{ID: "w10", Role: domain.RoleWardOfficer, WardID: 10, ZoneID: 1}

	t.Run("defaults to own ward", func(t *testing.T) {
		f, err := r.ResolveScope(officer, Query{})
		require.NoError(t, err)
		require.NotNil(t, f.WardID)
		assert.Equal(t, 10, *f.WardID)
		assert.False(t, f.Unrestricted)
	})

	t.Run("other ward is denied", func(t *testing.T) {
		_, err := r.ResolveScope(officer, Query{WardID: intPtr(20)})
		assert.True(t, isDenied(err))
	})

	t.Run("candidates are not visible", func(t *testing.T) {
		_, err := r.ResolveScope(officer, Query{IncludeCandidates: true})
		assert.True(t, isDenied(err))
	})
}

func TestResolveScopeByRole(t *testing.T) {
	r := newTestResolver()

	t.Run("zonal officer may query a ward in zone", func(t *testing.T) {
		zonal := domain.Actor{Role: domain.RoleZonalOfficer, ZoneID: 1}
		f, err := r.ResolveScope(zonal, Query{WardID: intPtr(11)})
		require.NoError(t, err)
		assert.Equal(t, 1, *f.ZoneID)
		assert.Equal(t, 11, *f.WardID)

		_, err = r.ResolveScope(zonal, Query{WardID: intPtr(20)})
		assert.True(t, isDenied(err))
	})

	t.Run("department head pinned to department", func(t *testing.T) {
		head := domain.Actor{Role: domain.RoleDeptHead, DepartmentID: "D04"}
		f, err := r.ResolveScope(head, Query{WardID: intPtr(20)})
		require.NoError(t, err)
		assert.Equal(t, "D04", *f.DepartmentID)

		_, err = r.ResolveScope(head, Query{DepartmentID: strPtr("D01")})
		assert.True(t, isDenied(err))
	})

	t.Run("commissioner unrestricted", func(t *testing.T) {
		f, err := r.ResolveScope(domain.Actor{Role: domain.RoleCommissioner}, Query{})
		require.NoError(t, err)
		assert.True(t, f.Unrestricted)
	})

	t.Run("super admin sees no tickets", func(t *testing.T) {
		_, err := r.ResolveScope(domain.Actor{Role: domain.RoleSuperAdmin}, Query{})
		assert.True(t, isDenied(err))
		err = r.CanView(domain.Actor{Role: domain.RoleSuperAdmin}, ticketIn(10, 1, "D01"))
		assert.True(t, isDenied(err))
	})

	t.Run("citizens cannot list", func(t *testing.T) {
		_, err := r.ResolveScope(domain.CitizenActor("+911234"), Query{})
		assert.True(t, isDenied(err))
	})
}

func TestAuthorize(t *testing.T) {
	r := newTestResolver()
	ticket := ticketIn(10, 1, "D01")
	ticket.ReporterPhone = "+919900"

	t.Run("ward officer within ward", func(t *testing.T) {
		officer := domain.Actor{Role: domain.RoleWardOfficer, WardID: 10, ZoneID: 1}
		assert.NoError(t, r.Authorize(officer, ticket, domain.ActionAccept))
		assert.True(t, isDenied(r.Authorize(officer, ticket, domain.ActionOverridePriority)))

		other := domain.Actor{Role: domain.RoleWardOfficer, WardID: 20, ZoneID: 2}
		assert.True(t, isDenied(r.Authorize(other, ticket, domain.ActionAccept)))
	})

	t.Run("override is commissioner only", func(t *testing.T) {
		for _, role := range []domain.Role{
			domain.RoleWardOfficer, domain.RoleZonalOfficer, domain.RoleDeptHead,
			domain.RoleCouncillor, domain.RoleSuperAdmin, domain.RoleCitizen, domain.RoleSystem,
		} {
			actor := domain.Actor{Role: role, WardID: 10, ZoneID: 1, DepartmentID: "D01", Phone: "+919900"}
			assert.True(t, isDenied(r.Authorize(actor, ticket, domain.ActionOverridePriority)), "role %s", role)
		}
		assert.NoError(t, r.Authorize(domain.Actor{Role: domain.RoleCommissioner}, ticket, domain.ActionOverridePriority))
	})

	t.Run("councillor only flags", func(t *testing.T) {
		councillor := domain.Actor{Role: domain.RoleCouncillor, WardID: 10}
		assert.NoError(t, r.Authorize(councillor, ticket, domain.ActionFlagPriority))
		assert.True(t, isDenied(r.Authorize(councillor, ticket, domain.ActionAccept)))
	})

	t.Run("citizen must be the reporter", func(t *testing.T) {
		assert.NoError(t, r.Authorize(domain.CitizenActor("+919900"), ticket, domain.ActionDispute))
		assert.True(t, isDenied(r.Authorize(domain.CitizenActor("+910000"), ticket, domain.ActionDispute)))
		assert.NoError(t, r.Authorize(domain.CitizenActor("+910000"), ticket, domain.ActionAddReport))
	})

	t.Run("candidates hidden from ward officers", func(t *testing.T) {
		candidate := ticket
		candidate.Candidate = true
		officer := domain.Actor{Role: domain.RoleWardOfficer, WardID: 10, ZoneID: 1}
		assert.True(t, isDenied(r.CanView(officer, candidate)))
		assert.NoError(t, r.CanView(domain.Actor{Role: domain.RoleZonalOfficer, ZoneID: 1}, candidate))

		assert.True(t, isDenied(r.Authorize(officer, candidate, domain.ActionAccept)))
		assert.True(t, isDenied(r.Authorize(domain.CitizenActor("+919900"), candidate, domain.ActionAddReport)))
		assert.NoError(t, r.Authorize(domain.Actor{Role: domain.RoleZonalOfficer, ZoneID: 1}, candidate, domain.ActionApproveCandidate))
	})
}

func TestResolveApproval(t *testing.T) {
	r := newTestResolver()
	cases := []struct {
		name    string
		role    domain.Role
		amount  int64
		outcome ApprovalOutcome
		to      domain.Role
	}{
		{"ward within ceiling", domain.RoleWardOfficer, 10_000, ApprovalAuto, ""},
		{"ward above ceiling", domain.RoleWardOfficer, 10_001, ApprovalManual, domain.RoleZonalOfficer},
		{"ward far above ceiling", domain.RoleWardOfficer, 500_000, ApprovalManual, domain.RoleDeptHead},
		{"zonal mid tier", domain.RoleZonalOfficer, 100_000, ApprovalAuto, ""},
		{"department head above", domain.RoleDeptHead, 2_000_000, ApprovalManual, domain.RoleCommissioner},
		{"commissioner unlimited", domain.RoleCommissioner, 50_000_000, ApprovalAuto, ""},
		{"councillor denied", domain.RoleCouncillor, 1, ApprovalDenied, ""},
		{"super admin denied", domain.RoleSuperAdmin, 1, ApprovalDenied, ""},
		{"non positive denied", domain.RoleWardOfficer, 0, ApprovalDenied, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := r.ResolveApproval(tc.role, decimal.NewFromInt(tc.amount))
			assert.Equal(t, tc.outcome, d.Outcome)
			assert.Equal(t, tc.to, d.EscalateTo)
		})
	}
}

func TestTableIsACopy(t *testing.T) {
	actions := []domain.Action{domain.ActionAccept}
	table := NewTable("v1", []Policy{{Role: domain.RoleWardOfficer, Visibility: VisibleWard, Actions: actions}})
	actions[0] = domain.ActionOverridePriority
	assert.True(t, table.Permits(domain.RoleWardOfficer, domain.ActionAccept))
	assert.False(t, table.Permits(domain.RoleWardOfficer, domain.ActionOverridePriority))
	assert.Equal(t, "v1", table.Version())
}
