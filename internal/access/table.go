package access

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Visibility is the slice of tickets a role can see.
type Visibility int

const (
	VisibleNone Visibility = iota
	VisibleWard
	VisibleZone
	VisibleDepartment
	VisibleAll
	// VisibleOwn is for citizens: single tickets by code, never collections.
	VisibleOwn
)

// Policy is one row of the role table.
type Policy struct {
	Role       domain.Role
	Visibility Visibility
	Actions    []domain.Action
	// BudgetCeiling caps auto-approval; nil means unlimited.
	BudgetCeiling *decimal.Decimal
	// ReviewsCandidates lets the role list hidden social-sourced candidates.
	ReviewsCandidates bool
}

// Table is an immutable, versioned role → policy lookup.
type Table struct {
	version  string
	policies map[domain.Role]policyEntry
}

type policyEntry struct {
	policy  Policy
	actions map[domain.Action]struct{}
}

// NewTable copies policies into a read-only table.
func NewTable(version string, policies []Policy) Table {
	entries := make(map[domain.Role]policyEntry, len(policies))
	for _, p := range policies {
		actions := make(map[domain.Action]struct{}, len(p.Actions))
		for _, a := range p.Actions {
			actions[a] = struct{}{}
		}
		p.Actions = append([]domain.Action(nil), p.Actions...)
		if p.BudgetCeiling != nil {
			ceiling := *p.BudgetCeiling
			p.BudgetCeiling = &ceiling
		}
		entries[p.Role] = policyEntry{policy: p, actions: actions}
	}
	return Table{version: version, policies: entries}
}

// Version identifies the table revision.
func (t Table) Version() string { return t.version }

// Policy returns the policy for role.
func (t Table) Policy(role domain.Role) (Policy, bool) {
	entry, ok := t.policies[role]
	return entry.policy, ok
}

// Permits reports whether role may perform action at all.
func (t Table) Permits(role domain.Role, action domain.Action) bool {
	entry, ok := t.policies[role]
	if !ok {
		return false
	}
	_, ok = entry.actions[action]
	return ok
}

func ceiling(amount int64) *decimal.Decimal {
	d := decimal.NewFromInt(amount)
	return &d
}

var wardActions = []domain.Action{
	domain.ActionAccept,
	domain.ActionReroute,
	domain.ActionEscalate,
	domain.ActionDispatch,
	domain.ActionMarkComplete,
	domain.ActionAttachEvidence,
	domain.ActionApproveBudget,
}

// DefaultTable is the fixed production role table.
func DefaultTable() Table {
	zonal := append(append([]domain.Action(nil), wardActions...),
		domain.ActionApproveCandidate, domain.ActionReject)

	return NewTable("2026.1", []Policy{
		{
			Role:          domain.RoleWardOfficer,
			Visibility:    VisibleWard,
			Actions:       wardActions,
			BudgetCeiling: ceiling(10_000),
		},
		{
			Role:              domain.RoleZonalOfficer,
			Visibility:        VisibleZone,
			Actions:           zonal,
			BudgetCeiling:     ceiling(100_000),
			ReviewsCandidates: true,
		},
		{
			Role:       domain.RoleDeptHead,
			Visibility: VisibleDepartment,
			Actions: []domain.Action{
				domain.ActionReroute,
				domain.ActionEscalate,
				domain.ActionApproveBudget,
				domain.ActionApproveCandidate,
				domain.ActionReject,
			},
			BudgetCeiling:     ceiling(1_000_000),
			ReviewsCandidates: true,
		},
		{
			Role:       domain.RoleCommissioner,
			Visibility: VisibleAll,
			Actions: []domain.Action{
				domain.ActionOverridePriority,
				domain.ActionApproveBudget,
				domain.ActionApproveCandidate,
				domain.ActionReject,
			},
			ReviewsCandidates: true,
		},
		{
			Role:          domain.RoleCouncillor,
			Visibility:    VisibleWard,
			Actions:       []domain.Action{domain.ActionFlagPriority},
			BudgetCeiling: ceiling(0),
		},
		{
			Role:          domain.RoleSuperAdmin,
			Visibility:    VisibleNone,
			BudgetCeiling: ceiling(0),
		},
		{
			Role:       domain.RoleCitizen,
			Visibility: VisibleOwn,
			Actions: []domain.Action{
				domain.ActionConfirmFixed,
				domain.ActionDispute,
				domain.ActionLowRating,
				domain.ActionAddReport,
			},
			BudgetCeiling: ceiling(0),
		},
		{
			Role:       domain.RoleSystem,
			Visibility: VisibleAll,
			Actions: []domain.Action{
				domain.ActionTimeout,
				domain.ActionNoAction,
				domain.ActionSLABreach,
				domain.ActionAddReport,
				domain.ActionConfirmFixed,
				domain.ActionDispute,
			},
			BudgetCeiling: ceiling(0),
		},
	})
}
