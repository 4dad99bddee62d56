// Package access decides which actor may see or mutate which ticket.
package access

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// WardDirectory maps wards to zones.
type WardDirectory interface {
	ZoneOf(wardID int) (int, bool)
}

// Query is a requested ticket collection.
type Query struct {
	WardID            *int
	ZoneID            *int
	DepartmentID      *string
	IncludeCandidates bool
}

// Filter is the predicate a store must apply to a collection query.
type Filter struct {
	WardID            *int
	ZoneID            *int
	DepartmentID      *string
	Unrestricted      bool
	IncludeCandidates bool
}

// Resolver evaluates the role table for an actor.
type Resolver struct {
	table Table
	wards WardDirectory
}

// NewResolver builds a resolver over an immutable table.
func NewResolver(table Table, wards WardDirectory) *Resolver {
	return &Resolver{table: table, wards: wards}
}

// Table exposes the injected role table.
func (r *Resolver) Table() Table {
	return r.table
}

// ResolveScope turns a collection query into a filter bounded by the actor's
// scope. Asking for data outside the scope is denied, never silently narrowed.
func (r *Resolver) ResolveScope(actor domain.Actor, q Query) (Filter, error) {
	policy, ok := r.table.Policy(actor.Role)
	if !ok {
		return Filter{}, apperrors.NewScopeDenied(fmt.Sprintf("unknown role %q", actor.Role))
	}
	if q.IncludeCandidates && !policy.ReviewsCandidates {
		return Filter{}, apperrors.NewScopeDenied("role does not review candidates")
	}

	filter := Filter{
		WardID:            q.WardID,
		ZoneID:            q.ZoneID,
		DepartmentID:      q.DepartmentID,
		IncludeCandidates: q.IncludeCandidates,
	}

	switch policy.Visibility {
	case VisibleWard:
		if q.WardID != nil && *q.WardID != actor.WardID {
			return Filter{}, apperrors.NewScopeDenied("ward outside assignment")
		}
		if q.ZoneID != nil && *q.ZoneID != actor.ZoneID {
			return Filter{}, apperrors.NewScopeDenied("zone outside assignment")
		}
		ward := actor.WardID
		filter.WardID = &ward
	case VisibleZone:
		if q.ZoneID != nil && *q.ZoneID != actor.ZoneID {
			return Filter{}, apperrors.NewScopeDenied("zone outside assignment")
		}
		if q.WardID != nil {
			zone, known := r.zoneOf(*q.WardID)
			if !known || zone != actor.ZoneID {
				return Filter{}, apperrors.NewScopeDenied("ward outside zone")
			}
		}
		zone := actor.ZoneID
		filter.ZoneID = &zone
	case VisibleDepartment:
		if q.DepartmentID != nil && *q.DepartmentID != actor.DepartmentID {
			return Filter{}, apperrors.NewScopeDenied("department outside assignment")
		}
		dept := actor.DepartmentID
		filter.DepartmentID = &dept
	case VisibleAll:
		filter.Unrestricted = q.WardID == nil && q.ZoneID == nil && q.DepartmentID == nil
	default:
		return Filter{}, apperrors.NewScopeDenied(fmt.Sprintf("role %s has no collection visibility", actor.Role))
	}
	return filter, nil
}

// CanView authorizes reading a single ticket.
func (r *Resolver) CanView(actor domain.Actor, t domain.Ticket) error {
	policy, ok := r.table.Policy(actor.Role)
	if !ok {
		return apperrors.NewScopeDenied(fmt.Sprintf("unknown role %q", actor.Role))
	}
	if t.Candidate && !policy.ReviewsCandidates && actor.Role != domain.RoleSystem {
		return apperrors.NewScopeDenied("candidate tickets are reviewer only")
	}
	if policy.Visibility == VisibleOwn {
		// Ticket codes are handed to the reporter; tracking by code is public.
		return nil
	}
	if !r.inScope(policy.Visibility, actor, t) {
		return apperrors.NewScopeDenied("ticket outside assignment")
	}
	return nil
}

// Authorize checks that actor may perform action on t.
func (r *Resolver) Authorize(actor domain.Actor, t domain.Ticket, action domain.Action) error {
	policy, ok := r.table.Policy(actor.Role)
	if !ok {
		return apperrors.NewScopeDenied(fmt.Sprintf("unknown role %q", actor.Role))
	}
	if t.Candidate && !policy.ReviewsCandidates && actor.Role != domain.RoleSystem {
		return apperrors.NewScopeDenied("candidate tickets are reviewer only")
	}
	if !r.table.Permits(actor.Role, action) {
		return apperrors.NewScopeDenied(fmt.Sprintf("role %s may not %s", actor.Role, action))
	}
	if policy.Visibility == VisibleOwn {
		if action == domain.ActionAddReport {
			return nil
		}
		if actor.Phone == "" || actor.Phone != t.ReporterPhone {
			return apperrors.NewScopeDenied("citizen is not the reporter")
		}
		return nil
	}
	if !r.inScope(policy.Visibility, actor, t) {
		return apperrors.NewScopeDenied("ticket outside assignment")
	}
	return nil
}

func (r *Resolver) inScope(visibility Visibility, actor domain.Actor, t domain.Ticket) bool {
	switch visibility {
	case VisibleWard:
		return t.WardID == actor.WardID
	case VisibleZone:
		return t.ZoneID == actor.ZoneID
	case VisibleDepartment:
		return t.DepartmentID == actor.DepartmentID
	case VisibleAll:
		return true
	}
	return false
}

func (r *Resolver) zoneOf(ward int) (int, bool) {
	if r.wards == nil {
		return 0, false
	}
	return r.wards.ZoneOf(ward)
}

// ApprovalOutcome is the budget decision kind.
type ApprovalOutcome string

const (
	ApprovalAuto   ApprovalOutcome = "auto"
	ApprovalManual ApprovalOutcome = "manual"
	ApprovalDenied ApprovalOutcome = "denied"
)

// Decision is the result of ResolveApproval.
type Decision struct {
	Outcome    ApprovalOutcome  `json:"outcome"`
	Ceiling    *decimal.Decimal `json:"ceiling,omitempty"`
	EscalateTo domain.Role      `json:"escalate_to,omitempty"`
}

// ResolveApproval applies the approval-tier table to an amount.
func (r *Resolver) ResolveApproval(role domain.Role, amount decimal.Decimal) Decision {
	policy, ok := r.table.Policy(role)
	if !ok || !amount.IsPositive() || !r.table.Permits(role, domain.ActionApproveBudget) {
		return Decision{Outcome: ApprovalDenied}
	}
	if policy.BudgetCeiling == nil {
		return Decision{Outcome: ApprovalAuto}
	}
	limit := *policy.BudgetCeiling
	if !limit.IsPositive() {
		return Decision{Outcome: ApprovalDenied, Ceiling: &limit}
	}
	if amount.LessThanOrEqual(limit) {
		return Decision{Outcome: ApprovalAuto, Ceiling: &limit}
	}
	return Decision{Outcome: ApprovalManual, Ceiling: &limit, EscalateTo: r.approverFor(role, amount)}
}

// approverFor walks up the ladder to the first role whose ceiling covers amount.
func (r *Resolver) approverFor(role domain.Role, amount decimal.Decimal) domain.Role {
	current := role
	for {
		next, ok := current.NextLevel()
		if !ok {
			return current
		}
		policy, found := r.table.Policy(next)
		if found && (policy.BudgetCeiling == nil || amount.LessThanOrEqual(*policy.BudgetCeiling)) {
			return next
		}
		current = next
	}
}
