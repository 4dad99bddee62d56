package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/priority"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// change carries one transition in flight. Effects mutate t and describe the
// audit delta in old/new.
type change struct {
	machine     *Machine
	before      domain.Ticket
	t           *domain.Ticket
	actor       domain.Actor
	cmd         Command
	now         time.Time
	auditAction domain.AuditAction
	old         map[string]any
	new         map[string]any
	intents     []domain.Intent
	approval    *access.Decision
}

type effect func(c *change) error

func (c *change) refuse() error {
	return apperrors.NewIllegalTransition(string(c.before.Status), string(c.cmd.Action))
}

func (c *change) emit(intents ...domain.Intent) {
	c.intents = append(c.intents, intents...)
}

func (c *change) assignTo(officerID *string, kind domain.AssignmentKind) {
	c.old["assigned_officer_id"] = deref(c.before.AssignedOfficerID)
	c.t.AssignedOfficerID = officerID
	c.t.AssignedBy = kind
	if officerID != nil {
		at := c.now
		c.t.AssignedAt = &at
	} else {
		c.t.AssignedAt = nil
	}
	c.new["assigned_officer_id"] = deref(officerID)
}

func accept(c *change) error {
	// An owned ASSIGNED ticket can only be taken over by the zonal officer.
	if c.before.Status == domain.TicketStatusAssigned && c.before.AssignedOfficerID != nil &&
		c.actor.Role != domain.RoleZonalOfficer {
		return c.refuse()
	}
	id := c.actor.ID
	c.assignTo(&id, domain.AssignmentAccept)
	c.t.EscalationTarget = ""
	c.emit(notifyCitizen(*c.t, fmt.Sprintf("Complaint %s has been accepted by an officer", c.t.Code)))
	return nil
}

func reroute(c *change) error {
	dept, ok := c.machine.departments.Lookup(c.cmd.DepartmentID)
	if !ok {
		return apperrors.NewValidationError("unknown department", map[string]any{"department_id": c.cmd.DepartmentID})
	}
	if dept.ID == c.before.DepartmentID {
		return apperrors.NewValidationError("ticket already routed to department", map[string]any{"department_id": dept.ID})
	}
	c.auditAction = domain.AuditRerouted
	c.old["department_id"] = c.before.DepartmentID
	c.old["sla_deadline"] = c.before.SLADeadline
	c.assignTo(nil, "")

	c.t.DepartmentID = dept.ID
	c.t.SLADeadline = dept.SLADeadline(c.now)
	c.t.EscalationTarget = ""
	c.t.SLABreachedAt = nil
	c.t.AutoEscalatedAt = nil
	c.new["department_id"] = dept.ID
	c.new["sla_deadline"] = c.t.SLADeadline

	c.emit(
		notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, nil),
			fmt.Sprintf("Complaint %s rerouted to %s", c.t.Code, dept.Name)),
		notifyCitizen(*c.t, fmt.Sprintf("Complaint %s has been moved to %s", c.t.Code, dept.Name)),
	)
	return nil
}

func dispatch(c *change) error {
	if c.before.AssignedOfficerID == nil {
		return c.refuse()
	}
	c.emit(notifyCitizen(*c.t, fmt.Sprintf("Work has started on complaint %s", c.t.Code)))
	return nil
}

func markComplete(c *change) error {
	if !c.before.HasEvidence() {
		return apperrors.NewEvidenceMissing(c.before.MissingEvidence())
	}
	at := c.now
	c.t.PendingVerificationAt = &at
	c.emit(
		notifyCitizen(*c.t, fmt.Sprintf("Complaint %s is marked resolved. Reply YES if fixed or NO if not.", c.t.Code)),
		domain.Intent{
			Kind:       domain.IntentScheduleVerificationCall,
			TicketCode: c.t.Code,
			Recipient:  &domain.Recipient{Role: domain.RoleCitizen, Phone: c.t.ReporterPhone},
			Message:    fmt.Sprintf("Verification call for complaint %s", c.t.Code),
			Data:       map[string]any{"before": c.t.BeforePhotoURI, "after": c.t.AfterPhotoURI},
		},
	)
	return nil
}

func confirmFixed(c *change) error {
	if !c.cmd.CitizenConfirmed {
		return apperrors.NewVerificationFailed("citizen confirmation is required")
	}
	v := c.cmd.Verification
	if v == nil {
		return apperrors.NewVerificationFailed("photo verification result is required")
	}
	basis := "ai_match"
	if v.Inconclusive(c.machine.cfg.PhotoConfidenceThreshold) {
		basis = "citizen_only"
	} else if !v.WorkCompleted {
		return apperrors.NewVerificationFailed("photo comparison shows the work is not complete")
	}
	at := c.now
	c.t.ResolvedAt = &at
	if c.cmd.Satisfaction != nil {
		rating := *c.cmd.Satisfaction
		c.t.CitizenSatisfaction = &rating
		c.new["citizen_satisfaction"] = rating
	}
	c.new["verification"] = basis
	c.new["verification_confidence"] = v.Confidence
	c.emit(
		notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, c.t.AssignedOfficerID),
			fmt.Sprintf("Complaint %s verified and closed", c.t.Code)),
		notifyCitizen(*c.t, fmt.Sprintf("Thank you. Complaint %s is closed.", c.t.Code)),
	)
	return nil
}

func dispute(c *change) error {
	c.reopen()
	c.t.EscalationTarget = domain.RoleZonalOfficer
	c.assignTo(c.cmd.EscalateTo, domain.AssignmentEscalate)
	if c.cmd.EscalateTo == nil {
		c.t.AssignedBy = ""
	}
	c.new["escalation_target"] = string(domain.RoleZonalOfficer)
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleZonalOfficer, c.cmd.EscalateTo),
		fmt.Sprintf("Citizen disputed the resolution of %s", c.t.Code)))
	return nil
}

func timeout(c *change) error {
	started := c.before.PendingVerificationAt
	if started == nil || c.now.Sub(*started) < c.machine.cfg.VerificationWindow {
		return apperrors.NewValidationError("verification window is still open", map[string]any{"code": c.before.Code})
	}
	at := c.now
	c.t.ResolvedAt = &at
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, c.t.AssignedOfficerID),
		fmt.Sprintf("Complaint %s closed without citizen verification", c.t.Code)))
	return nil
}

func lowRating(c *change) error {
	if c.cmd.Rating > 2 {
		return apperrors.NewValidationError("only ratings of 1 or 2 reopen a ticket", map[string]any{"rating": c.cmd.Rating})
	}
	resolved := c.before.ResolvedAt
	if resolved == nil || c.now.Sub(*resolved) > c.machine.cfg.LowRatingWindow {
		return apperrors.NewValidationError("rating window has elapsed", map[string]any{"code": c.before.Code})
	}
	c.reopen()
	rating := c.cmd.Rating
	c.t.CitizenSatisfaction = &rating
	// The same officer is asked to redo the work.
	c.t.EscalationTarget = domain.RoleWardOfficer
	c.new["citizen_satisfaction"] = rating
	c.new["escalation_target"] = string(domain.RoleWardOfficer)
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, c.t.AssignedOfficerID),
		fmt.Sprintf("Complaint %s reopened after a %d-star rating", c.t.Code, rating)))
	return nil
}

// reopen sets the reopen bonus. It is assigned, not added, so repeated
// reopens never compound.
func (c *change) reopen() {
	c.old["escalation_bonus"] = c.before.EscalationBonus
	c.t.EscalationBonus = c.machine.cfg.ReopenBonus
	c.t.PendingVerificationAt = nil
	c.t.ResolvedAt = nil
	c.new["escalation_bonus"] = c.t.EscalationBonus
}

func noAction(c *change) error {
	if c.before.AutoEscalatedAt != nil || !c.now.After(c.before.SLADeadline.Add(c.machine.cfg.NoActionGrace)) {
		return apperrors.NewValidationError("ticket is not eligible for auto-escalation", map[string]any{"code": c.before.Code})
	}
	c.auditAction = domain.AuditAutoEscalated
	at := c.now
	c.t.AutoEscalatedAt = &at
	c.t.EscalationTarget = domain.RoleZonalOfficer
	c.assignTo(c.cmd.EscalateTo, domain.AssignmentAutoEscalate)
	c.new["escalation_target"] = string(domain.RoleZonalOfficer)
	c.new["triggered_by"] = "system"
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleZonalOfficer, c.cmd.EscalateTo),
		fmt.Sprintf("Complaint %s auto-escalated after no action past its SLA", c.t.Code)))
	return nil
}

func escalate(c *change) error {
	target, ok := nextEscalationLevel(c.before, c.actor)
	if !ok {
		return apperrors.NewValidationError("ticket is already at the top of the escalation ladder", nil)
	}
	c.auditAction = domain.AuditEscalated
	c.old["escalation_target"] = string(c.before.EscalationTarget)
	c.t.EscalationTarget = target
	c.assignTo(c.cmd.EscalateTo, domain.AssignmentEscalate)
	c.new["escalation_target"] = string(target)
	if c.cmd.Reason != "" {
		c.new["reason"] = c.cmd.Reason
	}
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, target, c.cmd.EscalateTo),
		fmt.Sprintf("Complaint %s escalated to you", c.t.Code)))
	return nil
}

func reject(c *change) error {
	if c.cmd.Reason != "" {
		c.new["reason"] = c.cmd.Reason
	}
	return nil
}

func approveCandidate(c *change) error {
	c.auditAction = domain.AuditCandidateApproved
	c.old["candidate"] = true
	c.t.Candidate = false
	c.t.RequiresHumanReview = false
	if c.cmd.DepartmentID != "" && c.cmd.DepartmentID != c.before.DepartmentID {
		dept, ok := c.machine.departments.Lookup(c.cmd.DepartmentID)
		if !ok {
			return apperrors.NewValidationError("unknown department", map[string]any{"department_id": c.cmd.DepartmentID})
		}
		c.old["department_id"] = c.before.DepartmentID
		c.t.DepartmentID = dept.ID
		c.t.SLADeadline = dept.SLADeadline(c.now)
		c.new["department_id"] = dept.ID
	}
	c.new["candidate"] = false
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, nil),
		fmt.Sprintf("New %s complaint %s in your ward", c.t.PriorityLabel, c.t.Code)))
	return nil
}

func overridePriority(c *change) error {
	score := math.Max(0, math.Min(100, *c.cmd.Score))
	c.auditAction = domain.AuditPriorityOverridden
	c.old["priority_score"] = c.before.PriorityScore
	c.old["priority_label"] = string(c.before.PriorityLabel)
	c.old["priority_source"] = string(c.before.PrioritySource)

	c.t.PriorityScore = score
	c.t.PriorityLabel = priority.Label(score)
	c.t.PrioritySource = domain.PrioritySourceOverride

	c.new["priority_score"] = score
	c.new["priority_label"] = string(c.t.PriorityLabel)
	c.new["priority_source"] = string(domain.PrioritySourceOverride)
	c.new["reason"] = c.cmd.Reason
	return nil
}

func approveBudget(c *change) error {
	decision := c.machine.access.ResolveApproval(c.actor.Role, c.cmd.Amount)
	c.approval = &decision
	switch decision.Outcome {
	case access.ApprovalDenied:
		return apperrors.NewScopeDenied(fmt.Sprintf("role %s may not approve %s", c.actor.Role, c.cmd.Amount))
	case access.ApprovalManual:
		c.auditAction = domain.AuditBudgetEscalated
		c.new["amount"] = c.cmd.Amount.String()
		c.new["escalate_to"] = string(decision.EscalateTo)
		c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, decision.EscalateTo, nil),
			fmt.Sprintf("Budget of %s for complaint %s needs your approval", c.cmd.Amount, c.t.Code)))
	default:
		c.auditAction = domain.AuditBudgetApproved
		c.old["approved_budget"] = c.before.ApprovedBudget.String()
		c.t.ApprovedBudget = c.before.ApprovedBudget.Add(c.cmd.Amount)
		c.new["approved_budget"] = c.t.ApprovedBudget.String()
		c.new["amount"] = c.cmd.Amount.String()
	}
	return nil
}

func flagPriority(c *change) error {
	c.auditAction = domain.AuditPriorityFlagged
	if c.cmd.Reason != "" {
		c.new["reason"] = c.cmd.Reason
	}
	c.emit(notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, nil),
		fmt.Sprintf("Ward councillor flagged complaint %s for priority", c.t.Code)))
	return nil
}

func attachEvidence(c *change) error {
	c.auditAction = domain.AuditEvidenceAttached
	key := string(c.cmd.EvidenceKind) + "_photo"
	switch c.cmd.EvidenceKind {
	case domain.EvidenceBefore:
		c.old[key] = c.before.BeforePhotoURI
		c.t.BeforePhotoURI = c.cmd.EvidenceURI
	case domain.EvidenceAfter:
		c.old[key] = c.before.AfterPhotoURI
		c.t.AfterPhotoURI = c.cmd.EvidenceURI
	}
	c.new[key] = c.cmd.EvidenceURI
	return nil
}

func addReport(c *change) error {
	c.auditAction = domain.AuditReportAdded
	c.old["report_count"] = c.before.ReportCount
	c.t.ReportCount = c.before.ReportCount + 1
	c.new["report_count"] = c.t.ReportCount
	if c.cmd.SocialMentions > c.before.SocialMentions {
		c.old["social_mentions"] = c.before.SocialMentions
		c.t.SocialMentions = c.cmd.SocialMentions
		c.new["social_mentions"] = c.t.SocialMentions
	}
	return nil
}

func slaBreach(c *change) error {
	if c.before.SLABreachedAt != nil || c.before.SLADeadline.After(c.now) {
		return c.refuse()
	}
	c.auditAction = domain.AuditSLABreached
	at := c.now
	c.t.SLABreachedAt = &at
	c.old["sla_breached"] = false
	c.new["sla_breached"] = true
	c.new["sla_deadline"] = c.before.SLADeadline
	msg := fmt.Sprintf("Complaint %s breached its SLA deadline", c.t.Code)
	c.emit(
		notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleWardOfficer, c.t.AssignedOfficerID), msg),
		notifyOfficer(*c.t, recipientForRole(*c.t, domain.RoleZonalOfficer, nil), msg),
	)
	return nil
}

// NewAuditIntent wraps an audit event for the caller to persist.
func NewAuditIntent(code string, actor domain.Actor, action domain.AuditAction, cmd domain.Action, oldValue, newValue map[string]any, now time.Time) domain.Intent {
	return domain.Intent{
		Kind:       domain.IntentAuditWrite,
		TicketCode: code,
		Audit: &domain.AuditEvent{
			TicketCode: code,
			Action:     action,
			Command:    cmd,
			OldValue:   oldValue,
			NewValue:   newValue,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			CreatedAt:  now,
		},
	}
}

func notifyOfficer(t domain.Ticket, to domain.Recipient, message string) domain.Intent {
	return domain.Intent{
		Kind:       domain.IntentNotifyOfficer,
		TicketCode: t.Code,
		Recipient:  &to,
		Message:    message,
		Data:       ticketState(t),
	}
}

// ticketState is the status snapshot officer notifications carry.
func ticketState(t domain.Ticket) map[string]any {
	return map[string]any{
		"status":         string(t.Status),
		"priority_label": string(t.PriorityLabel),
	}
}

func notifyCitizen(t domain.Ticket, message string) domain.Intent {
	return domain.Intent{
		Kind:       domain.IntentNotifyCitizen,
		TicketCode: t.Code,
		Recipient:  &domain.Recipient{Role: domain.RoleCitizen, Phone: t.ReporterPhone},
		Message:    message,
	}
}

func recipientForRole(t domain.Ticket, role domain.Role, officerID *string) domain.Recipient {
	r := domain.Recipient{Role: role, OfficerID: officerID}
	switch role {
	case domain.RoleWardOfficer:
		r.WardID = t.WardID
	case domain.RoleZonalOfficer:
		r.ZoneID = t.ZoneID
	case domain.RoleDeptHead:
		r.DepartmentID = t.DepartmentID
	}
	return r
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
