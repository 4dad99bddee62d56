package domain

import "time"

// AuditAction describes what an audit event records.
type AuditAction string

const (
	AuditTicketCreated      AuditAction = "TICKET_CREATED"
	AuditStatusChanged      AuditAction = "STATUS_CHANGED"
	AuditRerouted           AuditAction = "REROUTED"
	AuditEscalated          AuditAction = "ESCALATED"
	AuditAutoEscalated      AuditAction = "AUTO_ESCALATED"
	AuditPriorityOverridden AuditAction = "PRIORITY_OVERRIDDEN"
	AuditPriorityRescored   AuditAction = "PRIORITY_RESCORED"
	AuditPriorityFlagged    AuditAction = "PRIORITY_FLAGGED"
	AuditBudgetApproved     AuditAction = "BUDGET_APPROVED"
	AuditBudgetEscalated    AuditAction = "BUDGET_ESCALATED"
	AuditEvidenceAttached   AuditAction = "EVIDENCE_ATTACHED"
	AuditReportAdded        AuditAction = "REPORT_ADDED"
	AuditSLABreached        AuditAction = "SLA_BREACHED"
	AuditCandidateApproved  AuditAction = "CANDIDATE_APPROVED"
)

// AuditEvent is an append-only record of a ticket mutation. Seq, PrevHash and
// Hash are assigned by the store when the event is appended.
type AuditEvent struct {
	ID         string
	TicketCode string
	Seq        int64
	Action     AuditAction
	Command    Action
	OldValue   map[string]any
	NewValue   map[string]any
	ActorID    string
	ActorRole  Role
	CreatedAt  time.Time
	PrevHash   string
	Hash       string
}
