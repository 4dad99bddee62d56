package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ComplaintRequest payload for POST /complaints.
type ComplaintRequest struct {
	Source         domain.TicketSource `json:"source"`
	Description    string              `json:"description"`
	WardID         int                 `json:"ward_id"`
	Location       *domain.GeoPoint    `json:"location,omitempty"`
	LocationType   string              `json:"location_type,omitempty"`
	ReporterName   string              `json:"reporter_name,omitempty"`
	ReporterPhone  string              `json:"reporter_phone,omitempty"`
	ConsentGiven   bool                `json:"consent_given"`
	PhotoURI       string              `json:"photo_uri,omitempty"`
	SocialMentions int                 `json:"social_mentions,omitempty"`
}

// ClarificationResponse is returned with 202 when a complaint cannot be routed yet.
type ClarificationResponse struct {
	Question     string  `json:"question"`
	Confidence   float64 `json:"confidence"`
	DepartmentID string  `json:"department_id,omitempty"`
}

// FeedbackRequest payload for POST /track/:code/feedback.
type FeedbackRequest struct {
	Phone  string `json:"phone"`
	Fixed  *bool  `json:"fixed,omitempty"`
	Rating *int   `json:"rating,omitempty"`
}

// DuplicateReportRequest payload for POST /complaints/:code/duplicate.
type DuplicateReportRequest struct {
	Phone          string `json:"phone,omitempty"`
	SocialMentions int    `json:"social_mentions,omitempty"`
}

// ActionRequest payload for POST /officer/tickets/:code/actions.
type ActionRequest struct {
	Action       domain.Action       `json:"action"`
	DepartmentID string              `json:"department_id,omitempty"`
	EvidenceKind domain.EvidenceKind `json:"evidence_kind,omitempty"`
	EvidenceURI  string              `json:"evidence_uri,omitempty"`
	Score        *float64            `json:"score,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Amount       decimal.Decimal     `json:"amount"`
}

// ApprovalRequest payload for POST /officer/approvals/resolve.
type ApprovalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Role   domain.Role     `json:"role,omitempty"`
}

// TicketResponse is the officer view of a ticket.
type TicketResponse struct {
	Code                string                `json:"code"`
	Source              domain.TicketSource   `json:"source"`
	Description         string                `json:"description"`
	DepartmentID        string                `json:"department_id"`
	Subcategory         string                `json:"subcategory,omitempty"`
	WardID              int                   `json:"ward_id"`
	ZoneID              int                   `json:"zone_id"`
	Location            *domain.GeoPoint      `json:"location,omitempty"`
	LocationClass       domain.LocationClass  `json:"location_type"`
	ReporterName        string                `json:"reporter_name,omitempty"`
	ReporterPhone       string                `json:"reporter_phone,omitempty"`
	AIConfidence        float64               `json:"ai_confidence"`
	PriorityScore       float64               `json:"priority_score"`
	PriorityLabel       domain.PriorityLabel  `json:"priority_label"`
	PrioritySource      domain.PrioritySource `json:"priority_source"`
	EscalationBonus     float64               `json:"escalation_bonus"`
	Status              domain.TicketStatus   `json:"status"`
	ReportCount         int                   `json:"report_count"`
	SocialMentions      int                   `json:"social_mentions"`
	RequiresHumanReview bool                  `json:"requires_human_review"`
	Candidate           bool                  `json:"candidate"`
	SLADeadline         time.Time             `json:"sla_deadline"`
	SLABreached         bool                  `json:"sla_breached"`
	BeforePhotoURI      string                `json:"before_photo_uri,omitempty"`
	AfterPhotoURI       string                `json:"after_photo_uri,omitempty"`
	AssignedOfficerID   *string               `json:"assigned_officer_id"`
	AssignedBy          domain.AssignmentKind `json:"assigned_by,omitempty"`
	EscalationTarget    domain.Role           `json:"escalation_target,omitempty"`
	ApprovedBudget      decimal.Decimal       `json:"approved_budget"`
	CitizenSatisfaction *int                  `json:"citizen_satisfaction,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	ResolvedAt          *time.Time            `json:"resolved_at,omitempty"`
	Version             int64                 `json:"version"`
}

// TrackResponse is the public view returned by ticket code lookup. It omits
// reporter details and officer identities.
type TrackResponse struct {
	Code          string               `json:"code"`
	DepartmentID  string               `json:"department_id"`
	WardID        int                  `json:"ward_id"`
	Status        domain.TicketStatus  `json:"status"`
	PriorityLabel domain.PriorityLabel `json:"priority_label"`
	SLADeadline   time.Time            `json:"sla_deadline"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

// AuditEventResponse is one entry of a ticket's audit trail.
type AuditEventResponse struct {
	Seq       int64          `json:"seq"`
	Action    string         `json:"action"`
	Command   string         `json:"command,omitempty"`
	OldValue  map[string]any `json:"old_value,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	ActorID   string         `json:"actor_id"`
	ActorRole domain.Role    `json:"actor_role"`
	CreatedAt time.Time      `json:"created_at"`
	Hash      string         `json:"hash"`
}

// AuditTrailResponse wraps the trail with its chain check.
type AuditTrailResponse struct {
	Events   []AuditEventResponse `json:"events"`
	Verified bool                 `json:"verified"`
}

// SweepResponse reports cycle counts only.
type SweepResponse struct {
	Mode    string    `json:"mode"`
	At      time.Time `json:"at"`
	Tickets int       `json:"tickets"`
	Changed int       `json:"changed"`
	Failed  int       `json:"failed"`
	Intents int       `json:"intents"`
}
