package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for grievance tickets.
type TicketStatus string

const (
	TicketStatusOpen                TicketStatus = "OPEN"
	TicketStatusAssigned            TicketStatus = "ASSIGNED"
	TicketStatusInProgress          TicketStatus = "IN_PROGRESS"
	TicketStatusPendingVerification TicketStatus = "PENDING_VERIFICATION"
	TicketStatusClosed              TicketStatus = "CLOSED"
	TicketStatusClosedUnverified    TicketStatus = "CLOSED_UNVERIFIED"
	TicketStatusReopened            TicketStatus = "REOPENED"
	TicketStatusRejected            TicketStatus = "REJECTED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusPendingVerification,
	TicketStatusClosed,
	TicketStatusClosedUnverified,
	TicketStatusReopened,
	TicketStatusRejected,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the sweeper should stop evaluating the ticket.
// CLOSED is terminal for sweeping even though a low rating can still reopen it.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusClosed, TicketStatusClosedUnverified, TicketStatusRejected:
		return true
	}
	return false
}

// ActiveStatuses are the non-terminal statuses.
func ActiveStatuses() []TicketStatus {
	out := make([]TicketStatus, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		if !s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// PriorityLabel is derived from the priority score.
type PriorityLabel string

const (
	PriorityCritical PriorityLabel = "CRITICAL"
	PriorityHigh     PriorityLabel = "HIGH"
	PriorityMedium   PriorityLabel = "MEDIUM"
	PriorityLow      PriorityLabel = "LOW"
)

// PrioritySource records who last wrote the score.
type PrioritySource string

const (
	PrioritySourceRules    PrioritySource = "rules"
	PrioritySourceOverride PrioritySource = "human_override"
)

// LocationClass drives the population impact factor.
type LocationClass string

const (
	LocationMainRoad         LocationClass = "main_road"
	LocationHospitalVicinity LocationClass = "hospital_vicinity"
	LocationSchoolVicinity   LocationClass = "school_vicinity"
	LocationMarket           LocationClass = "market"
	LocationResidential      LocationClass = "residential"
	LocationInternalStreet   LocationClass = "internal_street"
	LocationUnknown          LocationClass = "unknown"
)

// TicketSource identifies the intake channel.
type TicketSource string

const (
	SourceVoiceCall   TicketSource = "VOICE_CALL"
	SourceWebPortal   TicketSource = "WEB_PORTAL"
	SourceWhatsApp    TicketSource = "WHATSAPP"
	SourceSocialMedia TicketSource = "SOCIAL_MEDIA"
	SourceNews        TicketSource = "NEWS"
	SourceCPGRAMS     TicketSource = "CPGRAMS"
)

// Valid reports whether the source is known.
func (s TicketSource) Valid() bool {
	switch s {
	case SourceVoiceCall, SourceWebPortal, SourceWhatsApp, SourceSocialMedia, SourceNews, SourceCPGRAMS:
		return true
	}
	return false
}

// RequiresConsent is true for channels where a citizen submits directly.
func (s TicketSource) RequiresConsent() bool {
	switch s {
	case SourceVoiceCall, SourceWebPortal, SourceWhatsApp:
		return true
	}
	return false
}

// ExternallySourced is true for scraped or forwarded complaints with no
// citizen on the line to answer a clarification question.
func (s TicketSource) ExternallySourced() bool {
	return s == SourceSocialMedia || s == SourceNews
}

// AssignmentKind distinguishes a human accept from escalations.
type AssignmentKind string

const (
	AssignmentAccept       AssignmentKind = "ACCEPT"
	AssignmentEscalate     AssignmentKind = "ESCALATE"
	AssignmentAutoEscalate AssignmentKind = "AUTO_ESCALATE"
)

// GeoPoint is an optional WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ticket is the aggregate for a citizen grievance.
//
// Pointer fields are replaced, never mutated in place, so a shallow copy is a
// safe snapshot.
type Ticket struct {
	Code          string
	Source        TicketSource
	Description   string
	DepartmentID  string
	Subcategory   string
	WardID        int
	ZoneID        int
	Location      *GeoPoint
	LocationClass LocationClass
	ReporterName  string
	ReporterPhone string
	ConsentGiven  bool
	AIConfidence  float64

	PriorityScore   float64
	PriorityLabel   PriorityLabel
	PrioritySource  PrioritySource
	EscalationBonus float64

	Status              TicketStatus
	ReportCount         int
	SocialMentions      int
	RequiresHumanReview bool
	Candidate           bool
	SLADeadline         time.Time

	BeforePhotoURI string
	AfterPhotoURI  string

	AssignedOfficerID *string
	AssignedBy        AssignmentKind
	EscalationTarget  Role

	ApprovedBudget      decimal.Decimal
	CitizenSatisfaction *int

	CreatedAt             time.Time
	UpdatedAt             time.Time
	AssignedAt            *time.Time
	PendingVerificationAt *time.Time
	ResolvedAt            *time.Time
	SLABreachedAt         *time.Time
	AutoEscalatedAt       *time.Time

	Version int64
}

// HasEvidence reports whether both before and after photos are attached.
func (t Ticket) HasEvidence() bool {
	return t.BeforePhotoURI != "" && t.AfterPhotoURI != ""
}

// MissingEvidence names the absent evidence kinds.
func (t Ticket) MissingEvidence() []string {
	var missing []string
	if t.BeforePhotoURI == "" {
		missing = append(missing, string(EvidenceBefore))
	}
	if t.AfterPhotoURI == "" {
		missing = append(missing, string(EvidenceAfter))
	}
	return missing
}

// Overridden reports whether a commissioner pinned the score.
func (t Ticket) Overridden() bool {
	return t.PrioritySource == PrioritySourceOverride
}

// EvidenceKind identifies a before or after photo.
type EvidenceKind string

const (
	EvidenceBefore EvidenceKind = "before"
	EvidenceAfter  EvidenceKind = "after"
)

// Valid reports whether the kind is known.
func (k EvidenceKind) Valid() bool {
	return k == EvidenceBefore || k == EvidenceAfter
}
