package lifecycle

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// Command is an action request plus its payload. Only the fields relevant to
// Action are read.
type Command struct {
	Action domain.Action

	// DepartmentID is the reroute target, or an optional correction when a
	// candidate is approved.
	DepartmentID string
	// EscalateTo is the officer the orchestrator resolved for the escalation
	// target role, if any.
	EscalateTo *string

	EvidenceKind domain.EvidenceKind
	EvidenceURI  string

	CitizenConfirmed bool
	Verification     *domain.PhotoVerification
	Satisfaction     *int
	Rating           int

	Score  *float64
	Reason string

	Amount decimal.Decimal

	SocialMentions int
}

// Validate rejects malformed payloads before any state is inspected.
func (c Command) Validate() error {
	if !c.Action.Valid() {
		return apperrors.NewValidationError("unknown action", map[string]any{"action": c.Action})
	}
	details := map[string]any{}
	switch c.Action {
	case domain.ActionReroute:
		if strings.TrimSpace(c.DepartmentID) == "" {
			details["department_id"] = "required"
		}
	case domain.ActionAttachEvidence:
		if !c.EvidenceKind.Valid() {
			details["evidence_kind"] = "must be before or after"
		}
		if strings.TrimSpace(c.EvidenceURI) == "" {
			details["evidence_uri"] = "required"
		}
	case domain.ActionOverridePriority:
		if c.Score == nil || math.IsNaN(*c.Score) || math.IsInf(*c.Score, 0) {
			details["score"] = "a numeric score is required"
		}
		if strings.TrimSpace(c.Reason) == "" {
			details["reason"] = "required"
		}
	case domain.ActionApproveBudget:
		if !c.Amount.IsPositive() {
			details["amount"] = "must be positive"
		}
	case domain.ActionLowRating:
		if c.Rating < 1 || c.Rating > 5 {
			details["rating"] = "must be between 1 and 5"
		}
	case domain.ActionConfirmFixed:
		if c.Satisfaction != nil && (*c.Satisfaction < 1 || *c.Satisfaction > 5) {
			details["satisfaction"] = "must be between 1 and 5"
		}
	case domain.ActionAddReport:
		if c.SocialMentions < 0 {
			details["social_mentions"] = "must not be negative"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid command", details)
	}
	return nil
}
