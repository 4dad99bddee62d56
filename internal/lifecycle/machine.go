// Package lifecycle is the ticket state machine. Transitions are pure: they
// return the next ticket plus the intents the caller must execute.
package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/priority"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// Config holds the wall-clock windows and bonuses transitions depend on.
type Config struct {
	VerificationWindow       time.Duration
	LowRatingWindow          time.Duration
	NoActionGrace            time.Duration
	ReopenBonus              float64
	PhotoConfidenceThreshold float64
}

// DefaultConfig returns production windows.
func DefaultConfig() Config {
	return Config{
		VerificationWindow:       72 * time.Hour,
		LowRatingWindow:          7 * 24 * time.Hour,
		NoActionGrace:            24 * time.Hour,
		ReopenBonus:              10,
		PhotoConfidenceThreshold: 0.85,
	}
}

// Outcome is the result of a successful transition.
type Outcome struct {
	Ticket   domain.Ticket
	Intents  []domain.Intent
	Approval *access.Decision
}

// Machine applies commands to tickets.
type Machine struct {
	cfg         Config
	departments domain.DepartmentTable
	access      *access.Resolver
}

// NewMachine builds a state machine over fixed reference tables.
func NewMachine(cfg Config, departments domain.DepartmentTable, resolver *access.Resolver) *Machine {
	return &Machine{cfg: cfg, departments: departments, access: resolver}
}

// Config exposes the machine's windows.
func (m *Machine) Config() Config {
	return m.cfg
}

// Departments exposes the routing table the machine validates against.
func (m *Machine) Departments() domain.DepartmentTable {
	return m.departments
}

// Apply validates, authorizes and applies cmd to t. Refusals leave t untouched
// and carry a typed error code.
func (m *Machine) Apply(t domain.Ticket, actor domain.Actor, cmd Command, now time.Time) (Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := m.access.Authorize(actor, t, cmd.Action); err != nil {
		return Outcome{}, err
	}
	tr, ok := lookup(t.Status, cmd.Action)
	if !ok || !candidateGate(t, cmd.Action) {
		return Outcome{}, apperrors.NewIllegalTransition(string(t.Status), string(cmd.Action))
	}

	next := t
	c := &change{
		machine: m,
		before:  t,
		t:       &next,
		actor:   actor,
		cmd:     cmd,
		now:     now,
		old:     map[string]any{},
		new:     map[string]any{},
	}
	if err := tr.apply(c); err != nil {
		return Outcome{}, err
	}

	next.Status = tr.to
	next.UpdatedAt = now
	priority.Rescore(&next, now)
	// Effects run before the status moves; stamp the final state.
	for i := range c.intents {
		if c.intents[i].Kind == domain.IntentNotifyOfficer {
			c.intents[i].Data = ticketState(next)
		}
	}

	auditAction := c.auditAction
	if auditAction == "" {
		auditAction = domain.AuditStatusChanged
	}
	c.old["status"] = string(t.Status)
	c.new["status"] = string(next.Status)
	audit := NewAuditIntent(next.Code, actor, auditAction, cmd.Action, c.old, c.new, now)

	intents := make([]domain.Intent, 0, len(c.intents)+1)
	intents = append(intents, audit)
	intents = append(intents, c.intents...)
	return Outcome{Ticket: next, Intents: compact(intents), Approval: c.approval}, nil
}

// EscalationTarget reports which role an escalating command hands the ticket
// to, so the caller can resolve a concrete officer before applying it.
func (m *Machine) EscalationTarget(t domain.Ticket, actor domain.Actor, action domain.Action) (domain.Role, bool) {
	switch action {
	case domain.ActionDispute, domain.ActionNoAction:
		return domain.RoleZonalOfficer, true
	case domain.ActionEscalate:
		return nextEscalationLevel(t, actor)
	}
	return "", false
}

func nextEscalationLevel(t domain.Ticket, actor domain.Actor) (domain.Role, bool) {
	base := t.EscalationTarget
	if base == "" {
		base = domain.RoleWardOfficer
	}
	if actor.Role.Rank() > base.Rank() {
		base = actor.Role
	}
	return base.NextLevel()
}

// Draft is the attribute set a new ticket is created from.
type Draft struct {
	Code                string
	Source              domain.TicketSource
	Description         string
	DepartmentID        string
	Subcategory         string
	WardID              int
	ZoneID              int
	Location            *domain.GeoPoint
	LocationClass       domain.LocationClass
	ReporterName        string
	ReporterPhone       string
	ConsentGiven        bool
	AIConfidence        float64
	RequiresHumanReview bool
	Candidate           bool
	SocialMentions      int
	BeforePhotoURI      string
}

// Create builds a ticket in its initial state with its creation audit event.
func (m *Machine) Create(d Draft, actor domain.Actor, now time.Time) (Outcome, error) {
	details := map[string]any{}
	if strings.TrimSpace(d.Code) == "" {
		details["code"] = "required"
	}
	if strings.TrimSpace(d.Description) == "" {
		details["description"] = "required"
	}
	if !d.Source.Valid() {
		details["source"] = "unknown source"
	}
	dept, ok := m.departments.Lookup(d.DepartmentID)
	if !ok {
		details["department_id"] = "unknown department"
	}
	if d.WardID <= 0 {
		details["ward_id"] = "required"
	}
	if d.ZoneID <= 0 {
		details["zone_id"] = "required"
	}
	if d.SocialMentions < 0 {
		details["social_mentions"] = "must not be negative"
	}
	if len(details) > 0 {
		return Outcome{}, apperrors.NewValidationError("invalid ticket", details)
	}
	if d.Source.RequiresConsent() && !d.ConsentGiven {
		return Outcome{}, apperrors.NewConsentRequired()
	}

	class := d.LocationClass
	if class == "" {
		class = domain.LocationUnknown
	}
	t := domain.Ticket{
		Code:                d.Code,
		Source:              d.Source,
		Description:         strings.TrimSpace(d.Description),
		DepartmentID:        dept.ID,
		Subcategory:         d.Subcategory,
		WardID:              d.WardID,
		ZoneID:              d.ZoneID,
		Location:            d.Location,
		LocationClass:       class,
		ReporterName:        d.ReporterName,
		ReporterPhone:       d.ReporterPhone,
		ConsentGiven:        d.ConsentGiven,
		AIConfidence:        d.AIConfidence,
		PrioritySource:      domain.PrioritySourceRules,
		Status:              domain.TicketStatusOpen,
		ReportCount:         1,
		SocialMentions:      d.SocialMentions,
		RequiresHumanReview: d.RequiresHumanReview || d.Candidate,
		Candidate:           d.Candidate,
		SLADeadline:         dept.SLADeadline(now),
		BeforePhotoURI:      d.BeforePhotoURI,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	priority.Rescore(&t, now)

	intents := []domain.Intent{
		NewAuditIntent(t.Code, actor, domain.AuditTicketCreated, "", nil, map[string]any{
			"status":         string(t.Status),
			"department_id":  t.DepartmentID,
			"priority_score": t.PriorityScore,
			"priority_label": string(t.PriorityLabel),
			"source":         string(t.Source),
			"candidate":      t.Candidate,
		}, now),
	}
	if !t.Candidate {
		intents = append(intents, notifyOfficer(t, recipientForRole(t, domain.RoleWardOfficer, nil),
			"New "+string(t.PriorityLabel)+" complaint "+t.Code+" in your ward"))
		intents = append(intents, notifyCitizen(t,
			"Your complaint is registered as "+t.Code+". Resolution due by "+t.SLADeadline.Format("02 Jan 2006")))
	}
	return Outcome{Ticket: t, Intents: compact(intents)}, nil
}

// compact drops citizen notifications for tickets without a reporter phone.
func compact(intents []domain.Intent) []domain.Intent {
	out := intents[:0]
	for _, intent := range intents {
		if intent.Recipient != nil && intent.Kind != domain.IntentNotifyOfficer && intent.Recipient.Phone == "" {
			continue
		}
		out = append(out, intent)
	}
	return out
}
