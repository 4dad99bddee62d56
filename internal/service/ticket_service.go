package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/locking"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/priority"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/ticketcode"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const defaultClarificationQuestion = "Could you describe the problem and where exactly it is?"

// ClassificationPolicy bounds classifier calls and sets the confidence bands.
type ClassificationPolicy struct {
	MaxAttempts       int
	AttemptTimeout    time.Duration
	RetryBackoff      time.Duration
	DefaultDepartment string
	AutoCreate        float64
	Review            float64
}

// DefaultClassificationPolicy returns production bands.
func DefaultClassificationPolicy() ClassificationPolicy {
	return ClassificationPolicy{
		MaxAttempts:       3,
		AttemptTimeout:    10 * time.Second,
		RetryBackoff:      500 * time.Millisecond,
		DefaultDepartment: "D01",
		AutoCreate:        0.85,
		Review:            0.75,
	}
}

// TicketService coordinates ticket workflows around the pure lifecycle core.
type TicketService struct {
	tickets     repository.TicketRepository
	audits      repository.AuditRepository
	assignments *AssignmentService
	machine     *lifecycle.Machine
	access      *access.Resolver
	wards       access.WardDirectory
	codes       ticketcode.Generator
	locker      locking.Locker
	limiter     ratelimit.Limiter
	classifier  Classifier
	verifier    PhotoVerifier
	evidence    EvidenceStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	policy      ClassificationPolicy
	flagWindow  time.Duration
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AuditRepo   repository.AuditRepository
	Assignments *AssignmentService
	Machine     *lifecycle.Machine
	Access      *access.Resolver
	Wards       access.WardDirectory
	Codes       ticketcode.Generator
	Locker      locking.Locker
	Limiter     ratelimit.Limiter
	Classifier  Classifier
	Verifier    PhotoVerifier
	Evidence    EvidenceStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Policy      ClassificationPolicy
	FlagWindow  time.Duration
	Clock       func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.Policy
	defaults := DefaultClassificationPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = defaults.AttemptTimeout
	}
	if policy.DefaultDepartment == "" {
		policy.DefaultDepartment = defaults.DefaultDepartment
	}
	if policy.AutoCreate == 0 {
		policy.AutoCreate = defaults.AutoCreate
	}
	if policy.Review == 0 {
		policy.Review = defaults.Review
	}
	flagWindow := deps.FlagWindow
	if flagWindow <= 0 {
		flagWindow = 7 * 24 * time.Hour
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		audits:      deps.AuditRepo,
		assignments: deps.Assignments,
		machine:     deps.Machine,
		access:      deps.Access,
		wards:       deps.Wards,
		codes:       deps.Codes,
		locker:      deps.Locker,
		limiter:     deps.Limiter,
		classifier:  deps.Classifier,
		verifier:    deps.Verifier,
		evidence:    deps.Evidence,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		policy:      policy,
		flagWindow:  flagWindow,
		now:         clock,
	}
}

// ComplaintInput is a citizen or scraped complaint awaiting classification.
type ComplaintInput struct {
	Source         domain.TicketSource
	Description    string
	WardID         int
	Location       *domain.GeoPoint
	LocationClass  string
	ReporterName   string
	ReporterPhone  string
	ConsentGiven   bool
	PhotoURI       string
	SocialMentions int
}

// Clarification is returned instead of a ticket when the classifier is not
// confident enough to route the complaint.
type Clarification struct {
	Question     string  `json:"question"`
	Confidence   float64 `json:"confidence"`
	DepartmentID string  `json:"department_id,omitempty"`
}

// CreateResult holds exactly one of Ticket or Clarification.
type CreateResult struct {
	Ticket        *domain.Ticket
	Clarification *Clarification
}

// CreateTicket classifies a complaint and opens a ticket for it, or asks for
// clarification when confidence is low.
func (s *TicketService) CreateTicket(ctx context.Context, in ComplaintInput) (*CreateResult, error) {
	details := map[string]any{}
	if !in.Source.Valid() {
		details["source"] = "unknown source"
	}
	if strings.TrimSpace(in.Description) == "" {
		details["description"] = "required"
	}
	if in.WardID <= 0 {
		details["ward_id"] = "required"
	}
	if in.SocialMentions < 0 {
		details["social_mentions"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid complaint", details)
	}
	if in.Source.RequiresConsent() && !in.ConsentGiven {
		return nil, apperrors.NewConsentRequired()
	}
	zone, ok := s.wards.ZoneOf(in.WardID)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ward", map[string]any{"ward_id": in.WardID})
	}

	cls, classified := s.classify(ctx, in.Description, in.PhotoURI)
	draft := lifecycle.Draft{
		Source:         in.Source,
		Description:    in.Description,
		WardID:         in.WardID,
		ZoneID:         zone,
		Location:       in.Location,
		ReporterName:   strings.TrimSpace(in.ReporterName),
		ReporterPhone:  strings.TrimSpace(in.ReporterPhone),
		ConsentGiven:   in.ConsentGiven,
		SocialMentions: in.SocialMentions,
		BeforePhotoURI: in.PhotoURI,
	}

	switch {
	case !classified:
		draft.DepartmentID = s.policy.DefaultDepartment
		draft.RequiresHumanReview = true
	case cls.Confidence < s.policy.Review || cls.NeedsClarification:
		if !in.Source.ExternallySourced() {
			question := strings.TrimSpace(cls.ClarificationQuestion)
			if question == "" {
				question = defaultClarificationQuestion
			}
			s.logger.Info("complaint needs clarification",
				zap.String("source", string(in.Source)),
				zap.Float64("confidence", cls.Confidence))
			return &CreateResult{Clarification: &Clarification{
				Question:     question,
				Confidence:   cls.Confidence,
				DepartmentID: cls.DepartmentID,
			}}, nil
		}
		draft.Candidate = true
		draft.RequiresHumanReview = true
	case cls.Confidence < s.policy.AutoCreate:
		draft.RequiresHumanReview = true
	}

	if classified {
		draft.DepartmentID = cls.DepartmentID
		draft.AIConfidence = cls.Confidence
		if priority.KnownSubcategory(cls.Subcategory) {
			draft.Subcategory = cls.Subcategory
		}
	}
	if _, known := s.machine.Departments().Lookup(draft.DepartmentID); !known {
		draft.DepartmentID = s.policy.DefaultDepartment
		draft.RequiresHumanReview = true
	}
	draft.LocationClass = priority.ParseLocationClass(in.LocationClass)
	if draft.LocationClass == domain.LocationUnknown {
		draft.LocationClass = priority.ParseLocationClass(cls.LocationClass)
	}

	now := s.now().UTC()
	code, err := s.codes.Next(ctx, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	draft.Code = code

	actor := intakeActor(in)
	out, err := s.machine.Create(draft, actor, now)
	if err != nil {
		return nil, err
	}
	ticket := out.Ticket
	audits, effects := domain.SplitIntents(out.Intents)
	if err := s.tickets.Create(ctx, &ticket, audits); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, effects, now)

	s.logger.Info("ticket created",
		zap.String("ticket_code", ticket.Code),
		zap.String("department_id", ticket.DepartmentID),
		zap.String("priority_label", string(ticket.PriorityLabel)),
		zap.Bool("requires_human_review", ticket.RequiresHumanReview),
		zap.Bool("candidate", ticket.Candidate))
	return &CreateResult{Ticket: &ticket}, nil
}

// classify calls the classifier with bounded attempts. ok is false when every
// attempt failed.
func (s *TicketService) classify(ctx context.Context, text, photoURI string) (domain.Classification, bool) {
	if s.classifier == nil {
		return domain.Classification{}, false
	}
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.policy.AttemptTimeout)
		cls, err := s.classifier.Classify(attemptCtx, text, photoURI)
		cancel()
		if err == nil {
			return cls, true
		}
		s.logger.Warn("classification attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == s.policy.MaxAttempts || !sleep(ctx, s.policy.RetryBackoff*time.Duration(attempt)) {
			break
		}
	}
	s.logger.Warn("classification unavailable, routing to default department",
		zap.String("department_id", s.policy.DefaultDepartment))
	return domain.Classification{}, false
}

func (s *TicketService) verifyPhotos(ctx context.Context, t domain.Ticket) *domain.PhotoVerification {
	fallback := &domain.PhotoVerification{RequiresHumanReview: true, Explanation: "photo verification unavailable"}
	if s.verifier == nil {
		return fallback
	}
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.policy.AttemptTimeout)
		v, err := s.verifier.VerifyWorkPhotos(attemptCtx, t.BeforePhotoURI, t.AfterPhotoURI, t.Subcategory)
		cancel()
		if err == nil {
			return &v
		}
		s.logger.Warn("photo verification attempt failed",
			zap.String("ticket_code", t.Code), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == s.policy.MaxAttempts || !sleep(ctx, s.policy.RetryBackoff*time.Duration(attempt)) {
			break
		}
	}
	return fallback
}

// ActionResult is a committed transition.
type ActionResult struct {
	Ticket   domain.Ticket
	Intents  []domain.Intent
	Approval *access.Decision
}

// ApplyAction runs one lifecycle command against a ticket under the ticket's
// lock. Refusals are typed errors and leave the ticket unchanged.
func (s *TicketService) ApplyAction(ctx context.Context, code string, actor domain.Actor, cmd lifecycle.Command) (*ActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.refused(code, actor, cmd.Action, err)
	}

	if cmd.Action == domain.ActionConfirmFixed && cmd.Verification == nil {
		current, err := s.load(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := s.access.Authorize(actor, *current, cmd.Action); err != nil {
			return nil, s.refused(code, actor, cmd.Action, err)
		}
		if current.Status == domain.TicketStatusPendingVerification && current.HasEvidence() {
			cmd.Verification = s.verifyPhotos(ctx, *current)
		}
	}

	var (
		approval *access.Decision
		flagKey  string
	)
	now := s.now().UTC()
	ticket, intents, err := s.mutate(ctx, code, actor, func(t domain.Ticket) (domain.Ticket, []domain.Intent, bool, error) {
		if cmd.EscalateTo == nil {
			if role, ok := s.machine.EscalationTarget(t, actor, cmd.Action); ok {
				officer, err := s.assignments.FindEscalationOfficer(ctx, t, role)
				if err != nil {
					s.logger.Warn("escalation officer lookup failed", zap.String("ticket_code", t.Code), zap.Error(err))
				}
				cmd.EscalateTo = officer
			}
		}
		out, err := s.machine.Apply(t, actor, cmd, now)
		if err != nil {
			return t, nil, false, err
		}
		if cmd.Action == domain.ActionFlagPriority {
			key, err := s.consumeFlag(ctx, actor)
			if err != nil {
				return t, nil, false, err
			}
			flagKey = key
		}
		approval = out.Approval
		return out.Ticket, out.Intents, true, nil
	})
	if err != nil {
		// The weekly slot only counts once the flag is stored.
		if flagKey != "" {
			if rerr := s.limiter.Release(context.WithoutCancel(ctx), flagKey); rerr != nil {
				s.logger.Warn("priority flag release failed", zap.String("ticket_code", code), zap.Error(rerr))
			}
		}
		return nil, s.refused(code, actor, cmd.Action, err)
	}

	s.logger.Info("ticket action applied",
		zap.String("ticket_code", code),
		zap.String("action", string(cmd.Action)),
		zap.String("actor_role", string(actor.Role)),
		zap.String("status", string(ticket.Status)))
	return &ActionResult{Ticket: ticket, Intents: intents, Approval: approval}, nil
}

// consumeFlag reserves the councillor's weekly flag and returns the reserved
// key, or "" when no limiter is configured.
func (s *TicketService) consumeFlag(ctx context.Context, actor domain.Actor) (string, error) {
	if s.limiter == nil {
		return "", nil
	}
	key := "flag_priority:" + actor.ID
	allowed, err := s.limiter.Allow(ctx, key, s.flagWindow)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if !allowed {
		return "", apperrors.NewRateLimited("priority flag already used this week")
	}
	return key, nil
}

// refused logs refusals that matter for abuse detection and passes err on.
func (s *TicketService) refused(code string, actor domain.Actor, action domain.Action, err error) error {
	for _, kind := range []string{apperrors.CodeIllegalTransition, apperrors.CodeScopeDenied, apperrors.CodeEvidenceMissing} {
		if apperrors.HasCode(err, kind) {
			s.logger.Info("ticket action refused",
				zap.String("ticket_code", code),
				zap.String("action", string(action)),
				zap.String("actor_role", string(actor.Role)),
				zap.String("code", kind),
				zap.Error(err))
			s.metrics.RecordRefusal(string(action), kind)
			break
		}
	}
	return err
}

// Mutate loads a ticket under its lock, applies fn and persists the result
// with its audit events. Outward intents are published after commit.
func (s *TicketService) Mutate(ctx context.Context, code string, fn func(t domain.Ticket) (domain.Ticket, []domain.Intent, bool, error)) ([]domain.Intent, error) {
	_, intents, err := s.mutate(ctx, code, domain.SystemActor(), fn)
	return intents, err
}

func (s *TicketService) mutate(ctx context.Context, code string, actor domain.Actor, fn func(t domain.Ticket) (domain.Ticket, []domain.Intent, bool, error)) (domain.Ticket, []domain.Intent, error) {
	release, err := s.locker.Lock(ctx, code)
	if err != nil {
		if errors.Is(err, locking.ErrNotAcquired) {
			return domain.Ticket{}, nil, apperrors.NewConflict("ticket is busy, retry", map[string]any{"code": code})
		}
		return domain.Ticket{}, nil, apperrors.MapError(err)
	}
	defer release()

	current, err := s.load(ctx, code)
	if err != nil {
		return domain.Ticket{}, nil, err
	}
	next, intents, changed, err := fn(*current)
	if err != nil {
		return *current, nil, err
	}
	if !changed {
		return *current, nil, nil
	}
	audits, effects := domain.SplitIntents(intents)
	if err := s.tickets.Update(ctx, &next, audits); err != nil {
		return *current, nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, effects, next.UpdatedAt)
	return next, intents, nil
}

func (s *TicketService) publish(ctx context.Context, actor domain.Actor, intents []domain.Intent, at time.Time) {
	if s.dispatcher == nil {
		return
	}
	for _, intent := range intents {
		event, ok := events.FromIntent(intent, actor, at)
		if !ok {
			continue
		}
		_ = s.dispatcher.Publish(ctx, event)
	}
}

func (s *TicketService) load(ctx context.Context, code string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// FindEscalationOfficer lets the sweeper resolve officers the same way
// human escalations do.
func (s *TicketService) FindEscalationOfficer(ctx context.Context, t domain.Ticket, role domain.Role) (*string, error) {
	return s.assignments.FindEscalationOfficer(ctx, t, role)
}

// ActiveTicketCodes lists tickets the sweeper should evaluate.
func (s *TicketService) ActiveTicketCodes(ctx context.Context) ([]string, error) {
	return s.tickets.ActiveTicketCodes(ctx)
}

// ListQuery describes an officer listing request.
type ListQuery struct {
	Scope    access.Query
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// ListTickets resolves the actor's scope and lists tickets inside it.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, q ListQuery) ([]domain.Ticket, error) {
	filter, err := s.access.ResolveScope(actor, q.Scope)
	if err != nil {
		return nil, s.refused("", actor, "list", err)
	}
	for _, status := range q.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Scope:    filter,
		Statuses: q.Statuses,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns a ticket the actor may view.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, code string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanView(actor, *ticket); err != nil {
		return nil, s.refused(code, actor, "view", err)
	}
	return ticket, nil
}

// Track is the public lookup by ticket code.
func (s *TicketService) Track(ctx context.Context, code string) (*domain.Ticket, error) {
	return s.GetTicket(ctx, domain.CitizenActor(""), code)
}

// AuditTrail is a ticket's audit history with its chain check.
type AuditTrail struct {
	Events   []domain.AuditEvent
	Verified bool
}

// ListAudit returns the audit history of a ticket the actor may view.
func (s *TicketService) ListAudit(ctx context.Context, actor domain.Actor, code string) (*AuditTrail, error) {
	if _, err := s.GetTicket(ctx, actor, code); err != nil {
		return nil, err
	}
	history, err := s.audits.ListByTicket(ctx, code)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	trail := &AuditTrail{Events: history, Verified: true}
	if err := repository.VerifyChain(history); err != nil {
		trail.Verified = false
		s.logger.Error("audit chain broken", zap.String("ticket_code", code), zap.Error(err))
	}
	return trail, nil
}

// FeedbackInput is a citizen's response to a resolution.
type FeedbackInput struct {
	Phone  string
	Fixed  *bool
	Rating *int
}

// SubmitFeedback maps a citizen response onto confirm_fixed, dispute or
// low_rating.
func (s *TicketService) SubmitFeedback(ctx context.Context, code string, in FeedbackInput) (*ActionResult, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("phone is required", map[string]any{"phone": "required"})
	}
	actor := domain.CitizenActor(phone)
	switch {
	case in.Fixed != nil && *in.Fixed:
		return s.ApplyAction(ctx, code, actor, lifecycle.Command{
			Action:           domain.ActionConfirmFixed,
			CitizenConfirmed: true,
			Satisfaction:     in.Rating,
		})
	case in.Fixed != nil:
		return s.ApplyAction(ctx, code, actor, lifecycle.Command{Action: domain.ActionDispute})
	case in.Rating != nil:
		return s.ApplyAction(ctx, code, actor, lifecycle.Command{Action: domain.ActionLowRating, Rating: *in.Rating})
	}
	return nil, apperrors.NewValidationError("feedback needs fixed or rating", nil)
}

// AddReport records a duplicate report of an existing complaint.
func (s *TicketService) AddReport(ctx context.Context, code, phone string, socialMentions int) (*ActionResult, error) {
	return s.ApplyAction(ctx, code, domain.CitizenActor(strings.TrimSpace(phone)), lifecycle.Command{
		Action:         domain.ActionAddReport,
		SocialMentions: socialMentions,
	})
}

// EvidenceUpload is one photo attached by an officer.
type EvidenceUpload struct {
	Kind        domain.EvidenceKind
	Body        io.Reader
	Size        int64
	ContentType string
}

// AttachEvidence stores a photo and records it on the ticket. The actor is
// authorized before anything is written to storage.
func (s *TicketService) AttachEvidence(ctx context.Context, code string, actor domain.Actor, upload EvidenceUpload) (*ActionResult, error) {
	if !upload.Kind.Valid() {
		return nil, apperrors.NewValidationError("invalid evidence", map[string]any{"kind": "must be before or after"})
	}
	current, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, *current, domain.ActionAttachEvidence); err != nil {
		return nil, s.refused(code, actor, domain.ActionAttachEvidence, err)
	}
	if s.evidence == nil {
		return nil, apperrors.NewInternalError(errors.New("no evidence store configured"))
	}
	uri, err := s.evidence.Store(ctx, EvidenceKey(code, upload.Kind), upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.ApplyAction(ctx, code, actor, lifecycle.Command{
		Action:       domain.ActionAttachEvidence,
		EvidenceKind: upload.Kind,
		EvidenceURI:  uri,
	})
}

// ResolveApproval reports how a budget of amount would be approved by role.
func (s *TicketService) ResolveApproval(role domain.Role, amount decimal.Decimal) access.Decision {
	return s.access.ResolveApproval(role, amount)
}

func intakeActor(in ComplaintInput) domain.Actor {
	if in.Source.RequiresConsent() && strings.TrimSpace(in.ReporterPhone) != "" {
		return domain.CitizenActor(strings.TrimSpace(in.ReporterPhone))
	}
	return domain.Actor{ID: "intake:" + strings.ToLower(string(in.Source)), Role: domain.RoleSystem}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
