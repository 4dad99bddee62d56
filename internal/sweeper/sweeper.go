// Package sweeper re-evaluates open tickets on a schedule: it re-scores them,
// flags SLA breaches, closes unverified resolutions and auto-escalates
// unattended tickets.
package sweeper

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/priority"
)

// Mode selects which checks a cycle runs.
type Mode string

const (
	// ModeRescore re-scores, flags breaches and closes expired verifications.
	ModeRescore Mode = "rescore"
	// ModeFull additionally runs no-action auto-escalation.
	ModeFull Mode = "full"
)

// TicketMutator serializes per-ticket mutations. The sweeper goes through the
// same lock and version check as officer actions. fn reports changed=false
// when nothing needs persisting.
type TicketMutator interface {
	ActiveTicketCodes(ctx context.Context) ([]string, error)
	Mutate(ctx context.Context, code string, fn func(t domain.Ticket) (domain.Ticket, []domain.Intent, bool, error)) ([]domain.Intent, error)
}

// OfficerFinder resolves a concrete officer for an escalation target.
type OfficerFinder interface {
	FindEscalationOfficer(ctx context.Context, t domain.Ticket, role domain.Role) (*string, error)
}

// Dependencies bundles sweeper collaborators.
type Dependencies struct {
	Machine     *lifecycle.Machine
	Tickets     TicketMutator
	Officers    OfficerFinder
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Concurrency int
}

// Sweeper runs sweep cycles.
type Sweeper struct {
	machine     *lifecycle.Machine
	tickets     TicketMutator
	officers    OfficerFinder
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

// New builds a sweeper.
func New(deps Dependencies) *Sweeper {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		machine:     deps.Machine,
		tickets:     deps.Tickets,
		officers:    deps.Officers,
		logger:      logger,
		metrics:     deps.Metrics,
		concurrency: concurrency,
	}
}

// Report summarizes one cycle.
type Report struct {
	Mode    Mode            `json:"mode"`
	At      time.Time       `json:"at"`
	Tickets int             `json:"tickets"`
	Changed int             `json:"changed"`
	Failed  int             `json:"failed"`
	Intents []domain.Intent `json:"-"`
}

// RunSweepCycle runs a full cycle at now and returns the intents it executed,
// ordered by ticket code.
func (s *Sweeper) RunSweepCycle(ctx context.Context, now time.Time) ([]domain.Intent, error) {
	report, err := s.RunCycle(ctx, now, ModeFull)
	if err != nil {
		return nil, err
	}
	return report.Intents, nil
}

// RunCycle evaluates every active ticket in parallel. A failure on one ticket
// is logged and counted; only cancellation or listing failures abort.
func (s *Sweeper) RunCycle(ctx context.Context, now time.Time, mode Mode) (Report, error) {
	started := time.Now()
	codes, err := s.tickets.ActiveTicketCodes(ctx)
	if err != nil {
		return Report{}, err
	}
	sort.Strings(codes)

	results := make([][]domain.Intent, len(codes))
	var changed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			intents, err := s.tickets.Mutate(gctx, code, func(t domain.Ticket) (domain.Ticket, []domain.Intent, bool, error) {
				escalateTo := s.escalationOfficer(gctx, t, now, mode)
				return s.Evaluate(t, now, mode, escalateTo)
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				s.logger.Warn("sweep ticket failed", zap.String("ticket_code", code), zap.Error(err))
				return nil
			}
			if len(intents) > 0 {
				changed.Add(1)
			}
			results[i] = intents
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Mode: mode, At: now, Tickets: len(codes), Changed: int(changed.Load()), Failed: int(failed.Load())}
	for _, intents := range results {
		report.Intents = append(report.Intents, intents...)
	}
	s.metrics.RecordSweep(string(mode), report.Tickets, report.Changed, report.Failed, len(report.Intents), time.Since(started))
	s.logger.Info("sweep cycle finished",
		zap.String("mode", string(mode)),
		zap.Int("tickets", report.Tickets),
		zap.Int("changed", report.Changed),
		zap.Int("failed", report.Failed),
		zap.Int("intents", len(report.Intents)))
	return report, nil
}

func (s *Sweeper) escalationOfficer(ctx context.Context, t domain.Ticket, now time.Time, mode Mode) *string {
	if s.officers == nil || !s.dueForNoAction(t, now, mode) {
		return nil
	}
	id, err := s.officers.FindEscalationOfficer(ctx, t, domain.RoleZonalOfficer)
	if err != nil {
		s.logger.Warn("escalation officer lookup failed", zap.String("ticket_code", t.Code), zap.Error(err))
		return nil
	}
	return id
}

// Evaluate decides what a ticket needs at now. It reads no clock and does no
// I/O, so running it twice at the same instant is a no-op the second time.
func (s *Sweeper) Evaluate(t domain.Ticket, now time.Time, mode Mode, escalateTo *string) (domain.Ticket, []domain.Intent, bool, error) {
	if t.Status.Terminal() {
		return t, nil, false, nil
	}
	system := domain.SystemActor()

	if s.verificationExpired(t, now) {
		out, err := s.machine.Apply(t, system, lifecycle.Command{Action: domain.ActionTimeout}, now)
		if err != nil {
			return t, nil, false, err
		}
		return out.Ticket, out.Intents, true, nil
	}

	var intents []domain.Intent
	changed := false

	before := t
	priority.Rescore(&t, now)
	if t.PriorityScore != before.PriorityScore || t.PriorityLabel != before.PriorityLabel {
		intents = append(intents, lifecycle.NewAuditIntent(t.Code, system, domain.AuditPriorityRescored, "",
			map[string]any{"priority_score": before.PriorityScore, "priority_label": string(before.PriorityLabel)},
			map[string]any{"priority_score": t.PriorityScore, "priority_label": string(t.PriorityLabel)},
			now))
		t.UpdatedAt = now
		changed = true
	}

	if !t.Candidate && t.SLABreachedAt == nil && !t.SLADeadline.After(now) {
		out, err := s.machine.Apply(t, system, lifecycle.Command{Action: domain.ActionSLABreach}, now)
		if err != nil {
			return before, nil, false, err
		}
		t = out.Ticket
		intents = append(intents, out.Intents...)
		changed = true
	}

	if s.dueForNoAction(t, now, mode) {
		out, err := s.machine.Apply(t, system, lifecycle.Command{Action: domain.ActionNoAction, EscalateTo: escalateTo}, now)
		if err != nil {
			return before, nil, false, err
		}
		t = out.Ticket
		intents = append(intents, out.Intents...)
		changed = true
	}

	return t, intents, changed, nil
}

func (s *Sweeper) verificationExpired(t domain.Ticket, now time.Time) bool {
	if t.Status != domain.TicketStatusPendingVerification || t.PendingVerificationAt == nil {
		return false
	}
	return now.Sub(*t.PendingVerificationAt) >= s.machine.Config().VerificationWindow
}

func (s *Sweeper) dueForNoAction(t domain.Ticket, now time.Time, mode Mode) bool {
	if mode != ModeFull || t.Candidate || t.Status != domain.TicketStatusOpen || t.AutoEscalatedAt != nil {
		return false
	}
	return now.After(t.SLADeadline.Add(s.machine.Config().NoActionGrace))
}
