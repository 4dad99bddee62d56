package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/priority"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type zoneMap map[int]int

func (z zoneMap) ZoneOf(ward int) (int, bool) {
	zone, ok := z[ward]
	return zone, ok
}

type memTickets struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	failing map[string]bool
}

func newMemTickets(tickets ...domain.Ticket) *memTickets {
	m := &memTickets{tickets: map[string]domain.Ticket{}, failing: map[string]bool{}}
	for _, t := range tickets {
		m.tickets[t.Code] = t
	}
	return m
}

func (m *memTickets) ActiveTicketCodes(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes []string
	for code, t := range m.tickets {
		if !t.Status.Terminal() {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (m *memTickets) Mutate(_ context.Context, code string, fn func(domain.Ticket) (domain.Ticket, []domain.Intent, bool, error)) ([]domain.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[code] {
		return nil, errors.New("store unavailable")
	}
	next, intents, changed, err := fn(m.tickets[code])
	if err != nil {
		return nil, err
	}
	if changed {
		next.Version++
		m.tickets[code] = next
	}
	return intents, nil
}

func (m *memTickets) get(code string) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[code]
}

type fixedOfficer struct {
	mu    sync.Mutex
	id    string
	calls []string
}

func (f *fixedOfficer) FindEscalationOfficer(_ context.Context, t domain.Ticket, role domain.Role) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, t.Code+"|"+string(role))
	id := f.id
	return &id, nil
}

func newMachine() *lifecycle.Machine {
	resolver := access.NewResolver(access.DefaultTable(), zoneMap{10: 1})
	return lifecycle.NewMachine(lifecycle.DefaultConfig(), domain.DefaultDepartments(), resolver)
}

func newSweeper(tickets TicketMutator, officers OfficerFinder) *Sweeper {
	return New(Dependencies{
		Machine:     newMachine(),
		Tickets:     tickets,
		Officers:    officers,
		Metrics:     observability.NewMetrics(),
		Concurrency: 4,
	})
}

// scoredTicket returns a ticket whose stored score is already current at now.
func scoredTicket(code string, status domain.TicketStatus, deadline time.Time) domain.Ticket {
	t := domain.Ticket{
		Code:           code,
		Source:         domain.SourceWebPortal,
		Description:    "Garbage pile near the bus stop",
		DepartmentID:   "D05",
		Subcategory:    "garbage_pile",
		WardID:         10,
		ZoneID:         1,
		LocationClass:  domain.LocationResidential,
		ReporterPhone:  "+919800000009",
		ConsentGiven:   true,
		PrioritySource: domain.PrioritySourceRules,
		Status:         status,
		ReportCount:    1,
		SLADeadline:    deadline,
		CreatedAt:      now.Add(-5 * 24 * time.Hour),
		UpdatedAt:      now.Add(-5 * 24 * time.Hour),
	}
	priority.Rescore(&t, now)
	return t
}

func auditActions(intents []domain.Intent) []domain.AuditAction {
	audits, _ := domain.SplitIntents(intents)
	out := make([]domain.AuditAction, 0, len(audits))
	for _, a := range audits {
		out = append(out, a.Action)
	}
	return out
}

func countKind(intents []domain.Intent, kind domain.IntentKind) int {
	n := 0
	for _, intent := range intents {
		if intent.Kind == kind {
			n++
		}
	}
	return n
}

func TestEvaluateFlagsBreachOnce(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)
	ticket := scoredTicket("CIV-2026-00001", domain.TicketStatusOpen, now.Add(-time.Hour))

	next, intents, changed, err := s.Evaluate(ticket, now, ModeFull, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, next.SLABreachedAt)
	assert.Equal(t, now, *next.SLABreachedAt)
	assert.Equal(t, domain.TicketStatusOpen, next.Status)
	assert.Contains(t, auditActions(intents), domain.AuditSLABreached)
	assert.Equal(t, 2, countKind(intents, domain.IntentNotifyOfficer))

	again, intents, changed, err := s.Evaluate(next, now, ModeFull, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, intents)
	assert.Equal(t, next, again)
}

func TestEvaluateAuditsScoreOnlyChange(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)
	ticket := scoredTicket("CIV-2026-00009", domain.TicketStatusOpen, now.Add(20*24*time.Hour))
	ticket.CreatedAt = now.Add(-36 * time.Hour)
	priority.Rescore(&ticket, now)
	require.Equal(t, 23.0, ticket.PriorityScore)

	later := now.Add(24 * time.Hour)
	next, intents, changed, err := s.Evaluate(ticket, later, ModeFull, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 28.0, next.PriorityScore)
	assert.Equal(t, ticket.PriorityLabel, next.PriorityLabel)
	assert.Equal(t, []domain.AuditAction{domain.AuditPriorityRescored}, auditActions(intents))

	audits, _ := domain.SplitIntents(intents)
	require.Len(t, audits, 1)
	assert.Equal(t, 23.0, audits[0].OldValue["priority_score"])
	assert.Equal(t, 28.0, audits[0].NewValue["priority_score"])

	_, intents, changed, err = s.Evaluate(next, later, ModeFull, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, intents)
}

func TestEvaluateNoActionOnlyInFullMode(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)
	ticket := scoredTicket("CIV-2026-00002", domain.TicketStatusOpen, now.Add(-25*time.Hour))
	officer := "officer-z1"

	t.Run("rescore mode only flags the breach", func(t *testing.T) {
		next, intents, _, err := s.Evaluate(ticket, now, ModeRescore, &officer)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, next.Status)
		assert.Nil(t, next.AutoEscalatedAt)
		assert.NotContains(t, auditActions(intents), domain.AuditAutoEscalated)
	})

	t.Run("full mode escalates to the zonal officer", func(t *testing.T) {
		next, intents, changed, err := s.Evaluate(ticket, now, ModeFull, &officer)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, domain.TicketStatusAssigned, next.Status)
		require.NotNil(t, next.AssignedOfficerID)
		assert.Equal(t, officer, *next.AssignedOfficerID)
		assert.Equal(t, domain.AssignmentAutoEscalate, next.AssignedBy)
		assert.Equal(t, domain.RoleZonalOfficer, next.EscalationTarget)
		require.NotNil(t, next.AutoEscalatedAt)
		assert.Contains(t, auditActions(intents), domain.AuditSLABreached)
		assert.Contains(t, auditActions(intents), domain.AuditAutoEscalated)

		_, intents, changed, err = s.Evaluate(next, now, ModeFull, &officer)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, intents)
	})

	t.Run("exactly at the grace boundary waits", func(t *testing.T) {
		edge := scoredTicket("CIV-2026-00003", domain.TicketStatusOpen, now.Add(-24*time.Hour))
		next, _, _, err := s.Evaluate(edge, now, ModeFull, &officer)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, next.Status)
		assert.Nil(t, next.AutoEscalatedAt)
	})
}

func TestEvaluateVerificationTimeout(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)
	officer := "officer-w10"

	cases := []struct {
		name    string
		elapsed time.Duration
		want    domain.TicketStatus
	}{
		{name: "window open", elapsed: 71 * time.Hour, want: domain.TicketStatusPendingVerification},
		{name: "window elapsed", elapsed: 72 * time.Hour, want: domain.TicketStatusClosedUnverified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := scoredTicket("CIV-2026-00004", domain.TicketStatusPendingVerification, now.Add(10*24*time.Hour))
			ticket.AssignedOfficerID = &officer
			ticket.BeforePhotoURI = "evidence/CIV-2026-00004/before-1"
			ticket.AfterPhotoURI = "evidence/CIV-2026-00004/after-1"
			started := now.Add(-tc.elapsed)
			ticket.PendingVerificationAt = &started

			next, _, _, err := s.Evaluate(ticket, now, ModeFull, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, next.Status)
		})
	}
}

func TestEvaluateLeavesSomeTicketsAlone(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)

	t.Run("terminal", func(t *testing.T) {
		ticket := scoredTicket("CIV-2026-00005", domain.TicketStatusClosed, now.Add(-48*time.Hour))
		_, intents, changed, err := s.Evaluate(ticket, now, ModeFull, nil)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, intents)
	})

	t.Run("human override keeps its score", func(t *testing.T) {
		ticket := scoredTicket("CIV-2026-00006", domain.TicketStatusOpen, now.Add(5*24*time.Hour))
		ticket.PriorityScore = 91
		ticket.PriorityLabel = domain.PriorityCritical
		ticket.PrioritySource = domain.PrioritySourceOverride

		next, intents, changed, err := s.Evaluate(ticket, now.Add(6*time.Hour), ModeFull, nil)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, intents)
		assert.Equal(t, 91.0, next.PriorityScore)
	})

	t.Run("candidate past deadline", func(t *testing.T) {
		ticket := scoredTicket("CIV-2026-00007", domain.TicketStatusOpen, now.Add(-48*time.Hour))
		ticket.Candidate = true
		next, _, _, err := s.Evaluate(ticket, now, ModeFull, nil)
		require.NoError(t, err)
		assert.Nil(t, next.SLABreachedAt)
		assert.Nil(t, next.AutoEscalatedAt)
	})
}

func TestEvaluateKeepsReopenBonus(t *testing.T) {
	s := newSweeper(newMemTickets(), nil)
	officer := "officer-w10"
	ticket := scoredTicket("CIV-2026-00008", domain.TicketStatusReopened, now.Add(5*24*time.Hour))
	ticket.AssignedOfficerID = &officer
	ticket.EscalationBonus = 10
	priority.Rescore(&ticket, now)

	later := now
	for i := 0; i < 3; i++ {
		later = later.Add(6 * time.Hour)
		var err error
		ticket, _, _, err = s.Evaluate(ticket, later, ModeFull, nil)
		require.NoError(t, err)
		assert.Equal(t, 10.0, ticket.EscalationBonus)
		want, _ := priority.ScoreTicket(ticket, later)
		assert.Equal(t, want, ticket.PriorityScore)
	}
}

func TestRunSweepCycle(t *testing.T) {
	store := newMemTickets(
		scoredTicket("CIV-2026-00013", domain.TicketStatusOpen, now.Add(-time.Hour)),
		scoredTicket("CIV-2026-00011", domain.TicketStatusOpen, now.Add(-30*time.Hour)),
		scoredTicket("CIV-2026-00012", domain.TicketStatusAssigned, now.Add(3*24*time.Hour)),
	)
	officers := &fixedOfficer{id: "officer-z1"}
	s := newSweeper(store, officers)

	intents, err := s.RunSweepCycle(context.Background(), now)
	require.NoError(t, err)
	require.NotEmpty(t, intents)
	assert.Equal(t, "CIV-2026-00011", intents[0].TicketCode)
	assert.Equal(t, "CIV-2026-00013", intents[len(intents)-1].TicketCode)

	escalated := store.get("CIV-2026-00011")
	assert.Equal(t, domain.TicketStatusAssigned, escalated.Status)
	require.NotNil(t, escalated.AssignedOfficerID)
	assert.Equal(t, "officer-z1", *escalated.AssignedOfficerID)
	assert.Equal(t, []string{"CIV-2026-00011|ZONAL_OFFICER"}, officers.calls)

	breached := store.get("CIV-2026-00013")
	assert.NotNil(t, breached.SLABreachedAt)
	assert.Equal(t, domain.TicketStatusOpen, breached.Status)

	again, err := s.RunSweepCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, officers.calls, 1)
}

func TestRunCycleCountsFailures(t *testing.T) {
	store := newMemTickets(
		scoredTicket("CIV-2026-00021", domain.TicketStatusOpen, now.Add(-time.Hour)),
		scoredTicket("CIV-2026-00022", domain.TicketStatusOpen, now.Add(-time.Hour)),
	)
	store.failing["CIV-2026-00021"] = true
	metrics := observability.NewMetrics()
	s := New(Dependencies{Machine: newMachine(), Tickets: store, Metrics: metrics, Concurrency: 2})

	report, err := s.RunCycle(context.Background(), now, ModeRescore)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tickets)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Changed)
	for _, intent := range report.Intents {
		assert.Equal(t, "CIV-2026-00022", intent.TicketCode)
	}

	stats := metrics.Snapshot().Sweeps[string(ModeRescore)]
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestRunCycleStopsOnCancel(t *testing.T) {
	store := newMemTickets(scoredTicket("CIV-2026-00031", domain.TicketStatusOpen, now.Add(-time.Hour)))
	s := newSweeper(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunCycle(ctx, now, ModeFull)
	assert.ErrorIs(t, err, context.Canceled)
}
