package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// MemoryTickets is an in-process ticket and audit store used when no database
// is configured and in tests. It honours the same version and chain rules as
// the Postgres repositories.
type MemoryTickets struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	audits  map[string][]domain.AuditEvent
}

// NewMemoryTickets returns an empty store.
func NewMemoryTickets() *MemoryTickets {
	return &MemoryTickets{
		tickets: make(map[string]domain.Ticket),
		audits:  make(map[string][]domain.AuditEvent),
	}
}

func (m *MemoryTickets) Create(_ context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tickets[ticket.Code]; exists {
		return apperrors.NewConflict("ticket code already exists", map[string]any{"code": ticket.Code})
	}
	sealed, err := sealEvents(ticket.Code, 0, "", audits)
	if err != nil {
		return err
	}
	ticket.Version = 1
	m.tickets[ticket.Code] = *ticket
	m.audits[ticket.Code] = sealed
	return nil
}

func (m *MemoryTickets) Update(_ context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tickets[ticket.Code]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Version != ticket.Version {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"code": ticket.Code})
	}
	chain := m.audits[ticket.Code]
	var (
		lastSeq  int64
		lastHash string
	)
	if n := len(chain); n > 0 {
		lastSeq, lastHash = chain[n-1].Seq, chain[n-1].Hash
	}
	sealed, err := sealEvents(ticket.Code, lastSeq, lastHash, audits)
	if err != nil {
		return err
	}
	ticket.Version++
	m.tickets[ticket.Code] = *ticket
	m.audits[ticket.Code] = append(chain, sealed...)
	return nil
}

func (m *MemoryTickets) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *MemoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[domain.TicketStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	scope := filter.Scope
	var matched []domain.Ticket
	for _, t := range m.tickets {
		switch {
		case scope.WardID != nil && t.WardID != *scope.WardID,
			scope.ZoneID != nil && t.ZoneID != *scope.ZoneID,
			scope.DepartmentID != nil && t.DepartmentID != *scope.DepartmentID,
			!scope.IncludeCandidates && t.Candidate,
			len(statuses) > 0 && !statuses[t.Status]:
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PriorityScore != matched[j].PriorityScore {
			return matched[i].PriorityScore > matched[j].PriorityScore
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *MemoryTickets) ActiveTicketCodes(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var codes []string
	for code, t := range m.tickets {
		if !t.Status.Terminal() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *MemoryTickets) ListByTicket(_ context.Context, code string) ([]domain.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain := m.audits[code]
	out := make([]domain.AuditEvent, len(chain))
	copy(out, chain)
	return out, nil
}

// MemoryOfficers is an in-process officer directory.
type MemoryOfficers struct {
	mu       sync.RWMutex
	officers map[string]domain.Officer
}

// NewMemoryOfficers returns an empty directory.
func NewMemoryOfficers() *MemoryOfficers {
	return &MemoryOfficers{officers: make(map[string]domain.Officer)}
}

func (m *MemoryOfficers) Create(_ context.Context, officer *domain.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	officer.Email = strings.ToLower(strings.TrimSpace(officer.Email))
	for _, existing := range m.officers {
		if existing.Email == officer.Email {
			return apperrors.NewConflict("email already registered", map[string]any{"email": officer.Email})
		}
	}
	if officer.ID == "" {
		officer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	officer.CreatedAt, officer.UpdatedAt = now, now
	m.officers[officer.ID] = *officer
	return nil
}

func (m *MemoryOfficers) GetByID(_ context.Context, id string) (*domain.Officer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	officer, ok := m.officers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &officer, nil
}

func (m *MemoryOfficers) GetByEmail(_ context.Context, email string) (*domain.Officer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, officer := range m.officers {
		if officer.Email == email {
			o := officer
			return &o, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MemoryOfficers) FindByScope(_ context.Context, q OfficerQuery) ([]domain.Officer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Officer
	for _, o := range m.officers {
		if !o.Active || o.Role != q.Role {
			continue
		}
		switch q.Role {
		case domain.RoleWardOfficer, domain.RoleCouncillor:
			if o.WardID != q.WardID {
				continue
			}
		case domain.RoleZonalOfficer:
			if o.ZoneID != q.ZoneID {
				continue
			}
		case domain.RoleDeptHead:
			if o.DepartmentID != q.DepartmentID {
				continue
			}
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MemoryOfficers) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.officers), nil
}
