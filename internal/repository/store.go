package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/grievance-service/internal/access"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// TicketFilter narrows a ticket listing. Scope comes from the access resolver
// and is always applied.
type TicketFilter struct {
	Scope    access.Filter
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// TicketRepository persists tickets together with their audit trail. Create
// and Update write the ticket and its audit events atomically.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error
	Update(ctx context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ActiveTicketCodes(ctx context.Context) ([]string, error)
}

// AuditRepository reads the append-only audit log. It has no update or
// delete.
type AuditRepository interface {
	ListByTicket(ctx context.Context, code string) ([]domain.AuditEvent, error)
}

// OfficerQuery locates officers for a scope.
type OfficerQuery struct {
	Role         domain.Role
	WardID       int
	ZoneID       int
	DepartmentID string
}

// OfficerRepository handles persistence for officers.
type OfficerRepository interface {
	Create(ctx context.Context, officer *domain.Officer) error
	GetByID(ctx context.Context, id string) (*domain.Officer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Officer, error)
	FindByScope(ctx context.Context, q OfficerQuery) ([]domain.Officer, error)
	Count(ctx context.Context) (int, error)
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
