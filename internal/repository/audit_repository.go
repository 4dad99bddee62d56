package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the Postgres audit reader.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) ListByTicket(ctx context.Context, code string) ([]domain.AuditEvent, error) {
	const query = `
        SELECT id::text, ticket_code, seq, action, command, old_value, new_value, actor_id, actor_role,
               created_at, prev_hash, hash
        FROM audit_events WHERE ticket_code=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.TicketCode,
			&ev.Seq,
			&ev.Action,
			&ev.Command,
			&ev.OldValue,
			&ev.NewValue,
			&ev.ActorID,
			&ev.ActorRole,
			&ev.CreatedAt,
			&ev.PrevHash,
			&ev.Hash,
		); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
