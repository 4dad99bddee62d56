package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const ticketColumns = `code, source, description, department_id, subcategory, ward_id, zone_id,
               location_lat, location_lng, location_class, reporter_name, reporter_phone, consent_given,
               ai_confidence, priority_score, priority_label, priority_source, escalation_bonus, status,
               report_count, social_mentions, requires_human_review, candidate, sla_deadline,
               before_photo_uri, after_photo_uri, assigned_officer_id, assigned_by, escalation_target,
               approved_budget::text, citizen_satisfaction, created_at, updated_at, assigned_at,
               pending_verification_at, resolved_at, sla_breached_at, auto_escalated_at, version`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error {
	const query = `
        INSERT INTO tickets (code, source, description, department_id, subcategory, ward_id, zone_id,
            location_lat, location_lng, location_class, reporter_name, reporter_phone, consent_given,
            ai_confidence, priority_score, priority_label, priority_source, escalation_bonus, status,
            report_count, social_mentions, requires_human_review, candidate, sla_deadline,
            before_photo_uri, after_photo_uri, assigned_officer_id, assigned_by, escalation_target,
            approved_budget, citizen_satisfaction, created_at, updated_at, assigned_at,
            pending_verification_at, resolved_at, sla_breached_at, auto_escalated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,
            $25,$26,$27,$28,$29,$30::text::numeric,$31,$32,$33,$34,$35,$36,$37,$38,1)`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lat, lng := splitLocation(ticket.Location)
	if _, err := tx.Exec(ctx, query,
		ticket.Code,
		ticket.Source,
		ticket.Description,
		ticket.DepartmentID,
		ticket.Subcategory,
		ticket.WardID,
		ticket.ZoneID,
		lat,
		lng,
		ticket.LocationClass,
		ticket.ReporterName,
		ticket.ReporterPhone,
		ticket.ConsentGiven,
		ticket.AIConfidence,
		ticket.PriorityScore,
		ticket.PriorityLabel,
		ticket.PrioritySource,
		ticket.EscalationBonus,
		ticket.Status,
		ticket.ReportCount,
		ticket.SocialMentions,
		ticket.RequiresHumanReview,
		ticket.Candidate,
		ticket.SLADeadline,
		ticket.BeforePhotoURI,
		ticket.AfterPhotoURI,
		ticket.AssignedOfficerID,
		ticket.AssignedBy,
		ticket.EscalationTarget,
		ticket.ApprovedBudget.String(),
		ticket.CitizenSatisfaction,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.AssignedAt,
		ticket.PendingVerificationAt,
		ticket.ResolvedAt,
		ticket.SLABreachedAt,
		ticket.AutoEscalatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("ticket code already exists", map[string]any{"code": ticket.Code})
		}
		return err
	}
	if err := appendAudits(ctx, tx, ticket.Code, audits); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

// Update writes the ticket if its version is unchanged since it was read.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, audits []domain.AuditEvent) error {
	const query = `
        UPDATE tickets SET department_id=$1, subcategory=$2, location_class=$3, priority_score=$4,
            priority_label=$5, priority_source=$6, escalation_bonus=$7, status=$8, report_count=$9,
            social_mentions=$10, requires_human_review=$11, candidate=$12, sla_deadline=$13,
            before_photo_uri=$14, after_photo_uri=$15, assigned_officer_id=$16, assigned_by=$17,
            escalation_target=$18, approved_budget=$19::text::numeric, citizen_satisfaction=$20,
            updated_at=$21, assigned_at=$22, pending_verification_at=$23, resolved_at=$24,
            sla_breached_at=$25, auto_escalated_at=$26, version=version+1
        WHERE code=$27 AND version=$28`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, query,
		ticket.DepartmentID,
		ticket.Subcategory,
		ticket.LocationClass,
		ticket.PriorityScore,
		ticket.PriorityLabel,
		ticket.PrioritySource,
		ticket.EscalationBonus,
		ticket.Status,
		ticket.ReportCount,
		ticket.SocialMentions,
		ticket.RequiresHumanReview,
		ticket.Candidate,
		ticket.SLADeadline,
		ticket.BeforePhotoURI,
		ticket.AfterPhotoURI,
		ticket.AssignedOfficerID,
		ticket.AssignedBy,
		ticket.EscalationTarget,
		ticket.ApprovedBudget.String(),
		ticket.CitizenSatisfaction,
		ticket.UpdatedAt,
		ticket.AssignedAt,
		ticket.PendingVerificationAt,
		ticket.ResolvedAt,
		ticket.SLABreachedAt,
		ticket.AutoEscalatedAt,
		ticket.Code,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE code=$1)`, ticket.Code).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"code": ticket.Code})
	}
	if err := appendAudits(ctx, tx, ticket.Code, audits); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ticket.Version++
	return nil
}

// appendAudits chains events onto the ticket's current tail. The caller holds
// the ticket row lock, so the tail cannot move underneath.
func appendAudits(ctx context.Context, tx pgx.Tx, code string, audits []domain.AuditEvent) error {
	if len(audits) == 0 {
		return nil
	}
	var (
		lastSeq  int64
		lastHash string
	)
	err := tx.QueryRow(ctx,
		`SELECT seq, hash FROM audit_events WHERE ticket_code=$1 ORDER BY seq DESC LIMIT 1`, code,
	).Scan(&lastSeq, &lastHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	sealed, err := sealEvents(code, lastSeq, lastHash, audits)
	if err != nil {
		return err
	}

	const insert = `
        INSERT INTO audit_events (id, ticket_code, seq, action, command, old_value, new_value,
            actor_id, actor_role, created_at, prev_hash, hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	batch := &pgx.Batch{}
	for _, ev := range sealed {
		batch.Queue(insert,
			ev.ID,
			ev.TicketCode,
			ev.Seq,
			ev.Action,
			ev.Command,
			ev.OldValue,
			ev.NewValue,
			ev.ActorID,
			ev.ActorRole,
			ev.CreatedAt,
			ev.PrevHash,
			ev.Hash,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range sealed {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("append audit event: %w", err)
		}
	}
	return results.Close()
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	scope := filter.Scope
	if scope.WardID != nil {
		args = append(args, *scope.WardID)
		clauses = append(clauses, fmt.Sprintf("ward_id=$%d", len(args)))
	}
	if scope.ZoneID != nil {
		args = append(args, *scope.ZoneID)
		clauses = append(clauses, fmt.Sprintf("zone_id=$%d", len(args)))
	}
	if scope.DepartmentID != nil {
		args = append(args, *scope.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if !scope.IncludeCandidates {
		clauses = append(clauses, "candidate = FALSE")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY priority_score DESC, created_at ASC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ActiveTicketCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code FROM tickets WHERE status NOT IN ('CLOSED', 'CLOSED_UNVERIFIED', 'REJECTED') ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		lat, lng *float64
		budget   string
	)
	if err := row.Scan(
		&ticket.Code,
		&ticket.Source,
		&ticket.Description,
		&ticket.DepartmentID,
		&ticket.Subcategory,
		&ticket.WardID,
		&ticket.ZoneID,
		&lat,
		&lng,
		&ticket.LocationClass,
		&ticket.ReporterName,
		&ticket.ReporterPhone,
		&ticket.ConsentGiven,
		&ticket.AIConfidence,
		&ticket.PriorityScore,
		&ticket.PriorityLabel,
		&ticket.PrioritySource,
		&ticket.EscalationBonus,
		&ticket.Status,
		&ticket.ReportCount,
		&ticket.SocialMentions,
		&ticket.RequiresHumanReview,
		&ticket.Candidate,
		&ticket.SLADeadline,
		&ticket.BeforePhotoURI,
		&ticket.AfterPhotoURI,
		&ticket.AssignedOfficerID,
		&ticket.AssignedBy,
		&ticket.EscalationTarget,
		&budget,
		&ticket.CitizenSatisfaction,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.PendingVerificationAt,
		&ticket.ResolvedAt,
		&ticket.SLABreachedAt,
		&ticket.AutoEscalatedAt,
		&ticket.Version,
	); err != nil {
		return domain.Ticket{}, err
	}
	if lat != nil && lng != nil {
		ticket.Location = &domain.GeoPoint{Lat: *lat, Lng: *lng}
	}
	amount, err := parseAmount(budget)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket.ApprovedBudget = amount
	return ticket, nil
}

func splitLocation(p *domain.GeoPoint) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	lat, lng := p.Lat, p.Lng
	return &lat, &lng
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
