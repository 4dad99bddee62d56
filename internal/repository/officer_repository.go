package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const officerColumns = `id::text, name, email, phone, password_hash, role, ward_id, zone_id, department_id,
               active_flag, created_at, updated_at`

type officerRepository struct {
	pool *pgxpool.Pool
}

// NewOfficerRepository instantiates the Postgres officer repository.
func NewOfficerRepository(pool *pgxpool.Pool) OfficerRepository {
	return &officerRepository{pool: pool}
}

func (r *officerRepository) Create(ctx context.Context, officer *domain.Officer) error {
	const query = `
        INSERT INTO officers (id, name, email, phone, password_hash, role, ward_id, zone_id, department_id, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, updated_at`

	if officer.ID == "" {
		officer.ID = uuid.NewString()
	}
	officer.Email = strings.ToLower(strings.TrimSpace(officer.Email))
	err := r.pool.QueryRow(ctx, query,
		officer.ID,
		officer.Name,
		officer.Email,
		officer.Phone,
		officer.PasswordHash,
		officer.Role,
		officer.WardID,
		officer.ZoneID,
		officer.DepartmentID,
		officer.Active,
	).Scan(&officer.CreatedAt, &officer.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.NewConflict("email already registered", map[string]any{"email": officer.Email})
	}
	return err
}

func (r *officerRepository) GetByID(ctx context.Context, id string) (*domain.Officer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + officerColumns + ` FROM officers WHERE id=$1`
	officer, err := scanOfficer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &officer, nil
}

func (r *officerRepository) GetByEmail(ctx context.Context, email string) (*domain.Officer, error) {
	query := `SELECT ` + officerColumns + ` FROM officers WHERE email=$1`
	officer, err := scanOfficer(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, err
	}
	return &officer, nil
}

// FindByScope lists active officers holding role whose assignment covers the
// ticket location, oldest account first.
func (r *officerRepository) FindByScope(ctx context.Context, q OfficerQuery) ([]domain.Officer, error) {
	query := `SELECT ` + officerColumns + ` FROM officers WHERE active_flag AND role=$1`
	args := []any{q.Role}
	switch q.Role {
	case domain.RoleWardOfficer, domain.RoleCouncillor:
		args = append(args, q.WardID)
		query += ` AND ward_id=$2`
	case domain.RoleZonalOfficer:
		args = append(args, q.ZoneID)
		query += ` AND zone_id=$2`
	case domain.RoleDeptHead:
		args = append(args, q.DepartmentID)
		query += ` AND department_id=$2`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Officer
	for rows.Next() {
		officer, err := scanOfficer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, officer)
	}
	return result, rows.Err()
}

func (r *officerRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM officers`).Scan(&n)
	return n, err
}

func scanOfficer(row pgx.Row) (domain.Officer, error) {
	var officer domain.Officer
	err := row.Scan(
		&officer.ID,
		&officer.Name,
		&officer.Email,
		&officer.Phone,
		&officer.PasswordHash,
		&officer.Role,
		&officer.WardID,
		&officer.ZoneID,
		&officer.DepartmentID,
		&officer.Active,
		&officer.CreatedAt,
		&officer.UpdatedAt,
	)
	return officer, err
}
