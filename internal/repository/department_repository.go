package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// DepartmentRepository stores the department SLA reference table so operators
// can tune SLA days without a redeploy.
type DepartmentRepository interface {
	Seed(ctx context.Context, table domain.DepartmentTable) error
	List(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

// Seed inserts rows that are missing. Existing rows keep their stored values.
func (r *departmentRepository) Seed(ctx context.Context, table domain.DepartmentTable) error {
	const query = `
        INSERT INTO departments (id, name, sla_days, is_external, handles)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, dept := range table.All() {
		batch.Queue(query, dept.ID, dept.Name, dept.SLADays, dept.IsExternal, dept.Handles)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT id, name, sla_days, is_external, handles
        FROM departments ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.SLADays, &dept.IsExternal, &dept.Handles); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
