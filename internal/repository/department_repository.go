package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DepartmentRepository manages the two-level department tree.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	ListLeaves(ctx context.Context) ([]domain.Department, error)
	ListLeavesExcluding(ctx context.Context, excluded []int64) ([]domain.Department, error)
}

type departmentRepository struct {
	db DBTX
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	const query = `SELECT id, name, parent_id FROM departments WHERE id=$1`
	var dept domain.Department
	if err := r.db.QueryRow(ctx, query, id).Scan(&dept.ID, &dept.Name, &dept.ParentID); err != nil {
		return nil, err
	}
	return &dept, nil
}

// ListLeaves returns every ticket-routable department, name order.
func (r *departmentRepository) ListLeaves(ctx context.Context) ([]domain.Department, error) {
	const query = `SELECT id, name, parent_id FROM departments WHERE parent_id IS NOT NULL ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepartments(rows)
}

// ListLeavesExcluding returns routable departments minus the excluded ids,
// used to offer a creator only the departments they may target.
func (r *departmentRepository) ListLeavesExcluding(ctx context.Context, excluded []int64) ([]domain.Department, error) {
	if len(excluded) == 0 {
		return r.ListLeaves(ctx)
	}
	const query = `
        SELECT id, name, parent_id FROM departments
        WHERE parent_id IS NOT NULL AND NOT (id = ANY($1))
        ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query, excluded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepartments(rows)
}

func scanDepartments(rows pgx.Rows) ([]domain.Department, error) {
	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.ParentID); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
