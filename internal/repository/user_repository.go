package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.AppUser) error
	Update(ctx context.Context, user *domain.AppUser) error
	GetByID(ctx context.Context, id int64) (*domain.AppUser, error)
	GetByUserName(ctx context.Context, userName string) (*domain.AppUser, error)
	List(ctx context.Context, search string) ([]domain.AppUser, error)
	ListAssignable(ctx context.Context, departmentID int64) ([]domain.AppUser, error)
	ListManagedDepartmentIDs(ctx context.Context, managerUserID int64) ([]int64, error)
	ReplaceManagedDepartments(ctx context.Context, managerUserID int64, departmentIDs []int64) error
}

type userRepository struct {
	db DBTX
}

const userColumns = `id, user_name, password_hash, role, department_id, can_manage_dept_tickets, is_active, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.AppUser) error {
	const query = `
        INSERT INTO app_users (user_name, password_hash, role, department_id, can_manage_dept_tickets, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		user.UserName,
		user.PasswordHash,
		user.Role,
		user.DepartmentID,
		user.CanManageDeptTickets,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.AppUser) error {
	const query = `
        UPDATE app_users SET role=$1, department_id=$2, can_manage_dept_tickets=$3, is_active=$4, password_hash=$5
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		user.Role,
		user.DepartmentID,
		user.CanManageDeptTickets,
		user.IsActive,
		user.PasswordHash,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.AppUser, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM app_users WHERE id=$1`, id)
}

func (r *userRepository) GetByUserName(ctx context.Context, userName string) (*domain.AppUser, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM app_users WHERE user_name=$1`, userName)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AppUser, error) {
	var user domain.AppUser
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.UserName,
		&user.PasswordHash,
		&user.Role,
		&user.DepartmentID,
		&user.CanManageDeptTickets,
		&user.IsActive,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, search string) ([]domain.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users`
	args := []any{}
	if search != "" {
		query += ` WHERE user_name ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}
	query += ` ORDER BY user_name ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ListAssignable returns the active department users a manager can assign a
// ticket to.
func (r *userRepository) ListAssignable(ctx context.Context, departmentID int64) ([]domain.AppUser, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM app_users
        WHERE is_active = TRUE AND role = 'User' AND department_id = $1
        ORDER BY user_name ASC`
	rows, err := r.db.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListManagedDepartmentIDs(ctx context.Context, managerUserID int64) ([]int64, error) {
	const query = `SELECT department_id FROM manager_departments WHERE manager_user_id=$1 ORDER BY department_id`
	rows, err := r.db.Query(ctx, query, managerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceManagedDepartments rewrites a manager's assignment set wholesale,
// matching the admin edit flow's delete-all, re-insert contract.
func (r *userRepository) ReplaceManagedDepartments(ctx context.Context, managerUserID int64, departmentIDs []int64) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM manager_departments WHERE manager_user_id=$1`, managerUserID,
	); err != nil {
		return err
	}
	for _, deptID := range departmentIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO manager_departments (manager_user_id, department_id) VALUES ($1,$2)`,
			managerUserID, deptID,
		); err != nil {
			return err
		}
	}
	return nil
}

func scanUsers(rows pgx.Rows) ([]domain.AppUser, error) {
	var result []domain.AppUser
	for rows.Next() {
		var user domain.AppUser
		if err := rows.Scan(
			&user.ID,
			&user.UserName,
			&user.PasswordHash,
			&user.Role,
			&user.DepartmentID,
			&user.CanManageDeptTickets,
			&user.IsActive,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
