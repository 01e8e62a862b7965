package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// Seed populates the department tree and default accounts on first boot.
// Three root departments each carry a Training and a Management leaf; every
// leaf gets one User account and each root gets one Manager covering both of
// its leaves. Idempotent: skipped when data already exists.
func Seed(ctx context.Context, pool *pgxpool.Pool, bcryptCost int, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping seed")
		return nil
	}

	deptIDs, err := seedDepartments(ctx, pool, logger)
	if err != nil {
		return err
	}
	return seedAccounts(ctx, pool, deptIDs, bcryptCost, logger)
}

func seedDepartments(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (map[string]int64, error) {
	ids := map[string]int64{}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count departments: %w", err)
	}
	if count > 0 {
		rows, err := pool.Query(ctx, `SELECT id, name FROM departments`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				return nil, err
			}
			ids[name] = id
		}
		return ids, rows.Err()
	}

	logger.Info("seeding departments")
	for _, root := range []string{"HR", "IT", "Finance"} {
		var rootID int64
		if err := pool.QueryRow(ctx,
			`INSERT INTO departments (name) VALUES ($1) RETURNING id`, root,
		).Scan(&rootID); err != nil {
			return nil, fmt.Errorf("seed root %s: %w", root, err)
		}
		ids[root] = rootID

		for _, suffix := range []string{"Training", "Management"} {
			leaf := root + " " + suffix
			var leafID int64
			if err := pool.QueryRow(ctx,
				`INSERT INTO departments (name, parent_id) VALUES ($1,$2) RETURNING id`, leaf, rootID,
			).Scan(&leafID); err != nil {
				return nil, fmt.Errorf("seed leaf %s: %w", leaf, err)
			}
			ids[leaf] = leafID
		}
	}
	return ids, nil
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool, deptIDs map[string]int64, bcryptCost int, logger *zap.Logger) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	logger.Info("seeding default accounts")
	hash, err := auth.HashPassword("1234", bcryptCost)
	if err != nil {
		return err
	}

	insertUser := func(userName string, role domain.UserRole, deptName string) (int64, error) {
		var deptID *int64
		if deptName != "" {
			id := deptIDs[deptName]
			deptID = &id
		}
		var userID int64
		err := pool.QueryRow(ctx,
			`INSERT INTO app_users (user_name, password_hash, role, department_id, can_manage_dept_tickets, is_active)
             VALUES ($1,$2,$3,$4,FALSE,TRUE) RETURNING id`,
			userName, hash, role, deptID,
		).Scan(&userID)
		if err != nil {
			return 0, fmt.Errorf("seed user %s: %w", userName, err)
		}
		return userID, nil
	}

	if _, err := insertUser("admin", domain.RoleAdmin, ""); err != nil {
		return err
	}

	deptUsers := map[string]string{
		"hr.training":    "HR Training",
		"hr.management":  "HR Management",
		"it.training":    "IT Training",
		"it.management":  "IT Management",
		"fin.training":   "Finance Training",
		"fin.management": "Finance Management",
	}
	for userName, deptName := range deptUsers {
		if _, err := insertUser(userName, domain.RoleUser, deptName); err != nil {
			return err
		}
	}

	managers := map[string][]string{
		"mgr.hr":      {"HR Training", "HR Management"},
		"mgr.it":      {"IT Training", "IT Management"},
		"mgr.finance": {"Finance Training", "Finance Management"},
	}
	for userName, depts := range managers {
		managerID, err := insertUser(userName, domain.RoleManager, "")
		if err != nil {
			return err
		}
		for _, deptName := range depts {
			if _, err := pool.Exec(ctx,
				`INSERT INTO manager_departments (manager_user_id, department_id) VALUES ($1,$2)`,
				managerID, deptIDs[deptName],
			); err != nil {
				return fmt.Errorf("seed manager link %s/%s: %w", userName, deptName, err)
			}
		}
	}
	return nil
}
