package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
)

// TicketListItem is a listing row with the joined display names the grid
// filters and sorts operate on.
type TicketListItem struct {
	domain.Ticket
	DepartmentName     string
	FromDepartmentName *string
	AssignedUserName   *string
}

// StatusCounts aggregates a base scope into the dashboard buckets. New plus
// the merged in-progress pair plus Closed equals Total.
type StatusCounts struct {
	Total      int64
	New        int64
	InProgress int64
	Closed     int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	StampReference(ctx context.Context, id int64, reference string) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, scope query.Scope, filter query.Filter, bucket *query.Bucket, sort query.Sort) ([]TicketListItem, error)
	CountByScope(ctx context.Context, scope query.Scope) (StatusCounts, error)
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `id, title, description, department_id, from_department_id, status, priority,
               created_by, created_by_user_id, created_at, assigned_user_id, reference_number`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const q = `
        INSERT INTO tickets (title, description, department_id, from_department_id, status, priority,
                             created_by, created_by_user_id, assigned_user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, q,
		ticket.Title,
		ticket.Description,
		ticket.DepartmentID,
		ticket.FromDepartmentID,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.CreatedByUserID,
		ticket.AssignedUserID,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

// StampReference writes the id-derived reference number, the second phase of
// the create protocol.
func (r *ticketRepository) StampReference(ctx context.Context, id int64, reference string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE tickets SET reference_number=$1 WHERE id=$2 AND reference_number IS NULL`, reference, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const q = `
        UPDATE tickets SET status=$1, priority=$2, assigned_user_id=$3
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, q,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedUserID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id,
	).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.DepartmentID,
		&ticket.FromDepartmentID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.CreatedByUserID,
		&ticket.CreatedAt,
		&ticket.AssignedUserID,
		&ticket.ReferenceNumber,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

const listBase = `
        SELECT t.id, t.title, t.description, t.department_id, t.from_department_id, t.status, t.priority,
               t.created_by, t.created_by_user_id, t.created_at, t.assigned_user_id, t.reference_number,
               d.name, fd.name, au.user_name
        FROM tickets t
        JOIN departments d ON d.id = t.department_id
        LEFT JOIN departments fd ON fd.id = t.from_department_id
        LEFT JOIN app_users au ON au.id = t.assigned_user_id`

// List builds a filtered, sorted listing over the base scope. The optional
// bucket narrows statuses; filters combine with AND.
func (r *ticketRepository) List(ctx context.Context, scope query.Scope, filter query.Filter, bucket *query.Bucket, sort query.Sort) ([]TicketListItem, error) {
	clauses, args := scopeClauses(scope)

	if bucket != nil {
		statuses := bucket.Statuses()
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}

	addContains := func(column, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, len(args)))
	}
	addContains("t.reference_number", filter.Reference)
	addContains("t.title", filter.Title)
	addContains("d.name", filter.DepartmentName)
	addContains("fd.name", filter.FromDepartmentName)
	addContains("t.created_by", filter.CreatedBy)
	addContains("au.user_name", filter.AssignedTo)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.CreatedOn != nil {
		args = append(args, *filter.CreatedOn)
		clauses = append(clauses, fmt.Sprintf("t.created_at::date = $%d::date", len(args)))
	}

	q := listBase
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY " + sort.OrderClause()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TicketListItem
	for rows.Next() {
		var item TicketListItem
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.DepartmentID,
			&item.FromDepartmentID,
			&item.Status,
			&item.Priority,
			&item.CreatedBy,
			&item.CreatedByUserID,
			&item.CreatedAt,
			&item.AssignedUserID,
			&item.ReferenceNumber,
			&item.DepartmentName,
			&item.FromDepartmentName,
			&item.AssignedUserName,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// CountByScope computes the dashboard aggregates over the unfiltered scope.
func (r *ticketRepository) CountByScope(ctx context.Context, scope query.Scope) (StatusCounts, error) {
	clauses, args := scopeClauses(scope)

	q := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE t.status = 'New'),
               COUNT(*) FILTER (WHERE t.status IN ('AssignedToDepartment','InProgress')),
               COUNT(*) FILTER (WHERE t.status = 'Closed')
        FROM tickets t`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}

	var counts StatusCounts
	if err := r.db.QueryRow(ctx, q, args...).Scan(
		&counts.Total,
		&counts.New,
		&counts.InProgress,
		&counts.Closed,
	); err != nil {
		return StatusCounts{}, err
	}
	return counts, nil
}

func scopeClauses(scope query.Scope) ([]string, []any) {
	var clauses []string
	var args []any

	switch scope.Kind {
	case query.ScopeCreatedBy:
		args = append(args, scope.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by = $%d", len(args)))
	case query.ScopeDepartment:
		args = append(args, scope.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("t.department_id = $%d", len(args)))
	case query.ScopeAssignedTo:
		args = append(args, scope.UserID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_user_id = $%d", len(args)))
	case query.ScopeManagedDepartments:
		args = append(args, scope.DepartmentIDs)
		clauses = append(clauses, fmt.Sprintf("t.department_id = ANY($%d)", len(args)))
	case query.ScopeUnrestricted:
		if scope.OptionalDept != nil {
			args = append(args, *scope.OptionalDept)
			clauses = append(clauses, fmt.Sprintf("t.department_id = $%d", len(args)))
		}
	}
	return clauses, args
}
