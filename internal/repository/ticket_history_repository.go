package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketHistoryRepository stores the append-only transition audit trail.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, old_status, new_status, changed_by, role, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, changed_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.Role,
		entry.Comment,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, role, changed_at, comment
        FROM ticket_history WHERE ticket_id=$1 ORDER BY changed_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.Role,
			&entry.ChangedAt,
			&entry.Comment,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
