package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository stores attachment metadata rows.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.TicketAttachment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error)
}

type attachmentRepository struct {
	db DBTX
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, file_name, file_path, content_type)
        VALUES ($1,$2,$3,$4)
        RETURNING id, uploaded_at`
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.FileName,
		attachment.FilePath,
		attachment.ContentType,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, file_name, file_path, content_type, uploaded_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY uploaded_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.FileName,
			&attachment.FilePath,
			&attachment.ContentType,
			&attachment.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
