package domain

import "time"

// TicketAttachment stores metadata for a file uploaded at ticket creation.
// FileName keeps the original name for display; FilePath is the blob-store
// relative path under the ticket's folder.
type TicketAttachment struct {
	ID          int64
	TicketID    int64
	FileName    string
	FilePath    string
	ContentType string
	UploadedAt  time.Time
}
