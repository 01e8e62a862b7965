package domain

import "time"

// TicketHistory is an immutable audit entry, one row per status transition.
// Rows are never mutated or deleted and display in ChangedAt order.
type TicketHistory struct {
	ID        int64
	TicketID  int64
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy string
	Role      UserRole
	ChangedAt time.Time
	Comment   *string
}
