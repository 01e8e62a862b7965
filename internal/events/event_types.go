package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID   int64           `json:"user_id"`
	UserName string          `json:"user_name"`
	Role     domain.UserRole `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID     int64   `json:"department_id"`
	FromDepartmentID *int64  `json:"from_department_id,omitempty"`
	Title            string  `json:"title"`
	ReferenceNumber  *string `json:"reference_number,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedUserID *int64                 `json:"assigned_user_id,omitempty"`
	Priority       *domain.TicketPriority `json:"priority,omitempty"`
}
