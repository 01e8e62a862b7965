package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew                  TicketStatus = "New"
	TicketStatusAssignedToDepartment TicketStatus = "AssignedToDepartment"
	TicketStatusInProgress           TicketStatus = "InProgress"
	TicketStatusClosed               TicketStatus = "Closed"
)

// ParseTicketStatus validates a textual status name.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	switch TicketStatus(s) {
	case TicketStatusNew, TicketStatusAssignedToDepartment, TicketStatusInProgress, TicketStatusClosed:
		return TicketStatus(s), true
	}
	return "", false
}

// TicketPriority is set by a manager on approval.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// ParseTicketPriority validates a textual priority name.
func ParseTicketPriority(s string) (TicketPriority, bool) {
	switch TicketPriority(s) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return TicketPriority(s), true
	}
	return "", false
}

// Ticket is the aggregate for helpdesk requests. DepartmentID is the target
// leaf department; FromDepartmentID is the sender leaf department, required
// for user-created tickets.
type Ticket struct {
	ID               int64
	Title            string
	Description      string
	DepartmentID     int64
	FromDepartmentID *int64
	Status           TicketStatus
	Priority         *TicketPriority
	CreatedBy        string
	CreatedByUserID  *int64
	CreatedAt        time.Time
	AssignedUserID   *int64
	ReferenceNumber  *string
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:                  {TicketStatusAssignedToDepartment, TicketStatusInProgress, TicketStatusClosed},
	TicketStatusAssignedToDepartment: {TicketStatusInProgress},
	TicketStatusInProgress:           {TicketStatusClosed},
	TicketStatusClosed:               {},
}

// CanTransition reports whether current to next is a valid state-machine edge.
// Nothing leaves Closed.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// FormatReferenceNumber builds the immutable TS-{year}-{id} reference
// stamped after the initial insert, once the generated id is known.
func FormatReferenceNumber(year int, id int64) string {
	return fmt.Sprintf("TS-%04d-%06d", year, id)
}
