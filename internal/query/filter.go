package query

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Filter carries the optional listing filters, combined with logical AND.
// String fields are case-insensitive substring matches; Status and CreatedOn
// are exact (CreatedOn ignores time of day). Empty fields are skipped.
type Filter struct {
	Reference          string
	Title              string
	DepartmentName     string
	FromDepartmentName string
	CreatedBy          string
	AssignedTo         string
	Status             *domain.TicketStatus
	CreatedOn          *time.Time
}

// ParseStatus validates a status filter value. Unparseable input yields nil
// and the filter is silently ignored.
func ParseStatus(s string) *domain.TicketStatus {
	status, ok := domain.ParseTicketStatus(strings.TrimSpace(s))
	if !ok {
		return nil
	}
	return &status
}

// ParseCreatedOn parses a creation-date filter, accepting a plain date or a
// full timestamp and truncating to the day.
func ParseCreatedOn(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// Bucket is the UI-level status grouping used by dashboards: New, the merged
// in-progress pair, and Closed.
type Bucket string

const (
	BucketNew        Bucket = "New"
	BucketInProgress Bucket = "InProgress"
	BucketClosed     Bucket = "Closed"
)

// Statuses expands the bucket to its member statuses.
func (b Bucket) Statuses() []domain.TicketStatus {
	switch b {
	case BucketNew:
		return []domain.TicketStatus{domain.TicketStatusNew}
	case BucketInProgress:
		return []domain.TicketStatus{domain.TicketStatusAssignedToDepartment, domain.TicketStatusInProgress}
	case BucketClosed:
		return []domain.TicketStatus{domain.TicketStatusClosed}
	}
	return nil
}

// ParseBucket validates a dashboard bucket filter. Unknown input yields nil.
func ParseBucket(s string) *Bucket {
	switch Bucket(strings.TrimSpace(s)) {
	case BucketNew, BucketInProgress, BucketClosed:
		b := Bucket(strings.TrimSpace(s))
		return &b
	}
	return nil
}
