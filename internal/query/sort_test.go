package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestParseSort(t *testing.T) {
	cases := []struct {
		name string
		sort string
		dir  string
		want Sort
	}{
		{"default when empty", "", "", Sort{Key: SortByCreatedAt, Desc: true}},
		{"unknown key falls back desc", "bogus", "asc", Sort{Key: SortByCreatedAt, Desc: true}},
		{"known key ascending", "title", "asc", Sort{Key: SortByTitle, Desc: false}},
		{"known key descending", "ticketNumber", "desc", Sort{Key: SortByReference, Desc: true}},
		{"key is case-insensitive", "FromDepartment", "asc", Sort{Key: SortByFromDepartment, Desc: false}},
		{"missing dir means ascending", "status", "", Sort{Key: SortByStatus, Desc: false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseSort(tc.sort, tc.dir))
		})
	}
}

func TestSortOrderClause(t *testing.T) {
	assert.Equal(t, "t.created_at DESC", DefaultSort().OrderClause())
	assert.Equal(t, "LOWER(au.user_name) ASC", Sort{Key: SortByAssignedTo}.OrderClause())
	assert.Equal(t, "LOWER(d.name) DESC", Sort{Key: SortByDepartment, Desc: true}.OrderClause())
}

func TestParseStatus(t *testing.T) {
	status := ParseStatus("Closed")
	if assert.NotNil(t, status) {
		assert.Equal(t, domain.TicketStatusClosed, *status)
	}

	assert.Nil(t, ParseStatus("closed"))
	assert.Nil(t, ParseStatus("garbage"))
	assert.Nil(t, ParseStatus(""))
}

func TestParseCreatedOn(t *testing.T) {
	day := ParseCreatedOn("2026-03-15")
	if assert.NotNil(t, day) {
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *day)
	}

	stamped := ParseCreatedOn("2026-03-15T18:30:00Z")
	if assert.NotNil(t, stamped) {
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *stamped)
	}

	assert.Nil(t, ParseCreatedOn(""))
	assert.Nil(t, ParseCreatedOn("15/03/2026"))
}

func TestBucketStatuses(t *testing.T) {
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusNew}, BucketNew.Statuses())
	assert.Equal(t,
		[]domain.TicketStatus{domain.TicketStatusAssignedToDepartment, domain.TicketStatusInProgress},
		BucketInProgress.Statuses())
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusClosed}, BucketClosed.Statuses())

	assert.Nil(t, ParseBucket("Open"))
	bucket := ParseBucket("InProgress")
	if assert.NotNil(t, bucket) {
		assert.Equal(t, BucketInProgress, *bucket)
	}
}
