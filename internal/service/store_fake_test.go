package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// fakeStore is an in-memory repository.Store for service tests. InTx runs
// the callback against the same store, mirroring the commit-or-nothing
// contract closely enough for workflow assertions.
type fakeStore struct {
	users       map[int64]*domain.AppUser
	departments map[int64]*domain.Department
	tickets     map[int64]*domain.Ticket
	history     []domain.TicketHistory
	attachments []domain.TicketAttachment
	managed     map[int64][]int64
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*domain.AppUser),
		departments: make(map[int64]*domain.Department),
		tickets:     make(map[int64]*domain.Ticket),
		managed:     make(map[int64][]int64),
		nextID:      1000,
	}
}

func (f *fakeStore) Users() repository.UserRepository             { return &fakeUsers{f} }
func (f *fakeStore) Departments() repository.DepartmentRepository { return &fakeDepartments{f} }
func (f *fakeStore) Tickets() repository.TicketRepository         { return &fakeTickets{f} }
func (f *fakeStore) History() repository.TicketHistoryRepository  { return &fakeHistory{f} }
func (f *fakeStore) Attachments() repository.AttachmentRepository { return &fakeAttachments{f} }

func (f *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

func (f *fakeStore) nextSerial() int64 {
	f.nextID++
	return f.nextID
}

type fakeUsers struct{ store *fakeStore }

func (r *fakeUsers) Create(ctx context.Context, user *domain.AppUser) error {
	user.ID = r.store.nextSerial()
	user.CreatedAt = time.Now()
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUsers) Update(ctx context.Context, user *domain.AppUser) error {
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUsers) GetByID(ctx context.Context, id int64) (*domain.AppUser, error) {
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUsers) GetByUserName(ctx context.Context, userName string) (*domain.AppUser, error) {
	for _, user := range r.store.users {
		if strings.EqualFold(user.UserName, userName) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUsers) List(ctx context.Context, search string) ([]domain.AppUser, error) {
	var users []domain.AppUser
	for _, user := range r.store.users {
		if search == "" || strings.Contains(strings.ToLower(user.UserName), strings.ToLower(search)) {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
	return users, nil
}

func (r *fakeUsers) ListAssignable(ctx context.Context, departmentID int64) ([]domain.AppUser, error) {
	var users []domain.AppUser
	for _, user := range r.store.users {
		if user.Role == domain.RoleUser && user.IsActive &&
			user.DepartmentID != nil && *user.DepartmentID == departmentID {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
	return users, nil
}

func (r *fakeUsers) ListManagedDepartmentIDs(ctx context.Context, managerUserID int64) ([]int64, error) {
	return append([]int64(nil), r.store.managed[managerUserID]...), nil
}

func (r *fakeUsers) ReplaceManagedDepartments(ctx context.Context, managerUserID int64, departmentIDs []int64) error {
	r.store.managed[managerUserID] = append([]int64(nil), departmentIDs...)
	return nil
}

type fakeDepartments struct{ store *fakeStore }

func (r *fakeDepartments) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	dept, ok := r.store.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *dept
	return &copied, nil
}

func (r *fakeDepartments) ListLeaves(ctx context.Context) ([]domain.Department, error) {
	return r.ListLeavesExcluding(ctx, nil)
}

func (r *fakeDepartments) ListLeavesExcluding(ctx context.Context, excluded []int64) ([]domain.Department, error) {
	skip := make(map[int64]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	var leaves []domain.Department
	for _, dept := range r.store.departments {
		if dept.ParentID == nil {
			continue
		}
		if _, ok := skip[dept.ID]; ok {
			continue
		}
		leaves = append(leaves, *dept)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Name < leaves[j].Name })
	return leaves, nil
}

type fakeTickets struct{ store *fakeStore }

func (r *fakeTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.store.nextSerial()
	ticket.CreatedAt = time.Now()
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTickets) StampReference(ctx context.Context, id int64, reference string) error {
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.ReferenceNumber != nil {
		return pgx.ErrNoRows
	}
	ticket.ReferenceNumber = &reference
	return nil
}

func (r *fakeTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = ticket.Status
	stored.Priority = ticket.Priority
	stored.AssignedUserID = ticket.AssignedUserID
	return nil
}

func (r *fakeTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTickets) List(ctx context.Context, scope query.Scope, filter query.Filter, bucket *query.Bucket, sortBy query.Sort) ([]repository.TicketListItem, error) {
	var items []repository.TicketListItem
	for _, ticket := range r.store.tickets {
		if !r.matchesScope(ticket, scope) {
			continue
		}
		if bucket != nil && !statusInBucket(ticket.Status, *bucket) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		items = append(items, r.listItem(ticket))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *fakeTickets) CountByScope(ctx context.Context, scope query.Scope) (repository.StatusCounts, error) {
	var counts repository.StatusCounts
	for _, ticket := range r.store.tickets {
		if !r.matchesScope(ticket, scope) {
			continue
		}
		counts.Total++
		switch ticket.Status {
		case domain.TicketStatusNew:
			counts.New++
		case domain.TicketStatusAssignedToDepartment, domain.TicketStatusInProgress:
			counts.InProgress++
		case domain.TicketStatusClosed:
			counts.Closed++
		}
	}
	return counts, nil
}

func (r *fakeTickets) matchesScope(ticket *domain.Ticket, scope query.Scope) bool {
	switch scope.Kind {
	case query.ScopeCreatedBy:
		return strings.EqualFold(ticket.CreatedBy, scope.CreatedBy)
	case query.ScopeDepartment:
		return ticket.DepartmentID == scope.DepartmentID
	case query.ScopeAssignedTo:
		return ticket.AssignedUserID != nil && *ticket.AssignedUserID == scope.UserID
	case query.ScopeManagedDepartments:
		for _, id := range scope.DepartmentIDs {
			if ticket.DepartmentID == id {
				return true
			}
		}
		return false
	default:
		return scope.OptionalDept == nil || ticket.DepartmentID == *scope.OptionalDept
	}
}

func (r *fakeTickets) listItem(ticket *domain.Ticket) repository.TicketListItem {
	item := repository.TicketListItem{Ticket: *ticket}
	if dept, ok := r.store.departments[ticket.DepartmentID]; ok {
		item.DepartmentName = dept.Name
	}
	if ticket.FromDepartmentID != nil {
		if dept, ok := r.store.departments[*ticket.FromDepartmentID]; ok {
			item.FromDepartmentName = &dept.Name
		}
	}
	if ticket.AssignedUserID != nil {
		if user, ok := r.store.users[*ticket.AssignedUserID]; ok {
			item.AssignedUserName = &user.UserName
		}
	}
	return item
}

func statusInBucket(status domain.TicketStatus, bucket query.Bucket) bool {
	for _, candidate := range bucket.Statuses() {
		if status == candidate {
			return true
		}
	}
	return false
}

type fakeHistory struct{ store *fakeStore }

func (r *fakeHistory) Create(ctx context.Context, entry *domain.TicketHistory) error {
	entry.ID = r.store.nextSerial()
	entry.ChangedAt = time.Now()
	r.store.history = append(r.store.history, *entry)
	return nil
}

func (r *fakeHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	var entries []domain.TicketHistory
	for _, entry := range r.store.history {
		if entry.TicketID == ticketID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type fakeAttachments struct{ store *fakeStore }

func (r *fakeAttachments) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	attachment.ID = r.store.nextSerial()
	attachment.UploadedAt = time.Now()
	r.store.attachments = append(r.store.attachments, *attachment)
	return nil
}

func (r *fakeAttachments) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	var attachments []domain.TicketAttachment
	for _, attachment := range r.store.attachments {
		if attachment.TicketID == ticketID {
			attachments = append(attachments, attachment)
		}
	}
	return attachments, nil
}
