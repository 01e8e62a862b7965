package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// QueryService serves the read side: scoped listings and dashboards.
type QueryService struct {
	store repository.Store
}

// NewQueryService constructs the service.
func NewQueryService(store repository.Store) *QueryService {
	return &QueryService{store: store}
}

// Dashboard is a department work queue with its aggregate counts. Counts
// always cover the full base scope; the ticket list narrows by bucket and
// filters independently.
type Dashboard struct {
	Counts  repository.StatusCounts
	Bucket  *query.Bucket
	Tickets []repository.TicketListItem
}

// ListCreated returns tickets the caller opened.
func (s *QueryService) ListCreated(ctx context.Context, scope *session.Scope, filter query.Filter, sort query.Sort) ([]repository.TicketListItem, error) {
	items, err := s.store.Tickets().List(ctx, query.ByCreator(scope.UserName), filter, nil, sort)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// ListAssigned returns tickets assigned to the caller.
func (s *QueryService) ListAssigned(ctx context.Context, scope *session.Scope, filter query.Filter, sort query.Sort) ([]repository.TicketListItem, error) {
	if !scope.IsUser() {
		return nil, apperrors.NewForbidden()
	}
	items, err := s.store.Tickets().List(ctx, query.ByAssignee(scope.UserID), filter, nil, sort)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UserDashboard is the caller's own department queue. Requires the User
// role and a department on the account.
func (s *QueryService) UserDashboard(ctx context.Context, scope *session.Scope, bucket *query.Bucket, filter query.Filter, sort query.Sort) (*Dashboard, error) {
	if !scope.IsUser() || scope.DepartmentID == nil {
		return nil, apperrors.NewForbidden()
	}
	return s.dashboard(ctx, query.ByDepartment(*scope.DepartmentID), bucket, filter, sort)
}

// ManagerDashboard covers the union of the caller's managed departments.
func (s *QueryService) ManagerDashboard(ctx context.Context, scope *session.Scope, bucket *query.Bucket, filter query.Filter, sort query.Sort) (*Dashboard, error) {
	if !scope.IsManager() || len(scope.ManagerDepartmentIDs) == 0 {
		return nil, apperrors.NewForbidden()
	}
	return s.dashboard(ctx, query.ByManagedDepartments(scope.ManagerDepartmentIDs), bucket, filter, sort)
}

// AdminDashboard lists every ticket, optionally narrowed to one department.
func (s *QueryService) AdminDashboard(ctx context.Context, scope *session.Scope, departmentID *int64, bucket *query.Bucket, filter query.Filter, sort query.Sort) (*Dashboard, error) {
	if !scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}
	return s.dashboard(ctx, query.Unrestricted(departmentID), bucket, filter, sort)
}

func (s *QueryService) dashboard(ctx context.Context, scope query.Scope, bucket *query.Bucket, filter query.Filter, sort query.Sort) (*Dashboard, error) {
	counts, err := s.store.Tickets().CountByScope(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	items, err := s.store.Tickets().List(ctx, scope, filter, bucket, sort)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Dashboard{Counts: counts, Bucket: bucket, Tickets: items}, nil
}
