package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	deptHR          = int64(1)
	deptIT          = int64(2)
	deptHRTraining  = int64(10)
	deptITTraining  = int64(11)
	deptHRManage    = int64(13)
	deptITManage    = int64(14)
	userHRTraining  = int64(100)
	userITEmpowered = int64(101)
	userITPlain     = int64(102)
	managerIT       = int64(200)
	adminID         = int64(300)
)

func seedStore() *fakeStore {
	f := newFakeStore()

	hr := deptHR
	it := deptIT
	f.departments[deptHR] = &domain.Department{ID: deptHR, Name: "HR"}
	f.departments[deptIT] = &domain.Department{ID: deptIT, Name: "IT"}
	f.departments[deptHRTraining] = &domain.Department{ID: deptHRTraining, Name: "HR Training", ParentID: &hr}
	f.departments[deptHRManage] = &domain.Department{ID: deptHRManage, Name: "HR Management", ParentID: &hr}
	f.departments[deptITTraining] = &domain.Department{ID: deptITTraining, Name: "IT Training", ParentID: &it}
	f.departments[deptITManage] = &domain.Department{ID: deptITManage, Name: "IT Management", ParentID: &it}

	hrTraining := deptHRTraining
	itTraining := deptITTraining
	f.users[userHRTraining] = &domain.AppUser{
		ID: userHRTraining, UserName: "hr.training", Role: domain.RoleUser,
		DepartmentID: &hrTraining, IsActive: true,
	}
	f.users[userITEmpowered] = &domain.AppUser{
		ID: userITEmpowered, UserName: "it.training", Role: domain.RoleUser,
		DepartmentID: &itTraining, IsActive: true, CanManageDeptTickets: true,
	}
	f.users[userITPlain] = &domain.AppUser{
		ID: userITPlain, UserName: "it.support", Role: domain.RoleUser,
		DepartmentID: &itTraining, IsActive: true,
	}
	f.users[managerIT] = &domain.AppUser{
		ID: managerIT, UserName: "mgr.it", Role: domain.RoleManager, IsActive: true,
	}
	f.managed[managerIT] = []int64{deptITTraining, deptITManage}
	f.users[adminID] = &domain.AppUser{
		ID: adminID, UserName: "admin", Role: domain.RoleAdmin, IsActive: true,
	}

	return f
}

func hrUserScope() *session.Scope {
	dept := deptHRTraining
	return &session.Scope{UserID: userHRTraining, UserName: "hr.training", Role: domain.RoleUser, DepartmentID: &dept}
}

func itUserScope(userID int64, userName string) *session.Scope {
	dept := deptITTraining
	return &session.Scope{UserID: userID, UserName: userName, Role: domain.RoleUser, DepartmentID: &dept}
}

func itManagerScope() *session.Scope {
	return &session.Scope{
		UserID: managerIT, UserName: "mgr.it", Role: domain.RoleManager,
		ManagerDepartmentIDs: []int64{deptITTraining, deptITManage},
	}
}

func adminScope() *session.Scope {
	return &session.Scope{UserID: adminID, UserName: "admin", Role: domain.RoleAdmin}
}

func newTestTicketService(f *fakeStore) *TicketService {
	return NewTicketService(TicketDependencies{Store: f, Logger: zap.NewNop()})
}

func putTicket(f *fakeStore, ticket domain.Ticket) int64 {
	if ticket.ID == 0 {
		ticket.ID = f.nextSerial()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	stored := ticket
	f.tickets[ticket.ID] = &stored
	return ticket.ID
}

func TestCreateTicketStampsReference(t *testing.T) {
	f := seedStore()
	svc := newTestTicketService(f)

	ticket, err := svc.CreateTicket(context.Background(), hrUserScope(), TicketCreateInput{
		Title:        "VPN broken",
		Description:  "cannot connect since monday",
		DepartmentID: deptITTraining,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	require.NotNil(t, ticket.ReferenceNumber)
	assert.Equal(t, domain.FormatReferenceNumber(ticket.CreatedAt.Year(), ticket.ID), *ticket.ReferenceNumber)
	require.NotNil(t, ticket.FromDepartmentID)
	assert.Equal(t, deptHRTraining, *ticket.FromDepartmentID)
	assert.Equal(t, "hr.training", ticket.CreatedBy)

	stored := f.tickets[ticket.ID]
	require.NotNil(t, stored)
	assert.Equal(t, *ticket.ReferenceNumber, *stored.ReferenceNumber)
	assert.Empty(t, f.history, "creation writes no history entry")
}

func TestCreateTicketRoutingRules(t *testing.T) {
	f := seedStore()
	svc := newTestTicketService(f)
	ctx := context.Background()

	t.Run("user cannot target a sibling of their own root", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, hrUserScope(), TicketCreateInput{
			Title: "x", Description: "y", DepartmentID: deptHRManage,
		})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("root department is not a valid target", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, hrUserScope(), TicketCreateInput{
			Title: "x", Description: "y", DepartmentID: deptIT,
		})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown department is a validation failure", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, hrUserScope(), TicketCreateInput{
			Title: "x", Description: "y", DepartmentID: 999,
		})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("manager cannot target a managed department", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, itManagerScope(), TicketCreateInput{
			Title: "x", Description: "y", DepartmentID: deptITTraining,
		})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("manager may target an unmanaged leaf", func(t *testing.T) {
		ticket, err := svc.CreateTicket(ctx, itManagerScope(), TicketCreateInput{
			Title: "budget", Description: "renew licenses", DepartmentID: deptHRTraining,
		})
		require.NoError(t, err)
		assert.Equal(t, deptHRTraining, ticket.DepartmentID)
	})

	t.Run("admins do not create tickets", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, adminScope(), TicketCreateInput{
			Title: "x", Description: "y", DepartmentID: deptITTraining,
		})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("blank fields rejected", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, hrUserScope(), TicketCreateInput{
			Title: "  ", Description: "y", DepartmentID: deptITTraining,
		})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestSelfManage(t *testing.T) {
	ctx := context.Background()

	t.Run("empowered user takes a new department ticket", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			Title: "printer", Description: "jam", DepartmentID: deptITTraining,
			Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		ticket, err := svc.SelfManage(ctx, itUserScope(userITEmpowered, "it.training"), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
		require.NotNil(t, ticket.AssignedUserID)
		assert.Equal(t, userITEmpowered, *ticket.AssignedUserID)

		require.Len(t, f.history, 1)
		assert.Equal(t, domain.TicketStatusNew, f.history[0].OldStatus)
		assert.Equal(t, domain.TicketStatusInProgress, f.history[0].NewStatus)
		assert.Equal(t, "it.training", f.history[0].ChangedBy)
	})

	t.Run("flag is required", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		_, err := svc.SelfManage(ctx, itUserScope(userITPlain, "it.support"), id)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("other departments tickets are off limits", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptHRTraining, Status: domain.TicketStatusNew, CreatedBy: "it.support",
		})

		_, err := svc.SelfManage(ctx, itUserScope(userITEmpowered, "it.training"), id)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("only new tickets qualify", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusInProgress, CreatedBy: "hr.training",
		})

		_, err := svc.SelfManage(ctx, itUserScope(userITEmpowered, "it.training"), id)
		assert.True(t, apperrors.IsForbidden(err))
	})
}

func TestApproveAndAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns priority and employee", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		ticket, err := svc.ApproveAndAssign(ctx, itManagerScope(), id, userITPlain, domain.TicketPriorityHigh)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusAssignedToDepartment, ticket.Status)
		require.NotNil(t, ticket.Priority)
		assert.Equal(t, domain.TicketPriorityHigh, *ticket.Priority)
		require.NotNil(t, ticket.AssignedUserID)
		assert.Equal(t, userITPlain, *ticket.AssignedUserID)
		require.Len(t, f.history, 1)
	})

	t.Run("assignee from another department leaves ticket untouched", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		_, err := svc.ApproveAndAssign(ctx, itManagerScope(), id, userHRTraining, domain.TicketPriorityLow)
		assert.True(t, apperrors.IsValidation(err))

		stored := f.tickets[id]
		assert.Equal(t, domain.TicketStatusNew, stored.Status)
		assert.Nil(t, stored.AssignedUserID)
		assert.Nil(t, stored.Priority)
		assert.Empty(t, f.history)
	})

	t.Run("unknown assignee is recoverable", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		_, err := svc.ApproveAndAssign(ctx, itManagerScope(), id, 9999, domain.TicketPriorityLow)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unmanaged department is forbidden", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptHRTraining, Status: domain.TicketStatusNew, CreatedBy: "it.support",
		})

		_, err := svc.ApproveAndAssign(ctx, itManagerScope(), id, userHRTraining, domain.TicketPriorityLow)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("non-new status is recoverable", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusClosed, CreatedBy: "hr.training",
		})

		_, err := svc.ApproveAndAssign(ctx, itManagerScope(), id, userITPlain, domain.TicketPriorityLow)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestSolveMyselfAndCloseSolved(t *testing.T) {
	ctx := context.Background()
	f := seedStore()
	svc := newTestTicketService(f)
	id := putTicket(f, domain.Ticket{
		DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
	})

	ticket, err := svc.SolveMyself(ctx, itManagerScope(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Nil(t, ticket.AssignedUserID)

	ticket, err = svc.ManagerCloseSolved(ctx, itManagerScope(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	assert.Len(t, f.history, 2)
}

func TestManagerCloseSolvedRequiresUnassignedInProgress(t *testing.T) {
	ctx := context.Background()
	f := seedStore()
	svc := newTestTicketService(f)
	assignee := userITPlain
	id := putTicket(f, domain.Ticket{
		DepartmentID: deptITTraining, Status: domain.TicketStatusInProgress,
		AssignedUserID: &assignee, CreatedBy: "hr.training",
	})

	_, err := svc.ManagerCloseSolved(ctx, itManagerScope(), id)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, domain.TicketStatusInProgress, f.tickets[id].Status)
}

func TestChangeStatusUserPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("assignee walks assigned through closed", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		assignee := userITPlain
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusAssignedToDepartment,
			AssignedUserID: &assignee, CreatedBy: "hr.training",
		})

		ticket, err := svc.ChangeStatus(ctx, itUserScope(userITPlain, "it.support"), id, domain.TicketStatusInProgress, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

		ticket, err = svc.ChangeStatus(ctx, itUserScope(userITPlain, "it.support"), id, domain.TicketStatusClosed, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
		assert.Len(t, f.history, 2)
	})

	t.Run("non-assignee is forbidden", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		assignee := userITPlain
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusAssignedToDepartment,
			AssignedUserID: &assignee, CreatedBy: "hr.training",
		})

		_, err := svc.ChangeStatus(ctx, itUserScope(userITEmpowered, "it.training"), id, domain.TicketStatusInProgress, nil)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("assignee cannot skip in progress", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		assignee := userITPlain
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusAssignedToDepartment,
			AssignedUserID: &assignee, CreatedBy: "hr.training",
		})

		_, err := svc.ChangeStatus(ctx, itUserScope(userITPlain, "it.support"), id, domain.TicketStatusClosed, nil)
		assert.True(t, apperrors.IsForbidden(err))
	})
}

func TestChangeStatusManagerPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("reject requires a comment", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		_, err := svc.ChangeStatus(ctx, itManagerScope(), id, domain.TicketStatusClosed, nil)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, domain.TicketStatusNew, f.tickets[id].Status)

		reason := "duplicate of an open request"
		ticket, err := svc.ChangeStatus(ctx, itManagerScope(), id, domain.TicketStatusClosed, &reason)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
		require.Len(t, f.history, 1)
		require.NotNil(t, f.history[0].Comment)
		assert.Equal(t, reason, *f.history[0].Comment)
	})

	t.Run("manager cannot close work in flight", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusInProgress, CreatedBy: "hr.training",
		})

		reason := "nope"
		_, err := svc.ChangeStatus(ctx, itManagerScope(), id, domain.TicketStatusClosed, &reason)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("unmanaged department is forbidden", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptHRTraining, Status: domain.TicketStatusNew, CreatedBy: "it.support",
		})

		reason := "spam"
		_, err := svc.ChangeStatus(ctx, itManagerScope(), id, domain.TicketStatusClosed, &reason)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("admins never transition", func(t *testing.T) {
		f := seedStore()
		svc := newTestTicketService(f)
		id := putTicket(f, domain.Ticket{
			DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
		})

		_, err := svc.ChangeStatus(ctx, adminScope(), id, domain.TicketStatusClosed, nil)
		assert.True(t, apperrors.IsForbidden(err))
	})
}

func TestGetTicketDetailVisibility(t *testing.T) {
	ctx := context.Background()
	f := seedStore()
	svc := newTestTicketService(f)
	id := putTicket(f, domain.Ticket{
		DepartmentID: deptITTraining, Status: domain.TicketStatusNew, CreatedBy: "hr.training",
	})

	t.Run("creator sees the ticket", func(t *testing.T) {
		detail, err := svc.GetTicketDetail(ctx, hrUserScope(), id)
		require.NoError(t, err)
		assert.Equal(t, id, detail.Ticket.ID)
	})

	t.Run("same department user sees the ticket", func(t *testing.T) {
		detail, err := svc.GetTicketDetail(ctx, itUserScope(userITEmpowered, "it.training"), id)
		require.NoError(t, err)
		assert.True(t, detail.CanManage)
	})

	t.Run("managing manager gets assignable users", func(t *testing.T) {
		detail, err := svc.GetTicketDetail(ctx, itManagerScope(), id)
		require.NoError(t, err)
		assert.True(t, detail.ManagerCanAct)
		names := make([]string, 0, len(detail.AssignableUsers))
		for _, user := range detail.AssignableUsers {
			names = append(names, user.UserName)
		}
		assert.Equal(t, []string{"it.support", "it.training"}, names)
	})

	t.Run("admin has full visibility without actions", func(t *testing.T) {
		detail, err := svc.GetTicketDetail(ctx, adminScope(), id)
		require.NoError(t, err)
		assert.False(t, detail.ManagerCanAct)
		assert.Empty(t, detail.AssignableUsers)
	})

	t.Run("unrelated user is forbidden", func(t *testing.T) {
		foreign := putTicket(f, domain.Ticket{
			DepartmentID: deptHRManage, Status: domain.TicketStatusNew, CreatedBy: "mgr.it",
		})
		_, err := svc.GetTicketDetail(ctx, itUserScope(userITPlain, "it.support"), foreign)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("missing ticket is not found", func(t *testing.T) {
		_, err := svc.GetTicketDetail(ctx, adminScope(), 98765)
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})
}

func TestEligibleTargetDepartments(t *testing.T) {
	ctx := context.Background()
	f := seedStore()
	svc := newTestTicketService(f)

	t.Run("user loses every leaf of their own root", func(t *testing.T) {
		departments, err := svc.EligibleTargetDepartments(ctx, hrUserScope())
		require.NoError(t, err)
		names := departmentNames(departments)
		assert.Equal(t, []string{"IT Management", "IT Training"}, names)
	})

	t.Run("manager loses the managed set only", func(t *testing.T) {
		departments, err := svc.EligibleTargetDepartments(ctx, itManagerScope())
		require.NoError(t, err)
		names := departmentNames(departments)
		assert.Equal(t, []string{"HR Management", "HR Training"}, names)
	})

	t.Run("admin sees all leaves", func(t *testing.T) {
		departments, err := svc.EligibleTargetDepartments(ctx, adminScope())
		require.NoError(t, err)
		assert.Len(t, departments, 4)
	})
}

func TestTicketLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := seedStore()
	svc := newTestTicketService(f)

	ticket, err := svc.CreateTicket(ctx, hrUserScope(), TicketCreateInput{
		Title:        "laptop won't boot",
		Description:  "black screen on power up",
		DepartmentID: deptITTraining,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	require.NotNil(t, ticket.ReferenceNumber)
	assert.Equal(t, domain.FormatReferenceNumber(ticket.CreatedAt.Year(), ticket.ID), *ticket.ReferenceNumber)

	ticket, err = svc.ApproveAndAssign(ctx, itManagerScope(), ticket.ID, userITPlain, domain.TicketPriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssignedToDepartment, ticket.Status)
	assert.Len(t, f.history, 1)

	assignee := itUserScope(userITPlain, "it.support")
	ticket, err = svc.ChangeStatus(ctx, assignee, ticket.ID, domain.TicketStatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	ticket, err = svc.ChangeStatus(ctx, assignee, ticket.ID, domain.TicketStatusClosed, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)

	require.Len(t, f.history, 3)
	assert.Equal(t, domain.TicketStatusNew, f.history[0].OldStatus)
	assert.Equal(t, domain.TicketStatusAssignedToDepartment, f.history[0].NewStatus)
	assert.Equal(t, domain.TicketStatusInProgress, f.history[1].NewStatus)
	assert.Equal(t, domain.TicketStatusClosed, f.history[2].NewStatus)
}

func TestManagerCreateForManagedDepartmentPersistsNothing(t *testing.T) {
	f := seedStore()
	svc := newTestTicketService(f)

	_, err := svc.CreateTicket(context.Background(), itManagerScope(), TicketCreateInput{
		Title:        "self ticket",
		Description:  "should never exist",
		DepartmentID: deptITManage,
	})
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, f.tickets)
	assert.Empty(t, f.history)
}

func departmentNames(departments []domain.Department) []string {
	names := make([]string, 0, len(departments))
	for _, dept := range departments {
		names = append(names, dept.Name)
	}
	return names
}
