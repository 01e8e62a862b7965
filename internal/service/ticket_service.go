package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService owns the ticket workflow: creation, the status state
// machine and its role-scoped authorization. Every mutation re-reads the
// ticket inside a transaction and commits the status change together with
// its history row.
type TicketService struct {
	store      repository.Store
	blobs      storage.BlobStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Blobs      storage.BlobStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		blobs:      deps.Blobs,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// AttachmentUpload carries one uploaded file into ticket creation.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	DepartmentID int64
	Attachments  []AttachmentUpload
}

// TicketDetail is the full per-role view of one ticket.
type TicketDetail struct {
	Ticket          *domain.Ticket
	History         []domain.TicketHistory
	Attachments     []domain.TicketAttachment
	AssignableUsers []domain.AppUser
	ManagerCanAct   bool
	CanManage       bool
}

// CreateTicket validates routing rules and persists a new ticket, then
// stamps the id-derived reference number. Attachment writes happen after
// the commit and are not rolled back on partial failure.
func (s *TicketService) CreateTicket(ctx context.Context, scope *session.Scope, input TicketCreateInput) (*domain.Ticket, error) {
	if scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	target, err := s.store.Departments().GetByID(ctx, input.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("selected department does not exist", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !target.IsLeaf() {
		return nil, apperrors.NewValidationError("selected department does not exist", nil)
	}

	senderDeptID, err := s.senderDepartmentID(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if scope.IsUser() {
		if senderDeptID == nil {
			return nil, apperrors.NewValidationError("your account has no department assigned; contact an administrator", nil)
		}
		senderDept, err := s.store.Departments().GetByID(ctx, *senderDeptID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if target.RootID() == senderDept.RootID() {
			return nil, apperrors.NewValidationError("you cannot create a ticket for your own department", nil)
		}
	}
	if scope.IsManager() && scope.ManagesDepartment(input.DepartmentID) {
		return nil, apperrors.NewValidationError("you cannot create a ticket for a department you manage", nil)
	}

	ticket := &domain.Ticket{
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		DepartmentID:     input.DepartmentID,
		FromDepartmentID: senderDeptID,
		Status:           domain.TicketStatusNew,
		CreatedBy:        scope.UserName,
		CreatedByUserID:  &scope.UserID,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		reference := domain.FormatReferenceNumber(ticket.CreatedAt.Year(), ticket.ID)
		if err := tx.Tickets().StampReference(ctx, ticket.ID, reference); err != nil {
			return err
		}
		ticket.ReferenceNumber = &reference
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.saveAttachments(ctx, ticket.ID, input.Attachments)

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFromScope(scope),
		Payload: events.TicketCreatedPayload{
			DepartmentID:     ticket.DepartmentID,
			FromDepartmentID: ticket.FromDepartmentID,
			Title:            ticket.Title,
			ReferenceNumber:  ticket.ReferenceNumber,
		},
	})
	return ticket, nil
}

// SelfManage lets an empowered department user pull a New ticket of their
// own department straight into InProgress, assigned to themselves.
func (s *TicketService) SelfManage(ctx context.Context, scope *session.Scope, ticketID int64) (*domain.Ticket, error) {
	if !scope.IsUser() || scope.DepartmentID == nil {
		return nil, apperrors.NewForbidden()
	}

	// capability flag is re-read, not trusted from the session
	user, err := s.store.Users().GetByID(ctx, scope.UserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !user.CanManageDeptTickets {
		return nil, apperrors.NewForbidden()
	}

	var ticket *domain.Ticket
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.fetchTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket.DepartmentID != *scope.DepartmentID {
			return apperrors.NewForbidden()
		}
		if ticket.Status != domain.TicketStatusNew {
			return apperrors.NewForbidden()
		}

		oldStatus := ticket.Status
		ticket.AssignedUserID = &scope.UserID
		ticket.Status = domain.TicketStatusInProgress
		comment := "User managed ticket (self-assign) and started processing."
		return s.applyTransition(ctx, tx, ticket, oldStatus, scope, &comment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStatusChanged(ctx, scope, ticket, domain.TicketStatusNew, "")
	return ticket, nil
}

// ApproveAndAssign moves a New ticket to AssignedToDepartment with a
// priority and a named assignee. The assignee must be an active User of the
// ticket's department; anything else is a recoverable validation failure.
func (s *TicketService) ApproveAndAssign(ctx context.Context, scope *session.Scope, ticketID, assigneeID int64, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !scope.IsManager() || len(scope.ManagerDepartmentIDs) == 0 {
		return nil, apperrors.NewForbidden()
	}

	var ticket *domain.Ticket
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.fetchTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !scope.ManagesDepartment(ticket.DepartmentID) {
			return apperrors.NewForbidden()
		}
		if ticket.Status != domain.TicketStatusNew {
			return apperrors.NewValidationError("this ticket is not in New status", nil)
		}

		assignee, err := tx.Users().GetByID(ctx, assigneeID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err != nil || !assignee.IsActive || assignee.Role != domain.RoleUser ||
			assignee.DepartmentID == nil || *assignee.DepartmentID != ticket.DepartmentID {
			return apperrors.NewValidationError("selected user is not valid for this ticket department", nil)
		}

		oldStatus := ticket.Status
		ticket.Priority = &priority
		ticket.AssignedUserID = &assigneeID
		ticket.Status = domain.TicketStatusAssignedToDepartment
		comment := fmt.Sprintf("Approved and assigned to userId=%d, priority=%s.", assigneeID, priority)
		return s.applyTransition(ctx, tx, ticket, oldStatus, scope, &comment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorFromScope(scope),
		Payload: events.TicketAssignedPayload{
			AssignedUserID: ticket.AssignedUserID,
			Priority:       ticket.Priority,
		},
	})
	return ticket, nil
}

// SolveMyself lets a manager start working a New ticket of a managed
// department without naming an employee.
func (s *TicketService) SolveMyself(ctx context.Context, scope *session.Scope, ticketID int64) (*domain.Ticket, error) {
	if !scope.IsManager() || len(scope.ManagerDepartmentIDs) == 0 {
		return nil, apperrors.NewForbidden()
	}

	var ticket *domain.Ticket
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.fetchTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !scope.ManagesDepartment(ticket.DepartmentID) {
			return apperrors.NewForbidden()
		}
		if ticket.Status != domain.TicketStatusNew {
			return apperrors.NewValidationError("this ticket is not in New status", nil)
		}

		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedUserID = nil
		comment := "Manager started working without assigning."
		return s.applyTransition(ctx, tx, ticket, oldStatus, scope, &comment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStatusChanged(ctx, scope, ticket, domain.TicketStatusNew, "")
	return ticket, nil
}

// ManagerCloseSolved closes a ticket the manager took on themselves. Only
// valid while InProgress with no assignee; an employee-in-progress ticket
// cannot be closed through this path.
func (s *TicketService) ManagerCloseSolved(ctx context.Context, scope *session.Scope, ticketID int64) (*domain.Ticket, error) {
	if !scope.IsManager() || len(scope.ManagerDepartmentIDs) == 0 {
		return nil, apperrors.NewForbidden()
	}

	var ticket *domain.Ticket
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.fetchTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !scope.ManagesDepartment(ticket.DepartmentID) {
			return apperrors.NewForbidden()
		}
		if ticket.Status != domain.TicketStatusInProgress || ticket.AssignedUserID != nil {
			return apperrors.NewValidationError("ticket cannot be closed in its current state", nil)
		}

		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusClosed
		comment := "Manager closed the ticket."
		return s.applyTransition(ctx, tx, ticket, oldStatus, scope, &comment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStatusChanged(ctx, scope, ticket, domain.TicketStatusInProgress, "")
	return ticket, nil
}

// ChangeStatus is the generic transition endpoint with two role policies.
// Users may only advance their own assignment from AssignedToDepartment to
// InProgress and from InProgress to Closed; managers may only reject a New
// ticket to Closed with a mandatory comment. Admins may never call it.
func (s *TicketService) ChangeStatus(ctx context.Context, scope *session.Scope, ticketID int64, newStatus domain.TicketStatus, comment *string) (*domain.Ticket, error) {
	if scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}

	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.fetchTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		switch {
		case scope.IsUser():
			if ticket.AssignedUserID == nil || *ticket.AssignedUserID != scope.UserID {
				return apperrors.NewForbidden()
			}
			valid := (ticket.Status == domain.TicketStatusAssignedToDepartment && newStatus == domain.TicketStatusInProgress) ||
				(ticket.Status == domain.TicketStatusInProgress && newStatus == domain.TicketStatusClosed)
			if !valid {
				return apperrors.NewForbidden()
			}
		case scope.IsManager():
			if !scope.ManagesDepartment(ticket.DepartmentID) {
				return apperrors.NewForbidden()
			}
			if ticket.Status != domain.TicketStatusNew || newStatus != domain.TicketStatusClosed {
				return apperrors.NewForbidden()
			}
			if comment == nil || strings.TrimSpace(*comment) == "" {
				return apperrors.NewValidationError("reject reason is required", nil)
			}
		default:
			return apperrors.NewForbidden()
		}

		oldStatus = ticket.Status
		ticket.Status = newStatus
		return s.applyTransition(ctx, tx, ticket, oldStatus, scope, comment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	commentText := ""
	if comment != nil {
		commentText = *comment
	}
	s.publishStatusChanged(ctx, scope, ticket, oldStatus, commentText)
	return ticket, nil
}

// GetTicketDetail loads one ticket with its history and attachments,
// enforcing the per-role visibility rules of the detail view.
func (s *TicketService) GetTicketDetail(ctx context.Context, scope *session.Scope, ticketID int64) (*TicketDetail, error) {
	ticket, err := s.fetchTicket(ctx, s.store, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	detail := &TicketDetail{Ticket: ticket}

	switch {
	case scope.IsAdmin():
		// full visibility, no actions
	case scope.IsManager():
		isDeptAllowed := scope.ManagesDepartment(ticket.DepartmentID)
		isCreator := strings.EqualFold(ticket.CreatedBy, scope.UserName)
		if !isDeptAllowed && !isCreator {
			return nil, apperrors.NewForbidden()
		}
		detail.ManagerCanAct = isDeptAllowed
		if isDeptAllowed {
			users, err := s.store.Users().ListAssignable(ctx, ticket.DepartmentID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			detail.AssignableUsers = users
		}
	default:
		isCreator := strings.EqualFold(ticket.CreatedBy, scope.UserName)
		isAssigned := ticket.AssignedUserID != nil && *ticket.AssignedUserID == scope.UserID
		isSameDept := scope.DepartmentID != nil && ticket.DepartmentID == *scope.DepartmentID
		if !isCreator && !isAssigned && !isSameDept {
			return nil, apperrors.NewForbidden()
		}
		user, err := s.store.Users().GetByID(ctx, scope.UserID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		detail.CanManage = user.CanManageDeptTickets
	}

	history, err := s.store.History().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail.History = history

	attachments, err := s.store.Attachments().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail.Attachments = attachments

	return detail, nil
}

// EligibleTargetDepartments lists the leaf departments the caller may route
// a new ticket to: users lose their own root's leaves, managers lose their
// managed set.
func (s *TicketService) EligibleTargetDepartments(ctx context.Context, scope *session.Scope) ([]domain.Department, error) {
	switch {
	case scope.IsUser():
		senderDeptID, err := s.senderDepartmentID(ctx, scope)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if senderDeptID == nil {
			return s.store.Departments().ListLeaves(ctx)
		}
		senderDept, err := s.store.Departments().GetByID(ctx, *senderDeptID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		leaves, err := s.store.Departments().ListLeaves(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		eligible := make([]domain.Department, 0, len(leaves))
		for _, leaf := range leaves {
			if leaf.RootID() != senderDept.RootID() {
				eligible = append(eligible, leaf)
			}
		}
		return eligible, nil
	case scope.IsManager():
		return s.store.Departments().ListLeavesExcluding(ctx, scope.ManagerDepartmentIDs)
	default:
		return s.store.Departments().ListLeaves(ctx)
	}
}

func (s *TicketService) fetchTicket(ctx context.Context, tx repository.Store, ticketID int64) (*domain.Ticket, error) {
	ticket, err := tx.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// applyTransition persists the mutated ticket and appends its history row
// on the same transaction.
func (s *TicketService) applyTransition(ctx context.Context, tx repository.Store, ticket *domain.Ticket, oldStatus domain.TicketStatus, scope *session.Scope, comment *string) error {
	if err := tx.Tickets().Update(ctx, ticket); err != nil {
		return err
	}
	return tx.History().Create(ctx, &domain.TicketHistory{
		TicketID:  ticket.ID,
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
		ChangedBy: scope.UserName,
		Role:      scope.Role,
		Comment:   comment,
	})
}

func (s *TicketService) senderDepartmentID(ctx context.Context, scope *session.Scope) (*int64, error) {
	if scope.DepartmentID != nil {
		return scope.DepartmentID, nil
	}
	user, err := s.store.Users().GetByID(ctx, scope.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user.DepartmentID, nil
}

// saveAttachments writes blobs and metadata rows per file after the ticket
// commit. Failures are logged and skipped; the ticket itself stands.
func (s *TicketService) saveAttachments(ctx context.Context, ticketID int64, uploads []AttachmentUpload) {
	for _, upload := range uploads {
		path, err := s.blobs.Save(ticketID, upload.FileName, upload.Content)
		if err != nil {
			s.logger.Error("attachment write failed",
				zap.Int64("ticket_id", ticketID),
				zap.String("file_name", upload.FileName),
				zap.Error(err))
			continue
		}
		record := &domain.TicketAttachment{
			TicketID:    ticketID,
			FileName:    upload.FileName,
			FilePath:    path,
			ContentType: upload.ContentType,
		}
		if err := s.store.Attachments().Create(ctx, record); err != nil {
			s.logger.Error("attachment record failed",
				zap.Int64("ticket_id", ticketID),
				zap.String("file_name", upload.FileName),
				zap.Error(err))
		}
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) publishStatusChanged(ctx context.Context, scope *session.Scope, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorFromScope(scope),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
}

func actorFromScope(scope *session.Scope) events.Actor {
	return events.Actor{
		UserID:   scope.UserID,
		UserName: scope.UserName,
		Role:     scope.Role,
	}
}
