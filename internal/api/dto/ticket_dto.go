package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ApproveTicketRequest payload.
type ApproveTicketRequest struct {
	AssigneeID int64  `json:"assignee_id"`
	Priority   string `json:"priority"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  string  `json:"status"`
	Comment *string `json:"comment,omitempty"`
}

// TicketSummary response row for listings and dashboards.
type TicketSummary struct {
	ID                 int64                  `json:"id"`
	ReferenceNumber    *string                `json:"reference_number"`
	Title              string                 `json:"title"`
	Status             domain.TicketStatus    `json:"status"`
	Priority           *domain.TicketPriority `json:"priority,omitempty"`
	DepartmentName     string                 `json:"department_name"`
	FromDepartmentName *string                `json:"from_department_name,omitempty"`
	CreatedBy          string                 `json:"created_by"`
	AssignedTo         *string                `json:"assigned_to,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              int64                   `json:"id"`
	ReferenceNumber *string                 `json:"reference_number"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	Status          domain.TicketStatus     `json:"status"`
	Priority        *domain.TicketPriority  `json:"priority,omitempty"`
	DepartmentID    int64                   `json:"department_id"`
	CreatedBy       string                  `json:"created_by"`
	AssignedUserID  *int64                  `json:"assigned_user_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	History         []TicketHistoryResponse `json:"history"`
	Attachments     []AttachmentResponse    `json:"attachments"`
	AssignableUsers []AssignableUser        `json:"assignable_users,omitempty"`
	ManagerCanAct   bool                    `json:"manager_can_act"`
	CanManage       bool                    `json:"can_manage"`
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID        int64               `json:"id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy string              `json:"changed_by"`
	Role      domain.UserRole     `json:"role"`
	ChangedAt time.Time           `json:"changed_at"`
	Comment   *string             `json:"comment,omitempty"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// AssignableUser is a candidate assignee in the manager detail view.
type AssignableUser struct {
	ID       int64  `json:"id"`
	UserName string `json:"user_name"`
}

// DashboardResponse carries the scope-wide counts and the filtered rows.
type DashboardResponse struct {
	Counts  StatusCountsResponse `json:"counts"`
	Tickets []TicketSummary      `json:"tickets"`
}

// StatusCountsResponse aggregates the base scope by status bucket.
type StatusCountsResponse struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Closed     int64 `json:"closed"`
}

// DepartmentResponse is a routing target option.
type DepartmentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
