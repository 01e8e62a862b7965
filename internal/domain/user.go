package domain

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	RoleUser    UserRole = "User"
	RoleManager UserRole = "Manager"
	RoleAdmin   UserRole = "Admin"
)

// ParseUserRole validates a textual role name.
func ParseUserRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleUser, RoleManager, RoleAdmin:
		return UserRole(s), true
	}
	return "", false
}

// AppUser is an account in the helpdesk. Users carry a single leaf
// department affiliation; managers are linked to leaf departments through
// the manager_departments relation and leave DepartmentID unset; admins
// carry neither.
type AppUser struct {
	ID                   int64
	UserName             string
	PasswordHash         string
	Role                 UserRole
	DepartmentID         *int64
	CanManageDeptTickets bool
	IsActive             bool
	CreatedAt            time.Time
}
