package query

// ScopeKind selects the role-dependent base set a listing draws from.
type ScopeKind int

const (
	// ScopeCreatedBy restricts to tickets created by a username.
	ScopeCreatedBy ScopeKind = iota
	// ScopeDepartment restricts to a single target department.
	ScopeDepartment
	// ScopeAssignedTo restricts to tickets assigned to a user id.
	ScopeAssignedTo
	// ScopeManagedDepartments restricts to a manager's department set.
	ScopeManagedDepartments
	// ScopeUnrestricted covers all tickets, optionally narrowed to one
	// department (admin dashboard).
	ScopeUnrestricted
)

// Scope is the base visibility set for a listing. Filters and bucket
// selections narrow it; dashboard aggregate counts always compute over the
// scope alone.
type Scope struct {
	Kind          ScopeKind
	CreatedBy     string
	DepartmentID  int64
	UserID        int64
	DepartmentIDs []int64
	OptionalDept  *int64
}

// ByCreator scopes to tickets created by the given username.
func ByCreator(userName string) Scope {
	return Scope{Kind: ScopeCreatedBy, CreatedBy: userName}
}

// ByDepartment scopes to a single target department.
func ByDepartment(departmentID int64) Scope {
	return Scope{Kind: ScopeDepartment, DepartmentID: departmentID}
}

// ByAssignee scopes to tickets assigned to the given user.
func ByAssignee(userID int64) Scope {
	return Scope{Kind: ScopeAssignedTo, UserID: userID}
}

// ByManagedDepartments scopes to a manager's department set.
func ByManagedDepartments(departmentIDs []int64) Scope {
	return Scope{Kind: ScopeManagedDepartments, DepartmentIDs: departmentIDs}
}

// Unrestricted scopes to all tickets, optionally narrowed to one department.
func Unrestricted(departmentID *int64) Scope {
	return Scope{Kind: ScopeUnrestricted, OptionalDept: departmentID}
}
