package domain

// Department is a node in the two-level organizational tree. A department
// with no parent is a root; a department with a parent is a leaf and is the
// only valid ticket-routing endpoint.
type Department struct {
	ID       int64
	Name     string
	ParentID *int64
}

// IsLeaf reports whether the department can receive tickets.
func (d *Department) IsLeaf() bool {
	return d.ParentID != nil
}

// RootID returns the id of the department's root. A department with no
// parent is its own root.
func (d *Department) RootID() int64 {
	if d.ParentID != nil {
		return *d.ParentID
	}
	return d.ID
}
