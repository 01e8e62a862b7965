package query

import "strings"

// SortKey is a tagged enumeration of the sortable listing columns. Each key
// pairs with a column accessor used to build the ORDER BY clause, replacing
// stringly-typed dispatch while keeping the whitelist and default fallback.
type SortKey int

const (
	SortByCreatedAt SortKey = iota
	SortByReference
	SortByTitle
	SortByDepartment
	SortByFromDepartment
	SortByCreatedBy
	SortByAssignedTo
	SortByStatus
)

// Column returns the SQL accessor for the key. Textual keys sort
// case-insensitively.
func (k SortKey) Column() string {
	switch k {
	case SortByReference:
		return "t.reference_number"
	case SortByTitle:
		return "LOWER(t.title)"
	case SortByDepartment:
		return "LOWER(d.name)"
	case SortByFromDepartment:
		return "LOWER(fd.name)"
	case SortByCreatedBy:
		return "LOWER(t.created_by)"
	case SortByAssignedTo:
		return "LOWER(au.user_name)"
	case SortByStatus:
		return "t.status"
	default:
		return "t.created_at"
	}
}

// Sort pairs a sortable key with a direction.
type Sort struct {
	Key  SortKey
	Desc bool
}

// DefaultSort lists newest tickets first.
func DefaultSort() Sort {
	return Sort{Key: SortByCreatedAt, Desc: true}
}

var sortKeyNames = map[string]SortKey{
	"ticketnumber":   SortByReference,
	"title":          SortByTitle,
	"department":     SortByDepartment,
	"fromdepartment": SortByFromDepartment,
	"createdby":      SortByCreatedBy,
	"assignedto":     SortByAssignedTo,
	"status":         SortByStatus,
	"createdat":      SortByCreatedAt,
}

// ParseSort resolves sort/dir request parameters against the whitelist. An
// unrecognized or absent sort key falls back to creation time descending.
func ParseSort(sort, dir string) Sort {
	key, ok := sortKeyNames[strings.ToLower(strings.TrimSpace(sort))]
	if !ok {
		return DefaultSort()
	}
	return Sort{Key: key, Desc: strings.EqualFold(strings.TrimSpace(dir), "desc")}
}

// OrderClause renders the ORDER BY fragment for the sort.
func (s Sort) OrderClause() string {
	if s.Desc {
		return s.Key.Column() + " DESC"
	}
	return s.Key.Column() + " ASC"
}
