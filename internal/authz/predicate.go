// Package authz builds the query predicates that scope memo access by caller
// role and narrow listings by the requested filters. All functions are pure:
// the same caller and filters always yield the same predicates in the same
// order, with the role-scope predicate first.
package authz

import "elevator-memo/internal/models"

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID   uint
	Role string
}

// Admin reports whether the caller may see records owned by other users.
func (c Caller) Admin() bool {
	return c.Role == models.RoleAdmin
}

// MemoFilters are the optional listing filters. Zero values mean "absent".
type MemoFilters struct {
	Search         string
	MemoNumber     string
	UnitName       string
	CertNo         string
	InspectionDate string
	OwnerFullName  string
}

// specific reports whether any dedicated field filter is set. When one is,
// the free-text Search filter is ignored entirely.
func (f MemoFilters) specific() bool {
	return f.MemoNumber != "" || f.UnitName != "" || f.CertNo != "" ||
		f.InspectionDate != "" || f.OwnerFullName != ""
}

// NeedsOwnerJoin reports whether the predicates reference the owning user row.
func (f MemoFilters) NeedsOwnerJoin() bool {
	return f.OwnerFullName != ""
}

// Predicate is one WHERE fragment with its positional arguments.
type Predicate struct {
	Query string
	Args  []any
}

// MemoPredicates returns the ordered predicate list for memo queries.
// Non-admin callers are always restricted to their own records before any
// field filter applies.
func MemoPredicates(caller Caller, f MemoFilters) []Predicate {
	var preds []Predicate

	if !caller.Admin() {
		preds = append(preds, Predicate{Query: "memos.created_by = ?", Args: []any{caller.ID}})
	}

	if f.MemoNumber != "" {
		// Longer inputs switch to a prefix match so the index stays usable.
		pattern := "%" + f.MemoNumber + "%"
		if len(f.MemoNumber) > 5 {
			pattern = f.MemoNumber + "%"
		}
		preds = append(preds, Predicate{Query: "memos.memo_number LIKE ?", Args: []any{pattern}})
	}

	if f.UnitName != "" {
		preds = append(preds, Predicate{Query: "memos.user_unit_name LIKE ?", Args: []any{"%" + f.UnitName + "%"}})
	}

	if f.CertNo != "" {
		preds = append(preds, Predicate{Query: "memos.registration_cert_no LIKE ?", Args: []any{"%" + f.CertNo + "%"}})
	}

	if f.InspectionDate != "" {
		preds = append(preds, Predicate{Query: "memos.inspection_date = ?", Args: []any{f.InspectionDate}})
	}

	if f.OwnerFullName != "" {
		preds = append(preds, Predicate{Query: "users.full_name LIKE ?", Args: []any{"%" + f.OwnerFullName + "%"}})
	}

	if f.Search != "" && !f.specific() {
		pattern := "%" + f.Search + "%"
		preds = append(preds, Predicate{
			Query: "(memos.user_unit_name LIKE ? OR memos.memo_number LIKE ? OR memos.registration_cert_no LIKE ?)",
			Args:  []any{pattern, pattern, pattern},
		})
	}

	return preds
}
