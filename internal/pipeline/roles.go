package pipeline

// roles.go infers semantic column roles from an arbitrary table schema.
//
// Each role has an ordered candidate-name list; the first candidate that
// exists in the schema (case-insensitive) wins. Candidate order is a
// compatibility contract: ambiguous schemas (both "cost" and "amount"
// present) must resolve deterministically the same way every time.

import (
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

// Role is a semantic column meaning independent of the actual column name.
type Role string

const (
	RoleDepartment  Role = "department"
	RoleAmount      Role = "amount"
	RoleDate        Role = "date"
	RoleExpenseType Role = "expense_type"
)

// Candidate lists per role, in priority order. Do not reorder.
var (
	departmentCandidates = []string{"department", "dept", "cost_center", "costcentre", "cost_centre"}
	amountCandidates     = []string{"amount", "total_amount", "spend", "cost", "value", "amt"}
	dateCandidates       = []string{"date", "txn_date", "transaction_date", "post_date", "doc_date", "month", "period"}
	expenseCandidates    = []string{"expense_type", "category", "type", "gl_code"}
)

// RoleMap holds the resolved column name for each semantic role.
// ExpenseType is empty when no candidate matched; it is optional.
type RoleMap struct {
	Department  string
	Amount      string
	Date        string
	ExpenseType string
}

// ResolveRoles maps semantic roles onto concrete column names.
// Department, amount, and date are required; resolution fails with a
// ResolutionError naming the missing role and the attempted candidates.
// Matching is case-insensitive but the original column casing is preserved,
// since warehouse identifiers may be case-sensitive in rendered SQL.
func ResolveRoles(schema warehouse.Schema) (RoleMap, error) {
	byLower := make(map[string]string, len(schema))
	for _, col := range schema {
		key := strings.ToLower(col.Name)
		if _, seen := byLower[key]; !seen {
			byLower[key] = col.Name
		}
	}

	pick := func(candidates []string) string {
		for _, c := range candidates {
			if original, ok := byLower[strings.ToLower(c)]; ok {
				return original
			}
		}
		return ""
	}

	var roles RoleMap
	if roles.Department = pick(departmentCandidates); roles.Department == "" {
		return RoleMap{}, missingRole(RoleDepartment, departmentCandidates)
	}
	if roles.Amount = pick(amountCandidates); roles.Amount == "" {
		return RoleMap{}, missingRole(RoleAmount, amountCandidates)
	}
	if roles.Date = pick(dateCandidates); roles.Date == "" {
		return RoleMap{}, missingRole(RoleDate, dateCandidates)
	}
	roles.ExpenseType = pick(expenseCandidates) // optional

	return roles, nil
}

func missingRole(role Role, candidates []string) error {
	return Errorf(KindResolutionError,
		"no column found for role %q: tried %s", role, strings.Join(candidates, ", "))
}
