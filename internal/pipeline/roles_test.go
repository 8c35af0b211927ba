package pipeline

import (
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

func schemaOf(names ...string) warehouse.Schema {
	s := make(warehouse.Schema, len(names))
	for i, n := range names {
		s[i] = warehouse.Column{Name: n, Type: "VARCHAR"}
	}
	return s
}

func TestResolveRolesExactNames(t *testing.T) {
	roles, err := ResolveRoles(schemaOf("department", "amount", "date", "expense_type"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Department != "department" || roles.Amount != "amount" ||
		roles.Date != "date" || roles.ExpenseType != "expense_type" {
		t.Errorf("unexpected roles: %+v", roles)
	}
}

func TestResolveRolesAlternateNames(t *testing.T) {
	roles, err := ResolveRoles(schemaOf("dept", "amt", "txn_date", "gl_code"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Department != "dept" {
		t.Errorf("Department = %q, want dept", roles.Department)
	}
	if roles.Amount != "amt" {
		t.Errorf("Amount = %q, want amt", roles.Amount)
	}
	if roles.Date != "txn_date" {
		t.Errorf("Date = %q, want txn_date", roles.Date)
	}
	if roles.ExpenseType != "gl_code" {
		t.Errorf("ExpenseType = %q, want gl_code", roles.ExpenseType)
	}
}

func TestResolveRolesCaseInsensitivePreservesCasing(t *testing.T) {
	roles, err := ResolveRoles(schemaOf("Department", "AMOUNT", "Txn_Date"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Department != "Department" {
		t.Errorf("Department = %q, want original casing Department", roles.Department)
	}
	if roles.Amount != "AMOUNT" {
		t.Errorf("Amount = %q, want original casing AMOUNT", roles.Amount)
	}
	if roles.Date != "Txn_Date" {
		t.Errorf("Date = %q, want original casing Txn_Date", roles.Date)
	}
}

func TestResolveRolesCandidateOrderWins(t *testing.T) {
	// Both "cost" and "amount" match the amount role; "amount" is earlier in
	// the candidate list and must win regardless of column order.
	roles, err := ResolveRoles(schemaOf("cost", "dept", "amount", "date"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Amount != "amount" {
		t.Errorf("Amount = %q, want amount (candidate priority)", roles.Amount)
	}

	// "month" and "date" both match the date role; "date" has priority.
	roles, err = ResolveRoles(schemaOf("dept", "spend", "month", "date"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Date != "date" {
		t.Errorf("Date = %q, want date (candidate priority)", roles.Date)
	}
}

func TestResolveRolesExpenseTypeOptional(t *testing.T) {
	roles, err := ResolveRoles(schemaOf("department", "amount", "date"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.ExpenseType != "" {
		t.Errorf("ExpenseType = %q, want empty", roles.ExpenseType)
	}
}

func TestResolveRolesMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		role    string
	}{
		{"no department", []string{"region", "value", "period", "category"}, "department"},
		{"no amount", []string{"dept", "date"}, "amount"},
		{"no date", []string{"dept", "amount", "notes"}, "date"},
		{"empty schema", nil, "department"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveRoles(schemaOf(tt.columns...))
			wantKind(t, err, KindResolutionError)
			containsAll(t, err.Error(), tt.role)
		})
	}
}

func TestResolveRolesDuplicateLowercaseFirstSeen(t *testing.T) {
	// Two columns differing only by case: the first occurrence is kept.
	roles, err := ResolveRoles(schemaOf("Amount", "amount", "dept", "date"))
	if err != nil {
		t.Fatalf("ResolveRoles: %v", err)
	}
	if roles.Amount != "Amount" {
		t.Errorf("Amount = %q, want first-seen Amount", roles.Amount)
	}
}
