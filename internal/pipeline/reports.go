package pipeline

// reports.go holds the fixed catalog of parameterized finance reports and
// renders them into executable SQL.
//
// The catalog is data, not code paths: adding a report is a new catalog entry
// with the same placeholders, touching neither the resolver nor the
// publisher. Rendering is pure string substitution; syntactic correctness of
// a template is the catalog author's responsibility.
// Safety comes from the substituted values: table identifiers pass the strict
// validator and column names come from the role resolver, never raw user
// text.

import "strings"

// Report is one entry in the fixed report catalog.
type Report struct {
	ID       string
	Label    string
	Template string
}

// Placeholders available in report templates:
//
//	{table_fq}     fully-qualified table identifier
//	{department}   resolved department column
//	{amount}       resolved amount column
//	{date}         resolved date column
//	{expense_type} resolved expense type column, or NULL when absent
var reportCatalog = []Report{
	{
		ID:    "dept_totals",
		Label: "Total spend per department",
		Template: `SELECT {department} AS department, SUM({amount}) AS total_spent
FROM {table_fq}
GROUP BY department
ORDER BY total_spent DESC`,
	},
	{
		ID:    "monthly_trend",
		Label: "Monthly spend trend",
		Template: `SELECT strftime(CAST({date} AS DATE), '%Y-%m') AS month,
       SUM({amount}) AS total_spent
FROM {table_fq}
GROUP BY month
ORDER BY month`,
	},
	{
		ID:    "top_expense_types",
		Label: "Top 5 expense categories",
		Template: `SELECT {expense_type} AS expense_type, SUM({amount}) AS total_spent
FROM {table_fq}
GROUP BY expense_type
ORDER BY total_spent DESC
LIMIT 5`,
	},
	{
		ID:    "dept_month_matrix",
		Label: "Department spend by month",
		Template: `SELECT strftime(CAST({date} AS DATE), '%Y-%m') AS month,
       {department} AS department,
       SUM({amount}) AS total_spent
FROM {table_fq}
GROUP BY month, department
ORDER BY month, department`,
	},
	{
		ID:    "avg_monthly_by_dept",
		Label: "Average monthly spend per department",
		Template: `WITH monthly AS (
  SELECT {department} AS department,
         strftime(CAST({date} AS DATE), '%Y-%m') AS month,
         SUM({amount}) AS monthly_spent
  FROM {table_fq}
  GROUP BY department, month
)
SELECT department, AVG(monthly_spent) AS avg_monthly_spent
FROM monthly
GROUP BY department
ORDER BY avg_monthly_spent DESC`,
	},
}

// Reports returns the catalog in its fixed order.
func Reports() []Report {
	out := make([]Report, len(reportCatalog))
	copy(out, reportCatalog)
	return out
}

// LookupReport returns the catalog entry for id.
func LookupReport(id string) (Report, bool) {
	for _, r := range reportCatalog {
		if r.ID == id {
			return r, true
		}
	}
	return Report{}, false
}

// RenderReport substitutes the table identifier and resolved column names
// into the template for reportID. An absent expense type is substituted with
// the literal NULL marker. Fails with UnknownReport for ids outside the
// catalog.
func RenderReport(reportID, tableFQ string, roles RoleMap) (string, error) {
	report, ok := LookupReport(reportID)
	if !ok {
		return "", Errorf(KindUnknownReport, "unknown report id %q", reportID)
	}

	expenseType := roles.ExpenseType
	if expenseType == "" {
		expenseType = "NULL"
	}

	replacer := strings.NewReplacer(
		"{table_fq}", tableFQ,
		"{department}", roles.Department,
		"{amount}", roles.Amount,
		"{date}", roles.Date,
		"{expense_type}", expenseType,
	)
	return replacer.Replace(report.Template), nil
}
