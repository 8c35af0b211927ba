package restore

import (
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two statements",
			input: "CREATE TABLE t (id INT); INSERT INTO t VALUES (1);",
			want:  []string{"CREATE TABLE t (id INT)", "INSERT INTO t VALUES (1)"},
		},
		{
			name:  "no trailing semicolon",
			input: "SELECT 1; SELECT 2",
			want:  []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:  "semicolon inside single-quoted literal",
			input: "INSERT INTO t VALUES ('a;b'); SELECT 1;",
			want:  []string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			name:  "semicolon inside double-quoted identifier",
			input: `CREATE TABLE "weird;name" (id INT);`,
			want:  []string{`CREATE TABLE "weird;name" (id INT)`},
		},
		{
			name:  "doubled quote escape",
			input: "INSERT INTO t VALUES ('it''s; fine'); SELECT 1;",
			want:  []string{"INSERT INTO t VALUES ('it''s; fine')", "SELECT 1"},
		},
		{
			name:  "line comment dropped",
			input: "SELECT 1; -- trailing; comment\nSELECT 2;",
			want:  []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:  "comment-only input",
			input: "-- nothing here\n-- still nothing",
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "whitespace between semicolons",
			input: ";;;  ;\nSELECT 1;",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "multiline statement",
			input: "CREATE TABLE t (\n  id INT,\n  name TEXT\n);",
			want:  []string{"CREATE TABLE t (\n  id INT,\n  name TEXT\n)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitStatements(%q)\n got: %q\nwant: %q", tt.input, got, tt.want)
			}
		})
	}
}
