package restore

// postgres.go implements Restorer on a PostgreSQL connection pool.
//
// Dumps are split into individual statements (respecting string literals)
// and executed inside a single transaction, so a poison dump never leaves
// the target database half-restored.

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Restorer backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Restorer for the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// RestoreDump executes the dump's statements transactionally.
func (r *Postgres) RestoreDump(ctx context.Context, dump []byte) error {
	statements := SplitStatements(string(dump))
	if len(statements) == 0 {
		return fmt.Errorf("dump contains no statements")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restore transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d of %d: %w", i+1, len(statements), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

// SplitStatements splits SQL text on semicolons that are not inside string
// literals. Line comments are dropped so a trailing "-- comment" never glues
// two statements together.
func SplitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString {
			// Skip line comments entirely
			if ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
				for i < len(sql) && sql[i] != '\n' {
					i++
				}
				current.WriteByte('\n')
				continue
			}
			if ch == '\'' || ch == '"' {
				inString = true
				stringChar = ch
			} else if ch == ';' {
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
				continue
			}
		} else if ch == stringChar {
			// Doubled quote chars escape themselves inside literals
			if i+1 < len(sql) && sql[i+1] == stringChar {
				current.WriteByte(ch)
				i++
			} else {
				inString = false
			}
		}
		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

var _ Restorer = (*Postgres)(nil)
