// Package restore provides the SQL dump restore capability used by the
// async import worker.
//
// Restores run against an operational PostgreSQL database, not the
// analytical warehouse: uploaded .sql artifacts are full dumps (DDL plus
// data) that only make sense replayed against a relational instance.
package restore

import "context"

// Restorer is the capability interface for replaying a SQL dump.
type Restorer interface {
	// RestoreDump executes every statement in dump against the target
	// database. The whole dump is applied in one transaction: a failed
	// statement rolls back everything.
	RestoreDump(ctx context.Context, dump []byte) error
}
