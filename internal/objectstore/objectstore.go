// Package objectstore provides the artifact store capability: the blob
// storage holding uploaded files and exported results.
//
// Two implementations exist: a filesystem store for production and an
// in-memory store for tests and offline runs. The driver is selected by
// configuration, so the pipeline never needs parallel program variants.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Get when no object exists at the path.
var ErrNotExist = errors.New("object does not exist")

// Store is the capability interface for artifact storage.
// Paths are forward-slash separated, e.g. "uploads/report.csv".
type Store interface {
	// Put writes data at path, overwriting any existing object.
	Put(ctx context.Context, path string, data []byte) error

	// Get returns the object at path, or ErrNotExist.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}
