// Package dalerr holds the storage-level sentinels shared by every repository.
package dalerr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConcurrentModification means the row changed since it was loaded.
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicate              = errors.New("duplicate")
)
