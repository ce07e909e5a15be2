package models

import "errors"

var (
	// ErrNotFound marks an absent entity, project or relation where the caller
	// required one to exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks a name collision where the caller required creation, or an
	// ambiguous name lookup.
	ErrDuplicate = errors.New("already exists")

	// ErrInternal marks a broken invariant.
	ErrInternal = errors.New("internal error")
)
