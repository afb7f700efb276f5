package store

import "errors"

// Sentinel errors returned by store operations. Callers match with errors.Is
// and translate them at the transport boundary.
var (
	// ErrConflict reports a uniqueness violation on create: the follow edge,
	// (movie, author) recommendation or (movie, user) watch entry already
	// exists.
	ErrConflict = errors.New("already exists")

	// ErrNotFound covers both a missing record and a record owned by someone
	// else. The two cases are deliberately indistinguishable so that a
	// non-owner learns nothing about a record's existence.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID reports a malformed identifier supplied to a lookup or
	// mutation.
	ErrInvalidID = errors.New("invalid id")
)
