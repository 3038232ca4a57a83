package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a compare-and-swap save lost against a
	// concurrent write; callers must re-fetch before retrying.
	ErrConflict = errors.New("repository: version conflict")
	// ErrDuplicate indicates a username or email uniqueness violation.
	ErrDuplicate = errors.New("repository: duplicate identifier")
)
