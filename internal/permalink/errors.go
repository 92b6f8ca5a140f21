package permalink

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requiring an owner
	// identity is called without one.
	ErrNotAuthenticated = errors.New("permalink: not authenticated")

	// ErrNotFound covers both a missing record and a record owned by
	// someone else; the two are deliberately indistinguishable so that
	// probing cannot reveal whether a private id exists.
	ErrNotFound = errors.New("permalink: not found")

	// ErrConflict is a storage-level uniqueness violation. The allocator
	// consumes it as a retry signal; it should not reach callers under
	// normal load.
	ErrConflict = errors.New("permalink: uniqueness conflict")

	// ErrSlugExhausted is returned when the bounded allocation budget is
	// spent without finding a free slug.
	ErrSlugExhausted = errors.New("permalink: slug allocation exhausted")

	ErrInvalidTitle   = errors.New("permalink: title is required")
	ErrInvalidSlug    = errors.New("permalink: malformed slug")
	ErrInvalidHandle  = errors.New("permalink: malformed handle")
	ErrHandleReserved = errors.New("permalink: handle is reserved")
	ErrHandleTaken    = errors.New("permalink: handle already taken")
)
