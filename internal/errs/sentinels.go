// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Class sentinels shared by repository, service and transport layers.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a uniqueness violation (e.g., email already registered).
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists is kept as the repository-level name for ErrConflict.
	ErrAlreadyExists = ErrConflict

	// ErrUnauthorized indicates missing or invalid credentials or token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller failed a re-authentication step.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates a failure of a dependency (storage, hashing, signing).
	ErrInternal = errors.New("internal")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrVersionConflict indicates transient write contention on the same record.
	ErrVersionConflict = errors.New("version conflict")
)

var classes = []error{
	ErrValidation,
	ErrConflict,
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrRateLimited,
	ErrVersionConflict,
}

// Class returns the class sentinel err belongs to. Unknown errors are ErrInternal.
func Class(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range classes {
		if errors.Is(err, c) {
			return c
		}
	}
	return ErrInternal
}
