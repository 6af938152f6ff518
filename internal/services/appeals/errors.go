package appeals

import "errors"

var (
	// ErrNotFound covers both a missing row and a row the actor's filter
	// does not match, so existence is never leaked.
	ErrNotFound = errors.New("appeal not found")

	ErrValidation = errors.New("validation error")

	// ErrConflict carries the store's constraint detail in its wrap message.
	ErrConflict = errors.New("conflict")

	ErrForbidden = errors.New("operation is not permitted for this role")

	// ErrBadRequest marks delegated-dependency failures that must surface to
	// the triggering call, e.g. an unreachable notification recipient.
	ErrBadRequest = errors.New("bad request")
)
