package apperrors

import "errors"

// Sentinel errors shared across services and handlers. The error text is the
// machine-readable reason string returned to clients, so keep it stable.
var (
	ErrInvalidInput            = errors.New("invalid_input")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrForbidden               = errors.New("forbidden")
	ErrConflict                = errors.New("conflict")
	ErrNotFound                = errors.New("not_found")
	ErrAlreadyUsed             = errors.New("already_used")
	ErrCollaboratorUnavailable = errors.New("collaborator_unavailable")
	ErrStoreFailure            = errors.New("store_failure")
)
