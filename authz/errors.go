package authz

import "errors"

// Failure taxonomy shared by every command and query. Handlers map these to
// HTTP status codes; nothing in this layer retries or downgrades them.
var (
	// ErrUnauthorized means no authenticated principal was presented.
	ErrUnauthorized = errors.New("unauthorized: no authenticated identity")

	// ErrForbidden means the identity resolved but the policy denied the
	// action (a security violation, distinct from missing identity).
	ErrForbidden = errors.New("forbidden: you don't have permission to perform this action")

	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict means a duplicate membership or request was attempted.
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidInput means the argument record failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
