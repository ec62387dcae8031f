package service

import "errors"

// Error taxonomy of the request lifecycle. Handlers match these with
// errors.Is to pick status codes; everything else surfaces as a 500.
var (
	// ErrPermissionDenied: the acting role/ownership combination is not
	// allowed to perform this action. No mutation was attempted.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidReference: the operation was invoked with a missing or
	// sentinel id. No network call was made.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidTransition: the request is not in the source state the
	// transition requires. No mutation was attempted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDraft: the submitted draft failed validation.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrRemoteFailure: the backend call failed; any optimistic local
	// mutation has been rolled back by reloading from the backend.
	ErrRemoteFailure = errors.New("remote operation failed")

	// ErrPartialWrite: a multi-step write succeeded partially and the
	// compensating cleanup also failed. The backend may hold an orphaned
	// parent row.
	ErrPartialWrite = errors.New("partial write")
)
