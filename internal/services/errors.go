package services

import "errors"

// Sentinel errors of the core operations. Handlers map these to HTTP
// statuses; everything else is an internal failure.
var (
	// ErrValidation means a submission is missing a required field.
	// No state changes.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied means a role check failed on approve, reject,
	// or export. No state changes.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoIdentity means a vote could not be attributed because neither
	// a session nor a device id was available.
	ErrNoIdentity = errors.New("no identity available")
)
