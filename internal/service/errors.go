package service

import "errors"

// Error taxonomy used by handlers to pick a response status. Upstream and
// persistence failures are not part of it: those degrade to partial results
// and are only logged.
var (
	// ErrNotFound signals an unknown location id.
	ErrNotFound = errors.New("location not found")

	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("invalid input")
)
