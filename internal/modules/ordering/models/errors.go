package models

import "errors"

// Sentinel errors shared across services and handlers. Handlers translate
// these into caller-facing replies; raw errors are never spoken verbatim.
var (
	ErrNotFound        = errors.New("not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrAmbiguousItem   = errors.New("ambiguous item reference")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("availability conflict")
	ErrExternalService = errors.New("external service failed")
	ErrStillProcessing = errors.New("previous turn still processing")
	ErrSessionExpired  = errors.New("session expired")
)
