package sentinel

import "errors"

// Sentinel errors for ledger facts. Backends return these (optionally wrapped)
// so the custody service can translate them into domain errors:
// - ErrNotFound: key has no committed value or no version history
// - ErrConflict: a read version changed before commit (optimistic check failed)
// - ErrAlreadyUsed: a transaction was committed or rolled back already
// - ErrInvalidState: a key or value is malformed for the backend
// - ErrUnavailable: the backend or sink cannot be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
