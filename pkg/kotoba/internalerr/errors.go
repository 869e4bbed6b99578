package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSnapshotShape    = errors.New("snapshot shape mismatch")
	ErrEmptySnapshot    = errors.New("refusing to overwrite non-empty snapshot with empty data")
	ErrNoBandit         = errors.New("no bandit collaborator configured")
	ErrStoreUnavailable = errors.New("store unavailable")
)
