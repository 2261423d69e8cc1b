package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidState        = errors.New("operation not valid for entity state")
	ErrConflict            = errors.New("uniqueness constraint violated")
	ErrUnknownPlan         = errors.New("plan not present in catalog")
	ErrUpstreamUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidArgument     = errors.New("invalid argument")

	// Infrastructure-level errors surfaced by repositories
	ErrOperationFailed    = errors.New("database operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction executor")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
