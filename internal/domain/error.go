package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrQuotaExceeded     = errors.New("monthly reveal quota exceeded")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEmailNotVerified  = errors.New("email not verified")
	ErrRateLimited       = errors.New("rate limited")

	// Storage errors
	ErrTransient          = errors.New("transient storage error")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// QuotaExceededError reports the usage snapshot observed when a reveal was refused.
// It matches ErrQuotaExceeded via errors.Is.
type QuotaExceededError struct {
	Used  int
	Total int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: used %d of %d", ErrQuotaExceeded.Error(), e.Used, e.Total)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// Remaining is never negative, even if an allowance was lowered mid-month.
func (e *QuotaExceededError) Remaining() int {
	if r := e.Total - e.Used; r > 0 {
		return r
	}
	return 0
}
