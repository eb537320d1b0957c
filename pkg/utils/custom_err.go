package utils

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrPackageNotFound   = errors.New("package not found")
	ErrNotListingOwner   = errors.New("caller does not own the listing")
	ErrUserBlocked       = errors.New("user is blocked from purchasing promotions")
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrDatabaseError     = errors.New("database error")

	// ErrConflict marks a lost optimistic-concurrency race: another actor
	// already applied the conditional update. Sweep transitions treat it
	// as a silent skip; promo redemption surfaces it as a rejection.
	ErrConflict = errors.New("conditional update lost the race")
)

// Reject reasons surfaced to callers for business-rule failures.
const (
	ReasonCodeNotFound       = "code_not_found_or_inactive"
	ReasonGlobalLimitReached = "global_limit_reached"
	ReasonCategoryNotAllowed = "category_not_allowed"
	ReasonPackageNotAllowed  = "package_not_allowed"
	ReasonUserLimitReached   = "user_limit_reached"
	ReasonRaceConditionLimit = "race_condition_limit"
)

// RejectionError is a business-rule failure. It is never retried and is
// reported to the caller as a structured reason.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected: %s", e.Reason)
}

func Reject(reason string) error {
	return &RejectionError{Reason: reason}
}

func RejectReason(err error) (string, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// RetryableError wraps a transient infrastructure failure. The webhook
// handler answers 5xx for these so the provider redelivers the event.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
