package base

import (
	"errors"
	"fmt"
)

var ErrStaleVersion = errors.New("stale row version")

// StaleVersionError reports a write conditioned on a row version that is no longer current.
type StaleVersionError struct {
	Entity   string
	ID       string
	Expected int64
	Actual   int64
}

func (e *StaleVersionError) Error() string {
	if e.Actual > 0 {
		return fmt.Sprintf("%s %s: expected row version %d, found %d", e.Entity, e.ID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s %s: row version %d is no longer current", e.Entity, e.ID, e.Expected)
}

func (e *StaleVersionError) Unwrap() error {
	return ErrStaleVersion
}

// CheckVersion compares the version a caller read against the stored one.
func CheckVersion(entity, id string, stored, expected int64) error {
	if stored != expected {
		return &StaleVersionError{Entity: entity, ID: id, Expected: expected, Actual: stored}
	}
	return nil
}

// IsRetryable reports whether err is a concurrency conflict the caller may retry after reloading.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleVersion)
}
