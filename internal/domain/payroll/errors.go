package payroll

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrWageRunNotFound       = errors.New("wage run not found")
	ErrWageRunLineNotFound   = errors.New("wage run line not found")
	ErrLoanNotFound          = errors.New("employee loan not found")
	ErrRateOverrideNotFound  = errors.New("rate override not found")
	ErrInvalidPeriod         = errors.New("invalid payroll period")
	ErrInvalidTransition     = errors.New("invalid wage run transition")
	ErrRunHasFlaggedLines    = errors.New("wage run has flagged lines")
	ErrRunBusy               = errors.New("wage run is being processed")
	ErrLineLocked            = errors.New("wage run line is locked")
	ErrRateNotResolved       = errors.New("pay rate could not be resolved")
	ErrEmployeeNotInRunScope = errors.New("employee is not in the wage run scope")
)

// TransitionError names the action refused in the run's current status.
type TransitionError struct {
	RunID  string
	From   RunStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s wage run %s in status %s", e.Action, e.RunID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RateResolutionError is fatal for one line: the line is flagged, the batch continues.
type RateResolutionError struct {
	EmployeeID string
	Date       time.Time
	Tier       Tier
}

func (e *RateResolutionError) Error() string {
	return fmt.Sprintf("no %s rate configured for employee %s on %s", e.Tier, e.EmployeeID, e.Date.Format("2006-01-02"))
}

func (e *RateResolutionError) Unwrap() error {
	return ErrRateNotResolved
}
