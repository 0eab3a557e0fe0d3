package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTimesheetNotFound       = errors.New("timesheet not found")
	ErrClockOutWithoutClockIn  = errors.New("clock-out without a matching clock-in")
	ErrInvalidEventType        = errors.New("invalid clock event type")
	ErrManualOverrideNotActive = errors.New("timesheet has no manual override")
	ErrInvalidDateRange        = errors.New("invalid date range")
)

// DataQualityError is recorded against a single timesheet. It never stops other days from reconciling.
type DataQualityError struct {
	EmployeeID string
	Date       time.Time
	Issues     []string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality issue for employee %s on %s: %s",
		e.EmployeeID, e.Date.Format("2006-01-02"), strings.Join(e.Issues, "; "))
}

func (e *DataQualityError) Unwrap() error {
	return ErrClockOutWithoutClockIn
}
