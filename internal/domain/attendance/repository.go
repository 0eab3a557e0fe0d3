package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	// Clock events
	AppendEvent(ctx context.Context, event ClockingEvent) (ClockingEvent, error)
	// ListEvents returns events with from <= timestamp < to.
	ListEvents(ctx context.Context, employeeID string, from, to time.Time) ([]ClockingEvent, error)

	// Timesheets
	GetTimesheet(ctx context.Context, employeeID string, date time.Time) (DailyTimesheet, error)
	// ListTimesheets returns active timesheets with dates in [from, to], ordered by date.
	ListTimesheets(ctx context.Context, employeeID string, from, to time.Time) ([]DailyTimesheet, error)
	ListTimesheetsNeedingReview(ctx context.Context, from, to time.Time) ([]DailyTimesheet, error)
	CreateTimesheet(ctx context.Context, ts DailyTimesheet) (DailyTimesheet, error)
	// UpdateTimesheet writes ts if its RowVersion is still current and returns the row with the bumped version.
	UpdateTimesheet(ctx context.Context, ts DailyTimesheet) (DailyTimesheet, error)
}
