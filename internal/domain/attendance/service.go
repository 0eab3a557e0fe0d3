package attendance

import (
	"context"
	"time"
)

type AttendanceService interface {
	RecordClockEvent(ctx context.Context, req RecordClockEventRequest) (DailyTimesheet, error)
	Reconcile(ctx context.Context, employeeID string, date time.Time) (DailyTimesheet, error)
	ReconcileRange(ctx context.Context, employeeID string, from, to time.Time) (ReconcileReport, error)
	SetManualOverride(ctx context.Context, req ManualOverrideRequest) (DailyTimesheet, error)
	ClearManualOverride(ctx context.Context, req ClearOverrideRequest) (DailyTimesheet, error)
	ListTimesheets(ctx context.Context, employeeID string, from, to time.Time) ([]DailyTimesheet, error)
}
