package attendance

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/calendar"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

type dayInput struct {
	Employee employee.Employee
	Date     time.Time
	Events   []attendance.ClockingEvent
	Facts    calendar.Facts
	Policy   attendance.MissingClockOutPolicy
	Now      time.Time
}

// reconcileDay folds one day's punches into a timesheet. It is a pure function of its input;
// identity and audit fields are left for the caller.
func reconcileDay(in dayInput) (attendance.DailyTimesheet, *attendance.DataQualityError) {
	emp := in.Employee
	loc := emp.Location()

	events := make([]attendance.ClockingEvent, len(in.Events))
	copy(events, in.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].EventType == attendance.EventClockIn && events[j].EventType == attendance.EventClockOut
	})

	ts := attendance.DailyTimesheet{
		EmployeeID: emp.ID,
		Date:       in.Date,
		EventCount: len(events),
		Status:     attendance.TimesheetPending,
	}

	var (
		worked   time.Duration
		open     *time.Time
		orphaned bool
	)
	for _, e := range events {
		at := e.Timestamp.UTC()
		switch e.EventType {
		case attendance.EventClockIn:
			if open != nil {
				ts.Issues = append(ts.Issues, fmt.Sprintf("duplicate clock-in at %s ignored", at.In(loc).Format("15:04")))
				continue
			}
			open = &at
			if ts.FirstInTime == nil {
				ts.FirstInTime = &at
			}
		case attendance.EventClockOut:
			if open == nil {
				orphaned = true
				ts.Issues = append(ts.Issues, fmt.Sprintf("clock-out at %s without a matching clock-in", at.In(loc).Format("15:04")))
				continue
			}
			worked += at.Sub(*open)
			ts.LastOutTime = &at
			open = nil
		}
	}

	inProgress := false
	if open != nil {
		_, windowEnd := emp.DayWindow(in.Date)
		if in.Now.Before(windowEnd) {
			inProgress = true
		} else {
			ts.HasMissingClockOut = true
			ts.Issues = append(ts.Issues, fmt.Sprintf("missing clock-out after clock-in at %s", open.In(loc).Format("15:04")))
			if in.Policy == attendance.MissingClockOutCapShiftEnd {
				worked += cappedOpenInterval(emp, in.Date, *open)
			}
		}
	}

	hours := durationHours(worked)
	ts.LeaveHours = decimal.Zero

	leave, onLeave := in.Facts.Leave(in.Date)
	scheduled := emp.WorksOn(in.Date.Weekday()) && !in.Facts.IsHoliday(in.Date)
	leaveApplies := onLeave && scheduled
	if leaveApplies && leave.IsPaid {
		ts.LeaveHours = leave.Hours(emp.ShiftHours())
	}
	if leaveApplies && !leave.IsHalfDay && len(events) > 0 {
		ts.Issues = append(ts.Issues, "clock events recorded during full-day leave")
	}

	ts.CalculatedHours = hours.Add(ts.LeaveHours)
	ts.WageEstimated = wageEstimate(ts.CalculatedHours, emp)

	switch {
	case orphaned || ts.HasMissingClockOut || (leaveApplies && !leave.IsHalfDay && len(events) > 0):
		ts.Status = attendance.TimesheetFlagged
	case inProgress:
		ts.Status = attendance.TimesheetPending
	case len(events) > 0 || leaveApplies:
		ts.Status = attendance.TimesheetReconciled
	}

	if orphaned {
		return ts, &attendance.DataQualityError{EmployeeID: emp.ID, Date: in.Date, Issues: ts.Issues}
	}
	return ts, nil
}

// cappedOpenInterval credits an unmatched clock-in up to the scheduled shift end, never more than one shift.
func cappedOpenInterval(emp employee.Employee, date, clockIn time.Time) time.Duration {
	_, shiftEnd := emp.ShiftBounds(date)
	d := shiftEnd.Sub(clockIn)
	if d <= 0 {
		return 0
	}
	if limit := emp.ShiftLength(); d > limit {
		return limit
	}
	return d
}

func durationHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600)).Round(2)
}

func wageEstimate(hours decimal.Decimal, emp employee.Employee) decimal.Decimal {
	return hours.Mul(emp.HourlyRate).Round(2)
}
