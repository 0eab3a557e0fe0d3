package employee

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/base"
	"github.com/shopspring/decimal"
)

// Employee is the HR master record as payroll sees it. Payroll never writes it.
type Employee struct {
	ID                  string
	EmployeeCode        string
	FullName            string
	Branch              string
	Timezone            string
	RateType            RateType
	HourlyRate          decimal.Decimal
	StdOvertimeRate     *decimal.Decimal
	SatOvertimeRate     *decimal.Decimal
	SunOvertimeRate     *decimal.Decimal
	HolidayOvertimeRate *decimal.Decimal
	DecRate             *decimal.Decimal
	SupervisorIncentive *decimal.Decimal
	// ShiftStart and ShiftEnd are offsets from local midnight. A ShiftEnd at or before
	// ShiftStart means the shift finishes on the following day.
	ShiftStart       time.Duration
	ShiftEnd         time.Duration
	WorkDays         []time.Weekday
	EmploymentStatus EmploymentStatus
	base.Record
}

type RateType string

const (
	RateTypeHourly   RateType = "hourly"
	RateTypeSalaried RateType = "salaried"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

var defaultWorkDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Location returns the employee's branch timezone, falling back to UTC.
func (e Employee) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (e Employee) IsOvernight() bool {
	return e.ShiftEnd <= e.ShiftStart
}

func (e Employee) ShiftLength() time.Duration {
	if e.IsOvernight() {
		return e.ShiftEnd + 24*time.Hour - e.ShiftStart
	}
	return e.ShiftEnd - e.ShiftStart
}

// ShiftHours is the scheduled shift length in hours.
func (e Employee) ShiftHours() decimal.Decimal {
	return decimal.NewFromInt(int64(e.ShiftLength() / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}

// WorksOn reports whether the weekday is part of the employee's nominal schedule.
func (e Employee) WorksOn(day time.Weekday) bool {
	days := e.WorkDays
	if len(days) == 0 {
		days = defaultWorkDays
	}
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func (e Employee) IsSalaried() bool {
	return e.RateType == RateTypeSalaried
}

// ShiftBounds returns the scheduled shift start and end instants for a calendar date.
func (e Employee) ShiftBounds(date time.Time) (time.Time, time.Time) {
	midnight := LocalMidnight(date, e.Location())
	start := midnight.Add(e.ShiftStart)
	end := midnight.Add(e.ShiftEnd)
	if e.IsOvernight() {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

// DayWindow is the half-open interval of punches that belong to a calendar date.
// Overnight shifts open the window four hours before the shift starts.
func (e Employee) DayWindow(date time.Time) (time.Time, time.Time) {
	midnight := LocalMidnight(date, e.Location())
	from := midnight
	if e.IsOvernight() {
		from = midnight.Add(e.ShiftStart - 4*time.Hour)
	}
	return from, from.Add(24 * time.Hour)
}

// LocalMidnight is the start of the calendar date in loc.
func LocalMidnight(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}
