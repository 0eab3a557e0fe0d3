package employee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEmployee_ShiftLength(t *testing.T) {
	tests := []struct {
		name  string
		start time.Duration
		end   time.Duration
		want  time.Duration
	}{
		{"day shift", 8 * time.Hour, 17 * time.Hour, 9 * time.Hour},
		{"overnight", 22 * time.Hour, 6 * time.Hour, 8 * time.Hour},
		{"half hour boundary", 7*time.Hour + 30*time.Minute, 16 * time.Hour, 8*time.Hour + 30*time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Employee{ShiftStart: tt.start, ShiftEnd: tt.end}
			assert.Equal(t, tt.want, e.ShiftLength())
		})
	}
}

func TestEmployee_ShiftHours(t *testing.T) {
	e := Employee{ShiftStart: 7*time.Hour + 30*time.Minute, ShiftEnd: 16 * time.Hour}
	assert.True(t, decimal.RequireFromString("8.5").Equal(e.ShiftHours()))
}

func TestEmployee_WorksOnDefaultsToWeekdays(t *testing.T) {
	e := Employee{}
	assert.True(t, e.WorksOn(time.Monday))
	assert.True(t, e.WorksOn(time.Friday))
	assert.False(t, e.WorksOn(time.Saturday))

	e.WorkDays = []time.Weekday{time.Saturday}
	assert.True(t, e.WorksOn(time.Saturday))
	assert.False(t, e.WorksOn(time.Monday))
}

func TestEmployee_DayWindowOvernight(t *testing.T) {
	e := Employee{Timezone: "Asia/Jakarta", ShiftStart: 22 * time.Hour, ShiftEnd: 6 * time.Hour}
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	from, to := e.DayWindow(date)
	loc := e.Location()
	assert.Equal(t, time.Date(2024, 3, 4, 18, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 0, 0, 0, loc), to)

	start, end := e.ShiftBounds(date)
	assert.Equal(t, time.Date(2024, 3, 4, 22, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 3, 5, 6, 0, 0, 0, loc), end)
}
