package base

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded as CreatedBy/UpdatedBy when no user is attached to the context.
const SystemActor = "system"

// Record carries the audit, soft-delete and concurrency fields shared by every mutable entity.
type Record struct {
	CreatedAtUtc time.Time `json:"created_at_utc"`
	CreatedBy    string    `json:"created_by"`
	UpdatedAtUtc time.Time `json:"updated_at_utc"`
	UpdatedBy    string    `json:"updated_by"`
	IsActive     bool      `json:"is_active"`
	RowVersion   int64     `json:"row_version"`
}

// NewRecord stamps a fresh active record at version 1.
func NewRecord(actor string, now time.Time) Record {
	now = now.UTC()
	return Record{
		CreatedAtUtc: now,
		CreatedBy:    actor,
		UpdatedAtUtc: now,
		UpdatedBy:    actor,
		IsActive:     true,
		RowVersion:   1,
	}
}

// Touch records who changed the row and when. The version is bumped by the store on a successful write.
func (r *Record) Touch(actor string, now time.Time) {
	r.UpdatedAtUtc = now.UTC()
	r.UpdatedBy = actor
}

type actorKey struct{}

// WithActor attaches the acting user ID to ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user ID, or SystemActor for background work.
func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return SystemActor
}

// Date truncates t to its calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween lists every calendar date from `from` to `to` inclusive.
func DaysBetween(from, to time.Time) []time.Time {
	from, to = Date(from), Date(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// NewID returns a time-ordered UUIDv7 string for a new row.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
