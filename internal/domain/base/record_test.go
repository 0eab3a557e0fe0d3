package base

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_StartsActiveAtVersionOne(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	r := NewRecord("u-1", now)

	assert.True(t, r.IsActive)
	assert.Equal(t, int64(1), r.RowVersion)
	assert.Equal(t, "u-1", r.CreatedBy)
	assert.Equal(t, time.UTC, r.CreatedAtUtc.Location())
	assert.True(t, r.CreatedAtUtc.Equal(now))
}

func TestActorFrom_DefaultsToSystem(t *testing.T) {
	assert.Equal(t, SystemActor, ActorFrom(context.Background()))
	assert.Equal(t, "u-9", ActorFrom(WithActor(context.Background(), "u-9")))
}

func TestCheckVersion(t *testing.T) {
	require.NoError(t, CheckVersion("wage run", "r1", 3, 3))

	err := CheckVersion("wage run", "r1", 4, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleVersion))
	assert.True(t, IsRetryable(fmt.Errorf("failed to update: %w", err)))

	var stale *StaleVersionError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, int64(4), stale.Actual)
}

func TestDaysBetween_Inclusive(t *testing.T) {
	days := DaysBetween(time.Date(2024, 2, 28, 15, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), days[1])
}
