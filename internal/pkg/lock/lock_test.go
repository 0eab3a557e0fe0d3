package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	first, err := locker.Obtain(ctx, "wage-run:r1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "wage-run:r1", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := locker.Obtain(ctx, "wage-run:r2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	again, err := locker.Obtain(ctx, "wage-run:r1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLocker_ExpiredLockCanBeTaken(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	stale, err := locker.Obtain(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	fresh, err := locker.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err)

	// releasing the expired holder must not free the new one
	require.NoError(t, stale.Release(ctx))
	_, err = locker.Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)
	require.NoError(t, fresh.Release(ctx))
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalLocker().Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
