package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_SetNXAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	ok, err := m.SetNX(ctx, "k", "1", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.SetNX(ctx, "k", "2", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	now = now.Add(time.Hour)
	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)

	ok, _ = m.SetNX(ctx, "k", "3", 0)
	require.True(t, ok)
	v, found, _ := m.Get(ctx, "k")
	require.True(t, found)
	require.Equal(t, "3", v)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	type item struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, PutJSON(ctx, m, "snap", []item{{UserID: "u1"}}, time.Minute))

	var out []item
	found, err := GetJSON(ctx, m, "snap", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []item{{UserID: "u1"}}, out)

	found, err = GetJSON(ctx, m, "missing", &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTryLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	unlock, err := TryLock(ctx, m, "lock", time.Minute)
	require.NoError(t, err)

	_, err = TryLock(ctx, m, "lock", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	unlock(ctx)
	unlock2, err := TryLock(ctx, m, "lock", time.Minute)
	require.NoError(t, err)

	// a stale unlock must not release someone else's lock
	unlock(ctx)
	_, err = TryLock(ctx, m, "lock", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)
	unlock2(ctx)
}
