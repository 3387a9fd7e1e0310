package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "student:1")
			if err != nil {
				t.Error(err)
				return
			}
			current := inside.Add(1)
			if current > peak.Load() {
				peak.Store(current)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), peak.Load())
}

func TestLocalLockerTimesOut(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "student:2")
	require.NoError(t, err)
	defer unlock()

	other, err := locker.Lock(context.Background(), "student:3")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "student:2")
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLockerExcludesAndReleases(t *testing.T) {
	server, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)

	unlock, err := locker.Lock(context.Background(), "remediation:student:9")
	require.NoError(t, err)
	require.True(t, server.Exists("lock:remediation:student:9"))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "remediation:student:9")
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock()
	require.False(t, server.Exists("lock:remediation:student:9"))

	again, err := locker.Lock(context.Background(), "remediation:student:9")
	require.NoError(t, err)
	again()
}

func TestRedisLockerKeepsForeignToken(t *testing.T) {
	server, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Second)

	unlock, err := locker.Lock(context.Background(), "remediation:student:5")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	server.FastForward(2 * time.Second)
	require.NoError(t, server.Set("lock:remediation:student:5", "someone-else"))

	unlock()
	value, err := server.Get("lock:remediation:student:5")
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}
