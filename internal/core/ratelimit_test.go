package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_RPMWindow(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Unix(0, 0)
	rl.now = func() time.Time { return now }
	limits := Limits{RPM: 2}

	ok, _, _ := rl.Enter("a", limits)
	assert.True(t, ok)
	ok, _, _ = rl.Enter("a", limits)
	assert.True(t, ok)
	ok, reason, _ := rl.Enter("a", limits)
	assert.False(t, ok)
	assert.Contains(t, reason, "2/2")

	ok, _, _ = rl.Enter("b", limits)
	assert.True(t, ok, "other clients are independent")

	now = now.Add(61 * time.Second)
	ok, _, _ = rl.Enter("a", limits)
	assert.True(t, ok)
}

func TestRateLimiter_ConcurrentRelease(t *testing.T) {
	rl := NewRateLimiter()
	limits := Limits{Concurrent: 1}

	ok, _, release := rl.Enter("a", limits)
	assert.True(t, ok)
	ok, _, _ = rl.Enter("a", limits)
	assert.False(t, ok)

	release()
	release()
	ok, _, release2 := rl.Enter("a", limits)
	assert.True(t, ok)
	release2()
}

func TestRateLimiter_RejectedReleaseKeepsSlot(t *testing.T) {
	rl := NewRateLimiter()
	limits := Limits{Concurrent: 1}

	ok, _, first := rl.Enter("a", limits)
	require.True(t, ok)

	ok, _, rejected := rl.Enter("a", limits)
	require.False(t, ok)
	rejected()

	// the first request still holds the only slot
	ok, _, _ = rl.Enter("a", limits)
	assert.False(t, ok)

	first()
	ok, _, _ = rl.Enter("a", limits)
	assert.True(t, ok)
}

func TestRateLimiter_RejectedRequestIsNotCharged(t *testing.T) {
	rl := NewRateLimiter()
	limits := Limits{RPM: 5, Concurrent: 1}

	ok, _, release := rl.Enter("a", limits)
	assert.True(t, ok)
	ok, _, _ = rl.Enter("a", limits)
	assert.False(t, ok)
	release()

	rl.mu.Lock()
	assert.Len(t, rl.windows["a"], 1)
	rl.mu.Unlock()
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Unix(0, 0)
	rl.now = func() time.Time { return now }
	rl.Enter("a", Limits{RPM: 10})

	now = now.Add(2 * time.Minute)
	rl.Cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.windows)
	rl.mu.Unlock()
}
