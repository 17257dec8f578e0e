package core

import (
	"fmt"
	"sync"
	"time"
)

// Limits bounds one client's mutations. Zero disables a limit.
type Limits struct {
	RPM        int // requests per sliding minute
	Concurrent int // requests in flight
}

// RateLimiter 写操作频率限制器，按客户端计数
type RateLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time // client -> request timestamps
	concurrent map[string]int         // client -> in-flight count
	now        func() time.Time
}

// NewRateLimiter 创建频率限制器
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows:    make(map[string][]time.Time),
		concurrent: make(map[string]int),
		now:        time.Now,
	}
}

// Enter checks and charges one request for client. release is never nil
// and may be called more than once. A rejected request was never charged,
// so its release is a no-op.
func (r *RateLimiter) Enter(client string, limits Limits) (bool, string, func()) {
	var once sync.Once
	release := func() {
		once.Do(func() {
			if limits.Concurrent <= 0 {
				return
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.concurrent[client] > 0 {
				r.concurrent[client]--
			}
			if r.concurrent[client] == 0 {
				delete(r.concurrent, client)
			}
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()

	if limits.RPM > 0 {
		valid := pruneWindow(r.windows[client], now.Add(-time.Minute))
		r.windows[client] = valid
		if len(valid) >= limits.RPM {
			return false, fmt.Sprintf("rate limit exceeded (%d/%d per minute)", len(valid), limits.RPM), func() {}
		}
	}
	if limits.Concurrent > 0 && r.concurrent[client] >= limits.Concurrent {
		return false, fmt.Sprintf("too many concurrent requests (%d/%d)", r.concurrent[client], limits.Concurrent), func() {}
	}

	// 全部检查通过后再计数
	if limits.RPM > 0 {
		r.windows[client] = append(r.windows[client], now)
	}
	if limits.Concurrent > 0 {
		r.concurrent[client]++
	}
	return true, "", release
}

// Cleanup drops windows with no request in the last minute.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-time.Minute)
	for k, ts := range r.windows {
		valid := pruneWindow(ts, cutoff)
		if len(valid) == 0 {
			delete(r.windows, k)
		} else {
			r.windows[k] = valid
		}
	}
}

func pruneWindow(ts []time.Time, cutoff time.Time) []time.Time {
	valid := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
