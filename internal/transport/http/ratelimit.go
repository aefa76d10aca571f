package http

import "time"

// rateLimiter counts messages against a rolling one-minute window.
// It is owned by a single connection's read loop and is not safe for
// concurrent use.
type rateLimiter struct {
	limit       int
	counter     int
	windowStart time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{limit: limit}
}

// allow counts one message and reports whether it fits the window.
// A limiter with no limit always allows.
func (r *rateLimiter) allow(now time.Time) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
