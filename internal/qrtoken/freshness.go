package qrtoken

import "time"

// DefaultMaxAge is the freshness window used when none is configured.
const DefaultMaxAge = 300 * time.Second

// Clock returns the current wall-clock time.
type Clock func() time.Time

// FreshnessChecker accepts issued_at values within [now-maxAge, now+skew].
type FreshnessChecker struct {
	maxAge int64
	skew   int64
	now    Clock
}

// NewFreshnessChecker builds a checker. A nil clock means time.Now.
func NewFreshnessChecker(maxAge, skew time.Duration, now Clock) *FreshnessChecker {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if skew < 0 {
		skew = 0
	}
	if now == nil {
		now = time.Now
	}
	return &FreshnessChecker{
		maxAge: int64(maxAge / time.Second),
		skew:   int64(skew / time.Second),
		now:    now,
	}
}

// IsFresh reports whether issuedAt (unix seconds) is inside the window.
func (f *FreshnessChecker) IsFresh(issuedAt int64) bool {
	now := f.now().Unix()
	if issuedAt > now+f.skew {
		return false
	}
	return now-issuedAt <= f.maxAge
}

// MaxAge returns the configured window.
func (f *FreshnessChecker) MaxAge() time.Duration {
	return time.Duration(f.maxAge) * time.Second
}
