// Package cache implements the page cache and translation cache (spec
// §4.5–§4.7): both are slot-indexed, validator-gated caches wrapping a
// physical memory source, differing only in what they cache.
package cache

import "time"

// Token is a validator-issued freshness stamp attached to a cache slot.
// InvalidToken marks a slot that has been explicitly invalidated (spec
// §4.5 write path: "token zeroed") and never compares valid again until
// the slot is repopulated.
type Token uint64

// InvalidToken is the sentinel written into a slot on invalidation.
const InvalidToken Token = 0

// Validator is consulted on every cached read (spec §4.7); implementations
// must be cheap, "a single atomic read."
type Validator interface {
	// CurrentToken returns the token to stamp a freshly populated slot
	// with.
	CurrentToken() Token
	// IsValid reports whether a slot stamped with token is still fresh.
	IsValid(token Token) bool
}

// TimeValidator implements the time-based policy (spec §4.7): "entries
// older than a configured duration are invalid." Used when the underlying
// memory is a snapshot refreshed periodically.
type TimeValidator struct {
	maxAge time.Duration
}

// NewTimeValidator returns a TimeValidator that treats entries older than
// maxAge as stale.
func NewTimeValidator(maxAge time.Duration) *TimeValidator {
	return &TimeValidator{maxAge: maxAge}
}

func (v *TimeValidator) CurrentToken() Token {
	// Offset by one so a token minted at the Unix epoch's first
	// nanosecond is never mistaken for InvalidToken.
	return Token(time.Now().UnixNano() + 1)
}

func (v *TimeValidator) IsValid(token Token) bool {
	if token == InvalidToken {
		return false
	}
	age := time.Duration(time.Now().UnixNano() - (int64(token) - 1))
	return age >= 0 && age < v.maxAge
}

// StaticValidator implements the always-valid policy (spec §4.7): "used
// for immutable dump files." The only way a slot stamped by a
// StaticValidator goes stale is explicit invalidation by the cache that
// holds it (e.g. PageCache on an overlapping write, TLBCache.InvalidateDTB).
type StaticValidator struct{}

// staticToken is the one non-zero token StaticValidator ever issues.
const staticToken Token = 1

func (StaticValidator) CurrentToken() Token { return staticToken }
func (StaticValidator) IsValid(token Token) bool {
	return token == staticToken
}
