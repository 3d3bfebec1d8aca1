// Package limiter locks out admin logins after repeated failures.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter tracks failed admin logins per username and client address.
type Limiter interface {
	// Allow reports whether a login may be attempted, and if not, for how long
	// the caller should wait.
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	// Success forgets earlier failures.
	Success(ctx context.Context, username string, ipHash []byte) error
	// Failure counts a failed attempt and reports whether it caused a lockout.
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}

// HashIP keys the limiter by address without keeping the address itself.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
