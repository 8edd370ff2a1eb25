package secondary

import (
	"context"
	"time"
)

// ReplayGuard tracks webhook signatures so a delivery can only be accepted
// once inside the freshness window.
type ReplayGuard interface {
	// FirstUse returns true if the signature has not been seen before and
	// records it for ttl
	FirstUse(ctx context.Context, signature string, ttl time.Duration) (bool, error)
}
