package secondary

import "context"

// Presigner converts an opaque storage key into a time-limited download URL
type Presigner interface {
	Sign(ctx context.Context, key string) (string, error)
}
