package secondary

import "context"

// TokenVerifier resolves an opaque bearer credential to a user identity.
// Malformed or unverifiable tokens resolve to ok == false, never an error.
type TokenVerifier interface {
	Resolve(ctx context.Context, token string) (userID string, ok bool)
}
