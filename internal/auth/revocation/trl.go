// Package revocation implements the token revocation list consulted by the
// auth middleware. The identity provider issues tokens; revocation is the one
// piece of token state this service owns, so that a compromised account can
// be cut off before its tokens expire.
package revocation

import (
	"context"
	"time"
)

// TokenRevocationList tracks revoked token IDs until their natural expiry.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	Close()
}
