package auth

import (
	"context"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

// Identity is the role+identity pair resolved by the authorization service.
type Identity struct {
	UserID string
	Role   enums.Role
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
