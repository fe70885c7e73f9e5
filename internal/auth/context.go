package auth

import (
	"context"

	"github.com/fjod/go_restaurant/internal/domain"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns nil for anonymous requests.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return id
}
