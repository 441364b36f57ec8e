package auth

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Identity is who is calling: a signed-in user, an anonymous session, or both.
type Identity struct {
	UserID        string
	SessionCartID string
}

func (i Identity) Owner() domain.Owner {
	return domain.Owner{UserID: i.UserID, SessionCartID: i.SessionCartID}
}

// OwnerKey is the key of the cart this identity works on.
func (i Identity) OwnerKey() string { return i.Owner().Key() }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the middleware, or the zero
// Identity when there is none.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
