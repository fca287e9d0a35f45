package auth

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// WithUserID marks ctx as acting for the authenticated user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, principalKey{}, id)
}

// UserID returns the authenticated user, if Auth middleware ran.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(principalKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
