package auth

import (
	"context"

	"github.com/dukerupert/pantry/internal/model"
)

type contextKey struct{}

// AuthContext is the resolved identity of a request. HouseholdID and Role
// are zero until the active household has been resolved.
type AuthContext struct {
	UserID      int64
	HouseholdID int64
	Role        model.Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
