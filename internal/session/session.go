// Package session resolves the acting user and active household of a
// request.
package session

import (
	"context"
	"fmt"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/model"
)

// Memberships looks up a single membership; nil means none.
type Memberships interface {
	GetMember(ctx context.Context, householdID, userID int64) (*model.Membership, error)
}

// Resolver reads identity and household context. It never writes.
type Resolver struct {
	auth    auth.Service
	members Memberships
}

func NewResolver(authSvc auth.Service, members Memberships) *Resolver {
	return &Resolver{auth: authSvc, members: members}
}

// Resolve returns the user behind credentials.
func (r *Resolver) Resolve(ctx context.Context, credentials string) (int64, error) {
	if credentials == "" {
		return 0, apperr.ErrUnauthenticated
	}
	id, err := r.auth.Verify(ctx, credentials)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeUnknown {
			return 0, fmt.Errorf("verify credentials: %w", err)
		}
		return 0, err
	}
	return id, nil
}

// ResolveHousehold picks the active household for userID. An explicitly
// requested household wins when the user belongs to it; otherwise the
// client's marker is used if the user still belongs there. Zero ids mean
// "not supplied". Anything else is ErrNoActiveHousehold.
func (r *Resolver) ResolveHousehold(ctx context.Context, userID, requested, marker int64) (*model.Membership, error) {
	for _, id := range []int64{requested, marker} {
		if id <= 0 {
			continue
		}
		m, err := r.members.GetMember(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve household: %w", err)
		}
		if m != nil {
			return m, nil
		}
	}
	return nil, apperr.ErrNoActiveHousehold
}

// Membership returns userID's membership in householdID, or ErrNotAMember.
func (r *Resolver) Membership(ctx context.Context, userID, householdID int64) (*model.Membership, error) {
	m, err := r.members.GetMember(ctx, householdID, userID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if m == nil {
		return nil, apperr.ErrNotAMember
	}
	return m, nil
}
