// Package onboarding lets a user create a household or pick which of their
// households is active.
package onboarding

import (
	"context"
	"fmt"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/household"
	"github.com/dukerupert/pantry/internal/model"
)

// Memberships looks up a single membership; nil means none.
type Memberships interface {
	GetMember(ctx context.Context, householdID, userID int64) (*model.Membership, error)
}

type Flow struct {
	directory *household.Directory
	members   Memberships
}

func NewFlow(directory *household.Directory, members Memberships) *Flow {
	return &Flow{directory: directory, members: members}
}

// Create makes userID the owner of a new household. The caller should make
// the returned household active.
func (f *Flow) Create(ctx context.Context, userID int64, name string, memberEmails []string, requestID string) (*household.CreateResult, error) {
	return f.directory.CreateHousehold(ctx, name, userID, memberEmails, requestID)
}

// ListJoinable returns the user's households other than the active one.
func (f *Flow) ListJoinable(ctx context.Context, userID, activeID int64) ([]model.HouseholdSummary, error) {
	all, err := f.directory.ListHouseholdsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	joinable := make([]model.HouseholdSummary, 0, len(all))
	for _, h := range all {
		if h.ID != activeID {
			joinable = append(joinable, h)
		}
	}
	return joinable, nil
}

// Select checks that userID belongs to householdID and returns the id the
// client should keep as its active-household marker. Recommendation state is
// shared by every member of a household, so switching away leaves it intact.
func (f *Flow) Select(ctx context.Context, userID, householdID int64) (int64, error) {
	if householdID <= 0 {
		return 0, apperr.New(apperr.CodeInvalidArgument, "household_id is required")
	}
	m, err := f.members.GetMember(ctx, householdID, userID)
	if err != nil {
		return 0, fmt.Errorf("check membership: %w", err)
	}
	if m == nil {
		return 0, apperr.ErrNotAMember
	}
	return householdID, nil
}
