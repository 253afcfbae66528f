// Package household owns households, their memberships, and the commands
// that change a member's role.
package household

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/store"
)

// Directory is the persistent record of households and who belongs to them.
type Directory struct {
	households *store.HouseholdStore
	auth       auth.Service
	logger     *slog.Logger
}

func NewDirectory(households *store.HouseholdStore, authSvc auth.Service, logger *slog.Logger) *Directory {
	return &Directory{
		households: households,
		auth:       authSvc,
		logger:     logger.With("component", "household_directory"),
	}
}

// CreateResult is the new household plus any invitee emails that did not
// match a registered user.
type CreateResult struct {
	Household  *model.Household
	Unresolved []string
}

// CreateHousehold creates a household owned by ownerID, with every resolvable
// invitee as a member, in one transaction. creationKey identifies the intended
// household: repeating a key fails with ErrDuplicateOwner. An empty key gets a
// fresh one.
func (d *Directory) CreateHousehold(ctx context.Context, name string, ownerID int64, inviteeEmails []string, creationKey string) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "household name is required")
	}
	if creationKey == "" {
		creationKey = uuid.NewString()
	}

	memberIDs := []int64{}
	unresolved := []string{}
	seen := make(map[string]bool)
	for _, raw := range inviteeEmails {
		email := strings.TrimSpace(raw)
		key := strings.ToLower(email)
		if email == "" || seen[key] {
			continue
		}
		seen[key] = true

		id, err := d.auth.ResolveEmail(ctx, email)
		if errors.Is(err, apperr.ErrUnknownUser) {
			unresolved = append(unresolved, email)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve invitee: %w", err)
		}
		memberIDs = append(memberIDs, id)
	}

	h, err := d.households.CreateWithMembers(ctx, name, creationKey, ownerID, memberIDs)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Wrap(apperr.CodeDuplicateOwner, "household was already created for this request", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}

	d.logger.Info("household created", "household_id", h.ID, "owner_id", ownerID,
		"members", len(memberIDs), "unresolved", len(unresolved))
	return &CreateResult{Household: h, Unresolved: unresolved}, nil
}

// ListHouseholdsFor returns every household userID belongs to. It reads the
// store on each call.
func (d *Directory) ListHouseholdsFor(ctx context.Context, userID int64) ([]model.HouseholdSummary, error) {
	return d.households.ListHouseholdsForUser(ctx, userID)
}

// GetMembers returns the household's memberships partitioned by role.
func (d *Directory) GetMembers(ctx context.Context, householdID int64) (*model.Members, error) {
	all, err := d.households.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperr.New(apperr.CodeNotFound, "household not found")
	}
	return model.Partition(householdID, all), nil
}

// Get returns a household by id.
func (d *Directory) Get(ctx context.Context, householdID int64) (*model.Household, error) {
	h, err := d.households.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.New(apperr.CodeNotFound, "household not found")
	}
	return h, nil
}
