package household

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/metrics"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/role"
	"github.com/dukerupert/pantry/internal/store"
)

// Engine applies role commands. Each command reads the actor and target and
// writes the change in a single transaction, then returns the membership as
// it stands after the change.
type Engine struct {
	households *store.HouseholdStore
	auth       auth.Service
	logger     *slog.Logger
}

func NewEngine(households *store.HouseholdStore, authSvc auth.Service, logger *slog.Logger) *Engine {
	return &Engine{
		households: households,
		auth:       authSvc,
		logger:     logger.With("component", "role_engine"),
	}
}

func (e *Engine) Promote(ctx context.Context, householdID, actorID, targetID int64) (*model.Members, error) {
	return e.Apply(ctx, householdID, actorID, targetID, role.Promote)
}

func (e *Engine) Demote(ctx context.Context, householdID, actorID, targetID int64) (*model.Members, error) {
	return e.Apply(ctx, householdID, actorID, targetID, role.Demote)
}

func (e *Engine) Remove(ctx context.Context, householdID, actorID, targetID int64) (*model.Members, error) {
	return e.Apply(ctx, householdID, actorID, targetID, role.Remove)
}

// Apply runs cmd from actorID against targetID.
func (e *Engine) Apply(ctx context.Context, householdID, actorID, targetID int64, cmd role.Command) (*model.Members, error) {
	var snapshot *model.Members
	err := e.households.Tx(ctx, func(tx *store.MembershipTx) error {
		actor, err := tx.GetMember(ctx, householdID, actorID)
		if err != nil {
			return err
		}
		if actor == nil {
			return apperr.ErrNotAMember
		}
		if !role.CanManage(actor.Role) {
			return apperr.New(apperr.CodeForbiddenRoleTransition, "only the owner or an admin may "+string(cmd)+" members")
		}

		target, err := tx.GetMember(ctx, householdID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.New(apperr.CodeNotAMember, fmt.Sprintf("user %d is not a member of this household", targetID))
		}

		out, err := role.Authorize(actor.Role, target.Role, cmd)
		if err != nil {
			return err
		}

		if out.Removed {
			err = tx.RemoveMember(ctx, householdID, targetID, target.Role)
		} else {
			err = tx.SetRole(ctx, householdID, targetID, target.Role, out.Next)
		}
		if errors.Is(err, store.ErrConflict) {
			return apperr.Wrap(apperr.CodeInvalidTransition, "membership changed concurrently", err)
		}
		if err != nil {
			return err
		}

		snapshot, err = membersIn(ctx, tx, householdID)
		return err
	})
	metrics.RoleCommands.WithLabelValues(string(cmd), resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	e.logger.Info("membership changed", "household_id", householdID, "actor_id", actorID,
		"target_id", targetID, "command", cmd)
	return snapshot, nil
}

// AddMember adds the user registered under email as a member. Only the owner
// and admins may add members.
func (e *Engine) AddMember(ctx context.Context, householdID, actorID int64, email string) (*model.Members, error) {
	snapshot, err := e.addMember(ctx, householdID, actorID, email)
	metrics.RoleCommands.WithLabelValues("add", resultLabel(err)).Inc()
	return snapshot, err
}

func (e *Engine) addMember(ctx context.Context, householdID, actorID int64, email string) (*model.Members, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "email is required")
	}

	// Non-managers are rejected before the email is looked up.
	actor, err := e.households.GetMember(ctx, householdID, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireManager(actor); err != nil {
		return nil, err
	}

	userID, err := e.auth.ResolveEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var snapshot *model.Members
	err = e.households.Tx(ctx, func(tx *store.MembershipTx) error {
		actor, err := tx.GetMember(ctx, householdID, actorID)
		if err != nil {
			return err
		}
		if err := requireManager(actor); err != nil {
			return err
		}

		err = tx.AddMember(ctx, householdID, userID, model.RoleMember)
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.New(apperr.CodeAlreadyMember, email+" is already a member of this household")
		}
		if err != nil {
			return err
		}

		snapshot, err = membersIn(ctx, tx, householdID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("member added", "household_id", householdID, "actor_id", actorID, "user_id", userID)
	return snapshot, nil
}

func requireManager(actor *model.Membership) error {
	if actor == nil {
		return apperr.ErrNotAMember
	}
	if !role.CanManage(actor.Role) {
		return apperr.New(apperr.CodeForbiddenRoleTransition, "only the owner or an admin may add members")
	}
	return nil
}

func membersIn(ctx context.Context, tx *store.MembershipTx, householdID int64) (*model.Members, error) {
	all, err := tx.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return model.Partition(householdID, all), nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperr.CodeOf(err)))
}
