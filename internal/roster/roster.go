// Package roster maintains each household's ingredient list.
package roster

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/metrics"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/store"
)

// Listener is told about every effective roster change with the full list of
// names as it stood right after the change. RosterChanged must not block.
type Listener interface {
	RosterChanged(householdID int64, snapshot []string)
}

type Roster struct {
	ingredients *store.IngredientStore
	listener    Listener
	logger      *slog.Logger

	// mu orders notifications the same way the writes were committed.
	mu sync.Mutex
}

// New returns a Roster. listener may be nil.
func New(ingredients *store.IngredientStore, listener Listener, logger *slog.Logger) *Roster {
	return &Roster{
		ingredients: ingredients,
		listener:    listener,
		logger:      logger.With("component", "roster"),
	}
}

// Add puts rawName on the household's roster. If an entry with the same
// normalized key exists, nothing changes and that entry is returned with
// created=false.
func (r *Roster) Add(ctx context.Context, householdID int64, rawName string) (*model.IngredientEntry, bool, error) {
	name := Clean(rawName)
	if name == "" {
		return nil, false, apperr.New(apperr.CodeInvalidArgument, "ingredient name is required")
	}
	key := Normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, created, snapshot, err := r.ingredients.Add(ctx, householdID, name, key)
	if err != nil {
		metrics.RosterMutations.WithLabelValues("add", "error").Inc()
		return nil, false, err
	}
	if !created {
		metrics.RosterMutations.WithLabelValues("add", "noop").Inc()
		return entry, false, nil
	}

	metrics.RosterMutations.WithLabelValues("add", "created").Inc()
	r.logger.Debug("ingredient added", "household_id", householdID, "name", name)
	r.notify(householdID, snapshot)
	return entry, true, nil
}

// Remove takes the ingredient matching name's normalized key off the roster.
// Removing something that is not there returns false and no error.
func (r *Roster) Remove(ctx context.Context, householdID int64, name string) (bool, error) {
	key := Normalize(name)
	if key == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, snapshot, err := r.ingredients.Remove(ctx, householdID, key)
	if err != nil {
		metrics.RosterMutations.WithLabelValues("remove", "error").Inc()
		return false, err
	}
	if !removed {
		metrics.RosterMutations.WithLabelValues("remove", "missing").Inc()
		return false, nil
	}

	metrics.RosterMutations.WithLabelValues("remove", "removed").Inc()
	r.logger.Debug("ingredient removed", "household_id", householdID, "key", key)
	r.notify(householdID, snapshot)
	return true, nil
}

// List returns ingredient names in the order they were added.
func (r *Roster) List(ctx context.Context, householdID int64) ([]string, error) {
	return r.ingredients.Names(ctx, householdID)
}

// Entries returns the full roster records in the order they were added.
func (r *Roster) Entries(ctx context.Context, householdID int64) ([]model.IngredientEntry, error) {
	entries, err := r.ingredients.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.IngredientEntry{}
	}
	return entries, nil
}

func (r *Roster) notify(householdID int64, snapshot []string) {
	if r.listener == nil {
		return
	}
	r.listener.RosterChanged(householdID, snapshot)
}
