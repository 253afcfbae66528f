package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pantry/internal/model"
)

type IngredientStore struct {
	db *sql.DB
}

func NewIngredientStore(db *sql.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

func scanIngredient(scanner interface{ Scan(...any) error }) (*model.IngredientEntry, error) {
	var e model.IngredientEntry
	err := scanner.Scan(&e.ID, &e.HouseholdID, &e.Name, &e.NormalizedKey, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const ingredientCols = `id, household_id, name, normalized_key, created_at`

// Add inserts name under key unless the household already has an entry with
// that key. It returns the stored entry, whether it was created, and when it
// was, the household's names after the insert.
func (s *IngredientStore) Add(ctx context.Context, householdID int64, name, key string) (*model.IngredientEntry, bool, []string, error) {
	var (
		entry    *model.IngredientEntry
		created  bool
		snapshot []string
	)
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO ingredients (household_id, name, normalized_key) VALUES (?, ?, ?)
			 ON CONFLICT (household_id, normalized_key) DO NOTHING`,
			householdID, name, key,
		)
		if err != nil {
			return fmt.Errorf("insert ingredient: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		created = n == 1

		entry, err = scanIngredient(tx.QueryRowContext(ctx,
			`SELECT `+ingredientCols+` FROM ingredients WHERE household_id = ? AND normalized_key = ?`,
			householdID, key,
		))
		if err != nil {
			return fmt.Errorf("get ingredient: %w", err)
		}

		if created {
			snapshot, err = listNames(ctx, tx, householdID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, nil, err
	}
	return entry, created, snapshot, nil
}

// Remove deletes the entry with key. When a row was deleted it also returns
// the household's names after the delete.
func (s *IngredientStore) Remove(ctx context.Context, householdID int64, key string) (bool, []string, error) {
	var (
		removed  bool
		snapshot []string
	)
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM ingredients WHERE household_id = ? AND normalized_key = ?`,
			householdID, key,
		)
		if err != nil {
			return fmt.Errorf("delete ingredient: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		removed = n > 0
		if removed {
			snapshot, err = listNames(ctx, tx, householdID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return removed, snapshot, nil
}

// List returns a household's entries in insertion order.
func (s *IngredientStore) List(ctx context.Context, householdID int64) ([]model.IngredientEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ingredientCols+` FROM ingredients WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var entries []model.IngredientEntry
	for rows.Next() {
		e, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Names returns a household's ingredient names in insertion order.
func (s *IngredientStore) Names(ctx context.Context, householdID int64) ([]string, error) {
	return listNames(ctx, s.db, householdID)
}

func listNames(ctx context.Context, q querier, householdID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name FROM ingredients WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingredient names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ingredient name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
