package model

import "time"

// IngredientEntry is one item of a household's roster. NormalizedKey is the
// folded form of Name and is unique per household.
type IngredientEntry struct {
	ID            int64     `json:"id"`
	HouseholdID   int64     `json:"household_id"`
	Name          string    `json:"name"`
	NormalizedKey string    `json:"normalized_key"`
	CreatedAt     time.Time `json:"created_at"`
}
