package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/roster"
)

type IngredientHandler struct {
	roster *roster.Roster
	logger *slog.Logger
}

func NewIngredientHandler(r *roster.Roster, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{roster: r, logger: logger}
}

// List returns the household's ingredient names in the order they were added.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.roster.List(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type addIngredientResponse struct {
	Ingredient *model.IngredientEntry `json:"ingredient"`
	Created    bool                   `json:"created"`
}

// Add responds 201 when the ingredient is new and 200 when it was already
// on the roster.
func (h *IngredientHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=200"`
	}
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	entry, created, err := h.roster.Add(r.Context(), auth.HouseholdID(r.Context()), req.Name)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, addIngredientResponse{Ingredient: entry, Created: created})
}

func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.roster.Remove(r.Context(), auth.HouseholdID(r.Context()), r.PathValue("name"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
