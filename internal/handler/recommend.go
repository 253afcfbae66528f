package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/recommend"
	"github.com/dukerupert/pantry/internal/roster"
)

type RecommendHandler struct {
	pipeline *recommend.Pipeline
	roster   *roster.Roster
	logger   *slog.Logger
}

func NewRecommendHandler(pipeline *recommend.Pipeline, r *roster.Roster, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{pipeline: pipeline, roster: r, logger: logger}
}

// Latest returns the active household's recommendation state, starting a
// run first if the household is not being tracked yet.
func (h *RecommendHandler) Latest(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	if err := h.pipeline.Ensure(r.Context(), householdID, h.roster.List); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Latest(householdID))
}

type recommendRequest struct {
	Ingredients []string `json:"ingredients" validate:"max=200,dive,max=200"`
}

type recommendResponse struct {
	Recipes []model.Recipe `json:"recipes"`
}

// Recommend passes an ad-hoc ingredient list to the engine without touching
// any household's state.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	recipes, err := h.pipeline.Recommend(r.Context(), req.Ingredients)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{Recipes: recipes})
}
