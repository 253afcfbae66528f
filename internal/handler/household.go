package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/household"
	"github.com/dukerupert/pantry/internal/onboarding"
	"github.com/dukerupert/pantry/internal/role"
	"github.com/dukerupert/pantry/internal/session"
)

type HouseholdHandler struct {
	flow          *onboarding.Flow
	directory     *household.Directory
	engine        *household.Engine
	secureCookies bool
	logger        *slog.Logger
}

func NewHouseholdHandler(flow *onboarding.Flow, directory *household.Directory, engine *household.Engine, secureCookies bool, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		flow:          flow,
		directory:     directory,
		engine:        engine,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type createHouseholdRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	MemberEmails []string `json:"member_emails" validate:"max=50,dive,max=254"`
	RequestID    string   `json:"request_id" validate:"omitempty,max=64"`
}

type createHouseholdResponse struct {
	HouseholdID int64    `json:"household_id"`
	Unresolved  []string `json:"unresolved"`
}

// Create makes the caller owner of a new household and switches to it.
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	userID := auth.UserID(r.Context())

	res, err := h.flow.Create(r.Context(), userID, req.Name, req.MemberEmails, req.RequestID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	active, err := h.flow.Select(r.Context(), userID, res.Household.ID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	session.SetMarker(w, active, h.secureCookies)
	writeJSON(w, http.StatusCreated, createHouseholdResponse{
		HouseholdID: res.Household.ID,
		Unresolved:  res.Unresolved,
	})
}

func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	households, err := h.directory.ListHouseholdsFor(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, households)
}

// Joinable lists the caller's households other than the active one.
func (h *HouseholdHandler) Joinable(w http.ResponseWriter, r *http.Request) {
	active := session.Requested(r)
	if active == 0 {
		active = session.Marker(r)
	}
	households, err := h.flow.ListJoinable(r.Context(), auth.UserID(r.Context()), active)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, households)
}

func (h *HouseholdHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HouseholdID int64 `json:"household_id" validate:"required,gt=0"`
	}
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	active, err := h.flow.Select(r.Context(), auth.UserID(r.Context()), req.HouseholdID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	session.SetMarker(w, active, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]int64{"household_id": active})
}

func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.directory.GetMembers(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type targetRequest struct {
	TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
}

func (h *HouseholdHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, role.Promote)
}

func (h *HouseholdHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, role.Demote)
}

func (h *HouseholdHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, role.Remove)
}

func (h *HouseholdHandler) command(w http.ResponseWriter, r *http.Request, cmd role.Command) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())

	members, err := h.engine.Apply(r.Context(), ac.HouseholdID, ac.UserID, req.TargetUserID, cmd)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *HouseholdHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())

	members, err := h.engine.AddMember(r.Context(), ac.HouseholdID, ac.UserID, req.Email)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, members)
}

