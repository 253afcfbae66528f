package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/household"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/session"
)

type AuthHandler struct {
	provider      *auth.Provider
	resolver      *session.Resolver
	directory     *household.Directory
	tokenTTL      time.Duration
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(provider *auth.Provider, resolver *session.Resolver, directory *household.Directory, tokenTTL time.Duration, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		resolver:      resolver,
		directory:     directory,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	u, err := h.provider.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	token, u, err := h.provider.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	session.SetToken(w, token, h.tokenTTL, h.secureCookies)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User              *model.User              `json:"user"`
	ActiveHouseholdID int64                    `json:"active_household_id,omitempty"`
	Role              model.Role               `json:"role,omitempty"`
	Households        []model.HouseholdSummary `json:"households"`
	Redirect          string                   `json:"redirect,omitempty"`
}

// Me reports who the caller is and which household is active. A caller with
// no usable active household is pointed at onboarding.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	u, err := h.provider.User(r.Context(), userID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	if u == nil {
		WriteError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}

	households, err := h.directory.ListHouseholdsFor(r.Context(), userID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	resp := meResponse{User: u, Households: households}
	m, err := h.resolver.ResolveHousehold(r.Context(), userID, session.Requested(r), session.Marker(r))
	switch {
	case errors.Is(err, apperr.ErrNoActiveHousehold):
		resp.Redirect = "/onboarding"
	case err != nil:
		WriteError(w, r, h.logger, err)
		return
	default:
		resp.ActiveHouseholdID = m.HouseholdID
		resp.Role = m.Role
	}
	writeJSON(w, http.StatusOK, resp)
}
