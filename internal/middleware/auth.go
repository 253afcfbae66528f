package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/handler"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/session"
)

// householdPathValue names the path wildcard carrying an explicit household.
const householdPathValue = "household_id"

// RequireAuth resolves the request's credentials and populates AuthContext
// with the user. Requests without valid credentials get a 401.
func RequireAuth(resolver *session.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r.Context(), session.Credentials(r))
			if err != nil {
				handler.WriteError(w, r, logger, err)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireHousehold resolves the household a request acts on and adds it and
// the caller's role to AuthContext. A {household_id} path value must name a
// household the caller belongs to. Otherwise the X-Household-ID header and
// then the marker cookie are tried, and a caller with neither gets
// NO_ACTIVE_HOUSEHOLD.
func RequireHousehold(resolver *session.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				handler.WriteError(w, r, logger, apperr.ErrUnauthenticated)
				return
			}

			var (
				m   *model.Membership
				err error
			)
			if raw := r.PathValue(householdPathValue); raw != "" {
				id := session.ParseID(raw)
				if id == 0 {
					handler.WriteError(w, r, logger, apperr.New(apperr.CodeInvalidArgument, "invalid household_id"))
					return
				}
				m, err = resolver.Membership(r.Context(), ac.UserID, id)
			} else {
				m, err = resolver.ResolveHousehold(r.Context(), ac.UserID, session.Requested(r), session.Marker(r))
			}
			if err != nil {
				handler.WriteError(w, r, logger, err)
				return
			}

			ac.HouseholdID = m.HouseholdID
			ac.Role = m.Role
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}
