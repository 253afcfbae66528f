package session

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// TokenCookie carries the bearer token for browser clients.
	TokenCookie = "pantry_token"
	// HouseholdCookie is the client-side active-household marker.
	HouseholdCookie = "pantry_household"
	// HouseholdHeader lets API clients name the household per request.
	HouseholdHeader = "X-Household-ID"
)

// Credentials returns the bearer token from the Authorization header, or
// failing that the token cookie.
func Credentials(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Marker returns the household id stored in the marker cookie, or 0.
func Marker(r *http.Request) int64 {
	c, err := r.Cookie(HouseholdCookie)
	if err != nil {
		return 0
	}
	return ParseID(c.Value)
}

// Requested returns the household id named by the request header, or 0.
func Requested(r *http.Request) int64 {
	return ParseID(r.Header.Get(HouseholdHeader))
}

// ParseID parses a positive household id, returning 0 for anything else.
func ParseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// SetMarker stores householdID as the active household.
func SetMarker(w http.ResponseWriter, householdID int64, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     HouseholdCookie,
		Value:    strconv.FormatInt(householdID, 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
}

// SetToken stores the bearer token cookie.
func SetToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// Clear expires both cookies.
func Clear(w http.ResponseWriter) {
	for _, name := range []string{TokenCookie, HouseholdCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
