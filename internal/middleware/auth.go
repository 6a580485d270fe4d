package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/store"
)

// SessionCookieName is the cookie browser clients authenticate with.
const SessionCookieName = "stride_session"

// RequireAuth authenticates the request and populates AuthContext. Browser
// clients present the session cookie; API clients present a bearer token.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := authenticate(r, sessions, users, tokens)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, sessions *store.SessionStore, users *store.UserStore, tokens *auth.TokenIssuer) (auth.AuthContext, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return auth.AuthContext{}, false
		}
		userID, role, err := tokens.Verify(raw)
		if err != nil {
			return auth.AuthContext{}, false
		}
		user, err := users.GetByID(userID)
		if err != nil || user == nil {
			return auth.AuthContext{}, false
		}
		return auth.AuthContext{UserID: user.ID, Role: role, Timezone: user.Timezone}, true
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.AuthContext{}, false
	}

	sess, err := sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		return auth.AuthContext{}, false
	}

	user, err := users.GetByID(sess.UserID)
	if err != nil || user == nil {
		return auth.AuthContext{}, false
	}

	return auth.AuthContext{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sess.ID,
		Timezone:  user.Timezone,
	}, true
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
