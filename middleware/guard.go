package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	authsystem "github.com/MrEthical07/authsystem"
)

type claimsContextKey struct{}

// SessionValidator is the part of *authsystem.Engine the guard needs.
type SessionValidator interface {
	ValidateSession(token string) (*authsystem.SessionClaims, error)
}

// ClaimsFromContext returns the claims stored by RequireSession.
func ClaimsFromContext(ctx context.Context) (*authsystem.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authsystem.SessionClaims)
	return claims, ok && claims != nil
}

// WithClaims stores claims on ctx the same way RequireSession does.
func WithClaims(ctx context.Context, claims *authsystem.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// RequireSession rejects requests without a valid "Authorization: Bearer"
// session token with 401 and the standard envelope. Valid claims are passed on
// through the request context.
func RequireSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				writeUnauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateSession(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="authsystem"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(authsystem.Result{Message: authsystem.MsgUnauthorized})
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
