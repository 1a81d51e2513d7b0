package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// FromContext returns the claims of an authenticated request.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// Verifier resolves tokens the local validator cannot check.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*User, error)
}

// Middleware requires a bearer token. Tokens are validated locally first; when
// that fails and a remote verifier is set, the identity provider decides.
func Middleware(validator TokenValidator, remote Verifier, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, ErrMissingToken)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil && remote != nil {
				var user *User
				user, err = remote.VerifyToken(r.Context(), token)
				if err == nil {
					claims = &Claims{Email: user.Email, Role: user.Role}
					claims.Subject = user.ID
				}
			}
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
				if errors.Is(err, ErrIdentityDown) {
					writeError(w, http.StatusServiceUnavailable, err)
					return
				}
				unauthorized(w, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
