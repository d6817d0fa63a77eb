package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
	"github.com/Mahmoudramadan21/Bookify/pkg/httputil"
	"github.com/Mahmoudramadan21/Bookify/pkg/logger"
)

type identityKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// Authenticator turns a bearer token into an Identity.
type Authenticator func(ctx context.Context, token string) (Identity, error)

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing or malformed authorization header"))
				return
			}
			id, err := authn(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logger.WithUserID(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"))
			return
		}
		if !id.IsAdmin {
			httputil.WriteError(w, r, apperrors.Forbidden("admin privileges required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
