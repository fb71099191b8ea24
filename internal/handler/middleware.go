package handler

import (
	"context"
	"errors"
	"net/http"

	"company-service/internal/token"
	"company-service/internal/util"
)

// Trusted headers set by the edge gateway after it has authenticated
// the caller. They take precedence over the access token cookie.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerUserRole  = "X-User-Role"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID    string
	CompanyID string
	Email     string
	Role      string
}

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// IdentityFromContext returns the caller identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// AuthGateway resolves the caller identity from either the gateway
// trust headers or the access token cookie. Requests without a
// resolvable identity are rejected.
//
// The header path deliberately trusts the edge: this service must only
// be reachable behind the platform gateway, which strips client-sent
// X-User-* headers before forwarding.
func AuthGateway(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFromHeaders(r)

			if identity == nil {
				cookie, err := r.Cookie(accessTokenCookie)
				if err != nil || cookie.Value == "" {
					respondWithError(w, http.StatusUnauthorized, errors.New("authentication required"), "Authentication required")
					return
				}

				claims, err := tokens.VerifyAccess(cookie.Value)
				if err != nil {
					respondWithError(w, http.StatusUnauthorized, err, "Invalid or expired session")
					return
				}

				identity = &Identity{
					UserID:    claims.UserID,
					CompanyID: claims.CompanyID,
					Email:     claims.Email,
					Role:      claims.Role,
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromHeaders(r *http.Request) *Identity {
	userID := r.Header.Get(headerUserID)
	email := r.Header.Get(headerUserEmail)
	if userID == "" || email == "" {
		return nil
	}

	role := r.Header.Get(headerUserRole)
	if role == "" {
		role = "company"
	}

	identity := &Identity{
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	if role == "company" {
		identity.CompanyID = userID
	}

	return identity
}

// RequireCompany restricts a route to authenticated company accounts.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Role != "company" || identity.CompanyID == "" {
			respondWithError(w, http.StatusForbidden, errors.New("company account required"), "Company account required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin restricts a route to platform admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Role != "admin" {
			util.Warn("Admin route denied",
				util.String("path", r.URL.Path),
			)
			respondWithError(w, http.StatusForbidden, errors.New("admin access required"), "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
