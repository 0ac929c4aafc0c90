// Package auth binds gateway-verified caller identity to the request
// context. The service never validates tokens itself; an Envoy or NGINX
// gateway verifies the JWT and forwards the claims as headers.
package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	tenantKey contextKey = "tenant"
	userKey   contextKey = "user"
)

// Header names set by the gateway from verified JWT claims.
const (
	HeaderVerified = "X-Auth-Verified"
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// Config controls the gateway identity middleware.
type Config struct {
	// Required rejects requests without a verified identity. When false
	// the middleware still binds identity headers when present.
	Required bool

	// BypassPaths are served without an identity check regardless of
	// Required. Health and metrics endpoints belong here.
	BypassPaths []string
}

// Middleware returns an http.Handler wrapper that enforces the gateway
// identity contract and binds the tenant and user to the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(cfg.BypassPaths))
	for _, p := range cfg.BypassPaths {
		bypass[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tenant := r.Header.Get(HeaderTenantID)
			verified := r.Header.Get(HeaderVerified) == "true"

			if cfg.Required {
				if !verified {
					http.Error(w, "Unauthorized: identity not verified at gateway", http.StatusUnauthorized)
					return
				}
				if tenant == "" {
					http.Error(w, "Unauthorized: missing tenant identity", http.StatusUnauthorized)
					return
				}
			}

			ctx := r.Context()
			if tenant != "" {
				ctx = context.WithValue(ctx, tenantKey, tenant)
			}
			if user := r.Header.Get(HeaderUserID); user != "" {
				ctx = context.WithValue(ctx, userKey, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantID returns the gateway-verified tenant bound to the context.
func TenantID(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tenantKey).(string)
	return t, ok
}

// UserID returns the gateway-verified user bound to the context.
func UserID(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey).(string)
	return u, ok
}
