package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/otiuna/sigpat/internal/auth"
	"github.com/otiuna/sigpat/internal/gate"
	"github.com/otiuna/sigpat/internal/httpx"
	"gorm.io/gorm"
)

// AuthGate holds the configured HybridGate with caching.
// Use this as a central authorization point in the application.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates a fully configured authorization gate.
// - db: GORM database connection for profile lookups
// - cacheTTL: how long to cache user profiles (e.g., 5*time.Minute)
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	dbResolver := NewDBProfileResolver(db)

	// Wrap with caching to avoid DB queries on every request.
	cachedResolver := gate.NewCachedResolver[uint](dbResolver, cacheTTL)

	hybridGate := gate.NewHybridGate[uint](cachedResolver)

	return &AuthGate{
		Gate:          hybridGate,
		CacheResolver: cachedResolver,
	}
}

// RegisterPolicy adds a resource policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks if the current user can perform an action on a resource.
// Returns nil if authorized, gate.ErrUnauthorized otherwise.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// RequirePermission is middleware that rejects requests whose user profile
// lacks the resource:action permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok || !ag.Gate.CanProfile(r.Context(), userID, action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is middleware that requires the superadmin wildcard.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			prof, err := ag.CacheResolver.Resolve(r.Context(), userID)
			if err != nil || prof == nil || !prof.HasPermission(gate.PermissionSuperAdmin) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
