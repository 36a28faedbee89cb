package auth

import (
	"net/http"
	"strings"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
)

// Middleware validates JWTs and enforces RBAC.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies auth and RBAC to the handler. Authenticated requests carry
// the caller's user id and role in their context.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		userID, role, status := m.authorize(r, required)
		if status != http.StatusOK {
			metrics.IncAuthRejected(status)
			http.Error(w, strings.ToLower(http.StatusText(status)), status)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, role)))
	})
}

// authorize returns the caller identity, or 401 for a bad token and 403 for an insufficient role.
func (m *Middleware) authorize(r *http.Request, required Role) (string, Role, int) {
	claims, err := ParseJWT(bearerToken(r.Header.Get("Authorization")), m.Secret)
	if err != nil {
		return "", "", http.StatusUnauthorized
	}
	role, _ := NormalizeRole(claims.Role)
	if !RoleAtLeast(role, required) {
		return "", "", http.StatusForbidden
	}
	return claims.UserID, role, http.StatusOK
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
