package authz

import (
	"errors"
	"log/slog"
	"net/http"
)

// Middleware gates HTTP routes on resolved permissions.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Require ensures the current actor holds the named permission. A missing
// identity, an unknown role and an absent grant all answer 403; the response
// never distinguishes them.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleIDs := RolesFromContext(r.Context())
			if len(roleIDs) == 0 {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			allowed, err := m.Resolver.HasAny(roleIDs, permission)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require", slog.String("permission", permission), slog.Any("error", err))
				}
				status := http.StatusInternalServerError
				if errors.Is(err, ErrNotLoaded) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, http.StatusText(status), status)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
