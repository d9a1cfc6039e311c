package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/observability"
)

// RoleHeader carries the authenticated actor's role IDs, resolved by the
// identity layer in front of this service. Authentication itself lives there;
// this service only consumes the outcome.
const RoleHeader = "X-Actor-Roles"

// RequestIDHeader echoes the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the shared middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	requestID := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}

	actorRoles := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roleIDs := parseRoleHeader(r.Header.Get(RoleHeader)); len(roleIDs) > 0 {
				r = r.WithContext(authz.ContextWithRoles(r.Context(), roleIDs))
			}
			next.ServeHTTP(w, r)
		})
	}

	stack := []func(http.Handler) http.Handler{
		requestID,
		secureMiddleware.Handler,
		actorRoles,
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}

// parseRoleHeader tolerates blanks and drops anything that is not a positive
// integer; a garbled header reads as "no identity", which downstream checks
// treat as deny.
func parseRoleHeader(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roleIDs := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs
}
