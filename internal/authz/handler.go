package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// CheckMetrics records permission check outcomes; nil disables reporting.
type CheckMetrics interface {
	PermissionCheck(allowed bool)
}

// Handler exposes the permission query surface over HTTP.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	store    *Store
	metrics  CheckMetrics
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, store *Store, metrics CheckMetrics) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		store:    store,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/roles/{roleID}/permissions", h.rolePermissions)
	r.Get("/groups", h.listGroups)
}

type checkRequest struct {
	RoleIDs    []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
	Permission string  `json:"permission" validate:"required"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := ValidatePermissionName(req.Permission); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	allowed, err := h.resolver.HasAny(req.RoleIDs, req.Permission)
	if err != nil {
		h.logger.Error("authz check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PermissionCheck(allowed)
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

type rolePermissionsResponse struct {
	RoleID      int64    `json:"role_id"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || roleID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}

	granted, err := h.resolver.Resolve(roleID)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
			return
		}
		h.logger.Error("resolve role permissions", slog.Int64("role_id", roleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	names := make([]string, 0, len(granted))
	for name := range granted {
		names = append(names, name)
	}
	sort.Strings(names)
	httpx.JSON(w, http.StatusOK, rolePermissionsResponse{RoleID: roleID, Permissions: names})
}

type groupResponse struct {
	ID           int64  `json:"id"`
	InternalName string `json:"internal_name"`
	DisplayName  string `json:"display_name"`
	Icon         string `json:"icon"`
	OrderIndex   int    `json:"order_index"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		h.logger.Error("list groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	groups := snap.Groups()
	active := groups[:0]
	for _, group := range groups {
		if group.IsActive {
			active = append(active, group)
		}
	}

	// OrderIndex is display ordering only; ties fall back to a collated
	// display-name comparison so the listing is stable.
	collator := collate.New(language.English, collate.Loose)
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].OrderIndex != active[j].OrderIndex {
			return active[i].OrderIndex < active[j].OrderIndex
		}
		return collator.CompareString(active[i].DisplayName, active[j].DisplayName) < 0
	})

	out := make([]groupResponse, 0, len(active))
	for _, group := range active {
		out = append(out, groupResponse{
			ID:           group.ID,
			InternalName: group.InternalName,
			DisplayName:  group.DisplayName,
			Icon:         group.Icon,
			OrderIndex:   group.OrderIndex,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
