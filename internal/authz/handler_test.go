package authz

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, store *Store) http.Handler {
	t.Helper()
	handler := NewHandler(slog.Default(), NewResolver(store, nil), store, nil)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func postCheck(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckEndpoint(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	rec := postCheck(t, router, `{"role_ids":[2],"permission":"PR.Create.Temporary"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Allowed)

	rec = postCheck(t, router, `{"role_ids":[2],"permission":"PR.Delegation.Full"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Allowed)
}

func TestCheckEndpointValidation(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"empty roles", `{"role_ids":[],"permission":"PR.Create.Temporary"}`},
		{"non-positive role", `{"role_ids":[0],"permission":"PR.Create.Temporary"}`},
		{"missing permission", `{"role_ids":[2]}`},
		{"unknown field", `{"role_ids":[2],"permission":"PR.Create.Temporary","scope":"global"}`},
		{"malformed permission", `{"role_ids":[2],"permission":"PR..Create"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCheck(t, router, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCheckEndpointBeforeBootstrap(t *testing.T) {
	router := newTestRouter(t, NewStore())

	rec := postCheck(t, router, `{"role_ids":[2],"permission":"PR.Create.Temporary"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRolePermissionsEndpoint(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	req := httptest.NewRequest(http.MethodGet, "/roles/2/permissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rolePermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(2), resp.RoleID)
	// Sorted, inactive Contracts group excluded.
	require.Equal(t, []string{"Event.Create.button", "PR.Create.Temporary"}, resp.Permissions)
}

func TestRolePermissionsUnknownRole(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	req := httptest.NewRequest(http.MethodGet, "/roles/404/permissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRolePermissionsBadID(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	req := httptest.NewRequest(http.MethodGet, "/roles/buyer/permissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGroupsOrderedAndActiveOnly(t *testing.T) {
	router := newTestRouter(t, newLoadedStore(t))

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []groupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 2)
	require.Equal(t, "Purchase_Requisition", groups[0].InternalName)
	require.Equal(t, "Events", groups[1].InternalName)
}
