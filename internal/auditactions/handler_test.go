package auditactions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newActionRouter(t *testing.T, reg *Registry) http.Handler {
	t.Helper()
	handler := NewHandler(slog.Default(), reg)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestLookupEndpoint(t *testing.T) {
	router := newActionRouter(t, newLoadedRegistry(t))

	// Action names contain spaces and arrive URL-encoded.
	req := httptest.NewRequest(http.MethodGet, "/Publish%20Event", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp definitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(27), resp.ID)
	require.Equal(t, "Publish Event", resp.Name)
	require.Equal(t, "Notification", resp.Kind)
}

func TestLookupEndpointUnknownName(t *testing.T) {
	router := newActionRouter(t, newLoadedRegistry(t))

	req := httptest.NewRequest(http.MethodGet, "/Unknown%20Action", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLookupEndpointBeforeBootstrap(t *testing.T) {
	router := newActionRouter(t, NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/PR%20Delegate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
