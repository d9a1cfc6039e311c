package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procura-io/procura/internal/auditactions"
	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/fileval"
)

type stubCatalogSource struct {
	rows authz.CatalogRows
	err  error
}

func (s *stubCatalogSource) FetchCatalog(context.Context) (authz.CatalogRows, error) {
	return s.rows, s.err
}

type stubRuleSource struct {
	rules []fileval.Rule
	err   error
}

func (s *stubRuleSource) FetchRules(context.Context) ([]fileval.Rule, error) {
	return s.rules, s.err
}

type stubActionSource struct {
	defs []auditactions.Definition
	err  error
}

func (s *stubActionSource) FetchDefinitions(context.Context) ([]auditactions.Definition, error) {
	return s.defs, s.err
}

type countingReloadMetrics struct {
	succeeded int
	failed    int
}

func (m *countingReloadMetrics) ReloadSucceeded() { m.succeeded++ }
func (m *countingReloadMetrics) ReloadFailed()    { m.failed++ }

func goodRows() authz.CatalogRows {
	return authz.CatalogRows{
		Roles: []authz.Role{
			{ID: 2, Name: "Buyer"},
			{ID: 4, Name: "HOD"},
		},
		Groups: []authz.PermissionGroup{
			{ID: 1, InternalName: "Purchase_Requisition", DisplayName: "Requisitions", IsActive: true},
		},
		Permissions: []authz.Permission{
			{ID: 5, Name: "PR.Create.Temporary", GroupID: 1},
		},
		Assignments: []authz.Assignment{
			{ID: 1, RoleID: 2, GroupID: 1, PermissionID: 5},
		},
	}
}

func newFixture(metrics ReloadMetrics) (*Loader, Stores, *stubCatalogSource, *stubRuleSource, *stubActionSource) {
	catalogSrc := &stubCatalogSource{rows: goodRows()}
	ruleSrc := &stubRuleSource{rules: []fileval.Rule{
		{ID: 1, CompanyID: 1, GroupID: 1, Extension: ".pdf", MaxSizeMB: 5},
	}}
	actionSrc := &stubActionSource{defs: []auditactions.Definition{
		{ID: 1, Name: "PR Delegate", Kind: auditactions.KindAlert},
	}}
	stores := Stores{
		Catalog:   authz.NewStore(),
		FileRules: fileval.NewStore(),
		Actions:   auditactions.NewRegistry(),
	}
	loader := NewLoader(Sources{Catalog: catalogSrc, FileRules: ruleSrc, Actions: actionSrc}, stores, slog.Default(), metrics)
	return loader, stores, catalogSrc, ruleSrc, actionSrc
}

func TestReloadCommitsAllStores(t *testing.T) {
	metrics := &countingReloadMetrics{}
	loader, stores, _, _, _ := newFixture(metrics)

	require.NoError(t, loader.Reload(context.Background()))
	require.Equal(t, 1, metrics.succeeded)

	ok, err := authz.NewResolver(stores.Catalog, nil).Has(2, "PR.Create.Temporary")
	require.NoError(t, err)
	require.True(t, ok)

	snap, err := stores.FileRules.Current()
	require.NoError(t, err)
	_, found := snap.Lookup(1, 1, ".pdf")
	require.True(t, found)

	_, err = stores.Actions.Lookup("PR Delegate")
	require.NoError(t, err)
}

func TestReloadFailureLeavesNothingLoaded(t *testing.T) {
	metrics := &countingReloadMetrics{}
	loader, stores, _, ruleSrc, _ := newFixture(metrics)
	ruleSrc.err = errors.New("connection refused")

	require.Error(t, loader.Reload(context.Background()))
	require.Equal(t, 1, metrics.failed)

	_, err := stores.Catalog.Current()
	require.ErrorIs(t, err, authz.ErrNotLoaded)
	_, err = stores.FileRules.Current()
	require.ErrorIs(t, err, fileval.ErrNotLoaded)
	_, err = stores.Actions.Lookup("PR Delegate")
	require.ErrorIs(t, err, auditactions.ErrNotLoaded)
}

func TestReloadFailureKeepsPriorSnapshots(t *testing.T) {
	loader, stores, catalogSrc, _, _ := newFixture(nil)
	require.NoError(t, loader.Reload(context.Background()))

	// Second load carries an invariant violation in one table only.
	rows := goodRows()
	rows.Assignments = append(rows.Assignments, authz.Assignment{ID: 9, RoleID: 42, GroupID: 1, PermissionID: 5})
	catalogSrc.rows = rows

	var loadErr *authz.LoadError
	require.ErrorAs(t, loader.Reload(context.Background()), &loadErr)

	// Every store still answers from the first load.
	ok, err := authz.NewResolver(stores.Catalog, nil).Has(2, "PR.Create.Temporary")
	require.NoError(t, err)
	require.True(t, ok)

	catalogSnap, err := stores.Catalog.Current()
	require.NoError(t, err)
	require.Equal(t, int64(1), catalogSnap.Version())
}

func TestReloadRejectsRuleForUnknownGroup(t *testing.T) {
	loader, stores, _, ruleSrc, _ := newFixture(nil)
	require.NoError(t, loader.Reload(context.Background()))

	ruleSrc.rules = append(ruleSrc.rules, fileval.Rule{ID: 2, CompanyID: 1, GroupID: 42, Extension: ".pdf", MaxSizeMB: 5})

	var loadErr *fileval.LoadError
	require.ErrorAs(t, loader.Reload(context.Background()), &loadErr)

	snap, err := stores.FileRules.Current()
	require.NoError(t, err)
	require.Equal(t, int64(1), snap.Version())
}

func TestReloadHonorsCancellation(t *testing.T) {
	loader, stores, _, _, _ := newFixture(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, loader.Reload(ctx), context.Canceled)
	_, err := stores.Catalog.Current()
	require.ErrorIs(t, err, authz.ErrNotLoaded)
}

func TestReloadBumpsVersions(t *testing.T) {
	loader, stores, _, _, _ := newFixture(nil)

	require.NoError(t, loader.Reload(context.Background()))
	require.NoError(t, loader.Reload(context.Background()))

	snap, err := stores.Catalog.Current()
	require.NoError(t, err)
	require.Equal(t, int64(2), snap.Version())
}
