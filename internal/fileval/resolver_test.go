package fileval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procura-io/procura/internal/authz"
)

func testRules() []Rule {
	return []Rule{
		{ID: 1, CompanyID: 1, GroupID: 1, Extension: ".pdf", MaxSizeMB: 5},
		{ID: 2, CompanyID: 1, GroupID: 1, Extension: ".docx", MaxSizeMB: 10},
		{ID: 3, CompanyID: 1, GroupID: 2, Extension: ".pdf", MaxSizeMB: 2},
	}
}

func newCatalogStore(t *testing.T) *authz.Store {
	t.Helper()
	groups := []authz.PermissionGroup{
		{ID: 1, InternalName: "Purchase_Requisition", DisplayName: "Requisitions", IsActive: true},
		{ID: 2, InternalName: "Events", DisplayName: "Events", IsActive: true},
		{ID: 3, InternalName: "Annual_Rate_Contract", DisplayName: "Contracts", IsActive: false},
	}
	store := authz.NewStore()
	snap, err := authz.BuildSnapshot(store.NextVersion(), nil, groups, nil, nil)
	require.NoError(t, err)
	store.Swap(snap)
	return store
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	rules := NewStore()
	snap, err := BuildSnapshot(rules.NextVersion(), testRules())
	require.NoError(t, err)
	rules.Swap(snap)
	return NewResolver(rules, newCatalogStore(t))
}

func TestValidateDecisions(t *testing.T) {
	resolver := newTestResolver(t)

	cases := []struct {
		name      string
		companyID int64
		groupID   int64
		extension string
		sizeBytes int64
		want      Decision
	}{
		{"within ceiling", 1, 1, ".pdf", 4_000_000, Decision{Allowed: true, MaxSizeMB: 5}},
		{"at ceiling", 1, 1, ".pdf", 5 * bytesPerMB, Decision{Allowed: true, MaxSizeMB: 5}},
		{"over ceiling", 1, 1, ".pdf", 6_000_000, Decision{Allowed: false, Reason: ReasonSizeExceeded, MaxSizeMB: 5}},
		{"extension not listed for group", 1, 2, ".docx", 1, Decision{Allowed: false, Reason: ReasonExtensionNotAllowed}},
		{"no rules for tenant", 2, 1, ".pdf", 1, Decision{Allowed: false, Reason: ReasonExtensionNotAllowed}},
		{"group scoping differs per tenant pair", 1, 2, ".pdf", 3 * bytesPerMB, Decision{Allowed: false, Reason: ReasonSizeExceeded, MaxSizeMB: 2}},
		{"case-insensitive extension", 1, 1, "PDF", 1, Decision{Allowed: true, MaxSizeMB: 5}},
		{"malformed extension reads as not allowed", 1, 1, "p.d.f", 1, Decision{Allowed: false, Reason: ReasonExtensionNotAllowed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Validate(tc.companyID, tc.groupID, tc.extension, tc.sizeBytes)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidateUnknownGroup(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Validate(1, 404, ".pdf", 1)
	require.ErrorIs(t, err, ErrUnknownGroup)

	// Inactive groups read the same as missing ones.
	_, err = resolver.Validate(1, 3, ".pdf", 1)
	require.ErrorIs(t, err, ErrUnknownGroup)
}

func TestValidateBeforeBootstrap(t *testing.T) {
	resolver := NewResolver(NewStore(), authz.NewStore())

	_, err := resolver.Validate(1, 1, ".pdf", 1)
	require.ErrorIs(t, err, authz.ErrNotLoaded)
}

func TestBuildSnapshotNormalizesAndRejects(t *testing.T) {
	snap, err := BuildSnapshot(1, []Rule{{ID: 1, CompanyID: 1, GroupID: 1, Extension: "PDF", MaxSizeMB: 5}})
	require.NoError(t, err)
	_, ok := snap.Lookup(1, 1, ".pdf")
	require.True(t, ok)

	_, err = BuildSnapshot(1, []Rule{{ID: 1, CompanyID: 1, GroupID: 1, Extension: ".pdf", MaxSizeMB: 0}})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)

	_, err = BuildSnapshot(1, []Rule{
		{ID: 1, CompanyID: 1, GroupID: 1, Extension: ".pdf", MaxSizeMB: 5},
		{ID: 2, CompanyID: 1, GroupID: 1, Extension: "pdf", MaxSizeMB: 8},
	})
	require.ErrorAs(t, err, &loadErr)
}

func TestBuildSnapshotSkipsDeletedRules(t *testing.T) {
	rules := testRules()
	rules[0].AuditFields = authz.AuditFields{Deleted: true}
	snap, err := BuildSnapshot(1, rules)
	require.NoError(t, err)

	_, ok := snap.Lookup(1, 1, ".pdf")
	require.False(t, ok)
	_, ok = snap.Lookup(1, 1, ".docx")
	require.True(t, ok)
}

func TestNormalizeExtension(t *testing.T) {
	for input, want := range map[string]string{
		".pdf":   ".pdf",
		"pdf":    ".pdf",
		"PDF":    ".pdf",
		"..pdf":  ".pdf",
		" .PDF ": ".pdf",
	} {
		got, err := NormalizeExtension(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
	for _, input := range []string{"", ".", "p df", "p/df", `p\df`, "p.df"} {
		_, err := NormalizeExtension(input)
		require.Error(t, err, input)
	}
}

func TestExtensionFromFilename(t *testing.T) {
	got, err := ExtensionFromFilename("invoice.V2.PDF")
	require.NoError(t, err)
	require.Equal(t, ".pdf", got)

	_, err = ExtensionFromFilename("README")
	require.Error(t, err)
}
