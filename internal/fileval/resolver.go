package fileval

import (
	"github.com/procura-io/procura/internal/authz"
)

// Resolver validates uploads against the live rule snapshot. It is a pure
// read path; any number of callers may validate concurrently.
type Resolver struct {
	rules   *Store
	catalog *authz.Store
}

// NewResolver constructs a resolver. The catalog store is consulted only to
// confirm the permission group is active; tenant IDs are opaque here and are
// the tenant registry's problem.
func NewResolver(rules *Store, catalog *authz.Store) *Resolver {
	return &Resolver{rules: rules, catalog: catalog}
}

// Validate decides whether a file of the given extension and size may be
// uploaded for the tenant and permission group. The extension is normalized
// before lookup; a normalization failure reads as an extension nobody
// permitted rather than an internal error.
func (r *Resolver) Validate(companyID, groupID int64, extension string, sizeBytes int64) (Decision, error) {
	catalogSnap, err := r.catalog.Current()
	if err != nil {
		return Decision{}, err
	}
	if !catalogSnap.ActiveGroup(groupID) {
		return Decision{}, ErrUnknownGroup
	}

	snap, err := r.rules.Current()
	if err != nil {
		return Decision{}, err
	}

	ext, err := NormalizeExtension(extension)
	if err != nil {
		return Decision{Allowed: false, Reason: ReasonExtensionNotAllowed}, nil
	}

	rule, ok := snap.Lookup(companyID, groupID, ext)
	if !ok {
		return Decision{Allowed: false, Reason: ReasonExtensionNotAllowed}, nil
	}
	if sizeBytes > rule.MaxSizeBytes() {
		return Decision{Allowed: false, Reason: ReasonSizeExceeded, MaxSizeMB: rule.MaxSizeMB}, nil
	}
	return Decision{Allowed: true, MaxSizeMB: rule.MaxSizeMB}, nil
}
