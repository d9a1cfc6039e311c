// Package catalog drives the atomic bootstrap and reload of every snapshot
// store: either all snapshots load and pass their invariant checks, or the
// prior snapshots stay live and the attempt is reported as failed.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/procura-io/procura/internal/auditactions"
	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/fileval"
)

// ReloadMetrics receives reload outcomes. Implemented by the observability
// package; nil disables reporting.
type ReloadMetrics interface {
	ReloadSucceeded()
	ReloadFailed()
}

// Stores groups the snapshot holders the loader commits into.
type Stores struct {
	Catalog   *authz.Store
	FileRules *fileval.Store
	Actions   *auditactions.Registry
}

// Sources groups the row providers the loader reads from.
type Sources struct {
	Catalog   authz.Source
	FileRules fileval.Source
	Actions   auditactions.Source
}

// Loader performs the load-validate-swap cycle. Concurrent Reload calls are
// safe; each store serializes its own swap.
type Loader struct {
	sources Sources
	stores  Stores
	logger  *slog.Logger
	metrics ReloadMetrics
}

// NewLoader constructs a loader.
func NewLoader(sources Sources, stores Stores, logger *slog.Logger, metrics ReloadMetrics) *Loader {
	return &Loader{sources: sources, stores: stores, logger: logger, metrics: metrics}
}

// Reload fetches every table, builds every snapshot, and only then commits
// all swaps. A fetch error, an invariant violation in any snapshot, or caller
// cancellation before commit leaves all prior snapshots authoritative.
func (l *Loader) Reload(ctx context.Context) error {
	if err := l.reload(ctx); err != nil {
		if l.metrics != nil {
			l.metrics.ReloadFailed()
		}
		return err
	}
	if l.metrics != nil {
		l.metrics.ReloadSucceeded()
	}
	return nil
}

func (l *Loader) reload(ctx context.Context) error {
	var (
		catalogRows authz.CatalogRows
		ruleRows    []fileval.Rule
		actionRows  []auditactions.Definition
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalogRows, err = l.sources.Catalog.FetchCatalog(gctx)
		if err != nil {
			return fmt.Errorf("catalog: fetch catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ruleRows, err = l.sources.FileRules.FetchRules(gctx)
		if err != nil {
			return fmt.Errorf("catalog: fetch file rules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		actionRows, err = l.sources.Actions.FetchDefinitions(gctx)
		if err != nil {
			return fmt.Errorf("catalog: fetch audit actions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	catalogSnap, err := authz.BuildSnapshot(l.stores.Catalog.NextVersion(),
		catalogRows.Roles, catalogRows.Groups, catalogRows.Permissions, catalogRows.Assignments)
	if err != nil {
		return err
	}
	ruleSnap, err := fileval.BuildSnapshot(l.stores.FileRules.NextVersion(), ruleRows)
	if err != nil {
		return err
	}
	actionSnap, err := auditactions.BuildSnapshot(l.stores.Actions.NextVersion(), actionRows)
	if err != nil {
		return err
	}

	// Cross-store check: a rule scoped to a group the catalog has never seen
	// is a data defect. Rules on retired groups stay loadable; the group
	// check at validation time already denies them.
	var violations []string
	for _, rule := range ruleRows {
		if rule.Live() && !catalogSnap.KnownGroup(rule.GroupID) {
			violations = append(violations, fmt.Sprintf("rule %d references unknown group %d", rule.ID, rule.GroupID))
		}
	}
	if len(violations) > 0 {
		return &fileval.LoadError{Violations: violations}
	}

	// Last chance to honor cancellation; after this the swaps commit.
	if err := ctx.Err(); err != nil {
		return err
	}

	l.stores.Catalog.Swap(catalogSnap)
	l.stores.FileRules.Swap(ruleSnap)
	l.stores.Actions.Swap(actionSnap)

	if l.logger != nil {
		l.logger.Info("catalog reloaded",
			slog.Int64("catalog_version", catalogSnap.Version()),
			slog.Int("roles", len(catalogRows.Roles)),
			slog.Int("permissions", len(catalogRows.Permissions)),
			slog.Int("file_rules", len(ruleRows)),
			slog.Int("audit_actions", len(actionRows)))
	}
	return nil
}
