// Package auditactions is the closed catalog of nameable user actions the
// logging and notification collaborators reference when dispatching alerts
// and notifications.
package auditactions

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/platform/httpx"
)

// ErrNotFound is returned when an action name is absent or soft-deleted.
var ErrNotFound = errors.New("auditactions: not found")

// ErrNotLoaded is returned for lookups made before the first successful load.
// It wraps httpx.ErrUnavailable so transport code answers 503 until bootstrap.
var ErrNotLoaded = fmt.Errorf("auditactions: registry not loaded: %w", httpx.ErrUnavailable)

// Kind routes an action to the alert or notification channel.
type Kind string

const (
	KindAlert        Kind = "Alert"
	KindNotification Kind = "Notification"
	// KindUnclassified covers actions seeded without a channel.
	KindUnclassified Kind = "Unclassified"
)

// ParseKind maps a raw channel label to a Kind; empty input is Unclassified.
func ParseKind(raw string) (Kind, error) {
	switch raw {
	case "":
		return KindUnclassified, nil
	case string(KindAlert):
		return KindAlert, nil
	case string(KindNotification):
		return KindNotification, nil
	default:
		return "", fmt.Errorf("auditactions: unknown kind %q", raw)
	}
}

// Definition describes one recognized action.
type Definition struct {
	ID          int64
	Name        string
	Description string
	Kind        Kind
	authz.AuditFields
}

// LoadError aggregates violations found while building a snapshot.
type LoadError struct {
	Violations []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("auditactions: load failed: %s", strings.Join(e.Violations, "; "))
}

// Snapshot is an immutable name index of live action definitions.
type Snapshot struct {
	version int64
	byName  map[string]Definition
}

// BuildSnapshot validates the raw rows and assembles a snapshot.
func BuildSnapshot(version int64, definitions []Definition) (*Snapshot, error) {
	var violations []string

	s := &Snapshot{
		version: version,
		byName:  make(map[string]Definition, len(definitions)),
	}
	seenIDs := make(map[int64]struct{}, len(definitions))
	for _, def := range definitions {
		if !def.Live() {
			continue
		}
		if def.Name == "" {
			violations = append(violations, fmt.Sprintf("action %d has no name", def.ID))
			continue
		}
		if _, ok := seenIDs[def.ID]; ok {
			violations = append(violations, fmt.Sprintf("duplicate action id %d", def.ID))
			continue
		}
		if prev, ok := s.byName[def.Name]; ok {
			violations = append(violations, fmt.Sprintf("action name %q shared by ids %d and %d", def.Name, prev.ID, def.ID))
			continue
		}
		if def.Kind == "" {
			def.Kind = KindUnclassified
		}
		seenIDs[def.ID] = struct{}{}
		s.byName[def.Name] = def
	}

	if len(violations) > 0 {
		return nil, &LoadError{Violations: violations}
	}
	return s, nil
}

// Version identifies this snapshot.
func (s *Snapshot) Version() int64 {
	return s.version
}

// Registry holds the current action snapshot. Populated at bootstrap and
// read-only for the life of the process apart from administrative reloads.
type Registry struct {
	mu      sync.Mutex
	version int64
	current atomic.Pointer[Snapshot]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Lookup returns the live definition for a name.
func (reg *Registry) Lookup(name string) (Definition, error) {
	snap := reg.current.Load()
	if snap == nil {
		return Definition{}, ErrNotLoaded
	}
	def, ok := snap.byName[name]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return def, nil
}

// NextVersion reserves the version number for a snapshot under construction.
func (reg *Registry) NextVersion() int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.version + 1
}

// Swap installs a fully built snapshot as the live one.
func (reg *Registry) Swap(snap *Snapshot) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.version = snap.Version()
	reg.current.Store(snap)
}
