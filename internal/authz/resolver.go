package authz

import (
	"errors"
	"sync"
)

// CacheMetrics receives resolver cache outcomes. Implemented by the
// observability package; nil disables reporting.
type CacheMetrics interface {
	ResolverCacheHit()
	ResolverCacheMiss()
}

// Resolver answers "which permissions does this role hold" against whatever
// snapshot is live in the store. Resolved sets are cached per (role, snapshot
// version); a snapshot swap invalidates the cache wholesale. Concurrent
// first-access for the same role may compute the set twice, which is
// harmless: the computation is pure and both results are identical.
type Resolver struct {
	store   *Store
	metrics CacheMetrics

	mu      sync.RWMutex
	version int64
	cache   map[int64]map[string]struct{}
}

// NewResolver constructs a resolver bound to the given store.
func NewResolver(store *Store, metrics CacheMetrics) *Resolver {
	return &Resolver{
		store:   store,
		metrics: metrics,
		cache:   make(map[int64]map[string]struct{}),
	}
}

// Resolve returns the effective permission name set for a role. The returned
// map is shared with the cache and must not be mutated by callers.
func (r *Resolver) Resolve(roleID int64) (map[string]struct{}, error) {
	snap, err := r.store.Current()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.version == snap.Version() {
		if granted, ok := r.cache[roleID]; ok {
			r.mu.RUnlock()
			if r.metrics != nil {
				r.metrics.ResolverCacheHit()
			}
			return granted, nil
		}
	}
	r.mu.RUnlock()

	if r.metrics != nil {
		r.metrics.ResolverCacheMiss()
	}
	granted, err := snap.effectivePermissions(roleID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.version != snap.Version() {
		// A swap happened since the last store; every cached set belongs to
		// a dead snapshot.
		r.version = snap.Version()
		r.cache = make(map[int64]map[string]struct{})
	}
	r.cache[roleID] = granted
	r.mu.Unlock()

	return granted, nil
}

// Has reports whether the role holds the named permission.
func (r *Resolver) Has(roleID int64, permission string) (bool, error) {
	granted, err := r.Resolve(roleID)
	if err != nil {
		return false, err
	}
	_, ok := granted[permission]
	return ok, nil
}

// HasAny reports whether any of the actor's roles holds the named permission.
// The multi-role merge is a plain union of grants; there is no deny override.
// Unknown roles contribute nothing rather than failing the whole check, so a
// denial never reveals whether a role exists.
func (r *Resolver) HasAny(roleIDs []int64, permission string) (bool, error) {
	for _, roleID := range roleIDs {
		ok, err := r.Has(roleID, permission)
		if err != nil {
			if errors.Is(err, ErrUnknownRole) {
				continue
			}
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
