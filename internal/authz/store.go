package authz

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// ErrNotLoaded is returned for queries made before the first successful load.
// It wraps httpx.ErrUnavailable so transport code answers 503 until bootstrap.
var ErrNotLoaded = fmt.Errorf("authz: catalog not loaded: %w", httpx.ErrUnavailable)

// Store holds the current catalog snapshot. Readers take a plain atomic
// pointer load; only Swap writes, serialized by a mutex so concurrent reloads
// cannot interleave version assignment.
type Store struct {
	mu      sync.Mutex
	version int64
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store; queries fail with ErrNotLoaded until the
// first Swap.
func NewStore() *Store {
	return &Store{}
}

// Current returns the live snapshot, or ErrNotLoaded before bootstrap.
func (st *Store) Current() (*Snapshot, error) {
	snap := st.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// NextVersion reserves the version number for a snapshot under construction.
// The reservation is only consumed if the build succeeds and Swap commits.
func (st *Store) NextVersion() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.version + 1
}

// Swap installs a fully built snapshot as the live one. The previous snapshot
// stays valid for readers that already hold it.
func (st *Store) Swap(snap *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.version = snap.Version()
	st.current.Store(snap)
}
