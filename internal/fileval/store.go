package fileval

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// ErrNotLoaded is returned for queries made before the first successful load.
// It wraps httpx.ErrUnavailable so transport code answers 503 until bootstrap.
var ErrNotLoaded = fmt.Errorf("fileval: rules not loaded: %w", httpx.ErrUnavailable)

// Store holds the current rule snapshot behind an atomic pointer; only the
// reload path writes, under a mutex that serializes version assignment.
type Store struct {
	mu      sync.Mutex
	version int64
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
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
func (st *Store) NextVersion() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.version + 1
}

// Swap installs a fully built snapshot as the live one.
func (st *Store) Swap(snap *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.version = snap.Version()
	st.current.Store(snap)
}
