package snapshot

import (
	"errors"
	"sync"
	"sync/atomic"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/graph"
	"regula-hq/regula/pkg/search"
)

// ErrNoSnapshot indicates that no snapshot has been published yet.
var ErrNoSnapshot = errors.New("no snapshot published")

// Snapshot is one immutable, versioned bundle of graph, index, evaluators and
// data elements. All fields are read-only after publish.
type Snapshot struct {
	Graph      *graph.Resolved
	Index      *search.Index
	Evaluators map[string]catalog.ConditionFunc
	Elements   []catalog.DataElement

	version  uint64
	refs     atomic.Int64
	retire   sync.Once
	onRetire func()
}

// Version returns the snapshot's monotonic version number.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Release drops one reference. When the last reference is gone the snapshot
// is retired; using it afterwards is a bug.
func (s *Snapshot) Release() {
	if s.refs.Add(-1) == 0 {
		s.retire.Do(func() {
			if s.onRetire != nil {
				s.onRetire()
			}
		})
	}
}

// Coordinator holds the currently published snapshot behind an atomically
// swapped pointer and serializes rebuilds.
type Coordinator struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	// rebuildMu serializes writers; readers never take it.
	rebuildMu sync.Mutex

	// OnRetire, if set before the first Rebuild, is invoked once per
	// snapshot after its last reference is released.
	OnRetire func(version uint64)
}

// NewCoordinator returns a coordinator with no published snapshot.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Acquire returns the current snapshot with an extra reference, or an error
// when nothing has been published. Callers must Release the snapshot when
// the query completes.
func (c *Coordinator) Acquire() (*Snapshot, error) {
	for {
		s := c.current.Load()
		if s == nil {
			return nil, ErrNoSnapshot
		}
		s.refs.Add(1)
		// A rebuild may have swapped the pointer and dropped its reference
		// between the load and the increment, in which case this snapshot
		// may already be retired. Re-check and retry on a fresh pointer.
		if c.current.Load() == s {
			return s, nil
		}
		s.Release()
	}
}

// CurrentVersion returns the version of the published snapshot, or zero when
// none has been published.
func (c *Coordinator) CurrentVersion() uint64 {
	if s := c.current.Load(); s != nil {
		return s.version
	}
	return 0
}

// Rebuild stages a new snapshot and publishes it atomically.
//
// The stage function runs fully (builder, resolver, index) before anything is
// published; if it fails, the error is returned and the live snapshot is
// unchanged. On success the version counter is bumped, the pointer is
// swapped, and the superseded snapshot loses the coordinator's reference so
// it retires once in-flight queries finish. Concurrent Rebuild calls are
// serialized; reads are never blocked by a rebuild in progress.
func (c *Coordinator) Rebuild(stage func() (*Snapshot, error)) (uint64, error) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	next, err := stage()
	if err != nil {
		return 0, err
	}

	next.version = c.version.Add(1)
	next.refs.Store(1) // the coordinator's own reference
	if c.OnRetire != nil {
		v := next.version
		next.onRetire = func() { c.OnRetire(v) }
	}

	if old := c.current.Swap(next); old != nil {
		old.Release()
	}
	return next.version, nil
}
