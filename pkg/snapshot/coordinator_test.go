package snapshot

import (
	"errors"
	"sync"
	"testing"
)

func TestAcquireBeforePublish(t *testing.T) {
	c := NewCoordinator()

	if _, err := c.Acquire(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Acquire() error = %v, want ErrNoSnapshot", err)
	}
	if v := c.CurrentVersion(); v != 0 {
		t.Errorf("CurrentVersion() = %d, want 0", v)
	}
}

func TestRebuildPublishesMonotonicVersions(t *testing.T) {
	c := NewCoordinator()

	for want := uint64(1); want <= 3; want++ {
		got, err := c.Rebuild(func() (*Snapshot, error) {
			return &Snapshot{}, nil
		})
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if got != want {
			t.Errorf("Rebuild version = %d, want %d", got, want)
		}
		if v := c.CurrentVersion(); v != want {
			t.Errorf("CurrentVersion() = %d, want %d", v, want)
		}
	}

	snap, err := c.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer snap.Release()
	if snap.Version() != 3 {
		t.Errorf("acquired version = %d, want 3", snap.Version())
	}
}

func TestFailedRebuildKeepsOldSnapshot(t *testing.T) {
	c := NewCoordinator()

	if _, err := c.Rebuild(func() (*Snapshot, error) {
		return &Snapshot{}, nil
	}); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	stageErr := errors.New("bad catalog")
	if _, err := c.Rebuild(func() (*Snapshot, error) {
		return nil, stageErr
	}); !errors.Is(err, stageErr) {
		t.Fatalf("Rebuild error = %v, want staged error", err)
	}

	// The live snapshot and version are unchanged.
	if v := c.CurrentVersion(); v != 1 {
		t.Errorf("CurrentVersion() = %d, want 1", v)
	}
	snap, err := c.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed after failed rebuild: %v", err)
	}
	snap.Release()

	// The failed attempt did not consume a version number.
	v, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil })
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if v != 2 {
		t.Errorf("next version = %d, want 2", v)
	}
}

func TestSnapshotRetiresAfterLastRelease(t *testing.T) {
	c := NewCoordinator()

	var mu sync.Mutex
	var retired []uint64
	c.OnRetire = func(version uint64) {
		mu.Lock()
		retired = append(retired, version)
		mu.Unlock()
	}

	if _, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil }); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	// Pin version 1 as an in-flight query would.
	pinned, err := c.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Publishing version 2 drops the coordinator's reference to version 1,
	// but the pinned query keeps it alive.
	if _, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil }); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	mu.Lock()
	n := len(retired)
	mu.Unlock()
	if n != 0 {
		t.Fatalf("snapshot retired while still pinned: %v", retired)
	}

	pinned.Release()

	mu.Lock()
	defer mu.Unlock()
	if len(retired) != 1 || retired[0] != 1 {
		t.Errorf("retired = %v, want [1]", retired)
	}
}

func TestAcquiredSnapshotNeverRetiredWhileHeld(t *testing.T) {
	c := NewCoordinator()

	var mu sync.Mutex
	retired := make(map[uint64]bool)
	c.OnRetire = func(version uint64) {
		mu.Lock()
		retired[version] = true
		mu.Unlock()
	}

	if _, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil }); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	done := make(chan struct{})
	var readers sync.WaitGroup

	// Each successful Acquire must pin the snapshot: its retire hook may
	// not have fired and may not fire until the matching Release.
	for i := 0; i < 8; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap, err := c.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				v := snap.Version()
				mu.Lock()
				wasRetired := retired[v]
				mu.Unlock()
				if wasRetired {
					t.Errorf("acquired snapshot version %d after it retired", v)
				}
				snap.Release()
			}
		}()
	}

	// Rebuild as fast as possible so pointer swaps race the readers'
	// load-then-increment in Acquire.
	for i := 0; i < 500; i++ {
		if _, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil }); err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
	}

	close(done)
	readers.Wait()
}

func TestConcurrentAcquireDuringRebuilds(t *testing.T) {
	c := NewCoordinator()
	if _, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil }); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	done := make(chan struct{})
	var readers, writers sync.WaitGroup

	// Readers acquire and release continuously.
	for i := 0; i < 8; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap, err := c.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				if snap.Version() == 0 {
					t.Error("acquired snapshot with zero version")
				}
				snap.Release()
			}
		}()
	}

	// Writers rebuild concurrently; versions must come out strictly
	// increasing because rebuilds are serialized.
	var mu sync.Mutex
	var versions []uint64
	for i := 0; i < 4; i++ {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for j := 0; j < 25; j++ {
				v, err := c.Rebuild(func() (*Snapshot, error) { return &Snapshot{}, nil })
				if err != nil {
					t.Errorf("Rebuild failed: %v", err)
					return
				}
				mu.Lock()
				versions = append(versions, v)
				mu.Unlock()
			}
		}()
	}

	writers.Wait()
	close(done)
	readers.Wait()

	seen := make(map[uint64]bool, len(versions))
	for _, v := range versions {
		if seen[v] {
			t.Fatalf("version %d issued twice", v)
		}
		seen[v] = true
	}
	if c.CurrentVersion() != 101 {
		t.Errorf("final version = %d, want 101", c.CurrentVersion())
	}
}
