package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/storage"
)

// Catalog holds the live Snapshot and supervises rebuilding it in response
// to /reload requests (spec.md §4.7). Readers call Current() and never see
// a partially built Snapshot: the pointer only ever advances from one
// complete build to the next.
type Catalog struct {
	loader  *Loader
	backend storage.Backend

	current atomic.Pointer[Snapshot]

	inFlight int32 // 0 or 1, guarded by atomic.CompareAndSwap

	mu          sync.Mutex
	lastErr     error
	lastReload  time.Time
	reloadCount uint64

	// OnReloadStarted/OnReloadFailed/OnReloadCompleted, when set, are
	// called around each reload attempt. Wired to the stats Collector from
	// cmd/bananasrv/main.go the same way cdn.Pool.OnHealthyCount is.
	OnReloadStarted   func()
	OnReloadFailed    func()
	OnReloadCompleted func()
}

func New(loader *Loader, backend storage.Backend) *Catalog {
	c := &Catalog{loader: loader, backend: backend}
	c.current.Store(Empty())
	return c
}

// Current returns the snapshot in effect right now. Safe for concurrent use
// by any number of readers; never blocks on a reload in progress.
func (c *Catalog) Current() *Snapshot { return c.current.Load() }

// Reload triggers a rebuild. If one is already running, it returns
// immediately without starting a second (spec.md §4.7 "single in-flight
// reload"). The rebuild runs in the background; callers that need to know
// the outcome can poll Status, or simply rely on Current.
func (c *Catalog) Reload(ctx context.Context) (started bool) {
	if !atomic.CompareAndSwapInt32(&c.inFlight, 0, 1) {
		nlog.Warningln("catalog: reload requested while one is already running, ignoring")
		return false
	}

	go func() {
		defer atomic.StoreInt32(&c.inFlight, 0)
		c.runReload(ctx)
	}()
	return true
}

// runReload does the actual rebuild: clear the backend's caches, build a
// fresh snapshot in this goroutine (spec.md's "isolated worker" requirement
// is satisfied by running the build off the request-handling goroutine, not
// by a separate process — see the design notes on worker isolation), and
// swap the pointer only on success.
func (c *Catalog) runReload(ctx context.Context) {
	if c.OnReloadStarted != nil {
		c.OnReloadStarted()
	}

	start := time.Now()
	c.backend.ClearCache()

	snap, err := c.loader.Load(ctx)

	c.mu.Lock()
	c.lastReload = time.Now()
	c.lastErr = err
	if err == nil {
		c.reloadCount++
	}
	c.mu.Unlock()

	if err != nil {
		nlog.Errorf("catalog: reload failed after %s, keeping previous snapshot: %v", time.Since(start), err)
		if c.OnReloadFailed != nil {
			c.OnReloadFailed()
		}
		return
	}

	c.current.Store(snap)
	nlog.Infof("catalog: reload complete in %s, %d entries", time.Since(start), snap.Len())
	if c.OnReloadCompleted != nil {
		c.OnReloadCompleted()
	}
}

// Status reports the outcome of the most recent reload attempt.
func (c *Catalog) Status() (lastReload time.Time, lastErr error, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReload, c.lastErr, c.reloadCount
}

func (c *Catalog) String() string {
	lastReload, lastErr, count := c.Status()
	if lastErr != nil {
		return fmt.Sprintf("catalog: %d entries, %d reloads, last reload at %s failed: %v",
			c.Current().Len(), count, lastReload.Format(time.RFC3339), lastErr)
	}
	return fmt.Sprintf("catalog: %d entries, %d reloads, last reload at %s",
		c.Current().Len(), count, lastReload.Format(time.RFC3339))
}
