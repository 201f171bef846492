package crawler

import (
	"context"
	"sync"

	"github.com/websweep/websweep/internal/frontier"
)

// coordinator hands frontier URLs to workers and decides when the
// crawl is over. The crawl is finished exactly when the frontier is
// empty, no fetch is in flight, and every worker is waiting here.
type coordinator struct {
	mu   sync.Mutex
	cond *sync.Cond

	frontier *frontier.Frontier
	workers  int

	waiting  int
	inflight int

	finished  bool
	cancelled bool
}

func newCoordinator(workers int, f *frontier.Frontier) *coordinator {
	c := &coordinator{
		frontier: f,
		workers:  workers,
	}
	c.cond = sync.NewCond(&c.mu)
	f.SetWake(c.wake)
	return c
}

// wake is installed as the frontier's push hook so idle workers notice
// new URLs.
func (c *coordinator) wake() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// watchCancel wakes all waiters once ctx is cancelled. The mutex must
// be held across the broadcast or a worker checking cancelled just
// before Wait would sleep through it.
func (c *coordinator) watchCancel(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.cancelled = true
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
}

// next returns the next URL to crawl, blocking while the frontier is
// empty but other workers may still discover more. Returns false when
// the worker should exit, either because the crawl completed or was
// cancelled. A true return means the caller holds an in-flight slot
// and must call release when done with the URL.
func (c *coordinator) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.cancelled || c.finished {
			return "", false
		}

		if url, ok := c.frontier.Take(); ok {
			c.inflight++
			return url, true
		}

		// Frontier is empty. If every other worker is already waiting
		// and nothing is in flight, no new URL can ever appear.
		if c.waiting+1 == c.workers && c.inflight == 0 {
			c.finished = true
			c.cond.Broadcast()
			return "", false
		}

		c.waiting++
		c.cond.Wait()
		c.waiting--
	}
}

// release marks an in-flight URL as fully processed, links pushed and
// all. Dropping the last in-flight count can complete the crawl, so
// waiters are woken to re-check.
func (c *coordinator) release() {
	c.mu.Lock()
	c.inflight--
	if c.inflight == 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// idleWorkers reports how many workers are parked waiting for work.
func (c *coordinator) idleWorkers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// done reports whether the crawl reached its natural end.
func (c *coordinator) done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}
