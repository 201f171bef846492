// Package frontier provides the crawl frontier: the deduplicating work queue
// that mediates between workers discovering new links and workers fetching
// the next URL.
package frontier

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Frontier holds the URLs pending a fetch together with the set of every URL
// ever admitted. Both collections live behind a single mutex: the
// check-seen/insert-seen/append-pending sequence must be one atomic step, or
// two concurrent pushes of the same URL could each observe it as unseen and
// enqueue it twice.
//
// Take is LIFO: the most recently discovered URL is crawled next. Depth-first
// expansion keeps the pending list small on wide sites and needs no second
// index for a queue head.
type Frontier struct {
	mu      sync.Mutex
	pending []string
	filter  *bloom.BloomFilter
	seen    map[string]struct{}
	wake    func()
}

// defaultEstimate sizes the bloom filter for a typical crawl.
const defaultEstimate = 100000

// New creates a frontier seeded with any number of starting URLs. Seeds are
// admitted through the same dedup path as pushed URLs.
func New(seeds ...string) *Frontier {
	f := &Frontier{
		pending: make([]string, 0, 64),
		filter:  bloom.NewWithEstimates(defaultEstimate, 0.001),
		seen:    make(map[string]struct{}),
	}
	f.Push(seeds...)
	return f
}

// SetWake registers a function invoked after a Push that admitted at least
// one URL. The worker pool uses it to rouse idle workers. The function is
// called outside the frontier's critical section.
func (f *Frontier) SetWake(wake func()) {
	f.mu.Lock()
	f.wake = wake
	f.mu.Unlock()
}

// Push admits each URL not yet seen: it is recorded in the seen set and
// appended to the pending list in input order. URLs already seen are dropped
// silently; pushing a duplicate is a no-op, not an error. Returns how many
// URLs were newly admitted.
func (f *Frontier) Push(urls ...string) int {
	if len(urls) == 0 {
		return 0
	}

	f.mu.Lock()
	added := 0
	for _, u := range urls {
		// The filter answers "definitely unseen" cheaply; the exact map
		// settles the false positives.
		if f.filter.TestString(u) {
			if _, dup := f.seen[u]; dup {
				continue
			}
		}
		f.filter.AddString(u)
		f.seen[u] = struct{}{}
		f.pending = append(f.pending, u)
		added++
	}
	wake := f.wake
	f.mu.Unlock()

	if added > 0 && wake != nil {
		wake()
	}
	return added
}

// Take removes and returns the most recently pushed pending URL. It never
// blocks: ok is false when the pending list is momentarily empty. An empty
// frontier does not mean the crawl is done; in-flight fetches may still push
// more URLs, so callers must pair Take with the pool's termination protocol.
func (f *Frontier) Take() (url string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.pending)
	if n == 0 {
		return "", false
	}
	url = f.pending[n-1]
	f.pending[n-1] = ""
	f.pending = f.pending[:n-1]

	if _, inSeen := f.seen[url]; !inSeen {
		// pending must always be a subset of seen. A queue that cannot
		// guarantee its own invariant has no recoverable meaning.
		panic(fmt.Sprintf("frontier: take critical section popped %q absent from seen set", url))
	}
	return url, true
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// SeenCount returns the number of distinct URLs ever admitted, including
// ones already taken.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// Has reports whether a URL has ever been admitted.
func (f *Frontier) Has(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[url]
	return ok
}
