// Package metrics provides metrics collection for the crawler.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates crawl metrics. All recording methods are
// safe for concurrent use by workers.
type Collector struct {
	// Counters
	requestsTotal  atomic.Int64
	errorsTotal    atomic.Int64
	pagesCrawled   atomic.Int64
	urlsDiscovered atomic.Int64
	urlsRejected   atomic.Int64
	bytesTotal     atomic.Int64

	// Gauges
	queueDepth  atomic.Int64
	idleWorkers atomic.Int64

	// Response time tracking
	responseTimeSum atomic.Int64
	responseTimeNum atomic.Int64

	// Status code breakdown
	statusMu    sync.RWMutex
	statusCodes map[int]*atomic.Int64

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		statusCodes: make(map[int]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordRequest records an attempted fetch.
func (c *Collector) RecordRequest() {
	c.requestsTotal.Add(1)
}

// RecordError records a failed fetch.
func (c *Collector) RecordError() {
	c.errorsTotal.Add(1)
}

// RecordPageCrawled records a completed page.
func (c *Collector) RecordPageCrawled() {
	c.pagesCrawled.Add(1)
}

// RecordURLsDiscovered records admitted URLs.
func (c *Collector) RecordURLsDiscovered(n int) {
	c.urlsDiscovered.Add(int64(n))
}

// RecordURLsRejected records URLs rejected by the admission policy.
func (c *Collector) RecordURLsRejected(n int) {
	c.urlsRejected.Add(int64(n))
}

// RecordBytes records transferred bytes.
func (c *Collector) RecordBytes(n int64) {
	c.bytesTotal.Add(n)
}

// RecordResponseTime records a fetch duration.
func (c *Collector) RecordResponseTime(d time.Duration) {
	c.responseTimeSum.Add(int64(d))
	c.responseTimeNum.Add(1)
}

// RecordStatusCode records an HTTP status code.
func (c *Collector) RecordStatusCode(code int) {
	c.statusMu.RLock()
	counter, ok := c.statusCodes[code]
	c.statusMu.RUnlock()

	if !ok {
		c.statusMu.Lock()
		counter, ok = c.statusCodes[code]
		if !ok {
			counter = &atomic.Int64{}
			c.statusCodes[code] = counter
		}
		c.statusMu.Unlock()
	}
	counter.Add(1)
}

// SetQueueDepth updates the frontier depth gauge.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Store(int64(n))
}

// SetIdleWorkers updates the idle worker gauge.
func (c *Collector) SetIdleWorkers(n int) {
	c.idleWorkers.Store(int64(n))
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	RequestsTotal   int64         `json:"requests_total"`
	ErrorsTotal     int64         `json:"errors_total"`
	PagesCrawled    int64         `json:"pages_crawled"`
	URLsDiscovered  int64         `json:"urls_discovered"`
	URLsRejected    int64         `json:"urls_rejected"`
	BytesTotal      int64         `json:"bytes_total"`
	QueueDepth      int64         `json:"queue_depth"`
	IdleWorkers     int64         `json:"idle_workers"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	StatusCodes     map[int]int64 `json:"status_codes"`
	Uptime          time.Duration `json:"uptime"`
}

// Snapshot returns a consistent view of the collected metrics.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		RequestsTotal:  c.requestsTotal.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
		PagesCrawled:   c.pagesCrawled.Load(),
		URLsDiscovered: c.urlsDiscovered.Load(),
		URLsRejected:   c.urlsRejected.Load(),
		BytesTotal:     c.bytesTotal.Load(),
		QueueDepth:     c.queueDepth.Load(),
		IdleWorkers:    c.idleWorkers.Load(),
		StatusCodes:    make(map[int]int64),
		Uptime:         time.Since(c.startTime),
	}

	if n := c.responseTimeNum.Load(); n > 0 {
		s.AvgResponseTime = time.Duration(c.responseTimeSum.Load() / n)
	}

	c.statusMu.RLock()
	for code, counter := range c.statusCodes {
		s.StatusCodes[code] = counter.Load()
	}
	c.statusMu.RUnlock()

	return s
}

// CrawlRate returns pages crawled per second since collector creation.
func (c *Collector) CrawlRate() float64 {
	elapsed := time.Since(c.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.pagesCrawled.Load()) / elapsed
}
