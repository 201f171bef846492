// Package crawler implements a breadth-expanding web crawler built
// around a shared, deduplicating crawl frontier.
package crawler

import (
	"time"
)

// Stats contains counters for a crawl session.
type Stats struct {
	URLsDiscovered int64         `json:"urls_discovered"`
	PagesCrawled   int64         `json:"pages_crawled"`
	URLsRejected   int64         `json:"urls_rejected"`
	ErrorCount     int64         `json:"error_count"`
	BytesFetched   int64         `json:"bytes_fetched"`
	Duration       time.Duration `json:"duration"`
}

// Result is the outcome of a completed crawl.
type Result struct {
	StartURL    string    `json:"start_url"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Stats       Stats     `json:"stats"`
	Cancelled   bool      `json:"cancelled"`
}
