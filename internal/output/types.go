package output

import (
	"time"
)

// PageRecord is one crawled page in the output.
type PageRecord struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"final_url,omitempty"`
	StatusCode  int           `json:"status_code"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Links       []string      `json:"links,omitempty"`
	FormCount   int           `json:"form_count,omitempty"`
	Bytes       int64         `json:"bytes"`
	Duration    time.Duration `json:"duration_ns"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// ErrorRecord is one failed fetch in the output.
type ErrorRecord struct {
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Statistics summarizes a finished crawl.
type Statistics struct {
	URLsDiscovered int64 `json:"urls_discovered"`
	PagesCrawled   int64 `json:"pages_crawled"`
	URLsRejected   int64 `json:"urls_rejected"`
	Errors         int64 `json:"errors"`
	BytesFetched   int64 `json:"bytes_fetched"`
}

// CrawlResult is the complete output of one crawl.
type CrawlResult struct {
	StartURL    string        `json:"start_url"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
	Statistics  Statistics    `json:"statistics"`
	Pages       []PageRecord  `json:"pages,omitempty"`
	Errors      []ErrorRecord `json:"errors,omitempty"`
}
