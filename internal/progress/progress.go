// Package progress renders a live status line for a running crawl.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Display manages the status line shown while crawling.
type Display struct {
	mu      sync.Mutex
	started bool
	stopped bool
	out     io.Writer

	urlsDiscovered atomic.Int64
	pagesCrawled   atomic.Int64
	urlsRejected   atomic.Int64
	errors         atomic.Int64
	queueDepth     atomic.Int64

	startTime time.Time
	target    string

	lastLine string
}

// New creates a display writing to stderr.
func New() *Display {
	return &Display{out: os.Stderr}
}

// NewWithWriter creates a display writing to w.
func NewWithWriter(w io.Writer) *Display {
	return &Display{out: w}
}

// Start begins the display for the given start URL.
func (d *Display) Start(target string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}

	d.started = true
	d.startTime = time.Now()
	d.target = target
}

// Update redraws the status line with current counts.
func (d *Display) Update(urlsDiscovered, pagesCrawled, urlsRejected, errors, queueDepth int64) {
	d.urlsDiscovered.Store(urlsDiscovered)
	d.pagesCrawled.Store(pagesCrawled)
	d.urlsRejected.Store(urlsRejected)
	d.errors.Store(errors)
	d.queueDepth.Store(queueDepth)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.stopped {
		return
	}

	total := urlsDiscovered
	if total == 0 {
		total = 1
	}

	progress := int64(0)
	if queueDepth == 0 && pagesCrawled > 0 {
		progress = 100
	} else {
		progress = pagesCrawled * 100 / total
		if progress > 99 {
			progress = 99
		}
	}

	elapsed := time.Since(d.startTime)
	speed := float64(0)
	if elapsed.Seconds() > 0 {
		speed = float64(pagesCrawled) / elapsed.Seconds()
	}

	barWidth := 30
	filled := int(progress) * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %3d%% | Pages: %d | Frontier: %d | Errors: %d | %.1f p/s | %s",
		bar, progress, pagesCrawled, queueDepth, errors, speed, formatDuration(elapsed))

	if len(line) < len(d.lastLine) {
		fmt.Fprint(d.out, "\r"+strings.Repeat(" ", len(d.lastLine)))
	}
	fmt.Fprint(d.out, line)
	d.lastLine = line
}

// Stop ends the display and moves past the status line.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.started {
		return
	}

	d.stopped = true
	fmt.Fprintln(d.out)
}

// PrintSummary prints final crawl statistics.
func (d *Display) PrintSummary() {
	duration := time.Since(d.startTime)

	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "Crawl complete")
	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "  Start URL:       %s\n", truncateURL(d.target, 60))
	fmt.Fprintf(d.out, "  Duration:        %s\n", formatDuration(duration))
	fmt.Fprintf(d.out, "  URLs discovered: %d\n", d.urlsDiscovered.Load())
	fmt.Fprintf(d.out, "  Pages crawled:   %d\n", d.pagesCrawled.Load())
	fmt.Fprintf(d.out, "  URLs rejected:   %d\n", d.urlsRejected.Load())
	fmt.Fprintf(d.out, "  Errors:          %d\n", d.errors.Load())

	if duration.Seconds() > 0 {
		fmt.Fprintf(d.out, "  Average speed:   %.1f pages/sec\n", float64(d.pagesCrawled.Load())/duration.Seconds())
	}
	fmt.Fprintln(d.out)
}

// Stats returns the last reported counts.
func (d *Display) Stats() (urlsDiscovered, pagesCrawled, urlsRejected, errors int64) {
	return d.urlsDiscovered.Load(),
		d.pagesCrawled.Load(),
		d.urlsRejected.Load(),
		d.errors.Load()
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
