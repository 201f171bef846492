package crawler

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/websweep/websweep/internal/admission"
	errs "github.com/websweep/websweep/internal/errors"
	"github.com/websweep/websweep/internal/fetch"
	"github.com/websweep/websweep/internal/frontier"
	"github.com/websweep/websweep/internal/logger"
	"github.com/websweep/websweep/internal/metrics"
	"github.com/websweep/websweep/internal/output"
	"github.com/websweep/websweep/internal/parser"
	"github.com/websweep/websweep/internal/progress"
	"github.com/websweep/websweep/internal/ratelimit"
)

// Fetcher downloads one page. The crawl engine only needs this much of
// the HTTP client, which keeps it swappable in tests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// clientFetcher adapts fetch.Client to the Fetcher interface.
type clientFetcher struct {
	client *fetch.Client
	retry  bool
}

func (f *clientFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	if f.retry {
		return f.client.GetWithRetry(ctx, url)
	}
	return f.client.Get(ctx, url)
}

// Crawler expands outward from a start URL through a shared frontier.
type Crawler struct {
	config *Config

	frontier *frontier.Frontier
	policy   admission.Policy
	limiter  *ratelimit.Limiter
	robots   *ratelimit.RobotsManager
	fetcher  Fetcher
	writer   output.Writer
	logger   *logger.Logger
	metrics  *metrics.Collector

	outputWriter io.Writer
	outputFile   *os.File
	seedSite     string

	progress     *progress.Display
	showProgress bool

	running   atomic.Bool
	cancel    context.CancelFunc
	startTime time.Time

	mu     sync.Mutex
	pages  []output.PageRecord
	errors []output.ErrorRecord
}

// New creates a crawler with the given options.
func New(opts ...Option) (*Crawler, error) {
	c := &Crawler{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.logger == nil {
		logLevel := logger.InfoLevel
		if c.config.Debug {
			logLevel = logger.DebugLevel
		} else if !c.config.Verbose {
			logLevel = logger.WarnLevel
		}
		c.logger = logger.New(logger.Config{
			Level:     logLevel,
			Pretty:    true,
			Component: "crawler",
		})
	}

	if c.metrics == nil {
		c.metrics = metrics.New()
	}

	return c, nil
}

// initialize wires up all components for a run.
func (c *Crawler) initialize() error {
	policy, err := admission.NewPatternPolicy(c.config.AllowURLs, c.config.DisallowURLs)
	if err != nil {
		return err
	}
	c.policy = policy

	seed, err := admission.Normalize(c.config.StartURL)
	if err != nil {
		return errs.NewConfigError("start_url", err.Error())
	}
	c.frontier = frontier.New(seed)

	c.limiter = ratelimit.NewLimiter(c.config.RateLimit, c.config.RateBurst)
	if c.config.HostRateLimit > 0 {
		burst := c.config.HostRateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter.LimitPerHost(c.config.HostRateLimit, burst)
	}

	if c.config.SameSiteOnly {
		site, err := admission.RegistrableDomain(seed)
		if err != nil {
			return errs.NewConfigError("start_url", err.Error())
		}
		c.seedSite = site
	}

	if c.config.RespectRobots {
		c.robots = ratelimit.NewRobotsManager(c.config.UserAgent)
	}

	if c.fetcher == nil {
		client := fetch.NewClient(fetch.Config{
			Timeout:   c.config.Timeout,
			UserAgent: c.config.UserAgent,
			Headers:   c.config.CustomHeaders,
		})
		c.fetcher = &clientFetcher{client: client, retry: c.config.RetryTransient}
	}

	if c.writer == nil {
		out := c.outputWriter
		if out == nil {
			if c.config.Output.FilePath != "" {
				f, err := os.Create(c.config.Output.FilePath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				c.outputFile = f
				out = f
			} else {
				out = os.Stdout
			}
		}
		c.writer = output.NewWriter(out, output.Config{
			Format: c.config.Output.Format,
			Pretty: c.config.Output.Pretty,
			Stream: c.config.Output.StreamMode,
		})
	}

	if c.showProgress && c.progress == nil {
		c.progress = progress.New()
	}

	return nil
}

// Run crawls from the start URL until the frontier drains or ctx is
// cancelled, then writes the result.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("crawler is already running")
	}
	defer c.running.Store(false)

	if err := c.initialize(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	c.startTime = time.Now()
	c.logger.WithURL(c.config.StartURL).Infof("starting crawl with %d workers", c.config.Workers)

	coord := newCoordinator(c.config.Workers, c.frontier)
	coord.watchCancel(ctx)

	if c.progress != nil {
		c.progress.Start(c.config.StartURL)
	}

	updaterDone := make(chan struct{})
	go c.statsUpdater(ctx, coord, updaterDone)

	var wg sync.WaitGroup
	for i := 0; i < c.config.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id, coord)
		}(i)
	}

	wg.Wait()
	cancel()
	<-updaterDone

	if c.progress != nil {
		c.progress.Stop()
	}

	result := c.buildResult(ctx, coord)
	if err := c.writeOutput(result); err != nil {
		c.logger.WithError(err).Error("failed to write crawl output")
	}

	if c.progress != nil {
		c.progress.PrintSummary()
	}

	c.logger.Infof("crawl finished: %d pages in %v", result.Stats.PagesCrawled, result.Stats.Duration)
	return result, nil
}

// Stop cancels a running crawl.
func (c *Crawler) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// IsRunning reports whether a crawl is in progress.
func (c *Crawler) IsRunning() bool {
	return c.running.Load()
}

// Stats returns a snapshot of the current counters.
func (c *Crawler) Stats() Stats {
	snap := c.metrics.Snapshot()
	return Stats{
		URLsDiscovered: snap.URLsDiscovered,
		PagesCrawled:   snap.PagesCrawled,
		URLsRejected:   snap.URLsRejected,
		ErrorCount:     snap.ErrorsTotal,
		BytesFetched:   snap.BytesTotal,
		Duration:       time.Since(c.startTime),
	}
}

// worker pulls URLs from the coordinator until the crawl ends.
func (c *Crawler) worker(ctx context.Context, id int, coord *coordinator) {
	log := c.logger.WithWorker(id)

	for {
		url, ok := coord.next()
		if !ok {
			return
		}
		c.crawlOne(ctx, log, url)
		coord.release()
	}
}

// crawlOne fetches a single URL and pushes its admitted links.
func (c *Crawler) crawlOne(ctx context.Context, log *logger.Logger, rawURL string) {
	// One rate acquire per fetched URL. WaitHost takes the global token
	// and, when per-host limiting is on, the host's token as well.
	host, _ := admission.Host(rawURL)
	if err := c.limiter.WaitHost(ctx, host); err != nil {
		return
	}

	if ctx.Err() != nil {
		return
	}

	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		log.WithURL(rawURL).Debug("blocked by robots.txt")
		c.metrics.RecordURLsRejected(1)
		return
	}

	c.metrics.RecordRequest()
	result, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		c.recordError(rawURL, err)
		log.WithURL(rawURL).WithError(err).Debug("fetch failed")
		if result != nil && result.StatusCode != 0 {
			c.metrics.RecordStatusCode(result.StatusCode)
		}
		return
	}

	c.metrics.RecordStatusCode(result.StatusCode)
	c.metrics.RecordPageCrawled()
	c.metrics.RecordBytes(result.Bytes)
	c.metrics.RecordResponseTime(result.Duration)
	log.FetchEvent(rawURL, result.StatusCode, len(result.Links), result.Duration)

	c.recordPage(rawURL, result)

	if c.config.MaxPages > 0 && c.metrics.Snapshot().PagesCrawled >= c.config.MaxPages {
		c.cancel()
		return
	}

	// Cancellation can race link extraction; admitted but unpushed
	// links are dropped on the floor rather than enqueued dead.
	if ctx.Err() != nil {
		return
	}

	admitted := c.admitLinks(result.Links)
	if len(admitted) > 0 {
		if added := c.frontier.Push(admitted...); added > 0 {
			c.metrics.RecordURLsDiscovered(added)
		}
	}
}

// admitLinks normalizes candidate links and filters them through the
// admission policy.
func (c *Crawler) admitLinks(links []string) []string {
	admitted := make([]string, 0, len(links))
	rejected := 0

	for _, link := range links {
		normalized, err := admission.Normalize(link)
		if err != nil || !admission.IsCrawlable(normalized) {
			rejected++
			continue
		}
		if !c.policy.Admit(normalized) {
			rejected++
			continue
		}
		if c.seedSite != "" {
			site, err := admission.RegistrableDomain(normalized)
			if err != nil || site != c.seedSite {
				rejected++
				continue
			}
		}
		admitted = append(admitted, normalized)
	}

	if rejected > 0 {
		c.metrics.RecordURLsRejected(rejected)
	}
	return admitted
}

func (c *Crawler) recordPage(rawURL string, result *fetch.Result) {
	record := output.PageRecord{
		URL:        rawURL,
		FinalURL:   result.FinalURL,
		StatusCode: result.StatusCode,
		Title:      result.Title,
		Links:      result.Links,
		Bytes:      result.Bytes,
		Duration:   result.Duration,
		FetchedAt:  time.Now(),
	}

	// Verbose runs enrich records with page metadata from a full parse.
	if c.config.Verbose && result.HTML != "" {
		if p, err := parser.NewPageParser(result.FinalURL); err == nil {
			if page, err := p.Parse(result.HTML); err == nil {
				record.Description = page.Description
				record.FormCount = page.FormCount
				if record.Title == "" {
					record.Title = page.Title
				}
			}
		}
	}

	if c.config.Output.StreamMode {
		if err := c.writer.WritePage(&record); err != nil {
			c.logger.WithError(err).Warn("failed to stream page record")
		}
		return
	}

	c.mu.Lock()
	c.pages = append(c.pages, record)
	c.mu.Unlock()
}

func (c *Crawler) recordError(rawURL string, err error) {
	c.metrics.RecordError()

	record := output.ErrorRecord{
		URL:       rawURL,
		Type:      errs.GetErrorType(err).String(),
		Message:   err.Error(),
		Timestamp: time.Now(),
	}

	if c.config.Output.StreamMode {
		if werr := c.writer.WriteError(&record); werr != nil {
			c.logger.WithError(werr).Warn("failed to stream error record")
		}
		return
	}

	c.mu.Lock()
	c.errors = append(c.errors, record)
	c.mu.Unlock()
}

// statsUpdater refreshes gauges and the progress line while workers run.
func (c *Crawler) statsUpdater(ctx context.Context, coord *coordinator, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.metrics.SetQueueDepth(c.frontier.Len())
			c.metrics.SetIdleWorkers(coord.idleWorkers())

			if c.progress != nil {
				snap := c.metrics.Snapshot()
				c.progress.Update(
					snap.URLsDiscovered,
					snap.PagesCrawled,
					snap.URLsRejected,
					snap.ErrorsTotal,
					int64(c.frontier.Len()),
				)
			}
		}
	}
}

func (c *Crawler) buildResult(ctx context.Context, coord *coordinator) *Result {
	snap := c.metrics.Snapshot()
	now := time.Now()

	return &Result{
		StartURL:    c.config.StartURL,
		StartedAt:   c.startTime,
		CompletedAt: now,
		Cancelled:   ctx.Err() != nil && !coord.done(),
		Stats: Stats{
			URLsDiscovered: snap.URLsDiscovered,
			PagesCrawled:   snap.PagesCrawled,
			URLsRejected:   snap.URLsRejected,
			ErrorCount:     snap.ErrorsTotal,
			BytesFetched:   snap.BytesTotal,
			Duration:       now.Sub(c.startTime),
		},
	}
}

func (c *Crawler) writeOutput(result *Result) error {
	defer func() {
		c.writer.Flush()
		if c.outputFile != nil {
			c.outputFile.Close()
		}
	}()

	if c.config.Output.StreamMode {
		// Pages and errors were already streamed.
		return nil
	}

	c.mu.Lock()
	pages := c.pages
	errors := c.errors
	c.mu.Unlock()

	return c.writer.WriteResult(&output.CrawlResult{
		StartURL:    result.StartURL,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		Duration:    result.Stats.Duration,
		Statistics: output.Statistics{
			URLsDiscovered: result.Stats.URLsDiscovered,
			PagesCrawled:   result.Stats.PagesCrawled,
			URLsRejected:   result.Stats.URLsRejected,
			Errors:         result.Stats.ErrorCount,
			BytesFetched:   result.Stats.BytesFetched,
		},
		Pages:  pages,
		Errors: errors,
	})
}
