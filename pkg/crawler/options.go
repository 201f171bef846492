package crawler

import (
	"io"
	"time"

	"github.com/websweep/websweep/internal/logger"
	"github.com/websweep/websweep/internal/metrics"
	"github.com/websweep/websweep/internal/progress"
)

// Option is a functional option for configuring the Crawler.
type Option func(*Crawler) error

// WithStartURL sets the URL the crawl starts from.
func WithStartURL(url string) Option {
	return func(c *Crawler) error {
		c.config.StartURL = url
		return nil
	}
}

// WithAllowURLs adds patterns a URL must match to be admitted.
func WithAllowURLs(patterns ...string) Option {
	return func(c *Crawler) error {
		c.config.AllowURLs = append(c.config.AllowURLs, patterns...)
		return nil
	}
}

// WithDisallowURLs adds patterns that exclude a URL even when allowed.
func WithDisallowURLs(patterns ...string) Option {
	return func(c *Crawler) error {
		c.config.DisallowURLs = append(c.config.DisallowURLs, patterns...)
		return nil
	}
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.config.Workers = n
		return nil
	}
}

// WithRateLimit sets the global requests-per-second budget.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Crawler) error {
		c.config.RateLimit = rps
		c.config.RateBurst = burst
		return nil
	}
}

// WithHostRateLimit additionally caps each host at rps requests per second,
// on top of the global budget. A zero rps disables per-host limiting.
func WithHostRateLimit(rps float64, burst int) Option {
	return func(c *Crawler) error {
		c.config.HostRateLimit = rps
		c.config.HostRateBurst = burst
		return nil
	}
}

// WithSameSiteOnly restricts the crawl to the start URL's registrable domain.
func WithSameSiteOnly(sameSite bool) Option {
	return func(c *Crawler) error {
		c.config.SameSiteOnly = sameSite
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Crawler) error {
		c.config.Timeout = timeout
		return nil
	}
}

// WithUserAgent sets the user agent string.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) error {
		c.config.UserAgent = ua
		return nil
	}
}

// WithMaxPages stops the crawl after n pages.
func WithMaxPages(n int64) Option {
	return func(c *Crawler) error {
		c.config.MaxPages = n
		return nil
	}
}

// WithRespectRobots enables or disables robots.txt checks.
func WithRespectRobots(respect bool) Option {
	return func(c *Crawler) error {
		c.config.RespectRobots = respect
		return nil
	}
}

// WithCustomHeaders sets custom headers for all requests.
func WithCustomHeaders(headers map[string]string) Option {
	return func(c *Crawler) error {
		if c.config.CustomHeaders == nil {
			c.config.CustomHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.config.CustomHeaders[k] = v
		}
		return nil
	}
}

// WithOutput sets the destination for crawl output.
func WithOutput(w io.Writer) Option {
	return func(c *Crawler) error {
		c.outputWriter = w
		return nil
	}
}

// WithOutputFile sets the output file path.
func WithOutputFile(path string) Option {
	return func(c *Crawler) error {
		c.config.Output.FilePath = path
		return nil
	}
}

// WithPrettyOutput enables or disables indented JSON output.
func WithPrettyOutput(pretty bool) Option {
	return func(c *Crawler) error {
		c.config.Output.Pretty = pretty
		return nil
	}
}

// WithStreamMode emits page records as they are crawled instead of one
// final document.
func WithStreamMode(stream bool) Option {
	return func(c *Crawler) error {
		c.config.Output.StreamMode = stream
		return nil
	}
}

// WithFetcher replaces the HTTP client, mainly for tests.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) error {
		c.fetcher = f
		return nil
	}
}

// WithVerbose enables or disables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(c *Crawler) error {
		c.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables or disables debug mode.
func WithDebug(debug bool) Option {
	return func(c *Crawler) error {
		c.config.Debug = debug
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Crawler) error {
		c.logger = l
		return nil
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Crawler) error {
		c.metrics = m
		return nil
	}
}

// WithProgress enables the live progress display.
func WithProgress(enabled bool) Option {
	return func(c *Crawler) error {
		c.showProgress = enabled
		return nil
	}
}

// WithProgressDisplay sets a custom progress display.
func WithProgressDisplay(d *progress.Display) Option {
	return func(c *Crawler) error {
		c.progress = d
		c.showProgress = d != nil
		return nil
	}
}

// WithConfig sets the entire configuration.
func WithConfig(config *Config) Option {
	return func(c *Crawler) error {
		c.config = config
		return nil
	}
}
