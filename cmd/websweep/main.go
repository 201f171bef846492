package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/websweep/websweep/internal/shutdown"
	"github.com/websweep/websweep/pkg/crawler"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Crawl flags
	rateLimit     float64
	hostRateLimit float64
	allowURLs     []string
	disallowURLs  []string
	threadCount   int
	timeout       int
	userAgent     string
	maxPages      int64
	outputFile    string
	streamMode    bool
	noRobots      bool
	sameSite      bool

	// Display flags
	showProgress bool
	noProgress   bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "websweep",
		Short: "websweep - Breadth-Expanding Web Crawler",
		Long: `websweep crawls outward from a start URL through a shared, deduplicating
frontier, collecting every page admitted by the allow/disallow patterns.`,
		Version: version,
	}

	crawlCmd := &cobra.Command{
		Use:   "crawl [start-url]",
		Short: "Crawl from a start URL",
		Long:  "Crawl from a start URL, following links admitted by the allow/disallow patterns.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCrawl,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Crawl flags
	crawlCmd.Flags().Float64VarP(&rateLimit, "rate-limit", "r", 15, "Requests per second")
	crawlCmd.Flags().Float64Var(&hostRateLimit, "host-rate-limit", 0, "Per-host requests per second (0 = disabled)")
	crawlCmd.Flags().StringArrayVarP(&allowURLs, "allow-urls", "a", nil, "URL patterns to admit (regex, required)")
	crawlCmd.Flags().StringArrayVarP(&disallowURLs, "disallow-urls", "d", nil, "URL patterns to exclude (regex)")
	crawlCmd.Flags().IntVarP(&threadCount, "thread-count", "t", 20, "Number of concurrent workers")
	crawlCmd.Flags().IntVar(&timeout, "timeout", 10, "Request timeout in seconds")
	crawlCmd.Flags().StringVar(&userAgent, "user-agent", "", "User agent string")
	crawlCmd.Flags().Int64Var(&maxPages, "max-pages", 0, "Stop after this many pages (0 = unlimited)")
	crawlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	crawlCmd.Flags().BoolVar(&streamMode, "stream", false, "Stream page records as they are crawled")
	crawlCmd.Flags().BoolVar(&noRobots, "no-robots", false, "Ignore robots.txt")
	crawlCmd.Flags().BoolVar(&sameSite, "same-site", false, "Stay on the start URL's registrable domain")

	// Display flags
	crawlCmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress line during crawling")
	crawlCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress line")

	rootCmd.AddCommand(crawlCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig assembles the crawl configuration: file values over defaults,
// then only the flags that were actually passed on the command line.
func buildConfig(cmd *cobra.Command, startURL string) (*crawler.Config, error) {
	config := crawler.DefaultConfig()

	if configFile != "" {
		fileConfig, err := crawler.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	config.StartURL = startURL

	if cmd.Flags().Changed("rate-limit") {
		config.RateLimit = rateLimit
	}
	if cmd.Flags().Changed("host-rate-limit") {
		config.HostRateLimit = hostRateLimit
	}
	if cmd.Flags().Changed("thread-count") {
		config.Workers = threadCount
	}
	if cmd.Flags().Changed("timeout") {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	if cmd.Flags().Changed("user-agent") {
		config.UserAgent = userAgent
	}
	if cmd.Flags().Changed("max-pages") {
		config.MaxPages = maxPages
	}
	if cmd.Flags().Changed("output") {
		config.Output.FilePath = outputFile
	}
	if cmd.Flags().Changed("stream") {
		config.Output.StreamMode = streamMode
	}
	if len(allowURLs) > 0 {
		config.AllowURLs = allowURLs
	}
	if len(disallowURLs) > 0 {
		config.DisallowURLs = disallowURLs
	}
	if noRobots {
		config.RespectRobots = false
	}
	if sameSite {
		config.SameSiteOnly = true
	}
	if verbose {
		config.Verbose = true
	}
	if debug {
		config.Debug = true
	}

	return config, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	enableProgress := showProgress && !noProgress && !config.Verbose

	// Fails here, before any worker starts, on an empty allow list or
	// a bad pattern.
	c, err := crawler.New(
		crawler.WithConfig(config),
		crawler.WithProgress(enableProgress),
	)
	if err != nil {
		return err
	}

	handler := shutdown.New(shutdown.Config{
		Timeout: config.Timeout * 2,
		OnStart: func() {
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping workers...")
		},
	})
	handler.RegisterFunc("crawler", c.Stop)
	handler.Listen()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-handler.Context().Done()
		cancel()
	}()

	if !enableProgress {
		fmt.Fprintf(os.Stderr, "websweep v%s crawling %s (%d workers, %.0f req/s)\n",
			version, config.StartURL, config.Workers, config.RateLimit)
	}

	result, err := c.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if result != nil && !enableProgress {
		printSummary(result)
	}

	return nil
}

func printSummary(result *crawler.Result) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Duration:        %v\n", result.Stats.Duration.Round(time.Second))
	fmt.Fprintf(os.Stderr, "URLs discovered: %d\n", result.Stats.URLsDiscovered)
	fmt.Fprintf(os.Stderr, "Pages crawled:   %d\n", result.Stats.PagesCrawled)
	fmt.Fprintf(os.Stderr, "URLs rejected:   %d\n", result.Stats.URLsRejected)
	fmt.Fprintf(os.Stderr, "Errors:          %d\n", result.Stats.ErrorCount)
	if result.Cancelled {
		fmt.Fprintln(os.Stderr, "Crawl was interrupted before the frontier drained.")
	}
}
