// Package fetch provides the pooled HTTP client used by crawl workers
// to download pages and extract outbound links.
package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/websweep/websweep/internal/errors"
)

// Config holds configuration for the HTTP client.
type Config struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	UserAgent           string
	Headers             map[string]string
	SkipTLSVerify       bool
	MaxBodySize         int64
}

// DefaultConfig returns defaults tuned for breadth crawling.
func DefaultConfig() Config {
	return Config{
		Timeout:             10 * time.Second,
		MaxIdleConns:        500,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     100,
		UserAgent:           "websweep/1.0 (+https://github.com/websweep/websweep)",
		MaxBodySize:         5 * 1024 * 1024,
	}
}

// Client is a connection-pooled HTTP client for crawling.
type Client struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	retrier     *errors.Retrier

	mu      sync.RWMutex
	headers map[string]string
}

// NewClient creates a client with a shared, pooled transport.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 5 * 1024 * 1024
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		},
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		headers:     cfg.Headers,
		retrier:     errors.NewDefaultRetrier(),
	}
}

// SetHeaders sets custom headers applied to every request.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = headers
	c.mu.Unlock()
}

// SetRetryConfig replaces the retry policy.
func (c *Client) SetRetryConfig(cfg errors.RetryConfig) {
	c.retrier = errors.NewRetrier(cfg)
}

// Result holds a downloaded page and the links found in it.
type Result struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	HTML        string
	Title       string
	Links       []string
	Bytes       int64
	Duration    time.Duration
}

// Get downloads one page and extracts its outbound links.
func (c *Client) Get(ctx context.Context, targetURL string) (*Result, error) {
	start := time.Now()
	result := &Result{
		URL:   targetURL,
		Links: make([]string, 0),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return result, errors.NewCrawlError(errors.Parse, targetURL, "request_creation", "failed to create request", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return result, errors.Categorize(err, targetURL)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.ContentType = resp.Header.Get("Content-Type")
	result.Duration = time.Since(start)

	if httpErr := errors.CategorizeHTTPStatus(resp.StatusCode, targetURL); httpErr != nil {
		return result, httpErr
	}

	// Non-HTML responses count as fetched but yield no links.
	if !strings.Contains(result.ContentType, "text/html") {
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return result, errors.NewNetworkError(targetURL, "body_read", err)
	}
	result.HTML = string(body)
	result.Bytes = int64(len(body))

	base, err := url.Parse(result.FinalURL)
	if err != nil {
		base, _ = url.Parse(targetURL)
	}
	result.Links, result.Title = extractLinks(result.HTML, base)
	result.Duration = time.Since(start)

	return result, nil
}

// GetWithRetry is Get with automatic retries for transient failures.
func (c *Client) GetWithRetry(ctx context.Context, targetURL string) (*Result, error) {
	var result *Result

	err := c.retrier.Do(ctx, "http_get", targetURL, func(ctx context.Context) error {
		var getErr error
		result, getErr = c.Get(ctx, targetURL)
		return getErr
	})

	if result == nil {
		result = &Result{URL: targetURL}
	}
	return result, err
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// extractLinks walks the parsed document collecting unique absolute
// HTTP(S) links from a, area, and link elements, honoring a <base> tag
// when present. Also returns the page title.
func extractLinks(htmlContent string, base *url.URL) ([]string, string) {
	links := make([]string, 0, 64)
	title := ""
	seen := make(map[string]bool)

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return links, title
	}

	add := func(href string) {
		link := resolveHref(href, base)
		if link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "base":
				if href := attrVal(n, "href"); href != "" {
					if b, err := url.Parse(href); err == nil {
						base = base.ResolveReference(b)
					}
				}
			case "a", "area":
				if hasRelNofollow(n) {
					break
				}
				if href := attrVal(n, "href"); href != "" {
					add(href)
				}
			case "link":
				rel := strings.ToLower(attrVal(n, "rel"))
				if rel == "alternate" || rel == "canonical" || rel == "next" || rel == "prev" {
					if href := attrVal(n, "href"); href != "" {
						add(href)
					}
				}
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(doc)
	return links, title
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasRelNofollow(n *html.Node) bool {
	for _, part := range strings.Fields(strings.ToLower(attrVal(n, "rel"))) {
		if part == "nofollow" {
			return true
		}
	}
	return false
}

// resolveHref resolves a candidate href against the base URL, dropping
// fragments, non-navigational schemes, and anything that is not HTTP(S).
func resolveHref(href string, base *url.URL) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""

	return resolved.String()
}
