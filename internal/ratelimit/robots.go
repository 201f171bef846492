package ratelimit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsManager fetches and caches robots.txt rules per host. A host with no
// robots.txt, or one that cannot be fetched, allows everything.
type RobotsManager struct {
	mu        sync.RWMutex
	groups    map[string]*robotsEntry
	client    *http.Client
	userAgent string
	ttl       time.Duration
}

type robotsEntry struct {
	group     *robotstxt.Group
	delay     time.Duration
	fetchedAt time.Time
}

// NewRobotsManager creates a robots.txt manager identifying as userAgent.
func NewRobotsManager(userAgent string) *RobotsManager {
	return &RobotsManager{
		groups:    make(map[string]*robotsEntry),
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		ttl:       time.Hour,
	}
}

// Allowed reports whether the URL's path may be fetched according to its
// host's robots.txt. Rules are fetched on first use and cached.
func (m *RobotsManager) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	entry, err := m.entryFor(ctx, parsed.Scheme, parsed.Host)
	if err != nil || entry.group == nil {
		return true
	}
	return entry.group.Test(parsed.Path)
}

// CrawlDelay returns the Crawl-delay directive for a host, or zero.
func (m *RobotsManager) CrawlDelay(ctx context.Context, scheme, host string) time.Duration {
	entry, err := m.entryFor(ctx, scheme, host)
	if err != nil {
		return 0
	}
	return entry.delay
}

func (m *RobotsManager) entryFor(ctx context.Context, scheme, host string) (*robotsEntry, error) {
	m.mu.RLock()
	entry, ok := m.groups[host]
	m.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < m.ttl {
		return entry, nil
	}
	return m.fetch(ctx, scheme, host)
}

func (m *RobotsManager) fetch(ctx context.Context, scheme, host string) (*robotsEntry, error) {
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", m.userAgent)

	entry := &robotsEntry{fetchedAt: time.Now()}

	resp, err := m.client.Do(req)
	if err != nil {
		// Unreachable robots.txt: cache the allow-all entry so every fetch
		// to the host does not retry it.
		m.store(host, entry)
		return entry, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		m.store(host, entry)
		return entry, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err == nil {
		if group := data.FindGroup(m.userAgent); group != nil {
			entry.group = group
			entry.delay = group.CrawlDelay
		}
	}

	m.store(host, entry)
	return entry, nil
}

func (m *RobotsManager) store(host string, entry *robotsEntry) {
	m.mu.Lock()
	m.groups[host] = entry
	m.mu.Unlock()
}
