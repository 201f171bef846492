package admission

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Normalize canonicalizes a URL so string equality works as identity in the
// frontier: lowercased scheme and host, default ports and fragments removed,
// trailing slash trimmed, query parameters sorted.
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if (parsed.Scheme == "http" && strings.HasSuffix(parsed.Host, ":80")) ||
		(parsed.Scheme == "https" && strings.HasSuffix(parsed.Host, ":443")) {
		parsed.Host = parsed.Host[:strings.LastIndex(parsed.Host, ":")]
	}

	parsed.Fragment = ""

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	if parsed.RawQuery != "" {
		parsed.RawQuery = parsed.Query().Encode()
	}

	return parsed.String(), nil
}

// Resolve resolves a possibly-relative URL against a base URL.
func Resolve(baseURL, relativeURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(relativeURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// skipExtensions lists asset suffixes that are never crawl targets.
var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".ico", ".svg", ".webp",
	".css", ".js", ".woff", ".woff2", ".ttf", ".eot",
	".pdf", ".zip", ".tar", ".gz", ".rar",
	".mp3", ".mp4", ".wav", ".avi", ".mov",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// IsCrawlable reports whether a URL is a plausible page fetch: absolute,
// http or https, and not a static asset.
func IsCrawlable(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// Host extracts the host (with port, if any) from a URL.
func Host(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}

// RegistrableDomain returns the eTLD+1 for a URL's host, falling back to the
// bare hostname when the public suffix list has no answer (e.g. localhost).
func RegistrableDomain(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	host := parsed.Hostname()
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return domain, nil
}
