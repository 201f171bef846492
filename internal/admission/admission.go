// Package admission decides whether a discovered URL may enter the crawl
// frontier.
package admission

import (
	"regexp"

	errs "github.com/websweep/websweep/internal/errors"
)

// Policy is the admission decision: one URL in, one verdict out. Alternative
// matching algorithms can be substituted without touching the frontier or
// the worker pool.
type Policy interface {
	Admit(url string) bool
}

// PatternPolicy admits URLs matching at least one allow pattern and no
// disallow pattern. Disallow takes priority over allow on conflict.
type PatternPolicy struct {
	allow    []*regexp.Regexp
	disallow []*regexp.Regexp
}

// NewPatternPolicy compiles the allow and disallow patterns. An empty allow
// list or an invalid pattern is a configuration error.
func NewPatternPolicy(allow, disallow []string) (*PatternPolicy, error) {
	if len(allow) == 0 {
		return nil, errs.NewConfigError("allow_urls", "there must be at least 1 allow url")
	}

	p := &PatternPolicy{
		allow:    make([]*regexp.Regexp, 0, len(allow)),
		disallow: make([]*regexp.Regexp, 0, len(disallow)),
	}
	for _, pattern := range allow {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errs.NewConfigError("allow_urls", "invalid pattern "+pattern)
		}
		p.allow = append(p.allow, re)
	}
	for _, pattern := range disallow {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errs.NewConfigError("disallow_urls", "invalid pattern "+pattern)
		}
		p.disallow = append(p.disallow, re)
	}
	return p, nil
}

// Admit reports whether the URL may be crawled.
func (p *PatternPolicy) Admit(url string) bool {
	for _, re := range p.disallow {
		if re.MatchString(url) {
			return false
		}
	}
	for _, re := range p.allow {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// Func adapts a plain function to the Policy interface.
type Func func(url string) bool

// Admit calls f.
func (f Func) Admit(url string) bool {
	return f(url)
}
