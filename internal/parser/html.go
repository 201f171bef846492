// Package parser extracts page metadata from fetched HTML for the
// output records.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageParser parses HTML documents fetched from a single base URL.
type PageParser struct {
	baseURL *url.URL
}

// NewPageParser creates a parser that resolves relative URLs against
// baseURL.
func NewPageParser(baseURL string) (*PageParser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &PageParser{baseURL: u}, nil
}

// Page holds the metadata extracted from one document.
type Page struct {
	Title       string
	Description string
	Canonical   string
	Language    string
	Links       []Link
	FormCount   int
	Meta        map[string]string
}

// Link is an anchor found in the document.
type Link struct {
	URL      string
	Text     string
	NoFollow bool
}

// Parse extracts page metadata from an HTML document.
func (p *PageParser) Parse(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	page := &Page{
		Links: make([]Link, 0),
		Meta:  make(map[string]string),
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if lang, exists := doc.Find("html").First().Attr("lang"); exists {
		page.Language = lang
	}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved := p.resolveURL(href)
		if resolved == "" {
			return
		}

		link := Link{
			URL:  resolved,
			Text: strings.TrimSpace(s.Text()),
		}
		if rel, exists := s.Attr("rel"); exists {
			link.NoFollow = strings.Contains(rel, "nofollow")
		}

		page.Links = append(page.Links, link)
	})

	if canonical, exists := doc.Find("link[rel='canonical']").First().Attr("href"); exists {
		page.Canonical = p.resolveURL(canonical)
	}

	page.FormCount = doc.Find("form").Length()

	doc.Find("meta").Each(func(i int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")

		key := name
		if key == "" {
			key = property
		}
		if key != "" && content != "" {
			page.Meta[key] = content
		}
	})

	if desc, ok := page.Meta["description"]; ok {
		page.Description = desc
	} else if desc, ok := page.Meta["og:description"]; ok {
		page.Description = desc
	}

	return page, nil
}

// resolveURL resolves a relative URL against the base URL.
func (p *PageParser) resolveURL(href string) string {
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return p.baseURL.ResolveReference(ref).String()
}
