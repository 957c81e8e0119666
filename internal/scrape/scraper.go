// Package scrape fetches web pages and extracts their readable text for
// ingestion. Fetching goes through colly with polite rate limits; content
// extraction prefers readability and falls back to a structural pass over
// the HTML when readability finds nothing usable.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/log"
)

const userAgent = "quarry/1.0 (+https://github.com/quarrydocs/quarry)"

// Page is the extracted content of a single fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Scraper fetches pages over HTTP and extracts readable text.
//
// Scraper is safe for concurrent use by multiple goroutines; colly's limit
// rule serializes requests per domain according to the configured
// parallelism and delay.
type Scraper struct {
	parallelism int
	delay       time.Duration
	timeout     time.Duration
	logger      log.Logger
}

// New creates a Scraper from the scraper configuration.
func New(cfg *config.Config, logger log.Logger) (*Scraper, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	parallelism := cfg.Scraper.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	return &Scraper{
		parallelism: parallelism,
		delay:       time.Duration(cfg.Scraper.DelayMs) * time.Millisecond,
		timeout:     time.Duration(cfg.Scraper.TimeoutMs) * time.Millisecond,
		logger:      logger,
	}, nil
}

// ValidateURL rejects anything that is not an absolute http or https URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// Fetch retrieves the page at rawURL and extracts its readable text.
// The returned Page always has non-empty Text; a page whose extraction
// yields nothing usable is an error.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Page{}, err
	}

	body, err := s.download(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}

	page, err := extract(rawURL, body)
	if err != nil {
		return Page{}, err
	}

	s.logger.Debug("fetched page",
		"url", rawURL, "title", page.Title, "chars", len(page.Text))
	return page, nil
}

// download fetches the raw HTML body through colly.
func (s *Scraper) download(ctx context.Context, rawURL string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.parallelism,
		Delay:       s.delay,
	}); err != nil {
		return nil, fmt.Errorf("configuring rate limit: %w", err)
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetching %s: %w", rawURL, err)
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetching %s: empty response body", rawURL)
	}
	return body, nil
}

// extract pulls the readable text out of an HTML body. Readability handles
// article-shaped pages; pages it cannot parse fall back to a structural
// text pass.
func extract(rawURL string, body []byte) (Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid URL: %w", err)
	}

	page := Page{URL: rawURL}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Text = collapseWhitespace(article.TextContent)
	}

	if page.Text == "" {
		title, text, err := structuralText(body)
		if err != nil {
			return Page{}, fmt.Errorf("parsing %s: %w", rawURL, err)
		}
		if page.Title == "" {
			page.Title = title
		}
		page.Text = text
	}

	if page.Text == "" {
		return Page{}, fmt.Errorf("no meaningful content extracted from %s", rawURL)
	}
	return page, nil
}

// structuralText walks the document and joins the text of content-bearing
// elements. Used when readability extracts nothing.
func structuralText(body []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, header, footer, aside").Remove()

	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if t := collapseWhitespace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		// Last resort: whatever text the body carries.
		if t := collapseWhitespace(doc.Find("body").Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return title, strings.Join(parts, "\n\n"), nil
}

// collapseWhitespace trims the text and squeezes interior runs of spaces
// and tabs, keeping paragraph breaks intact.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" || (len(out) > 0 && out[len(out)-1] != "") {
			out = append(out, line)
		}
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
