// Package websearch retrieves evidence documents from the public web for
// response verification.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// EvidenceDocument is one retrieved search result.
type EvidenceDocument struct {
	Title       string
	URL         string
	Snippet     string
	RetrievedAt time.Time
}

// Searcher is the evidence retrieval dependency of the verifier. Tests stub
// it; production uses Fetcher.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]EvidenceDocument, error)
}

// Config configures the live fetcher.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher queries the DuckDuckGo HTML endpoint and scrapes result pages.
type Fetcher struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *logrus.Logger
}

var multiWhitespace = regexp.MustCompile(`\s+`)

func NewFetcher(cfg Config, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Search runs one query against the HTML search endpoint and parses the
// result list. A failed search returns an error; a search that succeeds with
// no hits returns an empty, non-nil slice.
func (f *Fetcher) Search(ctx context.Context, query string, maxResults int) ([]EvidenceDocument, error) {
	endpoint := f.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	now := time.Now()
	results := make([]EvidenceDocument, 0, maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		results = append(results, EvidenceDocument{
			Title:       cleanText(link.Text()),
			URL:         resolveRedirect(href),
			Snippet:     cleanText(s.Find(".result__snippet").Text()),
			RetrievedAt: now,
		})
		return len(results) < maxResults
	})

	f.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("Web search completed")

	return results, nil
}

// FetchPage scrapes the main text content of a single page. It is used to
// enrich a snippet when the verifier needs more than the search listing.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
	)
	c.SetRequestTimeout(f.httpClient.Timeout)

	var content string
	var scrapeErr error

	c.OnHTML("body", func(e *colly.HTMLElement) {
		dom := e.DOM.Clone()
		dom.Find("script, style, nav, header, footer, aside, form").Remove()
		content = cleanText(dom.Text())
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return "", scrapeErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return content, nil
}

// resolveRedirect unwraps the uddg redirect parameter DuckDuckGo wraps
// result links in, falling back to the raw href.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}

func cleanText(text string) string {
	return strings.TrimSpace(multiWhitespace.ReplaceAllString(text, " "))
}
