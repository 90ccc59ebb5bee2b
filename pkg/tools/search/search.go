// Package search implements the web_search tool on top of DuckDuckGo's HTML
// endpoint.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/ohtakaisei/ronpaou/pkg/config"
)

const (
	// ToolName is the protocol token the model uses to call this tool.
	ToolName = "web_search"

	// NoResults is returned as a normal observation when nothing matched.
	NoResults = "No good DuckDuckGo Search Result was found"

	toolDescription = "Web検索ツール。ユーザーの主張に反論するための根拠やデータを検索する。日本語・英語どちらのクエリにも対応。入力: 検索クエリ文字列"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxBodyBytes     = 2 << 20
)

// Result is one search hit.
type Result struct {
	Title   string
	Link    string
	Snippet string
}

// Tool queries DuckDuckGo and formats the top results as one observation.
type Tool struct {
	endpoint   string
	region     string
	maxResults int
	userAgent  string
	timeout    time.Duration
	client     *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Tool.
type Option func(*Tool)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tool) { t.client = c }
}

// WithLimiter replaces the outbound rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *Tool) { t.limiter = l }
}

// New creates the tool from the search section of config.json. timeout bounds
// a single Invoke.
func New(cfg config.SearchConfig, timeout time.Duration, opts ...Option) *Tool {
	t := &Tool{
		endpoint:   cfg.Endpoint,
		region:     cfg.Region,
		maxResults: cfg.MaxResults,
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
		client:     &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), max(cfg.Burst, 1)),
	}
	if t.endpoint == "" {
		t.endpoint = "https://html.duckduckgo.com/html/"
	}
	if t.region == "" {
		t.region = "jp-jp"
	}
	if t.maxResults <= 0 {
		t.maxResults = 5
	}
	if t.userAgent == "" {
		t.userAgent = defaultUserAgent
	}
	if cfg.RatePerSec <= 0 {
		t.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Name() string        { return ToolName }
func (t *Tool) Description() string { return toolDescription }

// Invoke runs one search. An empty hit list is a valid observation, while
// transport failures and provider throttling are returned as errors.
func (t *Tool) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("empty search query")
	}

	results, err := t.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return NoResults, nil
	}
	return Format(results), nil
}

// Search returns at most maxResults hits for query.
func (t *Tool) Search(ctx context.Context, query string) ([]Result, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", t.region)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	// DuckDuckGo answers 202 with a challenge page when it throttles a client.
	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("search provider rate limit (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	results, err := Parse(io.LimitReader(resp.Body, maxBodyBytes), t.maxResults)
	if err != nil {
		return nil, err
	}

	slog.Debug("Web search finished", "query", query, "results", len(results), "elapsed", time.Since(start))
	return results, nil
}

// Parse extracts up to limit organic results from a DuckDuckGo HTML page.
func Parse(r io.Reader, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse search HTML: %w", err)
	}

	var results []Result
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		a := s.Find("a.result__a").First()
		title := collapseSpace(a.Text())
		href, _ := a.Attr("href")
		link := resolveLink(href)
		if title == "" || link == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			Link:    link,
			Snippet: collapseSpace(s.Find(".result__snippet").First().Text()),
		})
		return limit <= 0 || len(results) < limit
	})
	return results, nil
}

// Format renders results as "[snippet: ..., title: ..., link: ...], [...]".
func Format(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[snippet: %s, title: %s, link: %s]", r.Snippet, r.Title, r.Link))
	}
	return strings.Join(parts, ", ")
}

// resolveLink unwraps DuckDuckGo's "/l/?uddg=<target>" redirect links.
func resolveLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
