// Package crawler walks a website breadth-first and extracts readable page text.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/bull/uwp-rag-server/internal/docstore"
)

const (
	DefaultSeedURL       = "https://www.uwp.edu/"
	DefaultAllowedDomain = "uwp.edu"
	DefaultUserAgent     = "UWP-RAG-Bot/1.0"
	DefaultMaxPages      = 600
	DefaultThrottle      = 350 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
	DefaultMinWords      = 80

	// maxBodySize caps the bytes read from a single page.
	maxBodySize = 10 << 20
)

// Config controls a crawl.
type Config struct {
	SeedURL       string
	AllowedDomain string // Hosts containing this string are followed
	MaxPages      int
	Throttle      time.Duration
	Timeout       time.Duration
	UserAgent     string
	MinWords      int
}

func (c *Config) applyDefaults() {
	if c.SeedURL == "" {
		c.SeedURL = DefaultSeedURL
	}
	if c.AllowedDomain == "" {
		c.AllowedDomain = DefaultAllowedDomain
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Throttle < 0 {
		c.Throttle = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MinWords <= 0 {
		c.MinWords = DefaultMinWords
	}
}

// Crawler fetches pages politely: robots.txt rules for "*" are honoured and
// requests are spaced by the throttle interval.
type Crawler struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	robots  map[string]*robotstxt.RobotsData
	logger  *slog.Logger
}

// New creates a Crawler. Zero config fields take the package defaults;
// a zero Throttle disables throttling.
func New(cfg Config, logger *slog.Logger) *Crawler {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.Throttle > 0 {
		limit = rate.Every(cfg.Throttle)
	}

	return &Crawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		robots:  make(map[string]*robotstxt.RobotsData),
		logger:  logger,
	}
}

// Crawl visits pages breadth-first from the seed until MaxPages documents are
// collected or no URLs remain. Pages that fail to fetch are logged and skipped;
// pages with fewer than MinWords words are not kept.
func (c *Crawler) Crawl(ctx context.Context) ([]docstore.Document, error) {
	seed, err := NormalizeURL(c.cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}

	c.logger.Info("Starting crawl", "seed", seed, "max_pages", c.cfg.MaxPages, "throttle", c.cfg.Throttle)

	queue := []string{seed}
	visited := map[string]bool{}
	var docs []docstore.Document

	for len(queue) > 0 && len(docs) < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if !c.allowedByRobots(ctx, pageURL) {
			c.logger.Debug("Disallowed by robots.txt", "url", pageURL)
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.logger.Warn("Failed to fetch page", "url", pageURL, "error", err)
			continue
		}

		for _, link := range page.Links {
			if !visited[link] && c.inDomain(link) {
				queue = append(queue, link)
			}
		}

		if words := len(strings.Fields(page.Text)); words < c.cfg.MinWords {
			c.logger.Debug("Skipping short page", "url", pageURL, "words", words)
			continue
		}

		docs = append(docs, docstore.Document{
			URL:   pageURL,
			Title: page.Title,
			Text:  page.Text,
		})
		c.logger.Info("Scraped page", "url", pageURL, "count", len(docs), "max_pages", c.cfg.MaxPages)
	}

	c.logger.Info("Crawl complete", "pages", len(docs), "visited", len(visited))
	return docs, nil
}

func (c *Crawler) inDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, c.cfg.AllowedDomain)
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	body, status, contentType, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return ParsePage(bytes.NewReader(body), base)
}

func (c *Crawler) get(ctx context.Context, rawURL string) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// allowedByRobots loads robots.txt once per host. A missing or unreadable
// robots.txt allows everything.
func (c *Crawler) allowedByRobots(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	hostKey := u.Scheme + "://" + u.Host
	robots, ok := c.robots[hostKey]
	if !ok {
		robots = c.loadRobots(ctx, hostKey)
		c.robots[hostKey] = robots
	}
	if robots == nil {
		return true
	}
	return robots.TestAgent(u.RequestURI(), "*")
}

func (c *Crawler) loadRobots(ctx context.Context, hostKey string) *robotstxt.RobotsData {
	robotsURL := hostKey + "/robots.txt"
	body, status, _, err := c.get(ctx, robotsURL)
	if err != nil {
		c.logger.Warn("Error fetching robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	if status != http.StatusOK {
		c.logger.Info("No robots.txt, proceeding without restrictions", "url", robotsURL, "status", status)
		return nil
	}

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Warn("Invalid robots.txt, proceeding without restrictions", "url", robotsURL, "error", err)
		return nil
	}
	c.logger.Info("Loaded robots.txt", "url", robotsURL)
	return robots
}

// NormalizeURL drops the fragment and, for URLs with a path beyond the root,
// trailing slashes.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Fragment = ""
	u.RawFragment = ""

	normalized := u.String()
	if strings.HasSuffix(normalized, "/") && strings.Count(normalized, "/") > 3 {
		normalized = strings.TrimRight(normalized, "/")
	}
	return normalized, nil
}
