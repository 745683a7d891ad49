package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newsharvest/internal/metrics"
)

const userAgent = "newsharvest/1.0 (+https://newsharvest.local)"

// Crawler fetches raw source content over the network. It performs a single
// attempt per call; retry policy belongs to the caller.
type Crawler struct {
	httpClient  *http.Client
	maxBodySize int64
	logger      *slog.Logger
}

// NewCrawler creates a Crawler with the given request timeout and response
// size cap.
func NewCrawler(timeout time.Duration, maxBodySize int64, logger *slog.Logger) *Crawler {
	return &Crawler{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Fetch downloads the content behind url and returns it as text.
func (c *Crawler) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/markdown, text/html, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("crawl request failed", "url", url, "error", err)
		return "", fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("crawl failed", "url", url, "status", resp.Status)
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	limitedReader := &io.LimitedReader{R: resp.Body, N: c.maxBodySize + 1}
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return "", fmt.Errorf("response exceeds size limit: %d bytes", c.maxBodySize)
	}

	metrics.CrawlDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("source crawled", "url", url, "bytes", len(body))
	return string(body), nil
}
