package olx

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"olx-scraper/utils"
)

const staticUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

// StaticFetcher fetches the search page without a browser. It only sees
// the server-rendered first page of results, so no location filter or
// "load more" is applied.
type StaticFetcher struct {
	baseURL string
	timeout time.Duration
	logger  *utils.Logger
}

// NewStaticFetcher creates a StaticFetcher against baseURL.
func NewStaticFetcher(baseURL string, timeout time.Duration, logger *utils.Logger) *StaticFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StaticFetcher{baseURL: baseURL, timeout: timeout, logger: logger}
}

// Fetch GETs the search URL for q and returns the response body.
func (s *StaticFetcher) Fetch(ctx context.Context, q SearchQuery) (string, error) {
	target := SearchURL(s.baseURL, q.Keyword)
	s.logger.Info("[scraper] Static fetch %s", target)

	c := colly.NewCollector(
		colly.UserAgent(staticUserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	var (
		body     string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("olx: static fetch %s (status %d): %w", target, r.StatusCode, err)
	})

	if err := c.Visit(target); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("olx: static fetch %s: %w", target, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	return body, nil
}
