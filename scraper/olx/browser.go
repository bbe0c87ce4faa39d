package olx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"olx-scraper/config"
	"olx-scraper/utils"
)

const (
	popupTimeout    = 2 * time.Second
	selectorTimeout = 15 * time.Second
	roundPause      = 1500 * time.Millisecond
)

// BrowserFetcher drives headless Chrome through the search page: it applies
// the location filter and keeps loading more results until the list stops
// growing, then returns the rendered document.
type BrowserFetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// NewBrowserFetcher creates a ready-to-use BrowserFetcher.
func NewBrowserFetcher(cfg *config.Config, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Fetch returns the fully loaded search result HTML for q.
func (b *BrowserFetcher) Fetch(ctx context.Context, q SearchQuery) (string, error) {
	location := q.Location
	if location == "" {
		location = b.cfg.SearchLocation
	}
	url := SearchURL(b.cfg.BaseURL, q.Keyword)
	b.logger.Info("[scraper] Start OLX scrape for keyword=%q url=%q location=%q", q.Keyword, url, location)

	chromeBin := b.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var html string
	err := b.retry.Do(ctx, "olx-search-"+q.Keyword, func(ctx context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancelTab()

		// Allocate the tab before any timeout is applied so the browser
		// is bound to tabCtx, not to a short-lived child.
		if err := chromedp.Run(tabCtx); err != nil {
			return fmt.Errorf("olx: start browser: %w", err)
		}

		var err error
		html, err = b.load(tabCtx, url, location)
		return err
	})
	if err != nil {
		b.logger.Error("[scraper] Unexpected error while scraping %q: %v", q.Keyword, err)
		return "", err
	}
	return html, nil
}

func (b *BrowserFetcher) load(ctx context.Context, url, location string) (string, error) {
	gotoTimeout := time.Duration(b.cfg.GotoTimeoutMs) * time.Millisecond
	if err := runWithTimeout(ctx, gotoTimeout, chromedp.Navigate(url)); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("olx: navigate: %w", err)
		}
		b.logger.Warn("[scraper] goto timeout after %v, continuing with partially loaded content", gotoTimeout)
	} else {
		b.logger.Info("[scraper] Page loaded")
	}

	if err := runWithTimeout(ctx, popupTimeout,
		chromedp.Click(`//button[contains(., 'Never allow')]`, chromedp.BySearch)); err != nil {
		b.logger.Debug("[scraper] 'Never allow' button not found, skip")
	}
	if err := runWithTimeout(ctx, popupTimeout, chromedp.Click(closePopupSelector, chromedp.ByQuery)); err != nil {
		b.logger.Debug("[scraper] Close popup button not found, skip")
	}

	b.logger.Info("[scraper] Setting location to %q", location)
	if err := runWithTimeout(ctx, selectorTimeout,
		chromedp.WaitVisible(locationInputSelector, chromedp.ByQuery),
		chromedp.SetValue(locationInputSelector, "", chromedp.ByQuery),
		chromedp.SendKeys(locationInputSelector, location, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Click(locationSuggestionXPath(location), chromedp.BySearch),
		chromedp.WaitVisible(firstItemLinkSelector, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("olx: apply location filter: %w", err)
	}
	b.logger.Info("[scraper] First item link detected, start loading all listings")

	total, err := b.loadAll(ctx)
	if err != nil {
		return "", err
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("olx: read page html: %w", err)
	}
	b.logger.Info("[scraper] Captured page HTML (total items ~ %d)", total)
	return html, nil
}

// loadAll clicks "load more" (or scrolls) until MaxIdleRounds consecutive
// rounds add no listing containers. It returns the final container count.
func (b *BrowserFetcher) loadAll(ctx context.Context) (int, error) {
	countJS := fmt.Sprintf(`document.querySelectorAll(%q).length`, ItemSelector)
	total, idle := 0, 0

	for idle < b.cfg.MaxIdleRounds {
		var current int
		if err := chromedp.Run(ctx, chromedp.Evaluate(countJS, &current)); err != nil {
			return total, fmt.Errorf("olx: count listings: %w", err)
		}

		if current > total {
			total = current
			idle = 0
			b.logger.Debug("[scraper] %d items loaded so far", total)
		} else {
			idle++
			b.logger.Debug("[scraper] No new items this round (%d/%d)", idle, b.cfg.MaxIdleRounds)
		}

		if err := runWithTimeout(ctx, popupTimeout, chromedp.Click(loadMoreSelector, chromedp.ByQuery)); err != nil {
			if err := chromedp.Run(ctx,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil)); err != nil {
				return total, fmt.Errorf("olx: scroll: %w", err)
			}
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(roundPause)); err != nil {
			return total, err
		}
	}

	b.logger.Info("[scraper] All listings loaded. Total: %d", total)
	return total, nil
}

func runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func locationSuggestionXPath(location string) string {
	return fmt.Sprintf(`//div[@data-aut-id='locationItem']//b[contains(., %s)]`, xpathLiteral(location))
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
