// Package pipeline runs the scrape -> parse -> transform -> load stages for
// a search keyword, handing data between stages through files on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"olx-scraper/config"
	"olx-scraper/models"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
	"olx-scraper/storage"
	"olx-scraper/utils"
)

// ErrMissingInput is returned when a stage's input file does not exist.
var ErrMissingInput = errors.New("stage input not found")

// LoaderFactory opens the database loader used by the load stage.
type LoaderFactory func(ctx context.Context) (storage.ListingLoader, error)

// Result is the outcome of a full run for one keyword.
type Result struct {
	Keyword  string
	Paths    Paths
	Listings []models.NormalizedListing
	Audit    *storage.AuditExport
}

// Pipeline wires the fetcher, extractor, normalizer and loader together.
// Stages for different keywords may run concurrently.
type Pipeline struct {
	cfg        *config.Config
	fetcher    olx.Fetcher
	extractor  *olx.Extractor
	normalizer *services.Normalizer
	openLoader LoaderFactory
	logger     *utils.Logger
	now        func() time.Time
	resume     bool

	// sqlite allows a single writer, so loads are serialised.
	loadMu sync.Mutex
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the headless browser fetcher.
func WithFetcher(f olx.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithLoaderFactory replaces the configured SQL loader.
func WithLoaderFactory(f LoaderFactory) Option {
	return func(p *Pipeline) { p.openLoader = f }
}

// WithClock sets the time source for relative dates and audit stamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithResume skips a stage whose output file already exists.
func WithResume(resume bool) Option {
	return func(p *Pipeline) { p.resume = resume }
}

// New creates a Pipeline from cfg.
func New(cfg *config.Config, logger *utils.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = utils.NopLogger()
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		p.fetcher = olx.NewBrowserFetcher(cfg, logger)
	}
	if p.openLoader == nil {
		p.openLoader = p.openSQLLoader
	}
	p.extractor = olx.NewExtractor(logger, olx.WithBaseURL(cfg.BaseURL), olx.WithClock(p.now))
	p.normalizer = services.NewNormalizer(cfg.BaseURL, logger)
	return p
}

// Paths returns the stage files for keyword.
func (p *Pipeline) Paths(keyword string) Paths {
	return PathsFor(p.cfg.DataDir, keyword, p.cfg.AuditFormat)
}

// Scrape fetches the search result page for keyword and saves its HTML.
func (p *Pipeline) Scrape(ctx context.Context, keyword string) error {
	paths := p.Paths(keyword)
	if p.skip("scrape", paths.HTML) {
		return nil
	}

	p.logger.Info("[engine] SCRAPE start: keyword=%q -> %s", keyword, paths.HTML)
	html, err := p.fetcher.Fetch(ctx, olx.SearchQuery{Keyword: keyword, Location: p.cfg.SearchLocation})
	if err != nil {
		return fmt.Errorf("pipeline: scrape %q: %w", keyword, err)
	}

	if err := writeFile(paths.HTML, []byte(html)); err != nil {
		return fmt.Errorf("pipeline: scrape %q: %w", keyword, err)
	}
	p.logger.Info("[engine] SCRAPE done: saved %s of HTML to %s", humanize.Bytes(uint64(len(html))), paths.HTML)
	return nil
}

// Parse extracts raw listings from the saved HTML into the parsed CSV.
func (p *Pipeline) Parse(ctx context.Context, keyword string) error {
	paths := p.Paths(keyword)
	if p.skip("parse", paths.Parsed) {
		return nil
	}
	if err := requireInput("parse", paths.HTML); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.logger.Info("[engine] PARSE start: %s -> %s", paths.HTML, paths.Parsed)
	data, err := os.ReadFile(paths.HTML)
	if err != nil {
		return fmt.Errorf("pipeline: parse: %w", err)
	}

	listings, err := p.extractor.Extract(string(data))
	if err != nil {
		return fmt.Errorf("pipeline: parse %s: %w", paths.HTML, err)
	}
	if err := storage.WriteRawCSV(paths.Parsed, listings); err != nil {
		return fmt.Errorf("pipeline: parse: %w", err)
	}
	p.logger.Info("[engine] PARSE done: %d rows -> %s", len(listings), paths.Parsed)
	return nil
}

// Transform normalizes the parsed CSV into the transformed CSV and returns
// the cleaned listings.
func (p *Pipeline) Transform(ctx context.Context, keyword string) ([]models.NormalizedListing, error) {
	paths := p.Paths(keyword)
	if p.skip("transform", paths.Transformed) {
		return storage.ReadNormalizedCSV(paths.Transformed, p.logger)
	}
	if err := requireInput("transform", paths.Parsed); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("[engine] TRANSFORM start: %s -> %s", paths.Parsed, paths.Transformed)
	table, err := storage.ReadTableCSV(paths.Parsed)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transform: %w", err)
	}

	listings, err := p.normalizer.Normalize(table)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transform %s: %w", paths.Parsed, err)
	}
	if err := storage.WriteNormalizedCSV(paths.Transformed, listings); err != nil {
		return nil, fmt.Errorf("pipeline: transform: %w", err)
	}
	p.logger.Info("[engine] TRANSFORM done: %d rows -> %s", len(listings), paths.Transformed)
	return listings, nil
}

// Load inserts the transformed CSV into the database and writes the audit
// file. An empty CSV writes an empty audit without touching the database.
func (p *Pipeline) Load(ctx context.Context, keyword string) (*storage.AuditExport, error) {
	paths := p.Paths(keyword)
	if p.skip("load", paths.Inserted) {
		return storage.ReadAudit(paths.Inserted)
	}
	if err := requireInput("load", paths.Transformed); err != nil {
		return nil, err
	}

	p.logger.Info("[engine] LOAD start: %s -> table %q", paths.Transformed, p.cfg.TableName)
	listings, err := storage.ReadNormalizedCSV(paths.Transformed, p.logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load: %w", err)
	}

	inserted := []models.NormalizedListing{}
	if len(listings) == 0 {
		p.logger.Info("[load] No data to insert, skipping DB insert")
	} else {
		inserted, err = p.insert(ctx, listings)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load %q: %w", keyword, err)
		}
	}

	export := storage.NewAuditExport(keyword, p.cfg.TableName, inserted, p.now())
	if err := storage.WriteAudit(paths.Inserted, p.cfg.AuditFormat, export); err != nil {
		return nil, fmt.Errorf("pipeline: load: %w", err)
	}
	p.logger.Info("[engine] LOAD done: %d records inserted into %q, audit=%s (run %s)",
		len(inserted), p.cfg.TableName, paths.Inserted, export.RunID)
	return export, nil
}

func (p *Pipeline) insert(ctx context.Context, listings []models.NormalizedListing) ([]models.NormalizedListing, error) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	loader, err := p.openLoader(ctx)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	return loader.Load(ctx, listings)
}

// Run executes all four stages for keyword.
func (p *Pipeline) Run(ctx context.Context, keyword string) (*Result, error) {
	p.logger.Info("[engine] ===== START FULL ETL for keyword=%q =====", keyword)
	res := &Result{Keyword: keyword, Paths: p.Paths(keyword)}

	if err := p.Scrape(ctx, keyword); err != nil {
		return res, err
	}
	if err := p.Parse(ctx, keyword); err != nil {
		return res, err
	}
	listings, err := p.Transform(ctx, keyword)
	if err != nil {
		return res, err
	}
	res.Listings = listings

	audit, err := p.Load(ctx, keyword)
	if err != nil {
		return res, err
	}
	res.Audit = audit

	p.logger.Info("[engine] ===== FULL ETL DONE for keyword=%q =====", keyword)
	return res, nil
}

// RunAll runs independent keyword pipelines on a rate-limited worker pool.
// Keywords that share a slug run once. Every keyword that was run appears in
// the result map; failed ones also appear in the error map.
func (p *Pipeline) RunAll(ctx context.Context, keywords []string) (map[string]*Result, map[string]error) {
	pool := utils.NewWorkerPool(p.cfg.MaxConcurrency, p.cfg.RateLimitMs)
	seen := utils.NewKeySet()

	var mu sync.Mutex
	results := make(map[string]*Result)
	errs := make(map[string]error)

	for _, kw := range keywords {
		kw := strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if !seen.Add(Slug(kw)) {
			p.logger.Warn("[engine] Skipping duplicate keyword %q", kw)
			continue
		}

		pool.Submit(func() {
			var (
				res *Result
				err error
			)
			if err = ctx.Err(); err == nil {
				res, err = p.Run(ctx, kw)
			}

			mu.Lock()
			defer mu.Unlock()
			results[kw] = res
			if err != nil {
				p.logger.Error("[engine] keyword %q failed: %v", kw, err)
				errs[kw] = err
			}
		})
	}
	pool.Wait()

	p.logger.Info("[engine] Finished %d keywords, %d failed", seen.Size(), len(errs))
	return results, errs
}

func (p *Pipeline) openSQLLoader(ctx context.Context) (storage.ListingLoader, error) {
	dsn := p.cfg.DSN()
	p.logger.Info("[db] Connecting to %s database %s", p.cfg.DBDriver, p.cfg.SafeDSN())

	if p.cfg.DBDriver == storage.DriverSQLite && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("sql: create database dir: %w", err)
		}
	}

	return storage.OpenSQLLoader(ctx, storage.SQLLoaderOptions{
		Driver: p.cfg.DBDriver,
		DSN:    dsn,
		Table:  p.cfg.TableName,
		Retry: &utils.RetryConfig{
			MaxAttempts: p.cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      p.logger,
		},
		Logger: p.logger,
	})
}

func (p *Pipeline) skip(stage, output string) bool {
	if !p.resume {
		return false
	}
	if _, err := os.Stat(output); err != nil {
		return false
	}
	p.logger.Info("[engine] %s output %s exists, skipping", strings.ToUpper(stage), output)
	return true
}

func requireInput(stage, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("pipeline: %s: %w: %s", stage, ErrMissingInput, path)
		}
		return fmt.Errorf("pipeline: %s: %w", stage, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
