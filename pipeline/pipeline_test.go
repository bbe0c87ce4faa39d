package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"olx-scraper/config"
	"olx-scraper/models"
	"olx-scraper/scraper/olx"
	"olx-scraper/services"
	"olx-scraper/storage"
	"olx-scraper/utils"
)

var fixedNow = time.Date(2025, time.November, 27, 9, 0, 0, 0, time.UTC)

const searchPage = `
<html><body><ul>
  <li data-aut-id="itemBox">
    <a href="/item/toyota-calya-2018-iid-1"></a>
    <span data-aut-id="itemTitle">Toyota Calya</span>
    <span data-aut-id="itemPrice">Rp 150.000.000</span>
    <span data-aut-id="item-location">Duren Sawit, Jakarta Timur</span>
    <span><span>26 Nov</span></span>
    <span data-aut-id="itemSubTitle">2018 - 70.000-75.000 km</span>
  </li>
  <li data-aut-id="itemBox">
    <a href="/item/toyota-calya-2020-iid-2"></a>
    <span data-aut-id="itemTitle">Toyota Calya G</span>
    <span data-aut-id="itemPrice">Rp 165.000.000</span>
    <div data-aut-id="itemDetails">Kuta Alam<span>Kemarin</span></div>
    <span data-aut-id="itemInstallment">Rp 4,5 jt</span>
    <span data-aut-id="itemSubTitle">2020 - 30.000 km</span>
  </li>
</ul></body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		BaseURL:        "https://www.olx.co.id",
		SearchLocation: "Indonesia",
		DBDriver:       "sqlite",
		SQLitePath:     filepath.Join(dir, "db", "scrape_olx.db"),
		TableName:      "scrape_data",
		MaxConcurrency: 2,
		RateLimitMs:    0,
		MaxRetries:     1,
		DataDir:        filepath.Join(dir, "data"),
		AuditFormat:    "json",
	}
}

func snapshot(t *testing.T, html string) olx.Fetcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	return olx.FileFetcher{Path: path}
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{
		WithFetcher(snapshot(t, searchPage)),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return New(cfg, utils.NopLogger(), opts...)
}

func TestPathsFor(t *testing.T) {
	got := PathsFor("data", "BMW 3 Series", "yaml")
	want := Paths{
		HTML:        filepath.Join("data", "raw_html", "bmw_3_series.html"),
		Parsed:      filepath.Join("data", "parsed", "bmw_3_series.csv"),
		Transformed: filepath.Join("data", "transformed", "bmw_3_series_transformed.csv"),
		Inserted:    filepath.Join("data", "inserted", "bmw_3_series_inserted.yaml"),
	}
	if got != want {
		t.Errorf("PathsFor:\n got %+v\nwant %+v", got, want)
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)
	ctx := context.Background()

	res, err := p.Run(ctx, "Toyota Calya")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for _, path := range []string{res.Paths.HTML, res.Paths.Parsed, res.Paths.Transformed, res.Paths.Inserted} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected stage file %s: %v", path, err)
		}
	}

	if len(res.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(res.Listings))
	}
	first, second := res.Listings[0], res.Listings[1]
	if !first.InstallmentImputed || first.Installment == nil {
		t.Errorf("first listing should have an imputed installment: %+v", first)
	}
	if second.InstallmentImputed || second.Installment == nil || *second.Installment != 4_500_000 {
		t.Errorf("second listing should keep its scraped installment: %+v", second)
	}
	if second.PostedTime == nil || *second.PostedTime != "26 Nov" {
		t.Errorf("relative date should resolve against the clock, got %v", second.PostedTime)
	}
	if second.LowerKm == nil || *second.LowerKm != 30000 || *second.UpperKm != 30000 {
		t.Errorf("single mileage should fill both bounds: %v %v", second.LowerKm, second.UpperKm)
	}

	if res.Audit == nil || res.Audit.Count != 2 || res.Audit.Keyword != "Toyota Calya" {
		t.Errorf("unexpected audit: %+v", res.Audit)
	}

	loader, err := storage.OpenSQLLoader(ctx, storage.SQLLoaderOptions{
		Driver: storage.DriverSQLite, DSN: cfg.SQLitePath, Table: cfg.TableName,
	})
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer loader.Close()
	n, err := loader.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 2 {
		t.Errorf("stored rows: got %d, want 2", n)
	}
}

func TestStagesRequireInputs(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))
	ctx := context.Background()

	if err := p.Parse(ctx, "calya"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("Parse without HTML: got %v", err)
	} else if !strings.Contains(err.Error(), "calya.html") {
		t.Errorf("error should name the missing file: %v", err)
	}
	if _, err := p.Transform(ctx, "calya"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("Transform without parsed CSV: got %v", err)
	}
	if _, err := p.Load(ctx, "calya"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("Load without transformed CSV: got %v", err)
	}
}

func TestTransformReportsSchemaError(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)
	paths := p.Paths("calya")

	if err := os.MkdirAll(filepath.Dir(paths.Parsed), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Parsed, []byte("title,listing_url\nx,/a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.Transform(context.Background(), "calya")
	var schemaErr *services.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 5 {
		t.Errorf("missing columns: got %v", schemaErr.Missing)
	}
}

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, l []models.NormalizedListing) ([]models.NormalizedListing, error) {
	return l, nil
}

func (stubLoader) Close() error { return nil }

func TestLoadEmptyInputSkipsDatabase(t *testing.T) {
	var opened int32
	factory := func(context.Context) (storage.ListingLoader, error) {
		atomic.AddInt32(&opened, 1)
		return stubLoader{}, nil
	}

	cfg := testConfig(t)
	cfg.AuditFormat = "yaml"
	p := New(cfg, utils.NopLogger(),
		WithFetcher(snapshot(t, "<html><body><p>no results</p></body></html>")),
		WithLoaderFactory(factory))

	res, err := p.Run(context.Background(), "unknown car")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if opened != 0 {
		t.Errorf("database opened %d times for empty input", opened)
	}
	if len(res.Listings) != 0 || res.Audit.Count != 0 {
		t.Errorf("expected empty run, got %d listings / %d audited", len(res.Listings), res.Audit.Count)
	}
	if !strings.HasSuffix(res.Paths.Inserted, "unknown_car_inserted.yaml") {
		t.Errorf("audit path: %s", res.Paths.Inserted)
	}

	export, err := storage.ReadAudit(res.Paths.Inserted)
	if err != nil {
		t.Fatalf("ReadAudit error: %v", err)
	}
	if export.Records == nil || len(export.Records) != 0 {
		t.Errorf("empty audit should list no records: %+v", export.Records)
	}
}

func TestResumeSkipsExistingOutputs(t *testing.T) {
	cfg := testConfig(t)
	if _, err := newTestPipeline(t, cfg).Run(context.Background(), "calya"); err != nil {
		t.Fatalf("first Run error: %v", err)
	}

	failing := olx.FileFetcher{Path: filepath.Join(t.TempDir(), "missing.html")}
	var opened int32
	factory := func(context.Context) (storage.ListingLoader, error) {
		atomic.AddInt32(&opened, 1)
		return stubLoader{}, nil
	}
	p := New(cfg, utils.NopLogger(), WithFetcher(failing), WithLoaderFactory(factory), WithResume(true))

	res, err := p.Run(context.Background(), "calya")
	if err != nil {
		t.Fatalf("resumed Run error: %v", err)
	}
	if opened != 0 {
		t.Error("resumed load should not reopen the database")
	}
	if len(res.Listings) != 2 || res.Audit.Count != 2 {
		t.Errorf("resumed run should reuse stage files: %d listings, audit %+v", len(res.Listings), res.Audit)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testConfig(t)
	var fetches int32
	fetcher := fetcherFunc(func(ctx context.Context, q olx.SearchQuery) (string, error) {
		atomic.AddInt32(&fetches, 1)
		if q.Keyword == "broken" {
			return "", errors.New("blocked")
		}
		return searchPage, nil
	})
	p := New(cfg, utils.NopLogger(), WithFetcher(fetcher))

	results, errs := p.RunAll(context.Background(), []string{"Toyota Calya", "toyota calya", "Honda Jazz", "broken", " "})

	if fetches != 3 {
		t.Errorf("fetches: got %d, want 3 (duplicates and blanks skipped)", fetches)
	}
	if len(results) != 3 {
		t.Errorf("results: got %d, want 3", len(results))
	}
	if len(errs) != 1 || errs["broken"] == nil {
		t.Errorf("errors: got %v", errs)
	}
	if res := results["Honda Jazz"]; res == nil || len(res.Listings) != 2 {
		t.Errorf("Honda Jazz result: %+v", res)
	}
}

type fetcherFunc func(ctx context.Context, q olx.SearchQuery) (string, error)

func (f fetcherFunc) Fetch(ctx context.Context, q olx.SearchQuery) (string, error) { return f(ctx, q) }
