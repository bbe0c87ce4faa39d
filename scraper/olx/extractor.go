package olx

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// Extractor pulls one RawListing out of every listing container on a search
// result page. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	baseURL string
	now     func() time.Time
	layouts []locationLayout
	logger  *utils.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithClock sets the time source used to resolve relative posting dates.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithBaseURL sets the origin prefixed to relative listing links.
func WithBaseURL(base string) Option {
	return func(e *Extractor) { e.baseURL = strings.TrimRight(base, "/") }
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(logger *utils.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = utils.NopLogger()
	}
	e := &Extractor{
		baseURL: DefaultBaseURL,
		now:     time.Now,
		layouts: defaultLayouts,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses a search result document and returns one RawListing per
// listing container, in document order. A page without containers yields an
// empty slice.
func (e *Extractor) Extract(html string) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("olx: parse document: %w", err)
	}

	items := doc.Find(ItemSelector)
	e.logger.Info("[parse] Found %d listing containers", items.Length())

	now := e.now()
	listings := make([]models.RawListing, 0, items.Length())
	items.Each(func(i int, item *goquery.Selection) {
		listings = append(listings, e.extractItem(i, item, now))
	})
	return listings, nil
}

// ExtractTable is Extract shaped as the raw table the normalizer consumes.
func (e *Extractor) ExtractTable(html string) (*models.Table, error) {
	listings, err := e.Extract(html)
	if err != nil {
		return nil, err
	}
	return models.TableFromRaw(listings), nil
}

func (e *Extractor) extractItem(idx int, item *goquery.Selection, now time.Time) models.RawListing {
	l := models.RawListing{
		Title:       e.textOf(idx, item, TitleSelector, "title", ""),
		Price:       e.textOf(idx, item, PriceSelector, "price", ""),
		ListingURL:  e.linkOf(idx, item),
		Location:    models.NotFound,
		PostedTime:  models.NotFound,
		Installment: e.textOf(idx, item, InstallmentSelector, "installment", ""),
		YearMileage: e.textOf(idx, item, SubtitleSelector, "year_mileage", " "),
	}

	for _, layout := range e.layouts {
		m, ok := layout.match(item)
		if !ok {
			continue
		}
		l.Location = m.location
		if m.postedRaw != models.NotFound {
			l.PostedTime = orNotFound(RelativeDate(m.postedRaw, now))
		}
		e.logger.Debug("[parse] Listing #%d: location via %s layout", idx, layout.name)
		break
	}
	if l.Location == models.NotFound {
		e.logger.Debug("[parse] Listing #%d: missing location", idx)
	}

	return l
}

func (e *Extractor) textOf(idx int, item *goquery.Selection, selector, field, sep string) string {
	sel := item.Find(selector).First()
	if sel.Length() == 0 {
		e.logger.Debug("[parse] Listing #%d: missing %s", idx, field)
		return models.NotFound
	}
	return orNotFound(joinedText(sel, sep))
}

func (e *Extractor) linkOf(idx int, item *goquery.Selection) string {
	href, ok := item.Find(LinkSelector).First().Attr("href")
	if !ok {
		e.logger.Debug("[parse] Listing #%d: missing URL <a href>", idx)
		return models.NotFound
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return models.NotFound
	}
	return AbsoluteURL(e.baseURL, href)
}

// AbsoluteURL prefixes base to href unless href already carries an HTTP scheme.
func AbsoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimRight(base, "/") + href
}
