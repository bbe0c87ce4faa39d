package services

import (
	"fmt"
	"strconv"
	"strings"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// RequiredColumns must all be present in a table handed to Normalize.
var RequiredColumns = []string{
	models.ColPrice,
	models.ColYearMileage,
	models.ColListingURL,
	models.ColLocation,
	models.ColInstallment,
	models.ColPostedTime,
}

// SchemaError reports required columns absent from the input table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("normalize: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Normalizer turns raw listing tables into typed, cleaned listings.
// It is stateless apart from its configuration and safe for concurrent use.
type Normalizer struct {
	baseURL string
	logger  *utils.Logger
}

// NewNormalizer creates a Normalizer that absolutizes links against baseURL.
func NewNormalizer(baseURL string, logger *utils.Logger) *Normalizer {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Normalizer{baseURL: baseURL, logger: logger}
}

// Normalize cleans every row of t. It fails only when a required column is
// missing; unparseable cells become missing values. Rows map 1:1 to output.
func (n *Normalizer) Normalize(t *models.Table) ([]models.NormalizedListing, error) {
	if t == nil {
		return []models.NormalizedListing{}, nil
	}
	if missing := t.Missing(RequiredColumns...); len(missing) > 0 {
		err := &SchemaError{Missing: missing}
		n.logger.Error("[transform] %v", err)
		return nil, err
	}

	n.logger.Info("[transform] Start transform of %d rows", t.Len())

	out := make([]models.NormalizedListing, 0, t.Len())
	imputed := 0
	for i := range t.Rows {
		l := n.normalizeRow(t, i)
		if n.imputeInstallment(i, &l) {
			imputed++
		}
		out = append(out, l)
	}

	if imputed > 0 {
		n.logger.Info("[transform] Imputed installment for %d rows based on price", imputed)
	} else {
		n.logger.Info("[transform] No installment imputed")
	}

	n.logger.Info("[transform] Completed: %d rows", len(out))
	return out, nil
}

// NormalizeRaw is Normalize over extractor output.
func (n *Normalizer) NormalizeRaw(listings []models.RawListing) ([]models.NormalizedListing, error) {
	return n.Normalize(models.TableFromRaw(listings))
}

func (n *Normalizer) normalizeRow(t *models.Table, i int) models.NormalizedListing {
	cell := func(col string) string {
		v, _ := t.Cell(i, col)
		return v
	}

	l := models.NormalizedListing{Title: cell(models.ColTitle)}

	if raw := cell(models.ColPrice); !isMissing(raw) {
		if v, ok := CleanPrice(raw); ok {
			l.Price = &v
		} else {
			n.logger.Debug("[transform] Row %d: unparseable price %q", i, raw)
		}
	}

	ym := ParseYearMileage(cell(models.ColYearMileage))
	if ym.Year == nil && ym.LowerKm == nil && ym.UpperKm == nil {
		if raw := cell(models.ColYearMileage); !isMissing(raw) && raw != "-" {
			n.logger.Debug("[transform] Row %d: no numbers in year_mileage %q", i, raw)
		}
		ym = n.passthroughYearMileage(t, i)
	}
	l.Year, l.LowerKm, l.UpperKm = ym.Year, ym.LowerKm, ym.UpperKm

	if raw := cell(models.ColListingURL); !isMissing(raw) {
		if v, ok := EnrichURL(raw, n.baseURL); ok {
			l.ListingURL = &v
		} else {
			n.logger.Debug("[transform] Row %d: empty listing_url", i)
		}
	}

	if v, ok := CleanLocation(cell(models.ColLocation)); ok {
		l.Location = &v
	}

	if raw := cell(models.ColInstallment); !isMissing(raw) {
		if v, ok := CleanInstallment(raw); ok {
			l.Installment = &v
		} else {
			n.logger.Debug("[transform] Row %d: unparseable installment %q", i, raw)
		}
	}

	if raw := cell(models.ColPostedTime); !isMissing(raw) {
		if v, ok := CleanPostedTime(raw); ok {
			l.PostedTime = &v
		} else {
			n.logger.Debug("[transform] Row %d: invalid posted_time %q", i, raw)
		}
	}

	return l
}

// passthroughYearMileage reads already-normalized year/lower_km/upper_km
// columns when the table carries them, so re-normalizing output that has
// lost its subtitle keeps those values.
func (n *Normalizer) passthroughYearMileage(t *models.Table, i int) YearMileage {
	var out YearMileage
	if v, ok := t.Cell(i, models.ColYear); ok {
		if year, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			out.Year = &year
		}
	}
	if v, ok := t.Cell(i, models.ColLowerKm); ok {
		if km, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out.LowerKm = &km
		}
	}
	if v, ok := t.Cell(i, models.ColUpperKm); ok {
		if km, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out.UpperKm = &km
		}
	}
	return out
}

// imputeInstallment fills a missing installment from price and reports
// whether it did.
func (n *Normalizer) imputeInstallment(i int, l *models.NormalizedListing) bool {
	if l.Installment != nil || l.Price == nil {
		return false
	}
	est, ok := EstimateInstallment(*l.Price)
	if !ok {
		return false
	}
	l.Installment = &est
	l.InstallmentImputed = true
	n.logger.Debug("[transform] Row %d: price=%.0f estimated installment=%.2f", i, *l.Price, est)
	return true
}
