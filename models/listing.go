package models

// NotFound is the placeholder stored in a RawListing field whose marker was
// absent from the listing markup. It only lives in the raw table; the
// normalizer turns it into a missing (nil) value.
const NotFound = "data not found"

// Raw table column names, in the order the extractor emits them.
const (
	ColTitle       = "title"
	ColPrice       = "price"
	ColListingURL  = "listing_url"
	ColLocation    = "location"
	ColPostedTime  = "posted_time"
	ColInstallment = "installment"
	ColYearMileage = "year_mileage"

	ColYear               = "year"
	ColLowerKm            = "lower_km"
	ColUpperKm            = "upper_km"
	ColInstallmentImputed = "installment_imputed"
)

// RawColumns is the header of the extractor's output table.
var RawColumns = []string{
	ColTitle, ColPrice, ColListingURL, ColLocation,
	ColPostedTime, ColInstallment, ColYearMileage,
}

// NormalizedColumns is the header of the normalizer's output table.
var NormalizedColumns = []string{
	ColTitle, ColPrice, ColListingURL, ColLocation, ColPostedTime,
	ColYear, ColLowerKm, ColUpperKm, ColInstallment, ColInstallmentImputed,
}

// RawListing holds the text pulled out of one listing container.
// Every field carries either extracted text or NotFound.
type RawListing struct {
	Title       string
	Price       string
	ListingURL  string
	Location    string
	PostedTime  string
	Installment string
	YearMileage string
}

// Values returns the fields in RawColumns order.
func (r RawListing) Values() []string {
	return []string{
		r.Title, r.Price, r.ListingURL, r.Location,
		r.PostedTime, r.Installment, r.YearMileage,
	}
}

// NormalizedListing is the cleaned, typed record ready for storage.
// A nil pointer means the value is missing.
type NormalizedListing struct {
	Title              string   `json:"title" yaml:"title"`
	Price              *float64 `json:"price" yaml:"price"`
	ListingURL         *string  `json:"listing_url" yaml:"listing_url"`
	Location           *string  `json:"location" yaml:"location"`
	PostedTime         *string  `json:"posted_time" yaml:"posted_time"`
	Year               *int     `json:"year" yaml:"year"`
	LowerKm            *float64 `json:"lower_km" yaml:"lower_km"`
	UpperKm            *float64 `json:"upper_km" yaml:"upper_km"`
	Installment        *float64 `json:"installment" yaml:"installment"`
	InstallmentImputed bool     `json:"installment_imputed" yaml:"installment_imputed"`
}

// InsightReport summarises a batch of normalized listings.
type InsightReport struct {
	TotalListings      int
	PricedListings     int
	ImputedInstallment int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	AverageYear        float64
	Cheapest           *NormalizedListing
	ListingsByLocation map[string]int
}
