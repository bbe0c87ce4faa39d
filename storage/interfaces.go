package storage

import (
	"context"

	"olx-scraper/models"
)

// ListingLoader is the interface any database backend must satisfy.
type ListingLoader interface {
	// Load inserts listings and returns the records that were written.
	Load(ctx context.Context, listings []models.NormalizedListing) ([]models.NormalizedListing, error)
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []models.RawListing) error
	Close() error
}

// NormalizedListingWriter is the interface for persisting cleaned listings
// to a file.
type NormalizedListingWriter interface {
	WriteNormalized(listings []models.NormalizedListing) error
	Close() error
}
