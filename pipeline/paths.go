package pipeline

import (
	"path/filepath"
	"strings"

	"olx-scraper/storage"
)

// Stage directories under the data root.
const (
	RawHTMLDir     = "raw_html"
	ParsedDir      = "parsed"
	TransformedDir = "transformed"
	InsertedDir    = "inserted"
)

// Paths are the files one keyword run reads and writes.
type Paths struct {
	HTML        string
	Parsed      string
	Transformed string
	Inserted    string
}

// Slug turns a keyword into a file name stem, e.g. "BMW 3 Series" -> "bmw_3_series".
func Slug(keyword string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(keyword)), " ", "_")
}

// PathsFor lays out the stage files for keyword under dataDir.
func PathsFor(dataDir, keyword, auditFormat string) Paths {
	slug := Slug(keyword)
	return Paths{
		HTML:        filepath.Join(dataDir, RawHTMLDir, slug+".html"),
		Parsed:      filepath.Join(dataDir, ParsedDir, slug+".csv"),
		Transformed: filepath.Join(dataDir, TransformedDir, slug+"_transformed.csv"),
		Inserted:    filepath.Join(dataDir, InsertedDir, slug+"_inserted."+storage.AuditExtension(auditFormat)),
	}
}
