package olx

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SearchQuery identifies one search result page.
type SearchQuery struct {
	Keyword  string
	Location string
}

// Fetcher acquires the full HTML of a search result page.
type Fetcher interface {
	Fetch(ctx context.Context, q SearchQuery) (string, error)
}

// SearchURL builds the used-car search URL for keyword,
// e.g. "BMW 3 Series" -> <base>/mobil-bekas_c198/q-bmw-3-series.
func SearchURL(base, keyword string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(keyword)), " ", "-")
	return strings.TrimRight(base, "/") + "/mobil-bekas_c198/q-" + slug
}

// FileFetcher serves a saved HTML snapshot instead of hitting the site.
type FileFetcher struct {
	Path string
}

// Fetch reads the snapshot file. The query is ignored.
func (f FileFetcher) Fetch(ctx context.Context, _ SearchQuery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("olx: read snapshot %q: %w", f.Path, err)
	}
	return string(data), nil
}
