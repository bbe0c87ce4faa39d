package olx

import (
	"strings"
	"testing"

	"olx-scraper/config"
	"olx-scraper/utils"
)

func TestLocationSuggestionXPath(t *testing.T) {
	got := locationSuggestionXPath("Jakarta Selatan")
	want := `//div[@data-aut-id='locationItem']//b[contains(., 'Jakarta Selatan')]`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestFindChromeBinaryPrefersEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/chrome/chrome")
	if got := findChromeBinary(); got != "/opt/chrome/chrome" {
		t.Errorf("findChromeBinary: got %q", got)
	}
}

func TestNewBrowserFetcherRetries(t *testing.T) {
	cfg := &config.Config{MaxRetries: 4}
	b := NewBrowserFetcher(cfg, utils.NopLogger())
	if b.retry.MaxAttempts != 4 {
		t.Errorf("MaxAttempts: got %d, want 4", b.retry.MaxAttempts)
	}
	if !strings.HasPrefix(SearchURL(DefaultBaseURL, "Pajero Sport"), DefaultBaseURL) {
		t.Error("search URL should start with the base URL")
	}
}
