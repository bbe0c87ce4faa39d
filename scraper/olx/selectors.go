// Package olx turns OLX used-car search result pages into raw listing rows
// and provides the collaborators that acquire those pages.
package olx

// DefaultBaseURL is prefixed to relative listing paths.
const DefaultBaseURL = "https://www.olx.co.id"

// Markup markers. The data-aut-id attributes are stable across pagination
// and layout revisions, unlike the generated class names.
const (
	ItemSelector        = `li[data-aut-id="itemBox"]`
	TitleSelector       = `[data-aut-id="itemTitle"]`
	PriceSelector       = `[data-aut-id="itemPrice"]`
	LocationSelector    = `[data-aut-id="item-location"]`
	DetailsSelector     = `[data-aut-id="itemDetails"]`
	InstallmentSelector = `[data-aut-id="itemInstallment"]`
	SubtitleSelector    = `[data-aut-id="itemSubTitle"]`
	LinkSelector        = `a[href]`
)

// Browser-only selectors used while loading the search page.
const (
	locationInputSelector = `div[data-aut-id='locationBox'] input`
	locationItemSelector  = `div[data-aut-id='locationItem'] b`
	firstItemLinkSelector = `li[data-aut-id='itemBox']:first-child a`
	loadMoreSelector      = `button[data-aut-id='btnLoadMore']`
	closePopupSelector    = `button[aria-label='Close']`
)
