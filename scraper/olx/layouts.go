package olx

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"olx-scraper/models"
)

// placeAndTime is what a location layout pulls out of a listing container.
// postedRaw is the posted-time text before relative-date normalization.
type placeAndTime struct {
	location  string
	postedRaw string
}

// locationLayout recognises one markup variant for the location and
// posted-time pair. match returns false when the variant is not present.
type locationLayout struct {
	name  string
	match func(item *goquery.Selection) (placeAndTime, bool)
}

// defaultLayouts are tried in order; the first match wins.
var defaultLayouts = []locationLayout{
	{name: "location-marker", match: matchLocationMarker},
	{name: "details-block", match: matchDetailsBlock},
}

// matchLocationMarker handles the current card layout:
//
//	<span data-aut-id="item-location">Jetis, Yogyakarta Kota</span>
//	<span><span>18 Nov</span></span>
func matchLocationMarker(item *goquery.Selection) (placeAndTime, bool) {
	loc := item.Find(LocationSelector).First()
	if loc.Length() == 0 {
		return placeAndTime{}, false
	}

	out := placeAndTime{
		location:  orNotFound(joinedText(loc, "")),
		postedRaw: models.NotFound,
	}

	sibling := loc.Next()
	if sibling.Length() > 0 {
		inner := sibling.Find("span").First()
		if inner.Length() == 0 {
			inner = sibling
		}
		out.postedRaw = orNotFound(joinedText(inner, ""))
	}
	return out, true
}

// matchDetailsBlock handles the older card layout:
//
//	<div data-aut-id="itemDetails">Kuta Alam<span>Hari ini</span></div>
func matchDetailsBlock(item *goquery.Selection) (placeAndTime, bool) {
	details := item.Find(DetailsSelector).First()
	if details.Length() == 0 {
		return placeAndTime{}, false
	}
	contents := details.Contents()
	if contents.Length() == 0 {
		return placeAndTime{}, false
	}

	out := placeAndTime{postedRaw: models.NotFound}

	first := contents.First()
	if isTextNode(first) {
		out.location = orNotFound(strings.TrimSpace(first.Text()))
	} else {
		out.location = orNotFound(joinedText(details, " "))
	}

	if span := details.Find("span").First(); span.Length() > 0 {
		out.postedRaw = orNotFound(joinedText(span, ""))
	}
	return out, true
}

// joinedText collects the trimmed, non-empty text nodes under sel and joins
// them with sep.
func joinedText(sel *goquery.Selection, sep string) string {
	return strings.Join(collectText(sel, nil), sep)
}

func collectText(sel *goquery.Selection, parts []string) []string {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if isTextNode(c) {
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		parts = collectText(c, parts)
	})
	return parts
}

func isTextNode(sel *goquery.Selection) bool {
	return goquery.NodeName(sel) == "#text"
}

func orNotFound(s string) string {
	if s == "" {
		return models.NotFound
	}
	return s
}
