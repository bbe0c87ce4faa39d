package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"olx-scraper/models"
	"olx-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []models.NormalizedListing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByLocation: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var (
		totalPrice float64
		totalYear  int
		yearCount  int
	)

	for i := range listings {
		l := &listings[i]
		if l.InstallmentImputed {
			report.ImputedInstallment++
		}
		if l.Location != nil {
			report.ListingsByLocation[*l.Location]++
		}
		if l.Year != nil {
			totalYear += *l.Year
			yearCount++
		}
		if l.Price == nil || *l.Price <= 0 {
			continue
		}

		p := *l.Price
		if report.PricedListings == 0 || p < report.MinPrice {
			report.MinPrice = p
			report.Cheapest = l
		}
		if p > report.MaxPrice {
			report.MaxPrice = p
		}
		totalPrice += p
		report.PricedListings++
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(totalPrice / float64(report.PricedListings))
	}
	if yearCount > 0 {
		report.AverageYear = round2(float64(totalYear) / float64(yearCount))
	}

	s.logger.Debug("[insights] %d listings, %d priced, %d imputed",
		report.TotalListings, report.PricedListings, report.ImputedInstallment)
	return report
}

func (s *InsightService) Print(w io.Writer, keyword string, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  OLX USED-CAR INSIGHTS: %s\n", keyword)
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n  %s\n", thin)
	fmt.Fprintf(w, "  Total listings          : %d\n", r.TotalListings)
	fmt.Fprintf(w, "  Listings with a price   : %d\n", r.PricedListings)
	fmt.Fprintf(w, "  Imputed installments    : %d\n", r.ImputedInstallment)
	if r.AverageYear > 0 {
		fmt.Fprintf(w, "  Average model year      : %.1f\n", r.AverageYear)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Price Statistics (IDR)\n  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : Rp %s\n", humanize.Commaf(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : Rp %s\n", humanize.Commaf(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : Rp %s\n", humanize.Commaf(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "  Cheapest Listing\n  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Cheapest.Title, 50))
		if r.Cheapest.ListingURL != nil {
			fmt.Fprintf(w, "  %s\n", *r.Cheapest.ListingURL)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Listings by Location\n  %s\n", thin)
	if len(r.ListingsByLocation) == 0 {
		fmt.Fprintf(w, "  No location data\n")
	} else {
		type locCount struct {
			loc   string
			count int
		}
		locs := make([]locCount, 0, len(r.ListingsByLocation))
		for loc, cnt := range r.ListingsByLocation {
			locs = append(locs, locCount{loc, cnt})
		}
		sort.Slice(locs, func(i, j int) bool {
			if locs[i].count != locs[j].count {
				return locs[i].count > locs[j].count
			}
			return locs[i].loc < locs[j].loc
		})
		for _, lc := range locs {
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(lc.loc, 28), strings.Repeat("█", lc.count), lc.count)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
