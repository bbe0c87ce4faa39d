package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"olx-scraper/models"
)

var (
	// nonDigitRegexp strips everything but digits from a price.
	nonDigitRegexp = regexp.MustCompile(`[^\d]`)
	// numberTokenRegexp captures numbers with embedded thousands dots, e.g. "70.000".
	numberTokenRegexp = regexp.MustCompile(`\d[\d.]*`)
	// locationSplitRegexp matches the separators between location segments.
	locationSplitRegexp = regexp.MustCompile(`\.|,| \| | - `)
	// installmentRegexp strips everything but digits and separators.
	installmentRegexp = regexp.MustCompile(`[^0-9,.]`)
)

// maxPostedTimeLen is the longest accepted posted_time, e.g. "26 Nov".
const maxPostedTimeLen = 7

// isMissing reports whether a raw cell holds no usable value.
func isMissing(raw string) bool {
	return raw == "" || raw == models.NotFound
}

// CleanPrice parses "Rp 450.000.000" into 450000000.
func CleanPrice(raw string) (float64, bool) {
	if isMissing(raw) {
		return 0, false
	}
	digits := nonDigitRegexp.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// YearMileage is the parsed form of a "2018 - 70.000-75.000 km" subtitle.
type YearMileage struct {
	Year    *int
	LowerKm *float64
	UpperKm *float64
}

// ParseYearMileage splits a subtitle into year and mileage range. The first
// number is the year; the next one or two are the lower and upper mileage.
// A single mileage number is used for both bounds.
func ParseYearMileage(raw string) YearMileage {
	var out YearMileage
	if isMissing(raw) || raw == "-" {
		return out
	}

	tokens := numberTokenRegexp.FindAllString(raw, -1)
	if len(tokens) == 0 {
		return out
	}

	if year, err := strconv.Atoi(tokens[0]); err == nil {
		out.Year = &year
	}

	km := make([]float64, 0, 2)
	for _, tok := range tokens[1:] {
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ".", ""), 64)
		if err != nil {
			continue
		}
		km = append(km, v)
	}

	switch {
	case len(km) == 1:
		lower, upper := km[0], km[0]
		out.LowerKm, out.UpperKm = &lower, &upper
	case len(km) >= 2:
		lower, upper := km[0], km[1]
		out.LowerKm, out.UpperKm = &lower, &upper
	}
	return out
}

// EnrichURL makes a listing path absolute against baseURL.
func EnrichURL(raw, baseURL string) (string, bool) {
	if raw == models.NotFound {
		return "", false
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "http") {
		return s, true
	}
	return strings.TrimRight(baseURL, "/") + s, true
}

// CleanLocation keeps the first segment of a location, e.g. "Jakarta" from
// "Jakarta - Selatan" or "Duren Sawit" from "Duren Sawit, Jakarta Timur".
func CleanLocation(raw string) (string, bool) {
	if isMissing(raw) {
		return "", false
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(locationSplitRegexp.Split(s, 2)[0])
	if s == "" {
		return "", false
	}
	return s, true
}

// CleanInstallment parses a monthly installment expressed in millions,
// e.g. "Rp 8,9 jt/bulan" -> 8900000. When both separators occur the dot is
// the thousands separator and the comma the decimal point.
func CleanInstallment(raw string) (float64, bool) {
	if isMissing(raw) {
		return 0, false
	}
	s := installmentRegexp.ReplaceAllString(strings.ToLower(raw), "")
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	base, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return base * 1_000_000, true
}

// CleanPostedTime accepts short "<day> <month>" strings only.
func CleanPostedTime(raw string) (string, bool) {
	if isMissing(raw) {
		return "", false
	}
	s := strings.TrimSpace(raw)
	if s == "" || utf8.RuneCountInString(s) > maxPostedTimeLen {
		return "", false
	}
	return s, true
}

// Financing assumptions behind EstimateInstallment.
const (
	downPaymentRate = 0.30
	otherCostsRate  = 0.11
	interestRate    = 0.20
	tenorMonths     = 36
)

// EstimateInstallment approximates the monthly installment for a car
// financed over 36 months: 30% down payment, 11% other costs added to the
// loan, 20% flat interest. Non-positive prices have no estimate.
func EstimateInstallment(price float64) (float64, bool) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}
	downPayment := downPaymentRate * price
	otherCosts := otherCostsRate * price
	loan := (price - downPayment) + otherCosts
	interest := interestRate * loan

	return round2((loan + interest) / tenorMonths), true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
