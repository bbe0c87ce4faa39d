package services

import (
	"math"
	"testing"

	"olx-scraper/models"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"Rp 450.000.000", 450000000, true},
		{"450000000", 450000000, true},
		{"Rp 1,250,000", 1250000, true},
		{models.NotFound, 0, false},
		{"", 0, false},
		{"Hubungi penjual", 0, false},
	}

	for _, tt := range tests {
		got, ok := CleanPrice(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("CleanPrice(%q) = (%.0f, %v); want (%.0f, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseYearMileage(t *testing.T) {
	tests := []struct {
		raw          string
		year         int
		lower, upper float64
		hasYear      bool
		hasKm        bool
	}{
		{"2018 - 70.000-75.000 km", 2018, 70000, 75000, true, true},
		{"2018 • 70.000-75.000 km", 2018, 70000, 75000, true, true},
		{"2015 - 120.000 km", 2015, 120000, 120000, true, true},
		{"2020 - 0-5.000 km - 1 pemilik", 2020, 0, 5000, true, true},
		{"2019", 2019, 0, 0, true, false},
		{"2019.5 - 10.000 km", 0, 10000, 10000, false, true},
	}

	for _, tt := range tests {
		got := ParseYearMileage(tt.raw)
		if tt.hasYear {
			if got.Year == nil || *got.Year != tt.year {
				t.Errorf("ParseYearMileage(%q).Year = %v; want %d", tt.raw, got.Year, tt.year)
			}
		} else if got.Year != nil {
			t.Errorf("ParseYearMileage(%q).Year = %d; want missing", tt.raw, *got.Year)
		}

		if !tt.hasKm {
			if got.LowerKm != nil || got.UpperKm != nil {
				t.Errorf("ParseYearMileage(%q): mileage should be missing", tt.raw)
			}
			continue
		}
		if got.LowerKm == nil || got.UpperKm == nil {
			t.Fatalf("ParseYearMileage(%q): mileage missing", tt.raw)
		}
		if *got.LowerKm != tt.lower || *got.UpperKm != tt.upper {
			t.Errorf("ParseYearMileage(%q) km = (%.0f, %.0f); want (%.0f, %.0f)",
				tt.raw, *got.LowerKm, *got.UpperKm, tt.lower, tt.upper)
		}
	}
}

func TestParseYearMileageMissing(t *testing.T) {
	for _, raw := range []string{models.NotFound, "", "-", "km"} {
		got := ParseYearMileage(raw)
		if got.Year != nil || got.LowerKm != nil || got.UpperKm != nil {
			t.Errorf("ParseYearMileage(%q) = %+v; want all missing", raw, got)
		}
	}
}

func TestEnrichURL(t *testing.T) {
	base := "https://www.olx.co.id"
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"/item/calya-iid-1", "https://www.olx.co.id/item/calya-iid-1", true},
		{"https://www.olx.co.id/item/x", "https://www.olx.co.id/item/x", true},
		{"http://other.test/a", "http://other.test/a", true},
		{"  /item/y ", "https://www.olx.co.id/item/y", true},
		{models.NotFound, "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := EnrichURL(tt.raw, base)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("EnrichURL(%q) = (%q, %v); want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanLocation(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"Duren Sawit, Jakarta Timur", "Duren Sawit", true},
		{"Jakarta - Selatan", "Jakarta", true},
		{"Bandung | Jawa Barat", "Bandung", true},
		{"Kec. Tebet", "Kec", true},
		{"  Kuta Alam  ", "Kuta Alam", true},
		{"Jakarta-Selatan", "Jakarta-Selatan", true},
		{models.NotFound, "", false},
		{".", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanLocation(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("CleanLocation(%q) = (%q, %v); want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanInstallment(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"Rp 8,9 jt/bulan", 8.9e6, true},
		{"8,9jt-an/bln", 8.9e6, true},
		{"Rp 4.5 jt", 4.5e6, true},
		{"1.234,5", 1234.5e6, true},
		{"Rp 7 jt", 7e6, true},
		{"8.9.1", 0, false},
		{"cicilan", 0, false},
		{models.NotFound, 0, false},
	}
	for _, tt := range tests {
		got, ok := CleanInstallment(tt.raw)
		if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("CleanInstallment(%q) = (%.2f, %v); want (%.2f, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCleanPostedTime(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"26 Nov", "26 Nov", true},
		{" 3 Mei ", "3 Mei", true},
		{"4 hari yang lalu", "", false},
		{models.NotFound, "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanPostedTime(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("CleanPostedTime(%q) = (%q, %v); want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEstimateInstallment(t *testing.T) {
	price := 500_000_000.0
	got, ok := EstimateInstallment(price)
	if !ok {
		t.Fatal("expected an estimate for a positive price")
	}

	downPayment := 0.3 * price
	otherCosts := 0.11 * price
	loan := (price - downPayment) + otherCosts
	interest := 0.20 * loan
	want := math.Round((loan+interest)/36*100) / 100

	if got != want {
		t.Errorf("EstimateInstallment(%.0f) = %.2f; want %.2f", price, got, want)
	}
	if math.Abs(got-13_500_000) > 0.01 {
		t.Errorf("EstimateInstallment(%.0f) = %.2f; want about 13500000", price, got)
	}

	for _, p := range []float64{0, -1, math.NaN()} {
		if _, ok := EstimateInstallment(p); ok {
			t.Errorf("EstimateInstallment(%v) should have no estimate", p)
		}
	}
}
