package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// CSVWriter writes listing tables to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var (
	_ RawListingWriter        = (*CSVWriter)(nil)
	_ NormalizedListingWriter = (*CSVWriter)(nil)
)

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw listings in models.RawColumns order.
func (c *CSVWriter) WriteRaw(listings []models.RawListing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, l.Values())
	}
	return c.writeRows(rows)
}

// WriteNormalized appends cleaned listings in models.NormalizedColumns order.
// Missing values become empty cells.
func (c *CSVWriter) WriteNormalized(listings []models.NormalizedListing) error {
	rows := make([][]string, 0, len(listings))
	for i := range listings {
		rows = append(rows, NormalizedRow(&listings[i]))
	}
	return c.writeRows(rows)
}

func (c *CSVWriter) writeRows(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return c.file.Close()
}

// WriteRawCSV writes a complete raw table to path.
func WriteRawCSV(path string, listings []models.RawListing) error {
	w, err := NewCSVWriter(path, models.RawColumns)
	if err != nil {
		return err
	}
	if err := w.WriteRaw(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// WriteNormalizedCSV writes a complete normalized table to path.
func WriteNormalizedCSV(path string, listings []models.NormalizedListing) error {
	w, err := NewCSVWriter(path, models.NormalizedColumns)
	if err != nil {
		return err
	}
	if err := w.WriteNormalized(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// NormalizedRow renders l as CSV cells in models.NormalizedColumns order.
func NormalizedRow(l *models.NormalizedListing) []string {
	return []string{
		l.Title,
		formatFloat(l.Price),
		formatString(l.ListingURL),
		formatString(l.Location),
		formatString(l.PostedTime),
		formatInt(l.Year),
		formatFloat(l.LowerKm),
		formatFloat(l.UpperKm),
		formatFloat(l.Installment),
		strconv.FormatBool(l.InstallmentImputed),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ReadTableCSV loads a CSV file with a header row into a table. Ragged rows
// are padded or truncated to the header width.
func ReadTableCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: %q has no header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := models.NewTable(header)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w", path, err)
		}
		if len(row) > len(header) {
			row = row[:len(header)]
		}
		t.Append(row)
	}
	return t, nil
}

// ReadNormalizedCSV loads a file written by WriteNormalizedCSV. Cells that
// do not parse are treated as missing; an unparseable year is logged.
func ReadNormalizedCSV(path string, logger *utils.Logger) ([]models.NormalizedListing, error) {
	t, err := ReadTableCSV(path)
	if err != nil {
		return nil, err
	}
	return DecodeNormalized(t, logger)
}

// DecodeNormalized converts a normalized table back into listings.
func DecodeNormalized(t *models.Table, logger *utils.Logger) ([]models.NormalizedListing, error) {
	if missing := t.Missing(models.ColTitle, models.ColPrice, models.ColListingURL); len(missing) > 0 {
		return nil, fmt.Errorf("csv: normalized table missing columns: %s", strings.Join(missing, ", "))
	}

	out := make([]models.NormalizedListing, 0, t.Len())
	for i := range t.Rows {
		cell := func(col string) string {
			v, _ := t.Cell(i, col)
			return strings.TrimSpace(v)
		}

		l := models.NormalizedListing{
			Title:       cell(models.ColTitle),
			Price:       parseFloat(cell(models.ColPrice)),
			ListingURL:  parseString(cell(models.ColListingURL)),
			Location:    parseString(cell(models.ColLocation)),
			PostedTime:  parseString(cell(models.ColPostedTime)),
			LowerKm:     parseFloat(cell(models.ColLowerKm)),
			UpperKm:     parseFloat(cell(models.ColUpperKm)),
			Installment: parseFloat(cell(models.ColInstallment)),
		}
		l.InstallmentImputed, _ = strconv.ParseBool(cell(models.ColInstallmentImputed))

		if raw := cell(models.ColYear); raw != "" {
			if year, ok := parseYear(raw); ok {
				l.Year = &year
			} else {
				logger.Warn("[load] Invalid year value %q in row %d, stored as NULL", raw, i)
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseYear accepts "2015" as well as "2015.0".
func parseYear(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > 1e9 {
		return 0, false
	}
	return int(f), true
}
