package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"olx-scraper/models"
)

// Audit file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// AuditExport is the full record of one load: every inserted listing,
// including the installment_imputed flag the database does not keep.
type AuditExport struct {
	RunID      string                     `json:"run_id" yaml:"run_id"`
	Keyword    string                     `json:"keyword" yaml:"keyword"`
	Table      string                     `json:"table" yaml:"table"`
	ExportedAt time.Time                  `json:"exported_at" yaml:"exported_at"`
	Count      int                        `json:"count" yaml:"count"`
	Records    []models.NormalizedListing `json:"records" yaml:"records"`
}

// NewAuditExport stamps records with a fresh run id.
func NewAuditExport(keyword, table string, records []models.NormalizedListing, now time.Time) *AuditExport {
	if records == nil {
		records = []models.NormalizedListing{}
	}
	return &AuditExport{
		RunID:      uuid.NewString(),
		Keyword:    keyword,
		Table:      table,
		ExportedAt: now.UTC(),
		Count:      len(records),
		Records:    records,
	}
}

// AuditExtension returns the file extension for format.
func AuditExtension(format string) string {
	if strings.EqualFold(format, FormatYAML) {
		return "yaml"
	}
	return "json"
}

// WriteAudit serialises export to path as indented JSON or YAML.
func WriteAudit(path, format string, export *AuditExport) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case FormatYAML:
		data, err = yaml.Marshal(export)
	case FormatJSON, "":
		data, err = json.MarshalIndent(export, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("audit: unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("audit: encode %s: %w", format, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("audit: create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("audit: write %q: %w", path, err)
	}
	return nil
}

// ReadAudit loads an audit file written by WriteAudit. The format is taken
// from the file extension.
func ReadAudit(path string) (*AuditExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read %q: %w", path, err)
	}

	var export AuditExport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &export)
	default:
		err = json.Unmarshal(data, &export)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: decode %q: %w", path, err)
	}
	return &export, nil
}
