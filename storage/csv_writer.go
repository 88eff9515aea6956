package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"facility-finder/models"
)

var csvHeader = []string{
	"ccn", "provider_name", "address", "city", "state", "zip", "ownership_type",
	"certified_beds", "overall_rating", "google_name", "google_rating",
	"distance_km", "review_count", "summary", "pros", "cons",
}

// CSVWriter exports enriched facilities to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per facility.
func (c *CSVWriter) Write(facilities []models.EnrichedFacility) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range facilities {
		if err := c.writer.Write(csvRow(f)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func csvRow(f models.EnrichedFacility) []string {
	return []string{
		f.CCN,
		f.ProviderName,
		f.ProviderAddress,
		f.City,
		f.State,
		f.Zip,
		f.OwnershipType,
		strconv.Itoa(f.CertifiedBeds),
		f.OverallRating,
		stringOrEmpty(f.DisplayName),
		floatOrEmpty(f.Rating, 1),
		floatOrEmpty(f.DistanceKm, 2),
		strconv.Itoa(len(f.Reviews)),
		f.AISummary.Summary,
		strings.Join(f.AISummary.Pros, "; "),
		strings.Join(f.AISummary.Cons, "; "),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
