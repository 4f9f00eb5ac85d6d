package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"feed-price-qa/models"
)

// CSVWriter writes the discrepancy report: one header, one row per record,
// then the total, discrepancy count and rate rows.
type CSVWriter struct {
	path string
}

// NewCSVWriter returns a writer for path. Nothing touches disk until Write.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (c *CSVWriter) Path() string { return c.path }

// Header returns the report columns, taken from ComparisonRecord's csv tags.
func Header() []string {
	t := reflect.TypeOf(models.ComparisonRecord{})
	cols := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("csv")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

func recordRow(r models.ComparisonRecord) []string {
	return []string{
		r.Origin,
		r.Destination,
		strconv.FormatInt(r.FeedPrice, 10),
		strconv.FormatInt(r.QuotedPrice, 10),
		strconv.FormatInt(r.Diff, 10),
	}
}

// summaryRow puts label in the first column and pads the rest.
func summaryRow(label string, width int) []string {
	row := make([]string, width)
	row[0] = label
	return row
}

// Write creates (or truncates) the report file, creating parent
// directories. Any failure is returned as a *models.WriteError.
func (c *CSVWriter) Write(records []models.ComparisonRecord, stats models.SummaryStats) (err error) {
	fail := func(e error) error { return &models.WriteError{Path: c.path, Err: e} }

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fail(fmt.Errorf("create output dir: %w", err))
	}

	f, err := os.Create(c.path)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fail(cerr)
		}
	}()

	w := csv.NewWriter(f)
	header := Header()

	if err := w.Write(header); err != nil {
		return fail(fmt.Errorf("write header: %w", err))
	}
	for _, r := range records {
		if err := w.Write(recordRow(r)); err != nil {
			return fail(fmt.Errorf("write row: %w", err))
		}
	}

	trailer := [][]string{
		summaryRow(fmt.Sprintf("* Total %d", stats.Total), len(header)),
		summaryRow(fmt.Sprintf("* Total Discrepancies %d", stats.Discrepancies), len(header)),
		summaryRow("* Rate: "+stats.RateString(), len(header)),
	}
	if err := w.WriteAll(trailer); err != nil {
		return fail(fmt.Errorf("write summary: %w", err))
	}
	return nil
}
