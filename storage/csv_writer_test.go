package storage

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"feed-price-qa/models"
)

func sampleRecords() []models.ComparisonRecord {
	return []models.ComparisonRecord{
		{Origin: "JFK", Destination: "LAX", FeedPrice: 100, QuotedPrice: 95, Diff: 5, QuoteStatus: models.QuoteFound},
		{Origin: "BOS", Destination: "MIA, FL", FeedPrice: 250, QuotedPrice: 0, Diff: 250, QuoteStatus: models.QuoteFailed},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestHeader(t *testing.T) {
	want := []string{"origin", "destination", "feedPrice", "trfx", "diff"}
	got := Header()
	if len(got) != len(want) {
		t.Fatalf("Header: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Header[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.csv")
	records := sampleRecords()
	stats := models.SummaryStats{Total: 2, Discrepancies: 1, Threshold: 5}

	if err := NewCSVWriter(path).Write(records, stats); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 1+len(records)+3 {
		t.Fatalf("rows: got %d, want %d", len(rows), 1+len(records)+3)
	}

	for i, rec := range records {
		row := rows[i+1]
		feed, _ := strconv.ParseInt(row[2], 10, 64)
		quoted, _ := strconv.ParseInt(row[3], 10, 64)
		diff, _ := strconv.ParseInt(row[4], 10, 64)
		got := models.ComparisonRecord{
			Origin: row[0], Destination: row[1],
			FeedPrice: feed, QuotedPrice: quoted, Diff: diff,
			QuoteStatus: rec.QuoteStatus,
		}
		if got != rec {
			t.Errorf("row %d: got %+v, want %+v", i, got, rec)
		}
	}

	trailer := rows[len(rows)-3:]
	wantLabels := []string{"* Total 2", "* Total Discrepancies 1", "* Rate: 50.00%"}
	for i, label := range wantLabels {
		if trailer[i][0] != label {
			t.Errorf("summary row %d: got %q, want %q", i, trailer[i][0], label)
		}
		for _, cell := range trailer[i][1:] {
			if cell != "" {
				t.Errorf("summary row %d should only fill the origin column, got %v", i, trailer[i])
			}
		}
	}
}

func TestCSVWriterOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := os.WriteFile(path, []byte("stale\nstale\nstale\nstale\nstale\nstale\nstale\n"), 0644); err != nil {
		t.Fatal(err)
	}

	records := sampleRecords()[:1]
	if err := NewCSVWriter(path).Write(records, models.SummaryStats{Total: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rows := readCSV(t, path); len(rows) != 5 {
		t.Errorf("rows: got %d, want 5", len(rows))
	}
}

func TestCSVWriterWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	err := NewCSVWriter(filepath.Join(blocker, "report.csv")).Write(sampleRecords(), models.SummaryStats{Total: 2})
	var werr *models.WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("err: got %v, want WriteError", err)
	}
}
