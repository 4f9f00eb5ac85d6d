package services

import (
	"testing"

	"feed-price-qa/models"
)

func records(diffs ...int64) []models.ComparisonRecord {
	out := make([]models.ComparisonRecord, len(diffs))
	for i, d := range diffs {
		out[i] = models.ComparisonRecord{Origin: "O", Destination: "D", Diff: d}
	}
	return out
}

func TestSummarizeScenario(t *testing.T) {
	agg := NewAggregator(5, newTestLogger())
	stats := agg.Summarize(records(3, 10))

	if stats.Total != 2 || stats.Discrepancies != 1 {
		t.Errorf("got total %d, discrepancies %d; want 2, 1", stats.Total, stats.Discrepancies)
	}
	if got := stats.RateString(); got != "50.00%" {
		t.Errorf("RateString: got %q, want 50.00%%", got)
	}
}

func TestSummarizeThresholdIsStrict(t *testing.T) {
	agg := NewAggregator(5, newTestLogger())
	stats := agg.Summarize(records(5, 5, 6))
	if stats.Discrepancies != 1 {
		t.Errorf("Discrepancies: got %d, want 1", stats.Discrepancies)
	}
}

func TestSummarizeTotalMatchesInput(t *testing.T) {
	agg := NewAggregator(5, newTestLogger())
	for n := 0; n < 20; n++ {
		diffs := make([]int64, n)
		for i := range diffs {
			diffs[i] = int64(i)
		}
		if got := agg.Summarize(records(diffs...)).Total; got != n {
			t.Errorf("Total for %d records: got %d", n, got)
		}
	}
}

func TestRateIsMonotonic(t *testing.T) {
	agg := NewAggregator(5, newTestLogger())
	base := records(1, 2, 50, 3)
	before, _ := agg.Summarize(base).Rate()

	// swap one below-threshold record for a discrepant one, same size
	changed := records(1, 20, 50, 3)
	after, _ := agg.Summarize(changed).Rate()

	if !after.GreaterThan(before) {
		t.Errorf("rate should increase: before %s, after %s", before, after)
	}
}

func TestRateUndefinedWhenEmpty(t *testing.T) {
	agg := NewAggregator(5, newTestLogger())
	stats := agg.Summarize(nil)
	if stats.Total != 0 {
		t.Errorf("Total: got %d, want 0", stats.Total)
	}
	if _, ok := stats.Rate(); ok {
		t.Error("rate should be undefined for an empty run")
	}
	if got := stats.RateString(); got != "n/a" {
		t.Errorf("RateString: got %q, want n/a", got)
	}
}

func TestRateRounding(t *testing.T) {
	stats := models.SummaryStats{Total: 3, Discrepancies: 1}
	if got := stats.RateString(); got != "33.33%" {
		t.Errorf("RateString: got %q, want 33.33%%", got)
	}
}

func TestTopDiscrepancies(t *testing.T) {
	recs := records(7, 2, 30, 7, 12)
	recs[0].Origin = "first"
	recs[3].Origin = "second"

	top := TopDiscrepancies(recs, 5, 3)
	if len(top) != 3 {
		t.Fatalf("len: got %d, want 3", len(top))
	}
	if top[0].Diff != 30 || top[1].Diff != 12 || top[2].Diff != 7 {
		t.Errorf("order: got %d %d %d", top[0].Diff, top[1].Diff, top[2].Diff)
	}
	if top[2].Origin != "first" {
		t.Errorf("ties should keep reporting order, got %q", top[2].Origin)
	}
}
