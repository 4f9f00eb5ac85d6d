package services

import (
	"fmt"
	"sort"
	"strings"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

// Aggregator counts records whose difference exceeds the threshold.
type Aggregator struct {
	threshold int64
	logger    *utils.Logger
}

func NewAggregator(threshold int64, logger *utils.Logger) *Aggregator {
	return &Aggregator{threshold: threshold, logger: logger}
}

// Summarize derives the run totals. A record is a discrepancy when its
// Diff is strictly greater than the threshold.
func (a *Aggregator) Summarize(records []models.ComparisonRecord) models.SummaryStats {
	stats := models.SummaryStats{Total: len(records), Threshold: a.threshold}
	for _, r := range records {
		if r.Diff > a.threshold {
			stats.Discrepancies++
		}
	}
	a.logger.Debug("[aggregator] %d records, %d above %d", stats.Total, stats.Discrepancies, a.threshold)
	return stats
}

// Print renders a terminal summary with the largest discrepancies.
func (a *Aggregator) Print(records []models.ComparisonRecord, stats models.SummaryStats) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 FEED PRICE QA\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Rows compared        : \033[1m%d\033[0m\n", stats.Total)
	fmt.Printf("  Discrepancies (>%d)  : \033[1m%d\033[0m\n", stats.Threshold, stats.Discrepancies)
	fmt.Printf("  Discrepancy rate     : \033[1m%s\033[0m\n", stats.RateString())
	fmt.Println()

	var failed, missing int
	for _, r := range records {
		switch r.QuoteStatus {
		case models.QuoteFailed:
			failed++
		case models.QuoteNone:
			missing++
		}
	}
	fmt.Printf("\033[1;33m  Quotes\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  No fare returned     : %d\n", missing)
	fmt.Printf("  Lookup failed        : %d\n", failed)
	fmt.Println()

	top := TopDiscrepancies(records, a.threshold, 5)
	fmt.Printf("\033[1;33m  Largest Discrepancies\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(top) == 0 {
		fmt.Printf("  None above threshold\n")
	} else {
		for i, r := range top {
			fmt.Printf("  \033[1m%d.\033[0m %-9s feed %-8d quote %-8d \033[1;31mΔ %d\033[0m\n",
				i+1, r.Origin+"-"+r.Destination, r.FeedPrice, r.QuotedPrice, r.Diff)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// TopDiscrepancies returns up to n records above threshold, largest Diff
// first. Ties keep reporting order.
func TopDiscrepancies(records []models.ComparisonRecord, threshold int64, n int) []models.ComparisonRecord {
	var out []models.ComparisonRecord
	for _, r := range records {
		if r.Diff > threshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Diff > out[j].Diff
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
