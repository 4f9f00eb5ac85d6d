package storage

import "feed-price-qa/models"

// WriteReport hands records to w unless the run compared nothing, in which
// case w is never called and no artifact is produced. It reports whether
// anything was written.
func WriteReport(w ReportWriter, records []models.ComparisonRecord, stats models.SummaryStats) (bool, error) {
	if stats.Total == 0 {
		return false, nil
	}
	if err := w.Write(records, stats); err != nil {
		return false, err
	}
	return true, nil
}
