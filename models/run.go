package models

import "time"

// Run is one recorded QA run.
type Run struct {
	ID            int64
	AccountID     string
	AirlineCode   string
	StartedAt     time.Time
	Total         int
	Discrepancies int
	Rate          string
	ReportPath    string
}
