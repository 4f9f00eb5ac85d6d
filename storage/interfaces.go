package storage

import (
	"context"

	"feed-price-qa/models"
)

// ReportWriter is the interface any report backend must satisfy.
type ReportWriter interface {
	Write(records []models.ComparisonRecord, stats models.SummaryStats) error
}

// RunStore persists QA runs with their comparison records.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run, records []models.ComparisonRecord) error
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
	Close() error
}
