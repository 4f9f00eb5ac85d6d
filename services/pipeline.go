package services

import (
	"context"
	"errors"
	"iter"
	"sync"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

// RowSource yields feed rows for an account in reporting order.
type RowSource interface {
	Fetch(ctx context.Context, accountID string) iter.Seq2[models.FeedRow, error]
}

// Result is the outcome of one pipeline run.
type Result struct {
	Records []models.ComparisonRecord
	Stats   models.SummaryStats
	Rows    int
	Skipped int
}

// Pipeline wires source, enricher and aggregator for one run.
type Pipeline struct {
	source     RowSource
	enricher   *Enricher
	aggregator *Aggregator
	pool       *utils.WorkerPool
	logger     *utils.Logger
}

func NewPipeline(source RowSource, enricher *Enricher, aggregator *Aggregator, pool *utils.WorkerPool, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		enricher:   enricher,
		aggregator: aggregator,
		pool:       pool,
		logger:     logger,
	}
}

// Run fetches every row, enriches it on the worker pool and summarizes the
// records. Records keep reporting order whatever the pool size. Rows missing
// a schema slot are skipped; a source error aborts the run.
func (p *Pipeline) Run(ctx context.Context, accountID string) (*Result, error) {
	var (
		mu      sync.Mutex
		slots   []*models.ComparisonRecord
		skipped int
	)

	var fetchErr error
	for row, err := range p.source.Fetch(ctx, accountID) {
		if err != nil {
			fetchErr = err
			break
		}

		mu.Lock()
		idx := len(slots)
		slots = append(slots, nil)
		mu.Unlock()

		submitErr := p.pool.Submit(ctx, func() {
			rec, err := p.enricher.Enrich(ctx, row)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var schemaErr *models.SchemaError
				if errors.As(err, &schemaErr) {
					p.logger.Warn("[pipeline] Skipping row: %v", err)
				} else {
					p.logger.Error("[pipeline] Enrich failed: %v", err)
				}
				skipped++
				return
			}
			slots[idx] = rec
		})
		if submitErr != nil {
			fetchErr = submitErr
			break
		}
	}
	p.pool.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}

	records := make([]models.ComparisonRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	res := &Result{
		Records: records,
		Stats:   p.aggregator.Summarize(records),
		Rows:    len(slots),
		Skipped: skipped,
	}
	p.logger.Info("[pipeline] Compared %d of %d rows (skipped %d), %d discrepancies",
		len(records), res.Rows, skipped, res.Stats.Discrepancies)
	return res, nil
}
