package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

// dialect covers the few places Postgres and SQLite disagree.
type dialect struct {
	driver     string
	primaryKey string
	bind       func(n int) string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:     "postgres",
		primaryKey: "SERIAL PRIMARY KEY",
		bind:       func(n int) string { return fmt.Sprintf("$%d", n) },
	},
	"sqlite": {
		driver:     "sqlite",
		primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		bind:       func(int) string { return "?" },
	},
}

// HistoryStore records QA runs in Postgres or SQLite.
type HistoryStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenHistory connects with driver ("postgres" or "sqlite"), waits for the
// database to answer and runs schema migrations.
func OpenHistory(ctx context.Context, driver, dsn string, logger *utils.Logger) (*HistoryStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("history: unknown driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if driver == "sqlite" {
		// one connection, so ":memory:" databases are shared
		db.SetMaxOpenConns(1)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "history ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: %w", err)
	}

	hs := &HistoryStore{db: db, dialect: d}
	if err := hs.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return hs, nil
}

func (hs *HistoryStore) migrate(ctx context.Context) error {
	_, err := hs.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS qa_runs (
			id            %s,
			account_id    TEXT    NOT NULL,
			airline_code  TEXT    NOT NULL,
			started_at    BIGINT  NOT NULL,
			total         INTEGER NOT NULL DEFAULT 0,
			discrepancies INTEGER NOT NULL DEFAULT 0,
			rate          TEXT    NOT NULL DEFAULT '',
			report_path   TEXT    NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS qa_comparisons (
			id           %s,
			run_id       INTEGER NOT NULL REFERENCES qa_runs(id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			origin       TEXT    NOT NULL,
			destination  TEXT    NOT NULL,
			feed_price   BIGINT  NOT NULL,
			quoted_price BIGINT  NOT NULL,
			diff         BIGINT  NOT NULL,
			quote_status TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_qa_runs_started      ON qa_runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_qa_comparisons_run   ON qa_comparisons(run_id);
		CREATE INDEX IF NOT EXISTS idx_qa_comparisons_route ON qa_comparisons(origin, destination);
	`, hs.dialect.primaryKey, hs.dialect.primaryKey))
	return err
}

// SaveRun stores run and its records in one transaction and sets run.ID.
func (hs *HistoryStore) SaveRun(ctx context.Context, run *models.Run, records []models.ComparisonRecord) error {
	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	b := hs.dialect.bind
	query := fmt.Sprintf(`
		INSERT INTO qa_runs (account_id, airline_code, started_at, total, discrepancies, rate, report_path)
		VALUES (%s, %s, %s, %s, %s, %s, %s)
		RETURNING id`, b(1), b(2), b(3), b(4), b(5), b(6), b(7))
	err = tx.QueryRowContext(ctx, query,
		run.AccountID, run.AirlineCode, run.StartedAt.Unix(),
		run.Total, run.Discrepancies, run.Rate, run.ReportPath,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := hs.insertBatch(ctx, tx, run.ID, i, records[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

func (hs *HistoryStore) insertBatch(ctx context.Context, tx *sql.Tx, runID int64, offset int, batch []models.ComparisonRecord) error {
	const cols = 8
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = hs.dialect.bind(base + c + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			runID, offset+idx, r.Origin, r.Destination, r.FeedPrice, r.QuotedPrice, r.Diff, r.QuoteStatus.String())
	}

	query := fmt.Sprintf(`
		INSERT INTO qa_comparisons (run_id, position, origin, destination, feed_price, quoted_price, diff, quote_status)
		VALUES %s`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("history: insert comparisons: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (hs *HistoryStore) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := hs.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, account_id, airline_code, started_at, total, discrepancies, rate, report_path
		FROM qa_runs
		ORDER BY started_at DESC, id DESC
		LIMIT %s`, hs.dialect.bind(1)), limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var r models.Run
		var started int64
		if err := rows.Scan(&r.ID, &r.AccountID, &r.AirlineCode, &started,
			&r.Total, &r.Discrepancies, &r.Rate, &r.ReportPath); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Comparisons returns the stored records of a run in report order.
func (hs *HistoryStore) Comparisons(ctx context.Context, runID int64) ([]models.ComparisonRecord, error) {
	rows, err := hs.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT origin, destination, feed_price, quoted_price, diff, quote_status
		FROM qa_comparisons
		WHERE run_id = %s
		ORDER BY position`, hs.dialect.bind(1)), runID)
	if err != nil {
		return nil, fmt.Errorf("history: comparisons: %w", err)
	}
	defer rows.Close()

	var out []models.ComparisonRecord
	for rows.Next() {
		var r models.ComparisonRecord
		var status string
		if err := rows.Scan(&r.Origin, &r.Destination, &r.FeedPrice, &r.QuotedPrice, &r.Diff, &status); err != nil {
			return nil, fmt.Errorf("history: scan comparison: %w", err)
		}
		r.QuoteStatus = models.ParseQuoteStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (hs *HistoryStore) Close() error {
	return hs.db.Close()
}
