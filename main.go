package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"feed-price-qa/config"
	"feed-price-qa/models"
	"feed-price-qa/quote"
	"feed-price-qa/quote/sputnik"
	"feed-price-qa/services"
	"feed-price-qa/source/googleads"
	"feed-price-qa/storage"
	"feed-price-qa/utils"
)

func main() {
	logger := utils.NewLogger()

	app := &cli.App{
		Name:  "feedqa",
		Usage: "compare feed prices of an ads account against live fare quotes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "env file to load instead of ./.env"},
		},
		Before: func(c *cli.Context) error {
			return config.LoadEnvFile(c.String("env"))
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "fetch feed rows, quote every route and write the discrepancy report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "report path (default REPORTS/business_feed_report_<AIRLINE>.csv)"},
					&cli.StringFlag{Name: "profile", Usage: "YAML request profile for the fare service", EnvVars: []string{"REQUEST_PROFILE"}},
					&cli.IntFlag{Name: "concurrency", Usage: "parallel quote lookups (overrides QUOTE_CONCURRENCY)"},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "history",
				Usage: "list recorded QA runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "driver", EnvVars: []string{"HISTORY_DRIVER"}, Usage: "postgres or sqlite"},
					&cli.StringFlag{Name: "dsn", EnvVars: []string{"HISTORY_DSN"}},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return historyAction(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context, logger *utils.Logger) error {
	cfg, err := config.Load(c.String("env"), logger)
	if err != nil {
		return err
	}
	logger.SetDebug(cfg.LogDebug)

	if c.IsSet("concurrency") {
		cfg.QuoteConcurrency = c.Int("concurrency")
	}
	profilePath := cfg.RequestProfile
	if c.IsSet("profile") {
		profilePath = c.String("profile")
	}
	profile, err := config.LoadRequestProfile(profilePath)
	if err != nil {
		return err
	}
	reportPath := cfg.ReportPath()
	if c.IsSet("output") {
		reportPath = c.String("output")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	logger.Info("=== Start QA for %s in account %s ===", strings.ToUpper(cfg.AirlineCode), cfg.AccountID)
	logger.Info("Config: look-ahead %dd | journey %s | currency %s | threshold %d | concurrency %d",
		cfg.LookAheadDays, cfg.JourneyType, cfg.Currency, cfg.DiscrepancyThreshold, cfg.QuoteConcurrency)

	var quotes services.QuoteService = sputnik.New(cfg, profile)
	if cfg.QuoteCacheDir != "" {
		scope := strings.Join([]string{
			cfg.AirlineCode, cfg.Currency, cfg.JourneyType, fmt.Sprint(cfg.LookAheadDays),
			cfg.DataExpirationWindow, profile.Fingerprint(),
		}, "|")
		cached, err := quote.NewCachedService(quotes, cfg.QuoteCacheDir, cfg.QuoteCacheTTL, scope, logger)
		if err != nil {
			return err
		}
		quotes = cached
	}

	aggregator := services.NewAggregator(cfg.DiscrepancyThreshold, logger)
	pipeline := services.NewPipeline(
		googleads.New(cfg, logger),
		services.NewEnricher(cfg.Schema, services.PriceFormat{
			ThousandsSeparator: cfg.ThousandsSeparator,
			DecimalSeparator:   cfg.DecimalSeparator,
		}, quotes, logger),
		aggregator,
		utils.NewWorkerPool(cfg.QuoteConcurrency, cfg.QuoteRateLimitMs),
		logger,
	)

	startedAt := time.Now()
	res, err := pipeline.Run(ctx, cfg.AccountID)
	if err != nil {
		var qerr *models.UpstreamQueryError
		if errors.As(err, &qerr) {
			for _, line := range googleads.Diagnostics(qerr) {
				logger.Error("%s", line)
			}
		}
		return err
	}

	var writer storage.ReportWriter = storage.NewCSVWriter(reportPath)
	wrote, err := storage.WriteReport(writer, res.Records, res.Stats)
	if err != nil {
		return err
	}
	written := ""
	if wrote {
		written = reportPath
		logger.Info("Report saved to %s", reportPath)
		aggregator.Print(res.Records, res.Stats)
	} else {
		logger.Warn("No comparable feed rows for account %s, report not written", cfg.AccountID)
	}

	if cfg.HistoryDriver != "" {
		if err := recordRun(ctx, cfg, startedAt, written, res, logger); err != nil {
			return err
		}
	}
	return nil
}

func recordRun(ctx context.Context, cfg *config.Config, startedAt time.Time, reportPath string, res *services.Result, logger *utils.Logger) error {
	hs, err := storage.OpenHistory(ctx, cfg.HistoryDriver, cfg.HistoryDSN, logger)
	if err != nil {
		return err
	}
	var store storage.RunStore = hs
	defer store.Close()

	run := &models.Run{
		AccountID:     googleads.NormalizeCustomerID(cfg.AccountID),
		AirlineCode:   strings.ToUpper(cfg.AirlineCode),
		StartedAt:     startedAt,
		Total:         res.Stats.Total,
		Discrepancies: res.Stats.Discrepancies,
		Rate:          res.Stats.RateString(),
		ReportPath:    reportPath,
	}
	if err := store.SaveRun(ctx, run, res.Records); err != nil {
		return err
	}
	logger.Info("Run #%d recorded in %s history", run.ID, cfg.HistoryDriver)
	return nil
}

func historyAction(c *cli.Context, logger *utils.Logger) error {
	driver, dsn := c.String("driver"), c.String("dsn")
	if driver == "" || dsn == "" {
		return &models.ConfigurationError{Missing: []string{"HISTORY_DRIVER", "HISTORY_DSN"}}
	}

	store, err := storage.OpenHistory(c.Context, driver, dsn, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-6s %-20s %-12s %-8s %-8s %-8s %-10s %s\n",
		"ID", "Started", "Account", "Airline", "Rows", "Diffs", "Rate", "Report")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-12s %-8s %-8d %-8d %-10s %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.AccountID,
			r.AirlineCode,
			r.Total,
			r.Discrepancies,
			r.Rate,
			r.ReportPath,
		)
	}
	fmt.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}
