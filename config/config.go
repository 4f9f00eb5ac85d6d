package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AccountID            string
	AirlineCode          string
	LookAheadDays        int
	JourneyType          string
	Currency             string
	MicroservicesURL     string
	MSVersion            string
	MSToken              string
	DataExpirationWindow string

	AdsAPIURL          string
	AdsAPIVersion      string
	AdsDeveloperToken  string
	AdsAccessToken     string
	AdsLoginCustomerID string
	FeedNamePrefix     string
	PageSize           int

	Schema               models.FeedSchema
	ThousandsSeparator   string
	DecimalSeparator     string
	DiscrepancyThreshold int64

	QuoteTimeout     time.Duration
	QuoteConcurrency int
	QuoteRateLimitMs int
	QuoteCacheDir    string
	QuoteCacheTTL    time.Duration

	ReportDir      string
	RequestProfile string

	HistoryDriver string
	HistoryDSN    string

	LogDebug bool
}

var requiredKeys = []string{
	"ACCOUNT_ID",
	"AIRLINE_CODE",
	"LOOK_AHEAD_WINDOW",
	"JOURNEY_TYPE",
	"CURRENCY",
	"MICROSERVICES_URL",
	"MS_VERSION",
	"MS_TOKEN",
	"DATA_EXPIRATION_WINDOW",
	"GOOGLE_ADS_DEVELOPER_TOKEN",
	"GOOGLE_ADS_ACCESS_TOKEN",
}

// Load reads envFile (or ./.env when empty) and returns a validated Config.
// Every missing required key is reported at once in a ConfigurationError.
func Load(envFile string, logger *utils.Logger) (*Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	if envFile == "" {
		if _, err := os.Stat(".env"); err != nil {
			logger.Debug("[config] No .env file found, falling back to system env vars")
		}
	}

	cfgErr := &models.ConfigurationError{Invalid: map[string]string{}}
	for _, key := range requiredKeys {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		}
	}

	cfg := &Config{
		AccountID:        getEnv("ACCOUNT_ID", ""),
		AirlineCode:      getEnv("AIRLINE_CODE", ""),
		JourneyType:      getEnv("JOURNEY_TYPE", ""),
		Currency:         getEnv("CURRENCY", ""),
		MicroservicesURL: strings.TrimRight(getEnv("MICROSERVICES_URL", ""), "/"),
		MSVersion:        getEnv("MS_VERSION", ""),
		MSToken:          getEnv("MS_TOKEN", ""),

		DataExpirationWindow: getEnv("DATA_EXPIRATION_WINDOW", ""),

		AdsAPIURL:          strings.TrimRight(getEnv("GOOGLE_ADS_API_URL", "https://googleads.googleapis.com"), "/"),
		AdsAPIVersion:      getEnv("GOOGLE_ADS_API_VERSION", "v17"),
		AdsDeveloperToken:  getEnv("GOOGLE_ADS_DEVELOPER_TOKEN", ""),
		AdsAccessToken:     getEnv("GOOGLE_ADS_ACCESS_TOKEN", ""),
		AdsLoginCustomerID: getEnv("GOOGLE_ADS_LOGIN_CUSTOMER_ID", ""),
		FeedNamePrefix:     getEnv("FEED_NAME_PREFIX", "DPI_"),
		PageSize:           optionalInt("PAGE_SIZE", 1000, cfgErr),

		Schema: models.FeedSchema{
			OriginSlot:      int64(optionalInt("FEED_ORIGIN_SLOT", 2, cfgErr)),
			DestinationSlot: int64(optionalInt("FEED_DESTINATION_SLOT", 3, cfgErr)),
			PriceSlot:       int64(optionalInt("FEED_PRICE_SLOT", 4, cfgErr)),
		},
		ThousandsSeparator:   getEnv("PRICE_THOUSANDS_SEPARATOR", ","),
		DecimalSeparator:     getEnv("PRICE_DECIMAL_SEPARATOR", "."),
		DiscrepancyThreshold: int64(optionalInt("DISCREPANCY_THRESHOLD", 5, cfgErr)),

		QuoteTimeout:     time.Duration(optionalInt("QUOTE_TIMEOUT_SECONDS", 30, cfgErr)) * time.Second,
		QuoteConcurrency: optionalInt("QUOTE_CONCURRENCY", 1, cfgErr),
		QuoteRateLimitMs: optionalInt("QUOTE_RATE_LIMIT_MS", 0, cfgErr),
		QuoteCacheDir:    getEnv("QUOTE_CACHE_DIR", ""),
		QuoteCacheTTL:    time.Duration(optionalInt("QUOTE_CACHE_TTL_MINUTES", 60, cfgErr)) * time.Minute,

		ReportDir:      getEnv("REPORT_DIR", "REPORTS"),
		RequestProfile: getEnv("REQUEST_PROFILE", ""),

		HistoryDriver: getEnv("HISTORY_DRIVER", ""),
		HistoryDSN:    getEnv("HISTORY_DSN", ""),

		LogDebug: getEnvBool("LOG_DEBUG", false),
	}

	cfg.LookAheadDays = requireInt("LOOK_AHEAD_WINDOW", cfgErr)

	if cfg.LookAheadDays < 0 {
		cfgErr.Invalid["LOOK_AHEAD_WINDOW"] = "must not be negative"
	}
	if cfg.PageSize <= 0 {
		cfgErr.Invalid["PAGE_SIZE"] = "must be positive"
	}
	if cfg.QuoteTimeout <= 0 {
		cfgErr.Invalid["QUOTE_TIMEOUT_SECONDS"] = "must be positive"
	}
	for key, slot := range map[string]int64{
		"FEED_ORIGIN_SLOT":      cfg.Schema.OriginSlot,
		"FEED_DESTINATION_SLOT": cfg.Schema.DestinationSlot,
		"FEED_PRICE_SLOT":       cfg.Schema.PriceSlot,
	} {
		if slot < 1 {
			cfgErr.Invalid[key] = "must be a positive attribute id"
		}
	}
	if cfg.DiscrepancyThreshold < 0 {
		cfgErr.Invalid["DISCREPANCY_THRESHOLD"] = "must not be negative"
	}
	if cfg.QuoteConcurrency < 1 {
		cfgErr.Invalid["QUOTE_CONCURRENCY"] = "must be at least 1"
	}
	if cfg.QuoteRateLimitMs < 0 {
		cfgErr.Invalid["QUOTE_RATE_LIMIT_MS"] = "must not be negative"
	}
	if cfg.QuoteCacheTTL < 0 {
		cfgErr.Invalid["QUOTE_CACHE_TTL_MINUTES"] = "must not be negative"
	}
	switch cfg.HistoryDriver {
	case "", "postgres", "sqlite":
	default:
		cfgErr.Invalid["HISTORY_DRIVER"] = fmt.Sprintf("unknown driver %q (want postgres or sqlite)", cfg.HistoryDriver)
	}
	if cfg.HistoryDriver != "" && cfg.HistoryDSN == "" {
		cfgErr.Missing = append(cfgErr.Missing, "HISTORY_DSN")
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadEnvFile exports the variables in path without overriding ones already
// set. An empty path loads ./.env when present.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ReportPath is the default CSV destination for this airline.
func (c *Config) ReportPath() string {
	return filepath.Join(c.ReportDir, "business_feed_report_"+strings.ToUpper(c.AirlineCode)+".csv")
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}

// optionalInt parses an integer key that has a default. A malformed value is
// recorded as invalid rather than replaced by the fallback.
func optionalInt(key string, fallback int, cfgErr *models.ConfigurationError) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		cfgErr.Invalid[key] = fmt.Sprintf("%q is not an integer", val)
		return fallback
	}
	return n
}

// requireInt parses a required integer key. Absence is already recorded
// as missing, so only a malformed value is added here.
func requireInt(key string, cfgErr *models.ConfigurationError) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		cfgErr.Invalid[key] = fmt.Sprintf("%q is not an integer", val)
		return 0
	}
	return n
}
