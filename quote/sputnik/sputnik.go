package sputnik

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"feed-price-qa/config"
	"feed-price-qa/models"
)

// Client asks the airfare aggregation service for the current fare of a route.
type Client struct {
	client  *http.Client
	profile *config.RequestProfile
	now     func() time.Time

	endpoint             string
	token                string
	journeyType          string
	currency             string
	lookAheadDays        int
	dataExpirationWindow string
	timeout              time.Duration
}

// New creates a Client from cfg. profile supplies the fixed request fields.
func New(cfg *config.Config, profile *config.RequestProfile) *Client {
	return &Client{
		client:  &http.Client{},
		profile: profile,
		now:     time.Now,
		endpoint: fmt.Sprintf("%s/airfare-sputnik-service/%s/%s/fares/aggregation",
			cfg.MicroservicesURL, cfg.MSVersion, cfg.AirlineCode),
		token:                cfg.MSToken,
		journeyType:          cfg.JourneyType,
		currency:             cfg.Currency,
		lookAheadDays:        cfg.LookAheadDays,
		dataExpirationWindow: cfg.DataExpirationWindow,
		timeout:              cfg.QuoteTimeout,
	}
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Request is the aggregation request body.
type Request struct {
	FlightType           string             `json:"flightType"`
	PriceFormat          config.PriceFormat `json:"priceFormat"`
	DatePattern          string             `json:"datePattern"`
	LanguageCode         string             `json:"languageCode"`
	OutputCurrencies     []string           `json:"outputCurrencies"`
	FaresPerRoute        int                `json:"faresPerRoute"`
	RoutesLimit          int                `json:"routesLimit"`
	DataExpirationWindow string             `json:"dataExpirationWindow"`
	OutputFields         []string           `json:"outputFields"`
	Sorting              []string           `json:"sorting"`
	Departure            dateRange          `json:"departure"`
	Page                 int                `json:"page"`
	Origins              []string           `json:"origins"`
	Destinations         []string           `json:"destinations"`
	FaresLimit           int                `json:"faresLimit"`
}

type fare struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// BuildRequest fills the profile with the route and the departure window
// [today, today+lookAhead].
func (c *Client) BuildRequest(route models.Route) Request {
	today := c.now()
	return Request{
		FlightType:           c.journeyType,
		PriceFormat:          c.profile.PriceFormat,
		DatePattern:          c.profile.DatePattern,
		LanguageCode:         c.profile.LanguageCode,
		OutputCurrencies:     []string{c.currency},
		FaresPerRoute:        c.profile.FaresPerRoute,
		RoutesLimit:          c.profile.RoutesLimit,
		DataExpirationWindow: c.dataExpirationWindow,
		OutputFields:         c.profile.OutputFields,
		Sorting:              []string{},
		Departure: dateRange{
			Start: today.Format(time.DateOnly),
			End:   today.AddDate(0, 0, c.lookAheadDays).Format(time.DateOnly),
		},
		Page:         c.profile.Page,
		Origins:      []string{route.Origin},
		Destinations: []string{route.Destination},
		FaresLimit:   c.profile.FaresLimit,
	}
}

// Quote performs one POST with a bounded deadline. Any failure is reported
// through the result, never retried.
func (c *Client) Quote(ctx context.Context, route models.Route) models.QuoteResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fail := func(status int, err error) models.QuoteResult {
		return models.FailedQuote(&models.QuoteServiceError{Route: route, StatusCode: status, Err: err})
	}

	body, err := json.Marshal(c.BuildRequest(route))
	if err != nil {
		return fail(0, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, errors.New(truncate(string(bytes.TrimSpace(data)), 200)))
	}

	return parseFares(route, data)
}

// parseFares reads the first fare's totalPrice, rounded to a whole unit.
// An empty array means no quote.
func parseFares(route models.Route, data []byte) models.QuoteResult {
	var fares []fare
	if err := json.Unmarshal(data, &fares); err != nil {
		return models.FailedQuote(&models.QuoteServiceError{Route: route, Err: fmt.Errorf("decode response: %w", err)})
	}
	if len(fares) == 0 {
		return models.NoQuote()
	}
	return models.QuoteOf(fares[0].TotalPrice.Round(0).IntPart())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
