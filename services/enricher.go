package services

import (
	"context"
	"strconv"
	"strings"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

// QuoteService quotes the current fare for a route.
type QuoteService interface {
	Quote(ctx context.Context, route models.Route) models.QuoteResult
}

// PriceFormat describes how feed prices are written.
type PriceFormat struct {
	ThousandsSeparator string
	DecimalSeparator   string
}

// Enricher turns feed rows into comparison records.
type Enricher struct {
	schema models.FeedSchema
	format PriceFormat
	quotes QuoteService
	logger *utils.Logger
}

// NewEnricher creates an Enricher reading slots from schema and prices in format.
func NewEnricher(schema models.FeedSchema, format PriceFormat, quotes QuoteService, logger *utils.Logger) *Enricher {
	return &Enricher{schema: schema, format: format, quotes: quotes, logger: logger}
}

// Enrich builds the comparison record for row. It returns a *models.SchemaError
// when a slot is missing; quote failures only degrade the quote to 0.
func (e *Enricher) Enrich(ctx context.Context, row models.FeedRow) (*models.ComparisonRecord, error) {
	origin, err := e.field(row, "origin", e.schema.OriginSlot)
	if err != nil {
		return nil, err
	}
	destination, err := e.field(row, "destination", e.schema.DestinationSlot)
	if err != nil {
		return nil, err
	}
	rawPrice, err := e.field(row, "price", e.schema.PriceSlot)
	if err != nil {
		return nil, err
	}

	route := models.Route{Origin: origin, Destination: destination}
	feedPrice := ParsePrice(rawPrice, e.format)

	quote := e.quotes.Quote(ctx, route)
	switch quote.Status {
	case models.QuoteFailed:
		e.logger.Warn("[enricher] Quote failed for %s, using 0: %v", route, quote.Err)
	case models.QuoteNone:
		e.logger.Debug("[enricher] No quote available for %s", route)
	}

	quoted := quote.Quoted()
	return &models.ComparisonRecord{
		Origin:      origin,
		Destination: destination,
		FeedPrice:   feedPrice,
		QuotedPrice: quoted,
		Diff:        absDiff(feedPrice, quoted),
		QuoteStatus: quote.Status,
	}, nil
}

func (e *Enricher) field(row models.FeedRow, name string, slot int64) (string, error) {
	v, ok := row.Attribute(slot)
	if !ok {
		return "", &models.SchemaError{Row: row.ResourceName, Field: name, Slot: slot}
	}
	return strings.TrimSpace(v), nil
}

// ParsePrice reads a feed price as whole currency units: the thousands
// separator is removed, anything after the decimal separator is dropped and
// remaining non-digits are stripped. A string without digits parses to 0.
//
//	"$1,234.56" -> 1234
//	"100.00"    -> 100
//	"free"      -> 0
func ParsePrice(raw string, format PriceFormat) int64 {
	s := raw
	if format.ThousandsSeparator != "" {
		s = strings.ReplaceAll(s, format.ThousandsSeparator, "")
	}
	if format.DecimalSeparator != "" {
		if i := strings.Index(s, format.DecimalSeparator); i >= 0 {
			s = s[:i]
		}
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// only overflow gets here
		return 0
	}
	return n
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
