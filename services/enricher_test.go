package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"feed-price-qa/models"
	"feed-price-qa/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

var defaultFormat = PriceFormat{ThousandsSeparator: ",", DecimalSeparator: "."}

// stubQuotes returns canned quotes per route; unknown routes get NoQuote.
type stubQuotes struct {
	mu     sync.Mutex
	quotes map[string]models.QuoteResult
	calls  []models.Route
}

func (s *stubQuotes) Quote(_ context.Context, route models.Route) models.QuoteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, route)
	if q, ok := s.quotes[route.String()]; ok {
		return q
	}
	return models.NoQuote()
}

func feedRow(id, origin, destination, price string) models.FeedRow {
	return models.FeedRow{
		ResourceName: id,
		Attributes:   map[int64]string{2: origin, 3: destination, 4: price},
		Clicks:       10,
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"100.00", 100},
		{"$1,234.56", 1234},
		{"1,234", 1234},
		{"USD 99", 99},
		{"", 0},
		{"free", 0},
		{".99", 0},
		{"99999999999999999999999", 0},
	}
	for _, tt := range tests {
		if got := ParsePrice(tt.raw, defaultFormat); got != tt.want {
			t.Errorf("ParsePrice(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParsePriceEuropeanFormat(t *testing.T) {
	format := PriceFormat{ThousandsSeparator: ".", DecimalSeparator: ","}
	if got := ParsePrice("1.234,56 €", format); got != 1234 {
		t.Errorf("ParsePrice = %d; want 1234", got)
	}
}

func TestEnrichScenarioWholeUnits(t *testing.T) {
	quotes := &stubQuotes{quotes: map[string]models.QuoteResult{"JFK-LAX": models.QuoteOf(95)}}
	e := NewEnricher(models.DefaultFeedSchema(), defaultFormat, quotes, newTestLogger())

	rec, err := e.Enrich(context.Background(), feedRow("r1", "JFK", "LAX", "100.00"))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	want := models.ComparisonRecord{
		Origin: "JFK", Destination: "LAX",
		FeedPrice: 100, QuotedPrice: 95, Diff: 5,
		QuoteStatus: models.QuoteFound,
	}
	if *rec != want {
		t.Errorf("got %+v, want %+v", *rec, want)
	}
}

func TestEnrichQuoteFailureDegradesToZero(t *testing.T) {
	quotes := &stubQuotes{quotes: map[string]models.QuoteResult{
		"JFK-LAX": models.FailedQuote(errors.New("connection refused")),
	}}
	e := NewEnricher(models.DefaultFeedSchema(), defaultFormat, quotes, newTestLogger())

	rec, err := e.Enrich(context.Background(), feedRow("r1", "JFK", "LAX", "250"))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.QuotedPrice != 0 || rec.Diff != 250 || rec.QuoteStatus != models.QuoteFailed {
		t.Errorf("got %+v, want quoted 0, diff 250, failed", *rec)
	}
}

func TestEnrichMalformedPriceNeverFails(t *testing.T) {
	quotes := &stubQuotes{quotes: map[string]models.QuoteResult{"A-B": models.QuoteOf(40)}}
	e := NewEnricher(models.DefaultFeedSchema(), defaultFormat, quotes, newTestLogger())

	for _, raw := range []string{"", "n/a", "--", "€", "."} {
		rec, err := e.Enrich(context.Background(), feedRow("r", "A", "B", raw))
		if err != nil {
			t.Errorf("Enrich(%q): %v", raw, err)
			continue
		}
		if rec.FeedPrice != 0 || rec.Diff != 40 {
			t.Errorf("Enrich(%q) = %+v; want feedPrice 0, diff 40", raw, *rec)
		}
	}
}

func TestEnrichMissingSlot(t *testing.T) {
	quotes := &stubQuotes{}
	e := NewEnricher(models.DefaultFeedSchema(), defaultFormat, quotes, newTestLogger())

	row := models.FeedRow{ResourceName: "r9", Attributes: map[int64]string{2: "JFK", 4: "10"}}
	rec, err := e.Enrich(context.Background(), row)
	if rec != nil {
		t.Errorf("record: got %+v, want nil", *rec)
	}
	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err: got %v, want SchemaError", err)
	}
	if schemaErr.Field != "destination" || schemaErr.Slot != 3 {
		t.Errorf("SchemaError: got %+v", schemaErr)
	}
	if len(quotes.calls) != 0 {
		t.Error("quote service should not be called for an unparsable row")
	}
}

func TestEnrichCustomSchema(t *testing.T) {
	quotes := &stubQuotes{quotes: map[string]models.QuoteResult{"MAD-BCN": models.QuoteOf(60)}}
	schema := models.FeedSchema{OriginSlot: 7, DestinationSlot: 8, PriceSlot: 9}
	e := NewEnricher(schema, defaultFormat, quotes, newTestLogger())

	row := models.FeedRow{Attributes: map[int64]string{7: " MAD ", 8: "BCN", 9: "70"}}
	rec, err := e.Enrich(context.Background(), row)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.Origin != "MAD" || rec.Diff != 10 {
		t.Errorf("got %+v", *rec)
	}
}
