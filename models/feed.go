package models

import "github.com/shopspring/decimal"

// FeedRow is one feed item returned by the reporting query, in the order
// the reporting service sorted it (descending clicks).
type FeedRow struct {
	ResourceName string
	FeedName     string
	Attributes   map[int64]string
	Clicks       int64
}

// Attribute returns the string value stored in the given attribute slot.
func (r FeedRow) Attribute(slot int64) (string, bool) {
	v, ok := r.Attributes[slot]
	return v, ok
}

// FeedSchema names the attribute slots the feed uses for each column.
type FeedSchema struct {
	OriginSlot      int64
	DestinationSlot int64
	PriceSlot       int64
}

// DefaultFeedSchema matches the DPI feed layout.
func DefaultFeedSchema() FeedSchema {
	return FeedSchema{OriginSlot: 2, DestinationSlot: 3, PriceSlot: 4}
}

// Route is the origin/destination pair a quote is requested for.
type Route struct {
	Origin      string
	Destination string
}

func (r Route) String() string {
	return r.Origin + "-" + r.Destination
}

// ComparisonRecord is the feed price next to the quoted price for one row.
// CSV column names come from the csv tags, in field order.
type ComparisonRecord struct {
	Origin      string      `csv:"origin"`
	Destination string      `csv:"destination"`
	FeedPrice   int64       `csv:"feedPrice"`
	QuotedPrice int64       `csv:"trfx"`
	Diff        int64       `csv:"diff"`
	QuoteStatus QuoteStatus `csv:"-"`
}

// SummaryStats is the aggregate over all records of one run.
type SummaryStats struct {
	Total         int
	Discrepancies int
	Threshold     int64
}

// Rate returns 100 * Discrepancies / Total. ok is false when Total is 0.
func (s SummaryStats) Rate() (rate decimal.Decimal, ok bool) {
	if s.Total == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(s.Discrepancies)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.Total))), true
}

// RateString formats the rate as a percentage with two decimals,
// or "n/a" when undefined.
func (s SummaryStats) RateString() string {
	rate, ok := s.Rate()
	if !ok {
		return "n/a"
	}
	return rate.StringFixed(2) + "%"
}
