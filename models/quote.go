package models

// QuoteStatus says whether a quote lookup produced a price.
type QuoteStatus int

const (
	QuoteNone QuoteStatus = iota
	QuoteFound
	QuoteFailed
)

func (s QuoteStatus) String() string {
	switch s {
	case QuoteFound:
		return "found"
	case QuoteFailed:
		return "failed"
	default:
		return "none"
	}
}

// QuoteResult is the outcome of one quote lookup. TotalPrice is only
// meaningful when Status is QuoteFound; Err only when QuoteFailed.
type QuoteResult struct {
	Status     QuoteStatus
	TotalPrice int64
	Err        error
}

// Quoted returns the price to compare against, 0 when no quote is available.
func (q QuoteResult) Quoted() int64 {
	if q.Status != QuoteFound {
		return 0
	}
	return q.TotalPrice
}

// QuoteOf is a found quote at price.
func QuoteOf(price int64) QuoteResult { return QuoteResult{Status: QuoteFound, TotalPrice: price} }

// NoQuote is the result when the service has no fare for the route.
func NoQuote() QuoteResult { return QuoteResult{Status: QuoteNone} }

// FailedQuote wraps the error of a lookup that did not complete.
func FailedQuote(err error) QuoteResult { return QuoteResult{Status: QuoteFailed, Err: err} }

// ParseQuoteStatus is the inverse of QuoteStatus.String. Unknown values map to QuoteNone.
func ParseQuoteStatus(s string) QuoteStatus {
	switch s {
	case "found":
		return QuoteFound
	case "failed":
		return QuoteFailed
	default:
		return QuoteNone
	}
}
