package quote

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"feed-price-qa/models"
	"feed-price-qa/services"
	"feed-price-qa/utils"
)

type countingService struct {
	calls int
	res   models.QuoteResult
}

func (s *countingService) Quote(context.Context, models.Route) models.QuoteResult {
	s.calls++
	return s.res
}

func newTestCache(t *testing.T, next services.QuoteService, ttl time.Duration) *CachedService {
	t.Helper()
	c, err := NewCachedService(next, t.TempDir(), ttl, "XY|USD", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewCachedService: %v", err)
	}
	return c
}

func TestCachedServiceHit(t *testing.T) {
	next := &countingService{res: models.QuoteOf(95)}
	c := newTestCache(t, next, time.Hour)
	route := models.Route{Origin: "JFK", Destination: "LAX"}

	first := c.Quote(context.Background(), route)
	second := c.Quote(context.Background(), route)

	if next.calls != 1 {
		t.Errorf("upstream calls: got %d, want 1", next.calls)
	}
	if first.Quoted() != 95 || second.Quoted() != 95 || second.Status != models.QuoteFound {
		t.Errorf("got %+v then %+v", first, second)
	}
}

func TestCachedServiceKeepsNoQuote(t *testing.T) {
	next := &countingService{res: models.NoQuote()}
	c := newTestCache(t, next, time.Hour)
	route := models.Route{Origin: "JFK", Destination: "SFO"}

	c.Quote(context.Background(), route)
	res := c.Quote(context.Background(), route)

	if next.calls != 1 || res.Status != models.QuoteNone {
		t.Errorf("calls %d, status %v; want 1, none", next.calls, res.Status)
	}
}

func TestCachedServiceSkipsFailures(t *testing.T) {
	next := &countingService{res: models.FailedQuote(errors.New("timeout"))}
	c := newTestCache(t, next, time.Hour)
	route := models.Route{Origin: "JFK", Destination: "LAX"}

	c.Quote(context.Background(), route)
	c.Quote(context.Background(), route)

	if next.calls != 2 {
		t.Errorf("failed quotes must not be cached: got %d calls, want 2", next.calls)
	}
}

func TestCachedServiceExpires(t *testing.T) {
	next := &countingService{res: models.QuoteOf(10)}
	c := newTestCache(t, next, time.Minute)
	route := models.Route{Origin: "JFK", Destination: "LAX"}

	c.Quote(context.Background(), route)
	now := time.Now()
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	// stale entry, or a new day key; both miss
	c.Quote(context.Background(), route)

	if next.calls != 2 {
		t.Errorf("upstream calls: got %d, want 2", next.calls)
	}
}

func TestCachedServiceLeavesOnlyEntries(t *testing.T) {
	dir := t.TempDir()
	next := &countingService{res: models.QuoteOf(95)}
	c, err := NewCachedService(next, dir, time.Hour, "XY|USD", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewCachedService: %v", err)
	}

	c.Quote(context.Background(), models.Route{Origin: "JFK", Destination: "LAX"})
	c.Quote(context.Background(), models.Route{Origin: "JFK", Destination: "SFO"})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("entries: got %d, want 2", len(entries))
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".entry-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestCachedServiceScopeSeparatesEntries(t *testing.T) {
	dir := t.TempDir()
	route := models.Route{Origin: "JFK", Destination: "LAX"}

	first := &countingService{res: models.QuoteOf(95)}
	a, err := NewCachedService(first, dir, time.Hour, "XY|USD|profile-a", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewCachedService: %v", err)
	}
	a.Quote(context.Background(), route)

	second := &countingService{res: models.QuoteOf(120)}
	b, err := NewCachedService(second, dir, time.Hour, "XY|USD|profile-b", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewCachedService: %v", err)
	}
	res := b.Quote(context.Background(), route)

	if second.calls != 1 || res.Quoted() != 120 {
		t.Errorf("other scope must miss: calls %d, quoted %d", second.calls, res.Quoted())
	}
}
