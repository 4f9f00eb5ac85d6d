package quote

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feed-price-qa/models"
	"feed-price-qa/services"
	"feed-price-qa/utils"
)

// CachedService keeps found and empty quotes on disk for ttl so repeated
// runs on the same day do not hit the fare service again. Failed lookups
// are never cached.
type CachedService struct {
	next   services.QuoteService
	path   string
	ttl    time.Duration
	scope  string
	logger *utils.Logger
	now    func() time.Time
}

type cacheEntry struct {
	Status     string `json:"status"`
	TotalPrice int64  `json:"totalPrice"`
}

// NewCachedService creates the cache directory if needed. scope separates
// entries of different airlines or currencies sharing one directory.
func NewCachedService(next services.QuoteService, path string, ttl time.Duration, scope string, logger *utils.Logger) (*CachedService, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("quote cache: create directory: %w", err)
	}
	return &CachedService{
		next:   next,
		path:   path,
		ttl:    ttl,
		scope:  scope,
		logger: logger,
		now:    time.Now,
	}, nil
}

// key includes the calendar day because the departure window starts today.
func (c *CachedService) key(route models.Route) string {
	day := c.now().Format(time.DateOnly)
	hash := sha256.Sum256([]byte(c.scope + "|" + day + "|" + route.String()))
	return fmt.Sprintf("%x", hash)
}

// Quote serves route from the cache when a fresh entry exists and asks the
// wrapped service otherwise.
func (c *CachedService) Quote(ctx context.Context, route models.Route) models.QuoteResult {
	file := filepath.Join(c.path, c.key(route))

	if res, ok := c.get(file); ok {
		c.logger.Debug("[quote-cache] Hit for %s", route)
		return res
	}

	res := c.next.Quote(ctx, route)
	if res.Status == models.QuoteFailed {
		return res
	}
	if err := c.set(file, res); err != nil {
		c.logger.Warn("[quote-cache] Could not store %s: %v", route, err)
	}
	return res
}

func (c *CachedService) get(file string) (models.QuoteResult, bool) {
	info, err := os.Stat(file)
	if err != nil {
		return models.QuoteResult{}, false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		return models.QuoteResult{}, false
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return models.QuoteResult{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.QuoteResult{}, false
	}

	switch entry.Status {
	case models.QuoteFound.String():
		return models.QuoteOf(entry.TotalPrice), true
	case models.QuoteNone.String():
		return models.NoQuote(), true
	}
	return models.QuoteResult{}, false
}

func (c *CachedService) set(file string, res models.QuoteResult) error {
	data, err := json.Marshal(cacheEntry{Status: res.Status.String(), TotalPrice: res.TotalPrice})
	if err != nil {
		return err
	}

	// Concurrent lookups may read the entry while it is written, so it is
	// renamed into place only once complete.
	tmp, err := os.CreateTemp(c.path, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
