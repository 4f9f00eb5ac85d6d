package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"feed-price-qa/config"
	"feed-price-qa/models"
	"feed-price-qa/utils"
)

const queryTemplate = `SELECT
  feed.id,
  feed.name,
  feed_item.attribute_values,
  metrics.clicks
FROM
  feed_item
WHERE
  feed.name = '%s' AND metrics.clicks > 0
ORDER BY
  metrics.clicks DESC
LIMIT
  %d`

// Source reads feed rows from the Google Ads search endpoint.
type Source struct {
	client *http.Client
	logger *utils.Logger

	baseURL        string
	version        string
	developerToken string
	accessToken    string
	loginCustomer  string
	feedNamePrefix string
	pageSize       int
}

// New creates a Source from the Google Ads settings in cfg.
func New(cfg *config.Config, logger *utils.Logger) *Source {
	return &Source{
		client:         &http.Client{Timeout: 60 * time.Second},
		logger:         logger,
		baseURL:        cfg.AdsAPIURL,
		version:        cfg.AdsAPIVersion,
		developerToken: cfg.AdsDeveloperToken,
		accessToken:    cfg.AdsAccessToken,
		loginCustomer:  NormalizeCustomerID(cfg.AdsLoginCustomerID),
		feedNamePrefix: cfg.FeedNamePrefix,
		pageSize:       cfg.PageSize,
	}
}

// NormalizeCustomerID strips separators such as dashes copied from the UI.
func NormalizeCustomerID(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, id)
}

// Query returns the report query for accountID. The feed name keeps the
// account id exactly as configured.
func (s *Source) Query(accountID string) string {
	return fmt.Sprintf(queryTemplate, s.feedNamePrefix+accountID, s.pageSize)
}

// Fetch yields feed rows for accountID in reporting order. The sequence
// stops after the first error, which is an *models.UpstreamQueryError for
// rejected queries.
func (s *Source) Fetch(ctx context.Context, accountID string) iter.Seq2[models.FeedRow, error] {
	return func(yield func(models.FeedRow, error) bool) {
		customerID := NormalizeCustomerID(accountID)
		query := s.Query(accountID)
		s.logger.Info("[googleads] Querying feed rows for customer %s", customerID)

		pageToken := ""
		emitted := 0
		for {
			page, err := s.search(ctx, customerID, query, pageToken)
			if err != nil {
				yield(models.FeedRow{}, err)
				return
			}
			s.logger.Debug("[googleads] Page returned %d rows", len(page.Results))

			for _, r := range page.Results {
				if emitted >= s.pageSize {
					return
				}
				row, err := r.toFeedRow()
				if err != nil {
					yield(models.FeedRow{}, &models.UpstreamQueryError{Message: "decode row", Err: err})
					return
				}
				emitted++
				if !yield(row, nil) {
					return
				}
			}

			if page.NextPageToken == "" || emitted >= s.pageSize {
				return
			}
			pageToken = page.NextPageToken
		}
	}
}

type searchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

type searchResponse struct {
	Results       []searchRow `json:"results"`
	NextPageToken string      `json:"nextPageToken"`
}

type searchRow struct {
	Feed struct {
		ResourceName string `json:"resourceName"`
		ID           string `json:"id"`
		Name         string `json:"name"`
	} `json:"feed"`
	FeedItem struct {
		ResourceName    string           `json:"resourceName"`
		AttributeValues []attributeValue `json:"attributeValues"`
	} `json:"feedItem"`
	Metrics struct {
		Clicks string `json:"clicks"`
	} `json:"metrics"`
}

// attributeValue carries int64 fields as strings, as the REST API encodes them.
type attributeValue struct {
	FeedAttributeID string   `json:"feedAttributeId"`
	StringValue     *string  `json:"stringValue"`
	IntegerValue    *string  `json:"integerValue"`
	PriceValue      *string  `json:"priceValue"`
	DoubleValue     *float64 `json:"doubleValue"`
}

func (a attributeValue) value() string {
	switch {
	case a.StringValue != nil:
		return *a.StringValue
	case a.PriceValue != nil:
		return *a.PriceValue
	case a.IntegerValue != nil:
		return *a.IntegerValue
	case a.DoubleValue != nil:
		return strconv.FormatFloat(*a.DoubleValue, 'f', -1, 64)
	}
	return ""
}

func (r searchRow) toFeedRow() (models.FeedRow, error) {
	row := models.FeedRow{
		ResourceName: r.FeedItem.ResourceName,
		FeedName:     r.Feed.Name,
		Attributes:   make(map[int64]string, len(r.FeedItem.AttributeValues)),
	}
	for _, av := range r.FeedItem.AttributeValues {
		id, err := strconv.ParseInt(av.FeedAttributeID, 10, 64)
		if err != nil {
			return row, fmt.Errorf("feed attribute id %q: %w", av.FeedAttributeID, err)
		}
		row.Attributes[id] = av.value()
	}
	if r.Metrics.Clicks != "" {
		clicks, err := strconv.ParseInt(r.Metrics.Clicks, 10, 64)
		if err != nil {
			return row, fmt.Errorf("clicks %q: %w", r.Metrics.Clicks, err)
		}
		row.Clicks = clicks
	}
	return row, nil
}

func (s *Source) search(ctx context.Context, customerID, query, pageToken string) (*searchResponse, error) {
	body, err := json.Marshal(searchRequest{Query: query, PageToken: pageToken})
	if err != nil {
		return nil, fmt.Errorf("googleads: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/customers/%s/googleAds:search", s.baseURL, s.version, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &models.UpstreamQueryError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("developer-token", s.developerToken)
	if s.loginCustomer != "" {
		req.Header.Set("login-customer-id", s.loginCustomer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamQueryError{Message: "transport", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UpstreamQueryError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeFailure(resp.StatusCode, data)
	}

	var page searchResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &models.UpstreamQueryError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return &page, nil
}
