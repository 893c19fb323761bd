// Package amazon is a client for Amazon product data served through the
// Unwrangle scraping API.
package amazon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/parts-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://data.unwrangle.com/api/getter/"
	defaultCountry = "us"
	userAgent      = "Parts-Catalog-Enhancer/1.0"

	platformSearch   = "amazon_search"
	platformDetail   = "amazon_detail"
	platformCategory = "amazon_category"
)

// SupportedCountries are the marketplaces Unwrangle can scrape.
var SupportedCountries = []string{"us", "uk", "de", "fr", "es", "it", "ca", "mx", "br", "jp", "in", "au"}

// SearchResponse is the amazon_search and amazon_category payload. Results
// are kept raw; callers that need typed fields decode them into Product.
type SearchResponse struct {
	Success          bool              `json:"success"`
	Platform         string            `json:"platform,omitempty"`
	Search           string            `json:"search,omitempty"`
	Page             int               `json:"page"`
	NoOfPages        int               `json:"no_of_pages"`
	ResultCount      int               `json:"result_count"`
	Results          []json.RawMessage `json:"results"`
	CreditsUsed      float64           `json:"credits_used"`
	RemainingCredits float64           `json:"remaining_credits"`
	Message          string            `json:"message,omitempty"`
}

// Product holds the fields of a search result or detail record that the
// lookup flow reads.
type Product struct {
	ASIN     string   `json:"asin"`
	Name     string   `json:"name"`
	Brand    string   `json:"brand"`
	URL      string   `json:"url"`
	Price    any      `json:"price"`
	Rating   any      `json:"rating"`
	Features []string `json:"features"`
}

// Client queries Amazon through Unwrangle.
type Client interface {
	Search(ctx context.Context, query string, page int) (*SearchResponse, error)
	ProductByASIN(ctx context.Context, asin string) (json.RawMessage, error)
	ProductByURL(ctx context.Context, productURL string) (json.RawMessage, error)
	CategoryProducts(ctx context.Context, categoryURL string, page int) (*SearchResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithCountry sets the marketplace country code. Unsupported codes are
// passed through with a warning.
func WithCountry(code string) Option {
	return func(c *httpClient) {
		if code != "" {
			c.country = strings.ToLower(code)
		}
	}
}

// WithRateLimit caps requests per second. Each call spends credits.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	country string
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient creates an Unwrangle client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		country: defaultCountry,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if !slices.Contains(SupportedCountries, c.country) {
		zap.L().Warn("amazon: unsupported country code", zap.String("country_code", c.country))
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, page int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("amazon: search query is required")
	}
	q := url.Values{"platform": {platformSearch}, "search": {query}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.list(ctx, q)
}

func (c *httpClient) CategoryProducts(ctx context.Context, categoryURL string, page int) (*SearchResponse, error) {
	q := url.Values{"platform": {platformCategory}, "url": {categoryURL}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.list(ctx, q)
}

func (c *httpClient) ProductByASIN(ctx context.Context, asin string) (json.RawMessage, error) {
	if !ValidASIN(asin) {
		return nil, eris.Errorf("amazon: invalid asin %q", asin)
	}
	return c.get(ctx, url.Values{"platform": {platformDetail}, "asin": {asin}})
}

func (c *httpClient) ProductByURL(ctx context.Context, productURL string) (json.RawMessage, error) {
	return c.get(ctx, url.Values{"platform": {platformDetail}, "url": {productURL}})
}

func (c *httpClient) list(ctx context.Context, q url.Values) (*SearchResponse, error) {
	body, err := c.get(ctx, q)
	if err != nil {
		return nil, err
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "amazon: unmarshal response")
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, q url.Values) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, eris.New("amazon: api key is required")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "amazon: rate limit")
		}
	}

	q.Set("country_code", c.country)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "amazon: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "amazon: %s request", q.Get("platform"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "amazon: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("amazon", resp.StatusCode, body)
	}
	return body, nil
}
