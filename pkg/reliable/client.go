// Package reliable is a client for the Reliable Parts REST APIs (part
// search, model search, model-to-part).
package reliable

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://stgapi.reliableparts.net:8077"

	partSearchPath  = "/ws/rest/ReliablePartsBoomiAPI/partSearch/v2/query"
	modelSearchPath = "/ModelSearch/modelnumber"
	modelToPartPath = "/ModelToPart/modelnumber"
)

// Keys holds the per-subscription API keys. Each endpoint is a separate
// subscription with its own key.
type Keys struct {
	PartSearch  string
	ModelSearch string
	ModelToPart string
}

// SearchRequest is the body of a part search.
type SearchRequest struct {
	PartNumber string `json:"partNumber"`
	PostalCode string `json:"postalCode,omitempty"`
	Quantity   string `json:"quantity,omitempty"`
	Warehouse  string `json:"warehouse,omitempty"`
}

// Client queries Reliable Parts.
type Client interface {
	SearchPart(ctx context.Context, req SearchRequest) (json.RawMessage, error)
	SearchModel(ctx context.Context, modelNumber string) (json.RawMessage, error)
	ModelParts(ctx context.Context, modelNumber string) (json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate checks. The staging host
// serves a self-signed certificate.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *httpClient) {
		c.insecure = skip
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	username string
	password string
	keys     Keys
	baseURL  string
	insecure bool
	http     *http.Client
}

// NewClient creates a Reliable Parts client using basic auth plus the
// subscription keys.
func NewClient(username, password string, keys Keys, opts ...Option) Client {
	c := &httpClient{
		username: username,
		password: password,
		keys:     keys,
		baseURL:  defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.insecure {
			zap.L().Warn("reliable: TLS verification disabled", zap.String("base_url", c.baseURL))
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		c.http = &http.Client{Timeout: 30 * time.Second, Transport: transport}
	}
	return c
}

// SearchPart runs Part Search v2 for a part number.
func (c *httpClient) SearchPart(ctx context.Context, req SearchRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.PartNumber) == "" {
		return nil, eris.New("reliable: part number is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "reliable: marshal request")
	}
	return c.call(ctx, http.MethodPost, partSearchPath, c.keys.PartSearch, nil, body)
}

// SearchModel looks up a model number.
func (c *httpClient) SearchModel(ctx context.Context, modelNumber string) (json.RawMessage, error) {
	q := url.Values{"modelNumber": {modelNumber}}
	return c.call(ctx, http.MethodGet, modelSearchPath, c.keys.ModelSearch, q, nil)
}

// ModelParts returns the exploded part list for a model number.
func (c *httpClient) ModelParts(ctx context.Context, modelNumber string) (json.RawMessage, error) {
	q := url.Values{"modelNumber": {modelNumber}}
	return c.call(ctx, http.MethodGet, modelToPartPath, c.keys.ModelToPart, q, nil)
}

// call returns the response body. A body that is not JSON is wrapped as
// {"raw_response": text} so callers always get a JSON document.
func (c *httpClient) call(ctx context.Context, method, path, apiKey string, query url.Values, body []byte) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, eris.Wrap(err, "reliable: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "reliable: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reliable: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.StatusError("reliable", resp.StatusCode, respBody)
	}

	if json.Valid(respBody) {
		return respBody, nil
	}

	wrapped, err := json.Marshal(map[string]string{"raw_response": string(respBody)})
	if err != nil {
		return nil, eris.Wrap(err, "reliable: wrap raw response")
	}
	return wrapped, nil
}
