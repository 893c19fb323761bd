// Package encompass is a client for the Encompass parts REST service.
package encompass

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://encompass.com"

	partsInformationPath = "/restfulservice/partsInformation"
	modelPartListPath    = "/restfulservice/modelPartList"
	modelSearchPath      = "/restfulservice/search"

	partsInformationProgram = "JSON.ITEM.INFORMATION"
	modelPartListProgram    = "JSON.MODEL.INFORMATION"

	statusSuccess = "100"
)

// ErrNoMatch is returned when Encompass answers but none of the returned
// parts match the requested part number exactly.
var ErrNoMatch = eris.New("encompass: no exact part match")

// makeMapping translates common make codes to Encompass manufacturer codes.
var makeMapping = map[string]string{
	"BSH": "BCH",
	"SAM": "SMG",
	"F-P": "FAP",
	"WCI": "FRI",
	"GEH": "HOT",
	"L-G": "ZEN",
	"SPE": "SPQ",
	"WPL": "WHI",
}

// MfgCode returns the Encompass manufacturer code for a make, or "" if the
// make has no mapping.
func MfgCode(makeCode string) string {
	return makeMapping[strings.ToUpper(strings.TrimSpace(makeCode))]
}

// Client looks up parts and models at Encompass.
type Client interface {
	PartInformation(ctx context.Context, partNumber, makeCode string) ([]json.RawMessage, error)
	SearchModel(ctx context.Context, modelNumber string) (json.RawMessage, error)
	ModelPartList(ctx context.Context, modelID, makeCode string) (json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
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
	username string
	password string
	baseURL  string
	http     *http.Client
}

// NewClient creates an Encompass API client.
func NewClient(username, password string, opts ...Option) Client {
	c := &httpClient{
		username: username,
		password: password,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type settings struct {
	JSONUser     string `json:"jsonUser"`
	JSONPassword string `json:"jsonPassword"`
	ProgramName  string `json:"programName,omitempty"`
}

type request struct {
	Settings settings       `json:"settings"`
	Data     map[string]any `json:"data"`
}

type status struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type partsResponse struct {
	Status status `json:"status"`
	Data   struct {
		Parts []json.RawMessage `json:"parts"`
	} `json:"data"`
}

// PartInformation returns the parts whose partNumber equals partNumber,
// ignoring case. Near matches Encompass includes in the response are
// dropped.
func (c *httpClient) PartInformation(ctx context.Context, partNumber, makeCode string) ([]json.RawMessage, error) {
	data := map[string]any{"searchPartNumber": partNumber}
	if code := MfgCode(makeCode); code != "" {
		data["searchMfgCode"] = code
	}

	var resp partsResponse
	if err := c.call(ctx, partsInformationPath, partsInformationProgram, data, &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != statusSuccess {
		msg := resp.Status.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, eris.Errorf("encompass: %s (code %s)", msg, resp.Status.ErrorCode)
	}

	var matches []json.RawMessage
	for _, raw := range resp.Data.Parts {
		var p struct {
			PartNumber string `json:"partNumber"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if strings.EqualFold(p.PartNumber, partNumber) {
			matches = append(matches, raw)
		}
	}

	zap.L().Debug("encompass: part information",
		zap.String("part_number", partNumber),
		zap.Int("returned", len(resp.Data.Parts)),
		zap.Int("exact", len(matches)),
	)

	if len(matches) == 0 {
		return nil, ErrNoMatch
	}
	return matches, nil
}

// SearchModel looks up a model number and returns the raw search response,
// which carries the model IDs ModelPartList needs.
func (c *httpClient) SearchModel(ctx context.Context, modelNumber string) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.call(ctx, modelSearchPath, "", map[string]any{"searchTerm": modelNumber}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ModelPartList returns the raw part list for a model ID.
func (c *httpClient) ModelPartList(ctx context.Context, modelID, makeCode string) (json.RawMessage, error) {
	data := map[string]any{"modelID": modelID}
	if code := MfgCode(makeCode); code != "" {
		data["searchMfgCode"] = code
	}

	var resp json.RawMessage
	if err := c.call(ctx, modelPartListPath, modelPartListProgram, data, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ModelIDs collects the modelID values from a SearchModel response without
// duplicates. Arrays keep their order; object keys are visited sorted.
// Numeric IDs are returned as their JSON literal.
func ModelIDs(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if strings.EqualFold(k, "modelID") {
					id := ""
					switch idv := t[k].(type) {
					case string:
						id = strings.TrimSpace(idv)
					case json.Number:
						id = idv.String()
					}
					if id != "" && !seen[id] {
						seen[id] = true
						ids = append(ids, id)
					}
					continue
				}
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(doc)
	return ids
}

func (c *httpClient) call(ctx context.Context, path, program string, data map[string]any, out any) error {
	body, err := json.Marshal(request{
		Settings: settings{JSONUser: c.username, JSONPassword: c.password, ProgramName: program},
		Data:     data,
	})
	if err != nil {
		return eris.Wrap(err, "encompass: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "encompass: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "encompass: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "encompass: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("encompass", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "encompass: unmarshal response")
	}
	return nil
}
