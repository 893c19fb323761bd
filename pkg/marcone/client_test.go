package marcone

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/resilience"
)

const partsResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ExactPartLookupResponse xmlns="http://b2b.marcone.com/">
      <ExactPartLookupResult>
        <PartInformation_v2>
          <PartNumber>WR55X10025</PartNumber>
          <Make>GEH</Make>
          <PartDescription>TEMPERATURE SENSOR</PartDescription>
          <ListPrice>45.99</ListPrice>
          <QuantityAvailable>12</QuantityAvailable>
          <Substitutions><string>AP3185407</string><string>PS1993870</string></Substitutions>
        </PartInformation_v2>
      </ExactPartLookupResult>
    </ExactPartLookupResponse>
  </soap:Body>
</soap:Envelope>`

const emptyResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body><ExactPartLookupResponse xmlns="http://b2b.marcone.com/"><ExactPartLookupResult/></ExactPartLookupResponse></soap:Body>
</soap:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body><soap:Fault><faultcode>soap:Server</faultcode><faultstring>Invalid login</faultstring></soap:Fault></soap:Body>
</soap:Envelope>`

func TestExactPartLookup(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, partServicePath, r.URL.Path)
		assert.Equal(t, `"http://b2b.marcone.com/ExactPartLookup"`, r.Header.Get("SOAPAction"))
		assert.Contains(t, r.Header.Get("Content-Type"), "text/xml")
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "p&ss", pass)

		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(partsResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "user", "p&ss")
	parts, err := c.ExactPartLookup(context.Background(), "WR55X10025", "GEH")
	require.NoError(t, err)
	require.Len(t, parts, 1)

	assert.Equal(t, "WR55X10025", parts[0].PartNumber)
	assert.Equal(t, "TEMPERATURE SENSOR", parts[0].PartDescription)
	assert.Equal(t, "45.99", parts[0].ListPrice)
	assert.Equal(t, []string{"AP3185407", "PS1993870"}, parts[0].Substitutions)

	assert.Contains(t, gotBody, "<ExactPartLookup xmlns=\"http://b2b.marcone.com/\">")
	assert.Contains(t, gotBody, "<password>p&amp;ss</password>")
	assert.Contains(t, gotBody, "<make>GEH</make><partNumber>WR55X10025</partNumber>")
}

func TestPartLookupUsesLowercaseParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), "<partnumber>WR55</partnumber>")
		assert.Contains(t, r.Header.Get("SOAPAction"), "PartLookup")
		_, _ = w.Write([]byte(emptyResponse))
	}))
	defer srv.Close()

	parts, err := NewClient(srv.URL, "u", "p").PartLookup(context.Background(), "WR55", "")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestExactPartLookup_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
	}{
		{name: "soap fault", status: http.StatusInternalServerError, body: faultResponse, wantErr: "fault soap:Server: Invalid login"},
		{name: "gateway", status: http.StatusBadGateway, body: "bad gateway", wantErr: "unexpected status 502", wantTransient: true},
		{name: "forbidden", status: http.StatusForbidden, body: "nope", wantErr: "unexpected status 403"},
		{name: "malformed", status: http.StatusOK, body: "<soap:Envelope><PartInformation_v2>", wantErr: "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "u", "p").ExactPartLookup(context.Background(), "X", "GEH")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
		})
	}
}

// stubClient answers ExactPartLookup from a per-make table.
type stubClient struct {
	parts map[string][]PartInformation
	errs  map[string]error
	calls []string
}

func (s *stubClient) ExactPartLookup(_ context.Context, _ string, makeCode string) ([]PartInformation, error) {
	s.calls = append(s.calls, makeCode)
	if err := s.errs[makeCode]; err != nil {
		return nil, err
	}
	return s.parts[makeCode], nil
}

func (s *stubClient) PartLookup(context.Context, string, string) ([]PartInformation, error) {
	return nil, nil
}

func TestLookupWithFallback(t *testing.T) {
	boom := errors.New("connection reset by peer")

	tests := []struct {
		name      string
		make      string
		stub      *stubClient
		wantMake  string
		wantCalls []string
		wantErr   error
	}{
		{
			name:      "third code hits",
			stub:      &stubClient{parts: map[string][]PartInformation{"GE": {{PartNumber: "WR55X10025"}}}},
			wantMake:  "GE",
			wantCalls: []string{"GEH", "GEN", "GE"},
		},
		{
			name:      "caller make tried first",
			make:      "hot",
			stub:      &stubClient{parts: map[string][]PartInformation{"HOT": {{PartNumber: "WR55X10025"}}}},
			wantMake:  "HOT",
			wantCalls: []string{"HOT"},
		},
		{
			name:      "errors are skipped",
			stub:      &stubClient{errs: map[string]error{"GEH": boom}, parts: map[string][]PartInformation{"GEN": {{PartNumber: "X"}}}},
			wantMake:  "GEN",
			wantCalls: []string{"GEH", "GEN"},
		},
		{
			name:      "all empty",
			stub:      &stubClient{},
			wantCalls: []string{"GEH", "GEN", "GE", "HOT"},
			wantErr:   ErrNotFound,
		},
		{
			name:      "all failed returns last error",
			stub:      &stubClient{errs: map[string]error{"GEH": boom, "GEN": boom, "GE": boom, "HOT": boom}},
			wantCalls: []string{"GEH", "GEN", "GE", "HOT"},
			wantErr:   boom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := LookupWithFallback(context.Background(), tt.stub, "WR55X10025", tt.make, nil)
			assert.Equal(t, tt.wantCalls, tt.stub.calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMake, res.Make)
			assert.NotEmpty(t, res.Parts)
		})
	}
}

func TestLookupWithFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LookupWithFallback(ctx, &stubClient{}, "X", "", []string{"WPL"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "cancelled"))
}
