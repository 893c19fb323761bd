package encompass

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/resilience"
)

func TestMfgCode(t *testing.T) {
	tests := []struct {
		make string
		want string
	}{
		{"GEH", "HOT"},
		{"wpl", "WHI"},
		{" L-G ", "ZEN"},
		{"XYZ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.make, func(t *testing.T) {
			assert.Equal(t, tt.want, MfgCode(tt.make))
		})
	}
}

func TestPartInformation(t *testing.T) {
	tests := []struct {
		name      string
		make      string
		status    int
		body      string
		wantMfg   string
		wantParts int
		wantErr   string
		wantIs    error
	}{
		{
			name:   "exact match filtered",
			make:   "GEH",
			status: http.StatusOK,
			body: `{"status": {"errorCode": "100", "errorMessage": "SUCCESS"},
				"data": {"parts": [
					{"partNumber": "wr55x10025", "partDescription": "Temperature sensor"},
					{"partNumber": "WR55X10025A", "partDescription": "Near match"}
				]}}`,
			wantMfg:   "HOT",
			wantParts: 1,
		},
		{
			name:    "no exact match",
			status:  http.StatusOK,
			body:    `{"status": {"errorCode": "100"}, "data": {"parts": [{"partNumber": "OTHER"}]}}`,
			wantIs:  ErrNoMatch,
			wantErr: "no exact part match",
		},
		{
			name:    "api error code",
			status:  http.StatusOK,
			body:    `{"status": {"errorCode": "200", "errorMessage": "Invalid credentials"}}`,
			wantErr: "encompass: Invalid credentials (code 200)",
		},
		{
			name:    "http error",
			status:  http.StatusServiceUnavailable,
			body:    `down`,
			wantErr: "encompass: unexpected status 503",
		},
		{
			name:    "bad json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: "unmarshal response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, partsInformationPath, r.URL.Path)

				b, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				var req request
				require.NoError(t, json.Unmarshal(b, &req))
				assert.Equal(t, "user", req.Settings.JSONUser)
				assert.Equal(t, "pass", req.Settings.JSONPassword)
				assert.Equal(t, partsInformationProgram, req.Settings.ProgramName)
				assert.Equal(t, "WR55X10025", req.Data["searchPartNumber"])
				if tt.wantMfg != "" {
					assert.Equal(t, tt.wantMfg, req.Data["searchMfgCode"])
				} else {
					assert.NotContains(t, req.Data, "searchMfgCode")
				}

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("user", "pass", WithBaseURL(srv.URL+"/"))
			parts, err := c.PartInformation(context.Background(), "WR55X10025", tt.make)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantIs != nil {
					assert.True(t, errors.Is(err, tt.wantIs))
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, parts, tt.wantParts)
			assert.Contains(t, string(parts[0]), "Temperature sensor")
		})
	}
}

func TestPartInformation_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("u", "p", WithBaseURL(srv.URL)).PartInformation(context.Background(), "X", "")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSearchModelAndPartList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var req request
		require.NoError(t, json.Unmarshal(b, &req))

		switch r.URL.Path {
		case modelSearchPath:
			assert.Empty(t, req.Settings.ProgramName)
			assert.Equal(t, "GSS25GSHSS", req.Data["searchTerm"])
			_, _ = w.Write([]byte(`{"data": {"models": [{"modelID": "m-1"}]}}`))
		case modelPartListPath:
			assert.Equal(t, modelPartListProgram, req.Settings.ProgramName)
			assert.Equal(t, "m-1", req.Data["modelID"])
			assert.Equal(t, "WHI", req.Data["searchMfgCode"])
			_, _ = w.Write([]byte(`{"data": {"parts": [{"partNumber": "W1"}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient("u", "p", WithBaseURL(srv.URL))

	search, err := c.SearchModel(context.Background(), "GSS25GSHSS")
	require.NoError(t, err)
	assert.Contains(t, string(search), "m-1")

	list, err := c.ModelPartList(context.Background(), "m-1", "WPL")
	require.NoError(t, err)
	assert.Contains(t, string(list), "W1")
}

func TestModelIDs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"models list", `{"data": {"models": [{"modelID": "m-1"}, {"modelID": "m-2"}]}}`, []string{"m-1", "m-2"}},
		{"numeric and duplicate", `{"data": [{"modelId": 4411}, {"modelID": "4411"}, {"ModelID": " m-9 "}]}`, []string{"4411", "m-9"}},
		{"no models", `{"data": {"models": []}}`, nil},
		{"empty id skipped", `{"data": [{"modelID": ""}]}`, nil},
		{"invalid json", `{`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelIDs(json.RawMessage(tt.raw)))
		})
	}
}
