package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/resilience"
)

func newTestClient(t *testing.T, url string, opts ...Option) Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", append([]Option{WithBaseURL(url)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "models/gemini-2.5-flash:generateContent")

		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `{"field_analysis": {}}`}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     200,
				"candidatesTokenCount": 80,
				"totalTokenCount":      280,
			},
			"modelVersion": "gemini-2.5-flash-001",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	assert.Equal(t, "gemini-2.5-flash", client.Model())

	temp := 0.3
	resp, err := client.Generate(context.Background(), GenerateRequest{
		System:      "Return ONLY valid JSON.",
		Prompt:      "Extract fields",
		Temperature: &temp,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"field_analysis": {}}`, resp.Text)
	assert.Equal(t, "gemini-2.5-flash-001", resp.Model)
	assert.Equal(t, 200, resp.InputTokens)
	assert.Equal(t, 80, resp.OutputTokens)

	require.Contains(t, body, "systemInstruction")
	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gen["responseMimeType"])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
	}{
		{
			name:          "unavailable",
			status:        http.StatusServiceUnavailable,
			body:          `{"error": {"code": 503, "message": "overloaded", "status": "UNAVAILABLE"}}`,
			wantErr:       "gemini: generate content",
			wantTransient: true,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error": {"code": 400, "message": "bad", "status": "INVALID_ARGUMENT"}}`,
			wantErr: "gemini: generate content",
		},
		{
			name:    "empty candidates",
			status:  http.StatusOK,
			body:    `{"candidates": []}`,
			wantErr: "gemini: empty response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, WithModel("gemini-2.5-pro"))
			_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
		})
	}
}
