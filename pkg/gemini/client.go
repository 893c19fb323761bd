// Package gemini wraps the Google GenAI SDK for single-turn text
// generation against the Gemini API.
package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/parts-cli/internal/resilience"
)

const defaultModel = "gemini-2.5-flash"

// Client generates text from a system instruction and a user prompt.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Model() string
}

// GenerateRequest is one single-turn generation call.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	JSON        bool // ask for application/json output
}

// GenerateResponse holds the generated text and token usage.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Option configures the client.
type Option func(*genai.ClientConfig, *sdkClient)

// WithBaseURL overrides the API host.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig, _ *sdkClient) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(_ *genai.ClientConfig, c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *genai.ClientConfig, _ *sdkClient) {
		cfg.HTTPClient = hc
	}
}

type sdkClient struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	c := &sdkClient{model: defaultModel}
	cfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	}
	for _, o := range opts {
		o(cfg, c)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c.client = client
	return c, nil
}

func (c *sdkClient) Model() string {
	return c.model
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Code) {
			return nil, resilience.NewTransientError(eris.Wrap(err, "gemini: generate content"), apiErr.Code)
		}
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &GenerateResponse{Text: resp.Text(), Model: model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if out.Text == "" {
		return nil, eris.New("gemini: empty response")
	}
	return out, nil
}
