package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parts-cli/internal/config"
	"github.com/sells-group/parts-cli/pkg/anthropic"
	"github.com/sells-group/parts-cli/pkg/gemini"
	"github.com/sells-group/parts-cli/pkg/openai"
)

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	JSON        bool
}

// Response is a provider's raw text plus accounting.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is an LLM that can answer a single prompt. Extraction and
// enhancement both go through it.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ChatProvider adapts an OpenAI-compatible chat client (OpenAI, xAI).
type ChatProvider struct {
	name   string
	client openai.Client
}

// NewChatProvider wraps an OpenAI-compatible client under the given name.
func NewChatProvider(name string, client openai.Client) *ChatProvider {
	return &ChatProvider{name: name, client: client}
}

func (p *ChatProvider) Name() string  { return p.name }
func (p *ChatProvider) Model() string { return p.client.Model() }

func (p *ChatProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	creq := openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: openai.Float64(req.Temperature),
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ResponseFormat{Type: "json_object"}
	}

	resp, err := p.client.ChatCompletion(ctx, creq)
	if err != nil {
		return nil, err
	}
	model := resp.Model
	if model == "" {
		model = p.client.Model()
	}
	return &Response{
		Text:         resp.Content(),
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// AnthropicProvider adapts the Anthropic messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider wraps an Anthropic client.
func NewAnthropicProvider(client anthropic.Client, model string, maxTokens int64) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicProvider{client: client, model: model, maxTokens: maxTokens}
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Response{
		Text:         resp.Text(),
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// GeminiProvider adapts the Gemini API.
type GeminiProvider struct {
	client gemini.Client
}

// NewGeminiProvider wraps a Gemini client.
func NewGeminiProvider(client gemini.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.client.Model() }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	temp := req.Temperature
	resp, err := p.client.Generate(ctx, gemini.GenerateRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
		JSON:        req.JSON,
	})
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// NewProvider builds the named provider from configuration.
func NewProvider(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch name {
	case "openai":
		if cfg.OpenAI.Key == "" {
			return nil, eris.New("extract: openai.key is not set")
		}
		return NewChatProvider("openai", openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
		)), nil
	case "xai":
		if cfg.XAI.Key == "" {
			return nil, eris.New("extract: xai.key is not set")
		}
		baseURL := cfg.XAI.BaseURL
		if baseURL == "" {
			baseURL = openai.XAIBaseURL
		}
		return NewChatProvider("xai", openai.NewClient(cfg.XAI.Key,
			openai.WithName("xai"),
			openai.WithBaseURL(baseURL),
			openai.WithModel(cfg.XAI.Model),
		)), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("extract: anthropic.key is not set")
		}
		return NewAnthropicProvider(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			int64(cfg.Anthropic.MaxTokens),
		), nil
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("extract: gemini.key is not set")
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithModel(cfg.Gemini.Model))
		if err != nil {
			return nil, eris.Wrap(err, "extract: create gemini client")
		}
		return NewGeminiProvider(client), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", name)
	}
}
