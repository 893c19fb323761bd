package extract

import (
	"context"
	"sync"

	"github.com/sells-group/parts-cli/pkg/anthropic"
	"github.com/sells-group/parts-cli/pkg/gemini"
)

type mockProvider struct {
	name  string
	model string

	mu       sync.Mutex
	requests []Request
	fn       func(ctx context.Context, req Request) (*Response, error)
}

func (m *mockProvider) Name() string  { return m.name }
func (m *mockProvider) Model() string { return m.model }

func (m *mockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.fn(ctx, req)
}

// textProvider answers every prompt with the same text.
func textProvider(name, model, text string) *mockProvider {
	return &mockProvider{
		name:  name,
		model: model,
		fn: func(context.Context, Request) (*Response, error) {
			return &Response{Text: text, Model: model, InputTokens: 1000, OutputTokens: 200}, nil
		},
	}
}

type mockAnthropic struct {
	req  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (m *mockAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.req = req
	return m.resp, m.err
}

type mockGemini struct {
	model string
	req   gemini.GenerateRequest
	resp  *gemini.GenerateResponse
	err   error
}

func (m *mockGemini) Model() string { return m.model }

func (m *mockGemini) Generate(_ context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	m.req = req
	return m.resp, m.err
}
