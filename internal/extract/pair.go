package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parts-cli/internal/cost"
	"github.com/sells-group/parts-cli/internal/model"
)

// Slot names for the two sides of a pair.
const (
	SlotPrimary   = "primary"
	SlotSecondary = "secondary"
)

// DefaultTemperature is the sampling temperature for extraction calls.
const DefaultTemperature = 0.3

// Extractor runs one provider against a prompt and parses the answer.
type Extractor struct {
	Provider    Provider
	Fields      *model.FieldRegistry
	Temperature float64
	Costs       *cost.Calculator
}

// SlotResult is one side of a pair run. Result is set only when both the
// call and the parse succeeded.
type SlotResult struct {
	Outcome  model.ExtractionOutcome
	Result   *model.ExtractionResult
	Duration time.Duration
	Err      error
}

// SlotError names the side of the pair that failed.
type SlotError struct {
	Slot string
	Err  error
}

func (e *SlotError) Error() string {
	return e.Slot + ": " + e.Err.Error()
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// IsParseFailure reports whether err came from unreadable model output
// rather than a failed call.
func IsParseFailure(err error) bool {
	return errors.Is(err, ErrExtractionParse)
}

// Extract calls the provider and parses its answer. The returned outcome is
// filled in even on failure.
func (e *Extractor) Extract(ctx context.Context, slot, prompt string) (res SlotResult) {
	start := time.Now()
	res = SlotResult{Outcome: model.ExtractionOutcome{
		Slot:     slot,
		Provider: e.Provider.Name(),
		Model:    e.Provider.Model(),
	}}
	defer func() { res.Duration = time.Since(start) }()

	temp := e.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}

	resp, err := e.Provider.Complete(ctx, Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: temp,
		JSON:        true,
	})
	if err != nil {
		res.Err = eris.Wrapf(err, "extract: %s call", e.Provider.Name())
		res.Outcome.Error = res.Err.Error()
		return res
	}

	res.Outcome.Model = resp.Model
	res.Outcome.Raw = resp.Text
	res.Outcome.Usage = model.TokenUsage{
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	if e.Costs != nil {
		res.Outcome.Usage.Cost = e.Costs.Tokens(resp.Model, resp.InputTokens, resp.OutputTokens)
	}

	parsed, err := Parse(resp.Text, e.Fields)
	if err != nil {
		res.Err = err
		res.Outcome.Error = err.Error()
		return res
	}
	parsed.Provider = e.Provider.Name()
	parsed.Model = resp.Model
	parsed.Usage = res.Outcome.Usage

	res.Outcome.Success = true
	res.Result = parsed
	return res
}

// PairResult holds both sides of a pair run.
type PairResult struct {
	Primary   SlotResult
	Secondary SlotResult
}

// Usage sums token usage over both sides.
func (p *PairResult) Usage() model.TokenUsage {
	var u model.TokenUsage
	u.Add(p.Primary.Outcome.Usage)
	u.Add(p.Secondary.Outcome.Usage)
	return u
}

// Outcomes returns both outcomes in slot order.
func (p *PairResult) Outcomes() []model.ExtractionOutcome {
	return []model.ExtractionOutcome{p.Primary.Outcome, p.Secondary.Outcome}
}

// Err returns the pair's failure, if any, as a *SlotError. Call failures
// are reported before parse failures, primary before secondary.
func (p *PairResult) Err() error {
	slots := []struct {
		name string
		err  error
	}{
		{SlotPrimary, p.Primary.Err},
		{SlotSecondary, p.Secondary.Err},
	}
	for _, s := range slots {
		if s.err != nil && !IsParseFailure(s.err) {
			return &SlotError{Slot: s.name, Err: s.err}
		}
	}
	for _, s := range slots {
		if s.err != nil {
			return &SlotError{Slot: s.name, Err: s.err}
		}
	}
	return nil
}

// SlotHook wraps one side of a pair run. It must call run exactly once and
// return its result.
type SlotHook func(slot string, run func() SlotResult) SlotResult

// RunPair runs both extractors concurrently on the same prompt. The pair is
// all-or-nothing: if either side fails the error is a *SlotError and the
// caller must not run consensus. Both sides always run to completion so the
// report can show each outcome. hook may be nil.
func RunPair(ctx context.Context, primary, secondary *Extractor, prompt string, hook SlotHook) (*PairResult, error) {
	if hook == nil {
		hook = func(_ string, run func() SlotResult) SlotResult { return run() }
	}
	out := &PairResult{}

	var g errgroup.Group
	g.Go(func() error {
		out.Primary = hook(SlotPrimary, func() SlotResult {
			return primary.Extract(ctx, SlotPrimary, prompt)
		})
		return out.Primary.Err
	})
	g.Go(func() error {
		out.Secondary = hook(SlotSecondary, func() SlotResult {
			return secondary.Extract(ctx, SlotSecondary, prompt)
		})
		return out.Secondary.Err
	})
	if g.Wait() == nil {
		return out, nil
	}

	err := out.Err()
	if IsParseFailure(err) {
		zap.L().Warn("extract: unparseable model output", zap.Error(err))
	}
	return out, err
}
