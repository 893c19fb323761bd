package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parts-cli/internal/extract"
	"github.com/sells-group/parts-cli/pkg/salesforce"
)

// EnhanceSystemPrompt frames every enhancement call.
const EnhanceSystemPrompt = `You are an expert in appliance parts and customer education.
Your job is to take technical parts data and create clear, customer-friendly descriptions
that are educational and easy to understand. Focus on:
- What the part does
- Why it's important
- Common issues it solves
- Compatibility information
Keep language simple and avoid excessive technical jargon.`

// DefaultEnhanceTemperature is the sampling temperature for enhancement.
const DefaultEnhanceTemperature = 0.7

const maxFeatures = 5

// Enhancer writes customer-facing copy for a part. Providers are tried in
// order; the first that answers wins.
type Enhancer struct {
	providers   []extract.Provider
	temperature float64
}

// NewEnhancer creates an Enhancer over providers in fallback order.
func NewEnhancer(providers []extract.Provider, temperature float64) *Enhancer {
	if temperature == 0 {
		temperature = DefaultEnhanceTemperature
	}
	return &Enhancer{providers: providers, temperature: temperature}
}

// Enhance generates a description, key features and a compatibility
// statement for part. The description needs a name or description to work
// from and the compatibility statement needs a part or model number.
func (e *Enhancer) Enhance(ctx context.Context, part *salesforce.Part) (*salesforce.Enhancement, error) {
	out := &salesforce.Enhancement{}

	if part.Name != "" || part.Description != "" {
		text, err := e.complete(ctx, descriptionPrompt(part))
		if err != nil {
			return nil, eris.Wrap(err, "enhance: description")
		}
		out.Description = strings.TrimSpace(text)
	}

	text, err := e.complete(ctx, featuresPrompt(part))
	if err != nil {
		return nil, eris.Wrap(err, "enhance: features")
	}
	out.Features = ParseFeatures(text)

	if part.PartNumber != "" || part.ModelNumbers != "" {
		text, err := e.complete(ctx, compatibilityPrompt(part))
		if err != nil {
			return nil, eris.Wrap(err, "enhance: compatibility")
		}
		out.Compatibility = strings.TrimSpace(text)
	}

	return out, nil
}

func (e *Enhancer) complete(ctx context.Context, prompt string) (string, error) {
	if len(e.providers) == 0 {
		return "", eris.New("enhance: no providers configured")
	}

	var lastErr error
	for _, p := range e.providers {
		resp, err := p.Complete(ctx, extract.Request{
			System:      EnhanceSystemPrompt,
			Prompt:      prompt,
			Temperature: e.temperature,
		})
		if err == nil {
			return resp.Text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		zap.L().Warn("enhance: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
	}
	return "", eris.Wrap(lastErr, "enhance: all providers failed")
}

// ParseFeatures splits a bullet list into features, stripping bullet
// markers and keeping at most five.
func ParseFeatures(text string) []string {
	var features []string
	for _, line := range strings.Split(text, "\n") {
		f := strings.TrimSpace(strings.Trim(line, "- •*\t"))
		if f == "" {
			continue
		}
		features = append(features, f)
		if len(features) == maxFeatures {
			break
		}
	}
	return features
}

func descriptionPrompt(p *salesforce.Part) string {
	name := p.Name
	if name == "" {
		name = "Unknown Part"
	}
	return fmt.Sprintf(`Create a customer-friendly description for this appliance part:

Part Name: %s
Part Number: %s
Technical Description: %s

Write a 2-3 sentence description that explains what this part does and why a customer
might need it. Make it clear and educational.`, name, p.PartNumber, p.Description)
}

func featuresPrompt(p *salesforce.Part) string {
	name := p.Name
	if name == "" {
		name = "Unknown Part"
	}
	return fmt.Sprintf(`List 3-5 key features or benefits of this appliance part:

Part Name: %s
Description: %s

Return ONLY a bullet-point list, one feature per line.`, name, p.Description)
}

func compatibilityPrompt(p *salesforce.Part) string {
	return fmt.Sprintf(`Create a brief compatibility statement for this part:

Part Number: %s
Compatible Models: %s

Write 1-2 sentences explaining compatibility in customer-friendly language.`, p.PartNumber, p.ModelNumbers)
}

// EnhanceResult is the outcome of EnhancePart.
type EnhanceResult struct {
	Part        *salesforce.Part
	Enhancement *salesforce.Enhancement
	Updated     bool
}

// EnhancePart loads a part from Salesforce, generates its copy and writes
// it back unless dryRun is set.
func EnhancePart(ctx context.Context, sf salesforce.Client, e *Enhancer, partNumber string, dryRun bool) (*EnhanceResult, error) {
	part, err := salesforce.FindPartByNumber(ctx, sf, partNumber)
	if err != nil {
		return nil, eris.Wrap(err, "enhance: load part")
	}
	if part == nil {
		return nil, eris.Errorf("enhance: part %s not found in Salesforce", partNumber)
	}

	enh, err := e.Enhance(ctx, part)
	if err != nil {
		return nil, err
	}

	res := &EnhanceResult{Part: part, Enhancement: enh}
	if dryRun {
		return res, nil
	}

	if err := salesforce.UpdatePartEnhancement(ctx, sf, part.ID, *enh); err != nil {
		return res, eris.Wrap(err, "enhance: update part")
	}
	res.Updated = true
	zap.L().Info("enhance: part updated",
		zap.String("part", partNumber),
		zap.String("sf_id", part.ID),
		zap.Int("features", len(enh.Features)),
	)
	return res, nil
}

// CategoryOptions controls EnhanceCategory.
type CategoryOptions struct {
	Limit       int // parts to load; 0 means the Salesforce helper default
	Concurrency int
	DryRun      bool
}

// CategoryResult is the outcome of EnhanceCategory. Results keep the order
// Salesforce returned the parts in; parts whose copy could not be
// generated are listed in Errors instead.
type CategoryResult struct {
	Category string
	Results  []*EnhanceResult
	Errors   map[string]string
	Updated  int
}

// EnhanceCategory generates copy for every part in a Salesforce category
// and writes it back with one bulk update. A failed part does not stop the
// others.
func EnhanceCategory(ctx context.Context, sf salesforce.Client, e *Enhancer, category string, opts CategoryOptions) (*CategoryResult, error) {
	if strings.TrimSpace(category) == "" {
		return nil, eris.New("enhance: category is required")
	}
	parts, err := salesforce.FindPartsByCategory(ctx, sf, category, opts.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "enhance: load category")
	}

	res := &CategoryResult{Category: category, Errors: map[string]string{}}
	enhanced := make([]*EnhanceResult, len(parts))
	failures := make([]error, len(parts))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range parts {
		g.Go(func() error {
			enh, err := e.Enhance(gCtx, &parts[i])
			if err != nil {
				failures[i] = err
				return nil
			}
			enhanced[i] = &EnhanceResult{Part: &parts[i], Enhancement: enh}
			return nil
		})
	}
	_ = g.Wait()

	var updates []salesforce.PartUpdate
	byID := make(map[string]*EnhanceResult, len(parts))
	for i, r := range enhanced {
		if r == nil {
			res.Errors[partKey(&parts[i])] = failures[i].Error()
			continue
		}
		res.Results = append(res.Results, r)
		byID[r.Part.ID] = r
		updates = append(updates, salesforce.PartUpdate{ID: r.Part.ID, Fields: r.Enhancement.Fields()})
	}

	if opts.DryRun || len(updates) == 0 {
		return res, nil
	}

	results, err := salesforce.BulkUpdateParts(ctx, sf, updates)
	for _, cr := range results {
		r, ok := byID[cr.ID]
		if !ok {
			continue
		}
		if cr.Success {
			r.Updated = true
			res.Updated++
			continue
		}
		res.Errors[partKey(r.Part)] = "update failed: " + strings.Join(cr.Errors, "; ")
	}
	if err != nil {
		return res, eris.Wrap(err, "enhance: bulk update")
	}

	zap.L().Info("enhance: category updated",
		zap.String("category", category),
		zap.Int("parts", len(parts)),
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func partKey(p *salesforce.Part) string {
	if p.PartNumber != "" {
		return p.PartNumber
	}
	return p.ID
}
