// Package cost estimates LLM spend from token usage.
package cost

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model names to their token pricing.
type Rates map[string]ModelRate

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of one model call. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int) float64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Known reports whether the calculator has a rate for model.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates[model]
	return ok
}

// DefaultRates returns the default pricing for the supported extraction
// and enhancement models.
func DefaultRates() Rates {
	return Rates{
		"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
		"gpt-4o":                     {Input: 2.50, Output: 10.00},
		"grok-3":                     {Input: 3.00, Output: 15.00},
		"grok-3-mini":                {Input: 0.30, Output: 0.50},
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"gemini-2.5-flash":           {Input: 0.30, Output: 2.50},
		"gemini-2.5-pro":             {Input: 1.25, Output: 10.00},
	}
}

// Merge returns a copy of base with overrides applied on top.
func Merge(base Rates, overrides Rates) Rates {
	out := make(Rates, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
