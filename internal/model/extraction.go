package model

// FieldExtraction is one provider's claim about one catalog field.
type FieldExtraction struct {
	FieldName  string     `json:"field_name"`
	Value      any        `json:"selected_value"`
	Source     SupplierID `json:"selected_source,omitempty"` // empty when the provider named no source
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// ExtractionResult is the full field analysis produced by one provider for
// one part. It is not modified after parsing.
type ExtractionResult struct {
	Provider          string                     `json:"provider"`
	Model             string                     `json:"model"`
	Fields            map[string]FieldExtraction `json:"fields"`
	OverallConfidence float64                    `json:"overall_confidence"`
	Usage             TokenUsage                 `json:"usage"`
}

// Field returns the extraction for name and whether it was present.
func (r *ExtractionResult) Field(name string) (FieldExtraction, bool) {
	if r == nil {
		return FieldExtraction{}, false
	}
	f, ok := r.Fields[name]
	return f, ok
}

// TokenUsage tracks token consumption for one or more LLM calls.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Cost += other.Cost
}

// Total returns input plus output tokens.
func (t TokenUsage) Total() int {
	return t.InputTokens + t.OutputTokens
}
