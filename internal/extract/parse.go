package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
)

// ErrExtractionParse marks model output that could not be read as a field
// analysis. Consensus never runs on such output.
var ErrExtractionParse = eris.New("extraction parse failure")

// absentSources are the spellings a model uses for "no source".
var absentSources = map[string]bool{"": true, "none": true, "n/a": true, "null": true}

type rawAnalysis struct {
	FieldAnalysis     json.RawMessage `json:"field_analysis"`
	OverallConfidence any             `json:"overall_confidence"`
}

// CleanJSON strips Markdown code fences and any prose around the outermost
// JSON object.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		inner := text[idx+3:]
		inner = strings.TrimPrefix(inner, "json")
		if end := strings.Index(inner, "```"); end >= 0 {
			inner = inner[:end]
		}
		text = inner
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Parse reads a provider's raw text into an ExtractionResult. Numbers keep
// their literal form. Field names outside the registry are kept, so the
// union rule still sees them. Any structural problem returns an error
// wrapping ErrExtractionParse.
func Parse(text string, fields *model.FieldRegistry) (*model.ExtractionResult, error) {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return nil, eris.Wrap(ErrExtractionParse, "extract: empty response")
	}

	var raw rawAnalysis
	if err := decodeNumbers([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrapf(ErrExtractionParse, "extract: invalid json: %v", err)
	}
	if len(raw.FieldAnalysis) == 0 || string(raw.FieldAnalysis) == "null" {
		return nil, eris.Wrap(ErrExtractionParse, "extract: missing field_analysis")
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw.FieldAnalysis, &entries); err != nil {
		return nil, eris.Wrap(ErrExtractionParse, "extract: field_analysis is not an object")
	}

	result := &model.ExtractionResult{
		Fields:            make(map[string]model.FieldExtraction, len(entries)),
		OverallConfidence: confidence(raw.OverallConfidence),
	}

	for name, entryRaw := range entries {
		var entry map[string]any
		if err := decodeNumbers(entryRaw, &entry); err != nil || entry == nil {
			return nil, eris.Wrapf(ErrExtractionParse, "extract: field %q is not an object", name)
		}

		if fields != nil && fields.ByKey(name) == nil {
			zap.L().Warn("extract: field not in registry", zap.String("field", name))
		}

		reasoning, _ := entry["reasoning"].(string)
		result.Fields[name] = model.FieldExtraction{
			FieldName:  name,
			Value:      entry["selected_value"],
			Source:     source(entry["selected_source"]),
			Confidence: confidence(entry["confidence"]),
			Reasoning:  reasoning,
		}
	}

	return result, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// source maps the model's selected_source to a SupplierID, ignoring case
// and surrounding whitespace. Unknown names are kept verbatim so a mismatch
// still shows up as a disagreement.
func source(v any) model.SupplierID {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if absentSources[strings.ToLower(strings.TrimSpace(s))] {
		return ""
	}
	if id, ok := model.ParseSupplierID(s); ok {
		return id
	}
	zap.L().Debug("extract: unknown selected_source", zap.String("source", s))
	return model.SupplierID(s)
}

// confidence reads a confidence value, clamped to [0,1]. Anything
// non-numeric is 0.
func confidence(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	default:
		return 0
	}
	return min(max(f, 0), 1)
}
