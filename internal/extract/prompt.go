// Package extract turns source-separated supplier payloads into a typed
// ExtractionResult by asking an LLM provider for a field-by-field analysis.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/parts-cli/internal/model"
)

// SystemPrompt is sent as the system message on every extraction call.
const SystemPrompt = "You are an expert at analyzing appliance part data. Return ONLY valid JSON."

// DefaultMaxSourceChars caps each supplier payload in the prompt.
const DefaultMaxSourceChars = 2000

const sectionRule = "=================================================="

// BuildPrompt renders the extraction prompt. Suppliers are listed in fixed
// order with their raw payload, indented and truncated to maxSourceChars;
// suppliers without data say "No data". Both providers of a pair must get
// the identical prompt.
func BuildPrompt(part model.PartRequest, suppliers model.SupplierSet, fields *model.FieldRegistry, maxSourceChars int) string {
	if maxSourceChars <= 0 {
		maxSourceChars = DefaultMaxSourceChars
	}

	var b strings.Builder
	b.WriteString("Analyze appliance part data from multiple sources.\n\n")
	fmt.Fprintf(&b, "Part: %s", part.PartNumber)
	if part.Brand != "" {
		fmt.Fprintf(&b, " (%s)", part.Brand)
	}
	b.WriteString("\n\nSOURCE DATA:\n")

	for _, id := range model.Suppliers {
		fmt.Fprintf(&b, "\n%s\n%s:\n", sectionRule, strings.ToUpper(string(id)))
		r, ok := suppliers.Get(id)
		if !ok || !r.Success || len(r.Payload) == 0 {
			b.WriteString("No data")
		} else {
			b.WriteString(truncate(indentJSON(r.Payload), maxSourceChars))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n\nPRIMARY ATTRIBUTES (analyze these):\n")
	for _, f := range fields.Fields {
		if f.Label != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Label)
		} else {
			fmt.Fprintf(&b, "- %s\n", f.Key)
		}
	}

	b.WriteString(`
For EACH field, determine:
1. Best value (from which source?)
2. Confidence (0.0-1.0)
3. Brief reasoning

selected_source must be one of: `)
	names := make([]string, len(model.Suppliers))
	for i, id := range model.Suppliers {
		names[i] = string(id)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(`, or null when no source has the value.

Return ONLY this JSON structure (no markdown):
{
  "field_analysis": {
`)
	for i, f := range fields.Fields {
		if i == 2 {
			b.WriteString("    ... (for each field above)\n")
			break
		}
		fmt.Fprintf(&b, "    %q: {\"selected_value\": \"...\", \"selected_source\": \"...\", \"confidence\": 0.9, \"reasoning\": \"...\"},\n", f.Key)
	}
	b.WriteString(`  },
  "overall_confidence": 0.85
}
`)
	return b.String()
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
