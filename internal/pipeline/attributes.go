package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/parts-cli/internal/model"
)

// maxAttributeValueChars truncates long leaf values in the attributes report.
const maxAttributeValueChars = 200

// Attribute is one flattened leaf of a supplier payload.
type Attribute struct {
	Path  string
	Value string
}

// FormatAttributesReport renders every attribute each supplier returned for
// a part, before any extraction. Payloads are listed per supplier, never
// merged.
func FormatAttributesReport(part model.PartRequest, set model.SupplierSet, at time.Time) string {
	var b strings.Builder

	b.WriteString("# Stage 1 - All Attributes Found\n\n")
	fmt.Fprintf(&b, "**Part Number:** %s\n", part.PartNumber)
	if part.Brand != "" {
		fmt.Fprintf(&b, "**Brand:** %s\n", part.Brand)
	}
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", at.Format("2006-01-02 15:04:05"))
	b.WriteString("---\n\n")

	counts := make(map[model.SupplierID]int, len(set))
	for _, s := range set {
		fmt.Fprintf(&b, "## %s Results\n\n", supplierName(s.Source))
		if !s.Success {
			b.WriteString("**Status:** Failed\n")
			if s.Error != "" {
				fmt.Fprintf(&b, "**Error:** %s\n", s.Error)
			}
			b.WriteString("\n---\n\n")
			continue
		}

		attrs, err := FlattenPayload(s.Payload)
		if err != nil {
			b.WriteString("**Status:** Success (unreadable payload)\n\n---\n\n")
			continue
		}
		counts[s.Source] = len(attrs)

		b.WriteString("**Status:** Success\n")
		fmt.Fprintf(&b, "**Attributes Found:** %d\n\n", len(attrs))
		for _, a := range attrs {
			fmt.Fprintf(&b, "- `%s`: %s\n", a.Path, a.Value)
		}
		b.WriteString("\n---\n\n")
	}

	b.WriteString("## Summary\n\n")
	for _, s := range set {
		if s.Success {
			fmt.Fprintf(&b, "- **%s:** %d attributes\n", supplierName(s.Source), counts[s.Source])
		} else {
			fmt.Fprintf(&b, "- **%s:** No data\n", supplierName(s.Source))
		}
	}
	return b.String()
}

// FlattenPayload turns a JSON payload into path/value pairs sorted by path.
// Object keys join with "." and list items use "[i]". Numbers keep their
// literal form.
func FlattenPayload(raw json.RawMessage) ([]Attribute, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var out []Attribute
	flatten("", v, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func flatten(prefix string, v any, out *[]Attribute) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 && prefix != "" {
			*out = append(*out, Attribute{Path: prefix, Value: "{}"})
		}
		for k, child := range x {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			flatten(path, child, out)
		}
	case []any:
		if len(x) == 0 && prefix != "" {
			*out = append(*out, Attribute{Path: prefix, Value: "[]"})
		}
		for i, child := range x {
			flatten(prefix+"["+strconv.Itoa(i)+"]", child, out)
		}
	default:
		if prefix == "" {
			prefix = "value"
		}
		*out = append(*out, Attribute{Path: prefix, Value: truncateValue(displayValue(x))})
	}
}

func truncateValue(s string) string {
	if len(s) <= maxAttributeValueChars {
		return s
	}
	return s[:maxAttributeValueChars] + "..."
}
