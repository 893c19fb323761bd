package amazon

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNoResults is returned when a search finds nothing.
var ErrNoResults = eris.New("amazon: no results found")

// Lookup is the outcome of LookupPart. Data holds either the single detail
// record or, when no detail could be fetched, every search result.
type Lookup struct {
	Query         string            `json:"query"`
	ASIN          string            `json:"asin,omitempty"`
	Detailed      bool              `json:"detailed"`
	Count         int               `json:"count"`
	Data          []json.RawMessage `json:"data"`
	PartNumber    string            `json:"part_number,omitempty"`
	Compatibility []string          `json:"compatibility,omitempty"`
}

// LookupPart searches for a part number and fetches the detail record of
// the first result carrying a valid ASIN. A failed detail call falls back to
// the search results rather than failing the lookup.
func LookupPart(ctx context.Context, c Client, partNumber string) (*Lookup, error) {
	search, err := c.Search(ctx, partNumber, 1)
	if err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, eris.Wrapf(ErrNoResults, "amazon: search %q", partNumber)
	}

	out := &Lookup{Query: partNumber}
	fallback := func() *Lookup {
		out.Data = search.Results
		out.Count = len(search.Results)
		if p, ok := searchProduct(search.Results, out.ASIN); ok {
			out.PartNumber = PartNumberFromTitle(p.Name)
			out.Compatibility = CompatibilityLines(p.Features)
		}
		return out
	}

	asin := firstValidASIN(search.Results)
	if asin == "" {
		zap.L().Debug("amazon: no valid asin in search results, using search data",
			zap.String("part_number", partNumber))
		return fallback(), nil
	}
	out.ASIN = asin

	detail, err := c.ProductByASIN(ctx, asin)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "amazon: lookup cancelled")
		}
		zap.L().Warn("amazon: detail call failed, using search data",
			zap.String("asin", asin), zap.Error(err))
		return fallback(), nil
	}

	out.Detailed = true
	out.Count = 1
	out.Data = []json.RawMessage{detail}
	if p, ok := detailProduct(detail); ok {
		out.PartNumber = PartNumberFromTitle(p.Name)
		out.Compatibility = CompatibilityLines(p.Features)
	}
	return out, nil
}

// ValidASIN reports whether s looks like an ASIN: ten ASCII letters or
// digits.
func ValidASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func firstValidASIN(results []json.RawMessage) string {
	for _, raw := range results {
		var p struct {
			ASIN string `json:"asin"`
		}
		if json.Unmarshal(raw, &p) != nil {
			continue
		}
		if ValidASIN(p.ASIN) {
			return p.ASIN
		}
	}
	return ""
}

// searchProduct returns the result carrying asin, or the first named result
// when asin is empty or absent.
func searchProduct(results []json.RawMessage, asin string) (Product, bool) {
	var first *Product
	for _, raw := range results {
		var p Product
		if json.Unmarshal(raw, &p) != nil || p.Name == "" {
			continue
		}
		if asin != "" && p.ASIN == asin {
			return p, true
		}
		if first == nil {
			first = &p
		}
	}
	if first == nil {
		return Product{}, false
	}
	return *first, true
}

// detailProduct reads a detail response, which nests the product under
// "detail" on current API versions and returns it flat on older ones.
func detailProduct(raw json.RawMessage) (Product, bool) {
	var wrapped struct {
		Detail *Product `json:"detail"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Detail != nil && wrapped.Detail.Name != "" {
		return *wrapped.Detail, true
	}
	var p Product
	if json.Unmarshal(raw, &p) == nil && p.Name != "" {
		return p, true
	}
	return Product{}, false
}

var partNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b([A-Z]{2}\d{2}[A-Z]\d{5})\b`), // WR55X10025
	regexp.MustCompile(`\b([A-Z]\d{8})\b`),              // W10295370
	regexp.MustCompile(`\b(\d{3}-\d{4})\b`),
}

// PartNumberFromTitle returns the first part-number-shaped token in a product
// title, or "".
func PartNumberFromTitle(title string) string {
	for _, re := range partNumberPatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			return m[1]
		}
	}
	return ""
}

var compatibilityKeywords = []string{"compatible", "fits", "replaces", "works with"}

// CompatibilityLines returns the feature bullets that talk about fit or
// replacement.
func CompatibilityLines(features []string) []string {
	var out []string
	for _, f := range features {
		lower := strings.ToLower(f)
		for _, kw := range compatibilityKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
