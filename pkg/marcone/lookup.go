package marcone

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMakes are tried in order when a lookup has no make code of its
// own.
var DefaultMakes = []string{"GEH", "GEN", "GE", "HOT"}

// MakeCodes names the common Marcone make codes.
var MakeCodes = map[string]string{
	"WPL": "Whirlpool",
	"GE":  "General Electric",
	"GEH": "General Electric (GE Hotpoint)",
	"MAY": "Maytag",
	"FRI": "Frigidaire",
	"KIT": "KitchenAid",
	"LG":  "LG Electronics",
	"SAM": "Samsung",
	"BOC": "Bosch",
	"ELE": "Electrolux",
	"KEN": "Kenmore",
}

// LookupResult is a successful fallback lookup.
type LookupResult struct {
	Make  string            `json:"make"`
	Parts []PartInformation `json:"parts"`
}

// LookupWithFallback runs ExactPartLookup for each make code in turn and
// returns the first non-empty result. A make given by the caller is tried
// before the fallbacks. If every code comes back empty the error is
// ErrNotFound; if every code failed, the last failure is returned.
func LookupWithFallback(ctx context.Context, c Client, partNumber, makeCode string, fallbacks []string) (*LookupResult, error) {
	if len(fallbacks) == 0 {
		fallbacks = DefaultMakes
	}
	makes := candidateMakes(makeCode, fallbacks)

	var (
		lastErr  error
		answered bool
	)
	for _, m := range makes {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "marcone: lookup cancelled")
		}

		parts, err := c.ExactPartLookup(ctx, partNumber, m)
		if err != nil {
			zap.L().Debug("marcone: make code failed",
				zap.String("part_number", partNumber),
				zap.String("make", m),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		answered = true
		if len(parts) > 0 {
			return &LookupResult{Make: m, Parts: parts}, nil
		}
	}

	if !answered && lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound
}

func candidateMakes(makeCode string, fallbacks []string) []string {
	seen := make(map[string]bool, len(fallbacks)+1)
	var out []string
	add := func(m string) {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}
	add(makeCode)
	for _, m := range fallbacks {
		add(m)
	}
	return out
}
