package consensus

import (
	"fmt"
	"sort"

	"github.com/sells-group/parts-cli/internal/model"
)

// Aggregate compares the union of fields from both extractions in
// lexicographic order. A nil result counts as an empty mapping. The report
// passes only at exactly 100% agreement; an empty union never passes.
func Aggregate(primary, secondary *model.ExtractionResult) model.ConsensusReport {
	names := unionFields(primary, secondary)

	report := model.ConsensusReport{
		Verdicts:      make([]model.FieldVerdict, 0, len(names)),
		Agreements:    []string{},
		Disagreements: []string{},
		TotalCount:    len(names),
	}

	for _, name := range names {
		v := Compare(name, lookup(primary, name), lookup(secondary, name))
		report.Verdicts = append(report.Verdicts, v)
		if v.Agreement {
			report.Agreements = append(report.Agreements, name)
		} else {
			report.Disagreements = append(report.Disagreements, name)
		}
	}

	report.AgreementCount = len(report.Agreements)
	if report.TotalCount > 0 {
		report.AgreementPercentage = float64(report.AgreementCount) / float64(report.TotalCount) * 100
	}
	report.Passed = report.AgreementPercentage == 100.0

	return report
}

// FormatPercentage renders an agreement percentage for display.
func FormatPercentage(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

func lookup(r *model.ExtractionResult, name string) *model.FieldExtraction {
	f, ok := r.Field(name)
	if !ok {
		return nil
	}
	return &f
}

func unionFields(a, b *model.ExtractionResult) []string {
	seen := make(map[string]struct{})
	for _, r := range []*model.ExtractionResult{a, b} {
		if r == nil {
			continue
		}
		for name := range r.Fields {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
