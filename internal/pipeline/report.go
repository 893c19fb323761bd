package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parts-cli/internal/consensus"
	"github.com/sells-group/parts-cli/internal/model"
)

// maxSampleAttributes caps the attributes listed in the catalog section.
const maxSampleAttributes = 10

// FormatReport renders the markdown lookup report for a finished run.
func FormatReport(r *model.LookupResult) string {
	var b strings.Builder

	b.WriteString("# Part Lookup Results\n\n")
	part := r.Part.PartNumber
	if r.Part.Brand != "" {
		part += " (" + r.Part.Brand + ")"
	}
	fmt.Fprintf(&b, "**Part:** %s  \n", part)
	fmt.Fprintf(&b, "**Date:** %s  \n", r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Run:** %s\n\n", r.RunID)

	// Validation status.
	fmt.Fprintf(&b, "## Validation Status: %s\n\n", statusLabel(r.Outcome))
	b.WriteString("**Requirement:** Both extractions must agree on 100% of fields for data to be valid.\n\n")
	switch r.Outcome {
	case model.OutcomeValidated:
		b.WriteString("**Both providers agreed on all fields. Data is VALID.**\n\n")
	case model.OutcomeReview:
		b.WriteString("**Providers did not agree. Data is INVALID and queued for review.**\n\n")
	default:
		b.WriteString("**Validation could not complete. Data is INVALID.**\n\n")
	}

	b.WriteString("## Issues\n\n")
	if len(r.Issues) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	writeSupplierSection(&b, r.Suppliers)

	b.WriteString("## Stage 2: Data Aggregation\n\n")
	fmt.Fprintf(&b, "Data kept SEPARATE by source (no merging). %d of %d sources returned data.\n\n",
		r.Suppliers.Succeeded(), len(r.Suppliers))

	writeExtractionSection(&b, r.Extractions)
	writeConsensusSection(&b, r.Consensus)
	writeCatalogSection(&b, r)

	b.WriteString("## Final Status\n\n")
	fmt.Fprintf(&b, "### VALIDATION %s\n\n", statusLabel(r.Outcome))
	if r.Outcome == model.OutcomeValidated {
		b.WriteString("Data is VALID and ready for:\n")
		b.WriteString("- Database storage\n")
		b.WriteString("- Production use\n")
		if r.SalesforceSync {
			b.WriteString("- Salesforce (published)\n")
		} else {
			b.WriteString("- Salesforce integration\n")
		}
	} else {
		b.WriteString("Data is INVALID:\n")
		b.WriteString("- Cannot use in production\n")
		b.WriteString("- Requires manual review\n")
		b.WriteString("- Not stored as a catalog record\n")
	}

	completed := r.CompletedAt
	if completed.IsZero() {
		completed = r.StartedAt
	}
	fmt.Fprintf(&b, "\n---\n*Completed: %s*\n", completed.UTC().Format(time.RFC3339))
	return b.String()
}

func writeSupplierSection(b *strings.Builder, set model.SupplierSet) {
	b.WriteString("## Stage 1: Supplier Lookups\n\n")
	if len(set) == 0 {
		b.WriteString("No suppliers queried.\n\n")
		return
	}
	for _, s := range set {
		if s.Success {
			fmt.Fprintf(b, "- **%s:** success (%dms)\n", supplierName(s.Source), s.Duration)
			continue
		}
		fmt.Fprintf(b, "- **%s:** failed (%dms)\n", supplierName(s.Source), s.Duration)
		fmt.Fprintf(b, "  - Error: %s\n", s.Error)
	}
	b.WriteString("\n")
}

func writeExtractionSection(b *strings.Builder, outcomes []model.ExtractionOutcome) {
	b.WriteString("## Stage 3/4: Independent Extraction\n\n")
	if len(outcomes) == 0 {
		b.WriteString("Not run.\n\n")
		return
	}
	for _, o := range outcomes {
		fmt.Fprintf(b, "### %s (%s)\n\n", titleCase(o.Slot), o.Provider)
		if o.Success {
			b.WriteString("- Success\n")
		} else {
			fmt.Fprintf(b, "- Failed: %s\n", o.Error)
		}
		if o.Model != "" {
			fmt.Fprintf(b, "- Model: %s\n", o.Model)
		}
		if o.Usage.Total() > 0 {
			fmt.Fprintf(b, "- Tokens: %d (%d in, %d out)\n", o.Usage.Total(), o.Usage.InputTokens, o.Usage.OutputTokens)
			fmt.Fprintf(b, "- Estimated cost: $%.4f\n", o.Usage.Cost)
		}
		b.WriteString("\n")
	}
}

func writeConsensusSection(b *strings.Builder, report *model.ConsensusReport) {
	b.WriteString("## Stage 5: Consensus\n\n")
	if report == nil {
		b.WriteString("Not run.\n\n")
		return
	}
	fmt.Fprintf(b, "- Agreement: %s\n", consensus.FormatPercentage(report.AgreementPercentage))
	fmt.Fprintf(b, "- Fields agree: %d\n", report.AgreementCount)
	fmt.Fprintf(b, "- Fields disagree: %d\n\n", report.TotalCount-report.AgreementCount)

	if len(report.Disagreements) == 0 {
		return
	}
	b.WriteString("### Disagreements\n\n")
	for _, v := range report.Verdicts {
		if v.Agreement {
			continue
		}
		fmt.Fprintf(b, "**%s:**\n", v.FieldName)
		fmt.Fprintf(b, "- Primary: %s\n", sideValue(v.PrimaryPresent, v.PrimaryValue, v.PrimarySource))
		fmt.Fprintf(b, "- Secondary: %s\n\n", sideValue(v.SecondaryPresent, v.SecondaryValue, v.SecondarySource))
	}
}

func writeCatalogSection(b *strings.Builder, r *model.LookupResult) {
	b.WriteString("## Stage 6: Final Catalog\n\n")
	cat := r.Catalog
	if cat == nil {
		reason := "consensus not reached"
		if len(r.Issues) > 0 {
			reason = r.Issues[0]
		}
		fmt.Fprintf(b, "No catalog built: %s\n\n", reason)
		return
	}

	b.WriteString("Catalog built successfully.\n\n")
	fmt.Fprintf(b, "- Catalog ID: `%s`\n", cat.CatalogID)
	fmt.Fprintf(b, "- MPN: `%s`\n", cat.MPN)
	fmt.Fprintf(b, "- Attributes: %d\n\n", len(cat.PrimaryAttributes))

	keys := make([]string, 0, len(cat.PrimaryAttributes))
	for k := range cat.PrimaryAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxSampleAttributes {
		keys = keys[:maxSampleAttributes]
	}

	b.WriteString("### Sample Attributes\n\n")
	for _, k := range keys {
		attr := cat.PrimaryAttributes[k]
		fmt.Fprintf(b, "- **%s:** %s (from %s)\n", k, displayValue(attr.Value), sourceName(attr.Source))
	}
	b.WriteString("\n")
}

// ReportFilename returns the report file name for a part at time t.
func ReportFilename(partNumber string, t time.Time) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(partNumber)
	return fmt.Sprintf("PART_LOOKUP_RESULTS_%s_%s.md", safe, t.Format("20060102_150405"))
}

// WriteReport writes the result's report into dir and returns the path.
func WriteReport(dir string, r *model.LookupResult) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create dir %s", dir)
	}
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	path := filepath.Join(dir, ReportFilename(r.Part.PartNumber, ts))
	if err := os.WriteFile(path, []byte(r.Report), 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write %s", path)
	}
	return path, nil
}

func statusLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeValidated:
		return "PASSED"
	case model.OutcomeReview:
		return "NEEDS REVIEW"
	default:
		return "FAILED"
	}
}

func sideValue(present bool, v any, src model.SupplierID) string {
	if !present {
		return "(missing)"
	}
	return fmt.Sprintf("%s (from %s)", displayValue(v), sourceName(src))
}

func sourceName(src model.SupplierID) string {
	if src == "" {
		return "no source"
	}
	return string(src)
}

func supplierName(id model.SupplierID) string {
	return titleCase(string(id))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// displayValue renders a value for the report. Lists and objects print as
// compact JSON.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case []any, map[string]any:
		out, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	default:
		return fmt.Sprint(x)
	}
}
