package consensus

import "github.com/sells-group/parts-cli/internal/model"

// Project turns a passing report into catalog attributes. A failing report
// yields a refusal carrying the disagreeing field names and no attributes.
func Project(report model.ConsensusReport) model.Projection {
	if !report.Passed {
		disagreements := make([]string, len(report.Disagreements))
		copy(disagreements, report.Disagreements)
		return model.Projection{Disagreements: disagreements}
	}

	attrs := make(map[string]model.CatalogAttribute, len(report.Verdicts))
	for _, v := range report.Verdicts {
		attrs[v.FieldName] = model.CatalogAttribute{
			Value:  v.FinalValue,
			Source: v.FinalSource,
			Status: model.CatalogStatusFound,
		}
	}
	return model.Projection{Accepted: true, Attributes: attrs}
}
