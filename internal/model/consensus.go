package model

// FieldVerdict is the agree/disagree outcome for one field across the two
// extractions. Final* is set only on agreement; the per-side values are kept
// on disagreement for manual inspection.
type FieldVerdict struct {
	FieldName   string     `json:"field_name"`
	Agreement   bool       `json:"agreement"`
	FinalValue  any        `json:"final_value,omitempty"`
	FinalSource SupplierID `json:"final_source,omitempty"`

	PrimaryPresent   bool       `json:"primary_present"`
	PrimaryValue     any        `json:"primary_value,omitempty"`
	PrimarySource    SupplierID `json:"primary_source,omitempty"`
	SecondaryPresent bool       `json:"secondary_present"`
	SecondaryValue   any        `json:"secondary_value,omitempty"`
	SecondarySource  SupplierID `json:"secondary_source,omitempty"`
}

// ConsensusReport summarizes agreement over the union of fields in both
// extractions. Verdicts are sorted by field name.
type ConsensusReport struct {
	Verdicts            []FieldVerdict `json:"verdicts"`
	Agreements          []string       `json:"agreements"`
	Disagreements       []string       `json:"disagreements"`
	AgreementCount      int            `json:"agreement_count"`
	TotalCount          int            `json:"total_count"`
	AgreementPercentage float64        `json:"agreement_percentage"`
	Passed              bool           `json:"passed"`
}

// CatalogStatusFound marks an attribute both providers agreed on.
const CatalogStatusFound = "FOUND"

// CatalogAttribute is one field of a validated catalog record.
type CatalogAttribute struct {
	Value  any        `json:"value"`
	Source SupplierID `json:"source,omitempty"`
	Status string     `json:"status"`
}

// Projection is the catalog projector's output: either the full set of
// agreed attributes, or a refusal naming the fields that disagreed.
type Projection struct {
	Accepted      bool                        `json:"accepted"`
	Attributes    map[string]CatalogAttribute `json:"attributes,omitempty"`
	Disagreements []string                    `json:"disagreements,omitempty"`
}
