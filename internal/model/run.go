package model

import "time"

// RunStatus represents the current state of a lookup run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusFetching   RunStatus = "fetching"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusValidating RunStatus = "validating"
	RunStatusComplete   RunStatus = "complete"
	RunStatusReview     RunStatus = "review"
	RunStatusFailed     RunStatus = "failed"
)

// Outcome is the final verdict of a lookup.
type Outcome string

const (
	// OutcomeValidated means both extractions agreed on every field and a
	// catalog record was built.
	OutcomeValidated Outcome = "validated"
	// OutcomeReview means extraction succeeded but the providers disagreed
	// (or there was nothing to compare); a human has to look at it.
	OutcomeReview Outcome = "review"
	// OutcomeFailed means the pipeline could not reach consensus at all.
	OutcomeFailed Outcome = "failed"
)

// RunStatus maps an outcome to the terminal run status.
func (o Outcome) RunStatus() RunStatus {
	switch o {
	case OutcomeValidated:
		return RunStatusComplete
	case OutcomeReview:
		return RunStatusReview
	default:
		return RunStatusFailed
	}
}

// Run represents a single lookup run for a part.
type Run struct {
	ID        string        `json:"id"`
	Part      PartRequest   `json:"part"`
	Status    RunStatus     `json:"status"`
	Result    *LookupResult `json:"result,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name       string         `json:"name"`
	Status     PhaseStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	TokenUsage TokenUsage     `json:"token_usage"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ExtractionOutcome records one provider call of the extraction pair.
type ExtractionOutcome struct {
	Slot     string     `json:"slot"` // "primary" or "secondary"
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Success  bool       `json:"success"`
	Error    string     `json:"error,omitempty"`
	Usage    TokenUsage `json:"usage"`
	Raw      string     `json:"raw,omitempty"`
}

// LookupResult is the final output of the pipeline for one part.
type LookupResult struct {
	RunID          string              `json:"run_id"`
	Part           PartRequest         `json:"part"`
	Outcome        Outcome             `json:"outcome"`
	Issues         []string            `json:"issues,omitempty"`
	Suppliers      SupplierSet         `json:"suppliers"`
	Extractions    []ExtractionOutcome `json:"extractions,omitempty"`
	Consensus      *ConsensusReport    `json:"consensus,omitempty"`
	Catalog        *Catalog            `json:"catalog,omitempty"`
	Phases         []PhaseResult       `json:"phases"`
	TotalUsage     TokenUsage          `json:"total_usage"`
	SalesforceSync bool                `json:"salesforce_sync"`
	Report         string              `json:"report,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    time.Time           `json:"completed_at"`
}

// Validated reports whether the lookup produced a catalog record.
func (r *LookupResult) Validated() bool {
	return r != nil && r.Outcome == OutcomeValidated
}
