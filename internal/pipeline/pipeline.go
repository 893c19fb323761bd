package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/config"
	"github.com/sells-group/parts-cli/internal/consensus"
	"github.com/sells-group/parts-cli/internal/extract"
	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/store"
	"github.com/sells-group/parts-cli/pkg/salesforce"
)

// Phase names, in run order.
const (
	PhaseFetch            = "1_fetch"
	PhaseAggregate        = "2_aggregate"
	PhaseExtractPrimary   = "3_extract_primary"
	PhaseExtractSecondary = "4_extract_secondary"
	PhaseConsensus        = "5_consensus"
	PhaseCatalog          = "6_catalog"
)

const catalogAgreement = "100%"

// Fetcher returns the per-supplier results for a part.
type Fetcher interface {
	Fetch(ctx context.Context, part model.PartRequest) (model.SupplierSet, error)
}

// Pipeline orchestrates the six lookup phases for one part.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	suppliers  Fetcher
	primary    *extract.Extractor
	secondary  *extract.Extractor
	salesforce salesforce.Client
	board      *ReviewBoard
	fields     *model.FieldRegistry
	now        func() time.Time
}

// New creates a new Pipeline with all dependencies. sfClient and board may
// be nil.
func New(
	cfg *config.Config,
	st store.Store,
	suppliers Fetcher,
	primary, secondary *extract.Extractor,
	sfClient salesforce.Client,
	board *ReviewBoard,
	fields *model.FieldRegistry,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		suppliers:  suppliers,
		primary:    primary,
		secondary:  secondary,
		salesforce: sfClient,
		board:      board,
		fields:     fields,
		now:        time.Now,
	}
}

// Run executes the lookup for a single part. Supplier, extraction and
// consensus failures are reported through the result's outcome; the error
// is reserved for problems that prevent a run from being recorded at all.
func (p *Pipeline) Run(ctx context.Context, part model.PartRequest) (*model.LookupResult, error) {
	if strings.TrimSpace(part.PartNumber) == "" {
		return nil, eris.New("pipeline: part number is required")
	}

	log := zap.L().With(zap.String("part", part.PartNumber), zap.String("brand", part.Brand))
	log.Info("pipeline: starting lookup")

	result := &model.LookupResult{
		Part:      part,
		StartedAt: p.now().UTC(),
	}

	run, err := p.store.CreateRun(ctx, part)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	result.RunID = run.ID

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Phase tracking helper with mutex for the concurrent extraction phases.
	var phasesMu sync.Mutex
	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) *model.PhaseResult {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		switch {
		case fnErr != nil:
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		case phaseResult.Status == model.PhaseStatusSkipped:
			log.Info("pipeline: phase skipped", zap.String("phase", name))
		default:
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			if completeErr := p.store.CompletePhase(ctx, phase.ID, phaseResult); completeErr != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(completeErr))
			}
		}
		phasesMu.Lock()
		result.Phases = append(result.Phases, *phaseResult)
		phasesMu.Unlock()
		return phaseResult
	}

	// ===== Phase 1: Supplier fan-out =====
	setStatus(model.RunStatusFetching)

	var fetchErr error
	trackPhase(PhaseFetch, func() (*model.PhaseResult, error) {
		set, err := p.suppliers.Fetch(ctx, part)
		result.Suppliers = set
		fetchErr = err
		return &model.PhaseResult{
			Metadata: map[string]any{
				"suppliers": len(set),
				"succeeded": set.Succeeded(),
			},
		}, err
	})
	if fetchErr != nil {
		return p.finish(ctx, result, model.OutcomeFailed, "No supplier data: "+fetchErr.Error())
	}

	// ===== Phase 2: Aggregate (sources stay separate) =====
	var prompt string
	trackPhase(PhaseAggregate, func() (*model.PhaseResult, error) {
		prompt = extract.BuildPrompt(part, result.Suppliers, p.fields, p.cfg.Pipeline.MaxSourceChars)
		return &model.PhaseResult{
			Metadata: map[string]any{
				"sources":      result.Suppliers.Succeeded(),
				"prompt_chars": len(prompt),
			},
		}, nil
	})

	// ===== Phases 3/4: Independent extraction pair =====
	setStatus(model.RunStatusExtracting)

	slotPhases := map[string]string{
		extract.SlotPrimary:   PhaseExtractPrimary,
		extract.SlotSecondary: PhaseExtractSecondary,
	}
	pair, pairErr := extract.RunPair(ctx, p.primary, p.secondary, prompt,
		func(slot string, run func() extract.SlotResult) extract.SlotResult {
			var res extract.SlotResult
			trackPhase(slotPhases[slot], func() (*model.PhaseResult, error) {
				res = run()
				return slotPhase(res), res.Err
			})
			return res
		})

	result.Extractions = pair.Outcomes()
	result.TotalUsage = pair.Usage()

	if pairErr != nil {
		if extract.IsParseFailure(pairErr) {
			return p.finish(ctx, result, model.OutcomeFailed, "JSON parse failed: "+pairErr.Error())
		}
		return p.finish(ctx, result, model.OutcomeFailed, "AI validation failed: "+pairErr.Error())
	}

	// ===== Phase 5: Consensus =====
	setStatus(model.RunStatusValidating)

	var report model.ConsensusReport
	trackPhase(PhaseConsensus, func() (*model.PhaseResult, error) {
		report = consensus.Aggregate(pair.Primary.Result, pair.Secondary.Result)
		return &model.PhaseResult{
			Metadata: map[string]any{
				"agreement_percentage": report.AgreementPercentage,
				"agreements":           report.AgreementCount,
				"total":                report.TotalCount,
				"passed":               report.Passed,
			},
		}, nil
	})
	result.Consensus = &report

	// ===== Phase 6: Catalog =====
	projection := consensus.Project(report)
	if !projection.Accepted {
		issue := "Disagree on: " + strings.Join(projection.Disagreements, ", ")
		if report.TotalCount == 0 {
			issue = "nothing to validate"
		}
		trackPhase(PhaseCatalog, func() (*model.PhaseResult, error) {
			return &model.PhaseResult{
				Status:   model.PhaseStatusSkipped,
				Metadata: map[string]any{"reason": issue},
			}, nil
		})
		return p.finish(ctx, result, model.OutcomeReview, issue)
	}

	var catalogErr error
	trackPhase(PhaseCatalog, func() (*model.PhaseResult, error) {
		cat := p.buildCatalog(result, projection, pair)
		if err := p.store.SaveCatalog(ctx, cat); err != nil {
			catalogErr = err
			return nil, eris.Wrap(err, "pipeline: save catalog")
		}
		result.Catalog = cat

		meta := map[string]any{
			"catalog_id": cat.CatalogID,
			"attributes": len(cat.PrimaryAttributes),
		}
		if p.cfg.Pipeline.PublishSalesforce && p.salesforce != nil {
			pub, pubErr := salesforce.PublishCatalog(ctx, p.salesforce, p.fields, cat)
			if pubErr != nil {
				log.Warn("pipeline: salesforce publish failed", zap.Error(pubErr))
				result.Issues = append(result.Issues, "Salesforce publish failed: "+pubErr.Error())
			} else {
				result.SalesforceSync = true
				meta["sf_part_id"] = pub.PartID
				meta["sf_created"] = pub.Created
			}
		}
		return &model.PhaseResult{Metadata: meta}, nil
	})
	if catalogErr != nil {
		return p.finish(ctx, result, model.OutcomeFailed, "Catalog save failed: "+catalogErr.Error())
	}

	return p.finish(ctx, result, model.OutcomeValidated, "")
}

// finish stamps the outcome, renders the report, queues review items and
// stores the final result.
func (p *Pipeline) finish(ctx context.Context, result *model.LookupResult, outcome model.Outcome, issue string) (*model.LookupResult, error) {
	log := zap.L().With(zap.String("part", result.Part.PartNumber), zap.String("run_id", result.RunID))

	result.Outcome = outcome
	if issue != "" {
		result.Issues = append([]string{issue}, result.Issues...)
	}
	result.CompletedAt = p.now().UTC()
	result.Report = FormatReport(result)

	if outcome == model.OutcomeReview {
		item := &model.ReviewItem{
			RunID:  result.RunID,
			MPN:    result.Part.PartNumber,
			Reason: issue,
		}
		var agreement float64
		if result.Consensus != nil {
			item.Disagreements = result.Consensus.Disagreements
			agreement = result.Consensus.AgreementPercentage
		}
		if err := EnqueueReview(ctx, p.store, p.board, item, agreement); err != nil {
			log.Warn("pipeline: failed to queue review", zap.Error(err))
		}
	}

	if err := p.store.SaveRunResult(ctx, result.RunID, result); err != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(err))
	}

	log.Info("pipeline: lookup complete",
		zap.String("outcome", string(outcome)),
		zap.Strings("issues", result.Issues),
		zap.Int("tokens", result.TotalUsage.Total()),
		zap.Float64("cost", result.TotalUsage.Cost),
	)
	return result, nil
}

func (p *Pipeline) buildCatalog(result *model.LookupResult, projection model.Projection, pair *extract.PairResult) *model.Catalog {
	now := p.now().UTC()
	return &model.Catalog{
		CatalogID:         model.CatalogID(result.Part.PartNumber, now),
		MPN:               result.Part.PartNumber,
		Brand:             result.Part.Brand,
		RunID:             result.RunID,
		CreatedAt:         now,
		ValidationStatus:  model.ValidationStatusValid,
		PrimaryAttributes: projection.Attributes,
		Metadata: model.CatalogMetadata{
			PrimaryModel:        pair.Primary.Outcome.Model,
			SecondaryModel:      pair.Secondary.Outcome.Model,
			ValidationAgreement: catalogAgreement,
		},
	}
}

func slotPhase(s extract.SlotResult) *model.PhaseResult {
	return &model.PhaseResult{
		TokenUsage: s.Outcome.Usage,
		Metadata: map[string]any{
			"provider": s.Outcome.Provider,
			"model":    s.Outcome.Model,
		},
	}
}
