// Package store persists lookup runs, validated catalogs and the manual
// review queue.
package store

import (
	"context"

	"github.com/sells-group/parts-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	PartNumber string          `json:"part_number,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// ReviewFilter specifies criteria for listing review items. Resolved items
// are hidden unless IncludeResolved is set.
type ReviewFilter struct {
	MPN             string `json:"mpn,omitempty"`
	IncludeResolved bool   `json:"include_resolved,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the lookup pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, part model.PartRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	SaveRunResult(ctx context.Context, runID string, result *model.LookupResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Catalogs
	SaveCatalog(ctx context.Context, cat *model.Catalog) error
	GetCatalog(ctx context.Context, catalogID string) (*model.Catalog, error)
	ListCatalogsByMPN(ctx context.Context, mpn string) ([]model.Catalog, error)

	// Review queue
	EnqueueReview(ctx context.Context, item *model.ReviewItem) error
	GetReview(ctx context.Context, id string) (*model.ReviewItem, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewItem, error)
	ResolveReview(ctx context.Context, id string) error
	SetReviewPage(ctx context.Context, id, pageID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
