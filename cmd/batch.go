package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parts-cli/internal/fetcher"
	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/pipeline"
)

var (
	batchInput string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the lookup pipeline for every part in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		parts, err := fetcher.ReadPartList(ctx, batchInput)
		if err != nil {
			return eris.Wrap(err, "read part list")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := processBatch(ctx, parts, batchLimit, cfg.Batch.MaxConcurrentParts, func(ctx context.Context, part model.PartRequest) (*model.LookupResult, error) {
			result, err := env.Pipeline.Run(ctx, part)
			if err != nil {
				return nil, err
			}
			if _, err := pipeline.WriteReport(cfg.Pipeline.ReportDir, result); err != nil {
				zap.L().Warn("failed to write report", zap.String("part", part.PartNumber), zap.Error(err))
			}
			return result, nil
		})
		if err != nil {
			return err
		}
		if stats.Errored > 0 && stats.Errored == int64(stats.Total) {
			return eris.Errorf("batch: all %d lookups errored", stats.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "part list (.csv or .xlsx) with a part_number column (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of parts to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// lookupFunc is the callback signature for running the pipeline on a part.
type lookupFunc func(ctx context.Context, part model.PartRequest) (*model.LookupResult, error)

// batchStats counts batch results by outcome. Errored lookups never reached
// an outcome.
type batchStats struct {
	Total     int
	Validated int64
	Review    int64
	Failed    int64
	Errored   int64
}

// processBatch applies limit, then runs lookups concurrently. A failing
// lookup is logged and never aborts the batch.
func processBatch(ctx context.Context, parts []model.PartRequest, limit, concurrency int, lookup lookupFunc) (batchStats, error) {
	if len(parts) == 0 {
		zap.L().Info("no parts to process")
		return batchStats{}, nil
	}

	// Apply limit
	if limit > 0 && len(parts) > limit {
		parts = parts[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("parts", len(parts)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var validated, review, failed, errored atomic.Int64

	for _, part := range parts {
		g.Go(func() error {
			log := zap.L().With(zap.String("part", part.PartNumber))

			result, err := lookup(gctx, part)
			if err != nil {
				errored.Add(1)
				log.Error("lookup failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			switch result.Outcome {
			case model.OutcomeValidated:
				validated.Add(1)
			case model.OutcomeReview:
				review.Add(1)
			default:
				failed.Add(1)
			}
			log.Info("lookup complete",
				zap.String("outcome", string(result.Outcome)),
				zap.Strings("issues", result.Issues),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchStats{}, eris.Wrap(err, "batch processing")
	}

	stats := batchStats{
		Total:     len(parts),
		Validated: validated.Load(),
		Review:    review.Load(),
		Failed:    failed.Load(),
		Errored:   errored.Load(),
	}
	zap.L().Info("batch complete",
		zap.Int64("validated", stats.Validated),
		zap.Int64("review", stats.Review),
		zap.Int64("failed", stats.Failed),
		zap.Int64("errored", stats.Errored),
	)
	return stats, nil
}
