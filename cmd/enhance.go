package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/extract"
	"github.com/sells-group/parts-cli/internal/pipeline"
)

var (
	enhancePart     string
	enhanceCategory string
	enhanceLimit    int
	enhanceDryRun   bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Generate customer-facing copy for Salesforce parts",
	Long:  "Loads a Part__c record by part number (or every part in a category), writes a description, key features and a compatibility statement, and updates the records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if (enhancePart == "") == (enhanceCategory == "") {
			return eris.New("exactly one of --part or --category is required")
		}
		if err := cfg.Validate("enhance"); err != nil {
			return err
		}

		sfClient, err := initSalesforce()
		if err != nil {
			return err
		}

		providers, err := initEnhanceProviders(ctx, cfg.Enhance.Providers)
		if err != nil {
			return err
		}
		enhancer := pipeline.NewEnhancer(providers, cfg.Enhance.Temperature)

		if enhanceCategory != "" {
			res, err := pipeline.EnhanceCategory(ctx, sfClient, enhancer, enhanceCategory, pipeline.CategoryOptions{
				Limit:       enhanceLimit,
				Concurrency: cfg.Batch.MaxConcurrentParts,
				DryRun:      enhanceDryRun,
			})
			if res != nil {
				if encErr := printJSON(res); encErr != nil {
					return encErr
				}
			}
			return err
		}

		res, err := pipeline.EnhancePart(ctx, sfClient, enhancer, enhancePart, enhanceDryRun)
		if err != nil {
			return err
		}

		zap.L().Info("enhancement complete",
			zap.String("part", enhancePart),
			zap.Bool("dry_run", enhanceDryRun),
			zap.Bool("updated", res.Updated),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	enhanceCmd.Flags().StringVar(&enhancePart, "part", "", "Salesforce part number")
	enhanceCmd.Flags().StringVar(&enhanceCategory, "category", "", "enhance every part in this Category__c")
	enhanceCmd.Flags().IntVar(&enhanceLimit, "limit", 100, "max parts to load with --category")
	enhanceCmd.Flags().BoolVar(&enhanceDryRun, "dry-run", false, "print the generated copy without updating Salesforce")
	rootCmd.AddCommand(enhanceCmd)
}

// initEnhanceProviders builds the enhancement providers in fallback order,
// skipping any that are not configured.
func initEnhanceProviders(ctx context.Context, names []string) ([]extract.Provider, error) {
	var providers []extract.Provider
	for _, name := range names {
		p, err := extract.NewProvider(ctx, name, cfg)
		if err != nil {
			zap.L().Warn("enhance provider unavailable", zap.String("provider", name), zap.Error(err))
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, eris.New("no enhancement provider is configured")
	}
	return providers, nil
}
