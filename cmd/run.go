package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/pipeline"
)

var (
	runPart      string
	runBrand     string
	runMake      string
	runReportDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full lookup pipeline for a single part",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		part := model.PartRequest{
			PartNumber: runPart,
			Brand:      runBrand,
			Make:       runMake,
		}

		result, err := env.Pipeline.Run(ctx, part)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		dir := runReportDir
		if dir == "" {
			dir = cfg.Pipeline.ReportDir
		}
		path, err := pipeline.WriteReport(dir, result)
		if err != nil {
			return err
		}

		zap.L().Info("lookup complete",
			zap.String("part", part.PartNumber),
			zap.String("outcome", string(result.Outcome)),
			zap.Strings("issues", result.Issues),
			zap.Int("total_tokens", result.TotalUsage.Total()),
			zap.String("report", path),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runPart, "part", "", "part number to look up (required)")
	runCmd.Flags().StringVar(&runBrand, "brand", "", "brand name, e.g. GE")
	runCmd.Flags().StringVar(&runMake, "make", "", "supplier make code, e.g. GEH")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "directory for the markdown report (default pipeline.report_dir)")
	_ = runCmd.MarkFlagRequired("part")
	rootCmd.AddCommand(runCmd)
}
