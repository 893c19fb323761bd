package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/pipeline"
	"github.com/sells-group/parts-cli/internal/supplier"
)

var (
	lookupPart  string
	lookupBrand string
	lookupMake  string
	lookupOut   string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Query every supplier for a part and list all attributes found",
	Long:  "Runs supplier lookups only. No extraction or validation is done; each supplier's payload is flattened into a markdown attribute list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		fanOut, err := initSuppliers()
		if err != nil {
			return err
		}

		part := model.PartRequest{PartNumber: lookupPart, Brand: lookupBrand, Make: lookupMake}
		set, err := fanOut.Fetch(ctx, part)
		if err != nil && !errors.Is(err, supplier.ErrNoSupplierData) {
			return eris.Wrap(err, "supplier lookup")
		}

		now := time.Now()
		out := lookupOut
		if out == "" {
			out = filepath.Join(cfg.Pipeline.ReportDir, attributesFilename(part.PartNumber, now))
		}
		report := pipeline.FormatAttributesReport(part, set, now)
		if err := os.WriteFile(out, []byte(report), 0o644); err != nil {
			return eris.Wrapf(err, "write attributes report %s", out)
		}

		zap.L().Info("supplier lookup complete",
			zap.String("part", part.PartNumber),
			zap.Int("succeeded", set.Succeeded()),
			zap.Int("suppliers", len(set)),
			zap.String("report", out),
		)
		fmt.Fprintln(os.Stdout, out)
		return nil
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupPart, "part", "", "part number to look up (required)")
	lookupCmd.Flags().StringVar(&lookupBrand, "brand", "", "brand name, e.g. GE")
	lookupCmd.Flags().StringVar(&lookupMake, "make", "", "supplier make code, e.g. GEH")
	lookupCmd.Flags().StringVar(&lookupOut, "out", "", "output markdown file (default STAGE1_ALL_ATTRIBUTES_<part>_<ts>.md)")
	_ = lookupCmd.MarkFlagRequired("part")
	rootCmd.AddCommand(lookupCmd)
}

func attributesFilename(partNumber string, t time.Time) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(partNumber)
	return fmt.Sprintf("STAGE1_ALL_ATTRIBUTES_%s_%s.md", safe, t.Format("20060102_150405"))
}
