package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/supplier"
)

var (
	modelsModel string
	modelsMake  string
	modelsOut   string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the parts of an appliance model",
	Long:  "Looks a model number up at Encompass and Reliable Parts and prints each supplier's exploded part list. Only suppliers enabled in pipeline.suppliers are queried.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ml, err := initModelLookup()
		if err != nil {
			return err
		}

		set, err := ml.Parts(ctx, modelsModel, modelsMake)
		if err != nil && !errors.Is(err, supplier.ErrNoSupplierData) {
			return eris.Wrap(err, "model lookup")
		}

		out, jerr := json.MarshalIndent(set, "", "  ")
		if jerr != nil {
			return eris.Wrap(jerr, "marshal model parts")
		}
		if modelsOut != "" {
			if werr := os.WriteFile(modelsOut, out, 0o644); werr != nil {
				return eris.Wrapf(werr, "write model parts %s", modelsOut)
			}
		} else {
			fmt.Fprintln(os.Stdout, string(out))
		}

		zap.L().Info("model lookup complete",
			zap.String("model", modelsModel),
			zap.Int("succeeded", set.Succeeded()),
			zap.Int("suppliers", len(set)),
		)
		return err
	},
}

func init() {
	modelsCmd.Flags().StringVar(&modelsModel, "model", "", "appliance model number (required)")
	modelsCmd.Flags().StringVar(&modelsMake, "make", "", "supplier make code, e.g. WPL")
	modelsCmd.Flags().StringVar(&modelsOut, "out", "", "write the JSON result to this file instead of stdout")
	_ = modelsCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(modelsCmd)
}

// initModelLookup wires the enabled suppliers that publish model part
// lists.
func initModelLookup() (*supplier.ModelLookup, error) {
	ml := &supplier.ModelLookup{Timeout: supplierTimeout()}
	for _, name := range cfg.Pipeline.Suppliers {
		id, ok := model.ParseSupplierID(name)
		if !ok {
			return nil, eris.Errorf("unknown supplier %q in pipeline.suppliers", name)
		}
		switch id {
		case model.SupplierEncompass:
			ml.Encompass = newEncompassClient()
		case model.SupplierReliable:
			ml.Reliable = newReliableClient()
		}
	}
	if ml.Encompass == nil && ml.Reliable == nil {
		return nil, eris.New("model lookup needs encompass or reliable in pipeline.suppliers")
	}
	return ml, nil
}
