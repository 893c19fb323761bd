package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parts-cli/internal/model"
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "Inspect validated catalog records",
}

var catalogsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalogs stored for a part number, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mpn, _ := cmd.Flags().GetString("mpn")
		cats, err := st.ListCatalogsByMPN(ctx, mpn)
		if err != nil {
			return eris.Wrap(err, "catalogs list")
		}

		if len(cats) == 0 {
			fmt.Fprintln(os.Stderr, "No catalogs found.")
			return nil
		}

		formatCatalogList(os.Stdout, cats)
		return nil
	},
}

var catalogsShowCmd = &cobra.Command{
	Use:   "show <catalog-id>",
	Short: "Show a catalog record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cat, err := st.GetCatalog(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "catalogs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	},
}

func init() {
	catalogsListCmd.Flags().String("mpn", "", "manufacturer part number (required)")
	_ = catalogsListCmd.MarkFlagRequired("mpn")

	catalogsCmd.AddCommand(catalogsListCmd, catalogsShowCmd)
	rootCmd.AddCommand(catalogsCmd)
}

// formatCatalogList writes a tabular list of catalogs to w.
func formatCatalogList(out io.Writer, cats []model.Catalog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATALOG\tRUN\tATTRIBUTES\tMODELS\tCREATED")
	_, _ = fmt.Fprintln(w, "-------\t---\t----------\t------\t-------")

	for _, c := range cats {
		models := c.Metadata.PrimaryModel + " / " + c.Metadata.SecondaryModel
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			c.CatalogID,
			truncateID(c.RunID),
			len(c.PrimaryAttributes),
			models,
			c.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
