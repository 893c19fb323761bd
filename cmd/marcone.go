package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/fetcher"
	"github.com/sells-group/parts-cli/pkg/marcone"
)

var marconeCmd = &cobra.Command{
	Use:   "marcone",
	Short: "Marcone supplier utilities",
}

var (
	marconeRemote string
	marconeOut    string
)

var marconePricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Download the Marcone price file over FTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("marcone-ftp"); err != nil {
			return err
		}

		ftp := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Username: cfg.Marcone.FTP.Username,
			Password: cfg.Marcone.FTP.Password,
		})
		n, err := ftp.DownloadToFile(ctx, fetcher.FTPURL(cfg.Marcone.FTP.Host, marconeRemote), marconeOut)
		if err != nil {
			return err
		}

		zap.L().Info("marcone price file downloaded",
			zap.String("remote", marconeRemote),
			zap.String("out", marconeOut),
			zap.Int64("bytes", n),
		)
		fmt.Fprintf(os.Stdout, "Wrote %d bytes to %s\n", n, marconeOut)
		return nil
	},
}

var (
	marconeSearchPart string
	marconeSearchMake string
)

var marconeSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Partial part number search at Marcone",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("marcone"); err != nil {
			return err
		}

		makeCode := strings.ToUpper(strings.TrimSpace(marconeSearchMake))
		if makeCode != "" {
			if _, ok := marcone.MakeCodes[makeCode]; !ok {
				zap.L().Warn("marcone: unrecognized make code, searching anyway", zap.String("make", makeCode))
			}
		}

		parts, err := newMarconeClient().PartLookup(ctx, marconeSearchPart, makeCode)
		if err != nil {
			return eris.Wrap(err, "marcone search")
		}

		zap.L().Info("marcone search complete",
			zap.String("part", marconeSearchPart),
			zap.String("make", makeCode),
			zap.Int("results", len(parts)),
		)
		return printJSON(parts)
	},
}

var marconeMakesCmd = &cobra.Command{
	Use:   "makes",
	Short: "List the common Marcone make codes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return formatMakeCodes(os.Stdout, marcone.MakeCodes)
	},
}

func formatMakeCodes(w io.Writer, codes map[string]string) error {
	keys := make([]string, 0, len(codes))
	for k := range codes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tMAKE")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, codes[k])
	}
	return tw.Flush()
}

func init() {
	marconeSearchCmd.Flags().StringVar(&marconeSearchPart, "part", "", "part number or prefix to search (required)")
	marconeSearchCmd.Flags().StringVar(&marconeSearchMake, "make", "", "make code to narrow the search, e.g. WPL")
	_ = marconeSearchCmd.MarkFlagRequired("part")

	marconePricesCmd.Flags().StringVar(&marconeRemote, "remote", "", "remote path of the price file (required)")
	marconePricesCmd.Flags().StringVar(&marconeOut, "out", "marcone_prices.csv", "local output file")
	_ = marconePricesCmd.MarkFlagRequired("remote")

	marconeCmd.AddCommand(marconePricesCmd, marconeSearchCmd, marconeMakesCmd)
	rootCmd.AddCommand(marconeCmd)
}
