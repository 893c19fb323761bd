package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var amazonCmd = &cobra.Command{
	Use:   "amazon",
	Short: "Amazon product data through Unwrangle",
}

var (
	amazonCategoryURL  string
	amazonCategoryPage int
)

var amazonCategoryCmd = &cobra.Command{
	Use:   "category",
	Short: "List the products on an Amazon category page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("amazon"); err != nil {
			return err
		}

		resp, err := newAmazonClient().CategoryProducts(cmd.Context(), amazonCategoryURL, amazonCategoryPage)
		if err != nil {
			return eris.Wrap(err, "amazon category")
		}
		zap.L().Info("amazon category fetched",
			zap.String("url", amazonCategoryURL),
			zap.Int("page", amazonCategoryPage),
			zap.Int("results", len(resp.Results)),
		)
		return printJSON(resp)
	},
}

var (
	amazonProductURL  string
	amazonProductASIN string
)

var amazonProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Fetch one Amazon product detail record by URL or ASIN",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (amazonProductURL == "") == (amazonProductASIN == "") {
			return eris.New("exactly one of --url or --asin is required")
		}
		if err := cfg.Validate("amazon"); err != nil {
			return err
		}

		client := newAmazonClient()
		var (
			raw json.RawMessage
			err error
		)
		if amazonProductASIN != "" {
			raw, err = client.ProductByASIN(cmd.Context(), amazonProductASIN)
		} else {
			raw, err = client.ProductByURL(cmd.Context(), amazonProductURL)
		}
		if err != nil {
			return eris.Wrap(err, "amazon product")
		}
		return printJSON(raw)
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal json")
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func init() {
	amazonCategoryCmd.Flags().StringVar(&amazonCategoryURL, "url", "", "Amazon category page URL (required)")
	amazonCategoryCmd.Flags().IntVar(&amazonCategoryPage, "page", 1, "result page")
	_ = amazonCategoryCmd.MarkFlagRequired("url")

	amazonProductCmd.Flags().StringVar(&amazonProductURL, "url", "", "Amazon product page URL")
	amazonProductCmd.Flags().StringVar(&amazonProductASIN, "asin", "", "Amazon ASIN")

	amazonCmd.AddCommand(amazonCategoryCmd, amazonProductCmd)
	rootCmd.AddCommand(amazonCmd)
}
