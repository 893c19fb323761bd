package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/pipeline"
	"github.com/sells-group/parts-cli/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the manual review queue",
	Long:  "Parts whose providers disagreed land in the review queue. These commands list and resolve them.",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mpn, _ := cmd.Flags().GetString("mpn")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := st.ListReviews(ctx, store.ReviewFilter{
			MPN:             mpn,
			IncludeResolved: all,
			Limit:           limit,
		})
		if err != nil {
			return eris.Wrap(err, "review list")
		}

		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "Review queue is empty.")
			return nil
		}

		formatReviewList(os.Stdout, items)
		return nil
	},
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <review-id>",
	Short: "Mark a review item resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		board := pipeline.NewReviewBoard(initNotion(), cfg.Notion.ReviewDB)
		item, err := pipeline.ResolveReview(ctx, st, board, args[0])
		if err != nil {
			return eris.Wrap(err, "review resolve")
		}

		fmt.Fprintf(os.Stdout, "Resolved %s (%s)\n", item.ID, item.MPN)
		return nil
	},
}

func init() {
	reviewListCmd.Flags().String("mpn", "", "filter by part number")
	reviewListCmd.Flags().Bool("all", false, "include resolved items")
	reviewListCmd.Flags().Int("limit", 50, "max number of items to display")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewResolveCmd)
	rootCmd.AddCommand(reviewCmd)
}

// formatReviewList writes a tabular list of review items to w.
func formatReviewList(out io.Writer, items []model.ReviewItem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMPN\tRUN\tDISAGREEMENTS\tSTATUS\tQUEUED")
	_, _ = fmt.Fprintln(w, "--\t---\t---\t-------------\t------\t------")

	for _, item := range items {
		status := "open"
		if item.Resolved {
			status = "resolved"
		}
		disagreements := strings.Join(item.Disagreements, ", ")
		if disagreements == "" {
			disagreements = item.Reason
		}
		if len(disagreements) > 40 {
			disagreements = disagreements[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ID,
			item.MPN,
			truncateID(item.RunID),
			disagreements,
			status,
			item.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
