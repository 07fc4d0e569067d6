package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/report"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List previous validation runs, or show one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		eng, err := openEngine(ctx, false)
		if err != nil {
			return err
		}
		defer eng.Close()

		history, ok := eng.History()
		if !ok {
			return fmt.Errorf("persistence type %q does not keep a readable history", eng.Config.Persistence.Type)
		}

		if len(args) == 1 {
			summary, err := history.Get(ctx, args[0])
			if errors.Is(err, persist.ErrNotFound) {
				return fmt.Errorf("no validation with id %s", args[0])
			}
			if err != nil {
				return err
			}
			if historyOutput == "json" {
				return report.EncodeJSON(os.Stdout, summary)
			}
			fmt.Print(report.FormatSummary(summary))
			return nil
		}

		entries, err := history.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyOutput == "json" {
			return report.EncodeJSON(os.Stdout, entries)
		}
		fmt.Print(report.FormatHistory(entries))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "output format: text or json")
	rootCmd.AddCommand(historyCmd)
}
