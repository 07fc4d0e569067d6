package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reloquent/parity/internal/report"
	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/tui"
	"github.com/reloquent/parity/internal/validation"
)

var (
	validateRulesFile   string
	validateSourceTable string
	validateTargetTable string
	validateSourceConn  string
	validateTargetConn  string
	validateRules       []string
	validateName        string
	validateConcurrency int
	validateOutput      string
	validateReport      string
	validateInteractive bool
	validateFailOnDiff  bool
)

// errDiscrepancies is returned when --fail-on-discrepancy is set and the run
// found at least one discrepancy.
var errDiscrepancies = errors.New("validation found discrepancies")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run validation rules against a source and target table",
	Long: `Run validation rules against a source and target table and print the
summary. Rules come from a rules file (--rules or validation.rules_file) and
from repeated --rule flags such as --rule count --rule sum:amount.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch validateOutput {
		case "text", "json":
		default:
			return fmt.Errorf("unsupported output format %q (use text or json)", validateOutput)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := openEngine(ctx, !validateInteractive)
		if err != nil {
			return err
		}
		defer eng.Close()

		if validateConcurrency > 0 {
			eng.Config.Validation.Concurrency = validateConcurrency
		}

		req, err := eng.Request(validateRulesFile)
		if err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		applyValidateFlags(&req)

		var result *validation.Result
		if validateInteractive {
			title := req.Name
			if title == "" {
				title = fmt.Sprintf("%s vs %s", req.SourceTable, req.TargetTable)
			}
			result, err = tui.Run(ctx, title, req.Rules, func(ctx context.Context, onOutcome func(int, validation.Outcome)) (*validation.Result, error) {
				return eng.Validate(ctx, req, onOutcome)
			})
		} else {
			result, err = eng.Validate(ctx, req, nil)
		}
		if err != nil {
			return fmt.Errorf("validation: %w", err)
		}

		if validateReport != "" {
			if err := report.WriteJSON(result, validateReport); err != nil {
				return err
			}
		}

		switch validateOutput {
		case "json":
			if err := report.EncodeJSON(os.Stdout, result); err != nil {
				return err
			}
		default:
			if !validateInteractive {
				fmt.Print(report.FormatText(result))
			}
		}

		if validateReport != "" && validateOutput != "json" {
			fmt.Printf("\nReport saved to: %s\n", validateReport)
		}

		if validateFailOnDiff && result.Summary.TotalDiscrepancies > 0 {
			return errDiscrepancies
		}
		return nil
	},
}

// applyValidateFlags overrides the request with anything given on the
// command line. --rule flags are appended after rules from the file.
func applyValidateFlags(req *validation.Request) {
	if validateName != "" {
		req.Name = validateName
	}
	if validateSourceConn != "" {
		req.SourceConnection = validateSourceConn
	}
	if validateTargetConn != "" {
		req.TargetConnection = validateTargetConn
	}
	if validateSourceTable != "" {
		req.SourceTable = rules.TableRef(validateSourceTable)
	}
	if validateTargetTable != "" {
		req.TargetTable = rules.TableRef(validateTargetTable)
	}
	for _, r := range validateRules {
		req.Rules = append(req.Rules, rules.Parse(r))
	}
}

func init() {
	validateCmd.Flags().StringVar(&validateRulesFile, "rules", "", "rules file (YAML or JSON)")
	validateCmd.Flags().StringVar(&validateSourceTable, "source-table", "", "source table (overrides rules file and config)")
	validateCmd.Flags().StringVar(&validateTargetTable, "target-table", "", "target table (overrides rules file and config)")
	validateCmd.Flags().StringVar(&validateSourceConn, "source-conn", "", "source connection name")
	validateCmd.Flags().StringVar(&validateTargetConn, "target-conn", "", "target connection name")
	validateCmd.Flags().StringArrayVar(&validateRules, "rule", nil, "rule to run, e.g. count, sum:amount, schema, row_hash:id (repeatable)")
	validateCmd.Flags().StringVar(&validateName, "name", "", "validation name")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "rules evaluated in parallel (default from config, max 16)")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "text", "output format: text or json")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "also write the result as JSON to this path")
	validateCmd.Flags().BoolVarP(&validateInteractive, "interactive", "i", false, "show live progress in the terminal")
	validateCmd.Flags().BoolVar(&validateFailOnDiff, "fail-on-discrepancy", false, "exit non-zero when any rule fails or errors")
	rootCmd.AddCommand(validateCmd)
}
