package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/sqvolcano/pkg/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate [PROTEIN.tsv]",
	Short: "Validate report columns and values",
	Long: `Validate that a report has the identity columns, at least one treatment
arm and usable q-values, without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readReport(args[0])
		if err != nil {
			return err
		}
		res, err := pipeline.Analyze(raw)
		if err != nil {
			return fmt.Errorf("invalid report: %w", err)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}

		fmt.Printf("%s is valid\n", args[0])
		fmt.Printf("Proteins: %d\n", res.Prepared.Len())
		fmt.Printf("Arms: %d\n", len(res.Arms))
		for _, c := range res.Comparisons {
			fmt.Printf("  %s (%s, %s)\n", c.Arm, c.Log2RatioColumn, c.QValueColumn)
		}
		if dropped := res.Schema.Dropped(); len(dropped) > 0 {
			fmt.Printf("Dropped columns: %d\n", len(dropped))
		}
		return nil
	},
}
