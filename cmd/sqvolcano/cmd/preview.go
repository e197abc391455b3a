package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/format"
)

var previewRows int

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 5, "Number of rows to show")
	previewCmd.Flags().StringVar(&tableFormat, "format", "ascii", "Table format: ascii, markdown or tsv")
}

var previewCmd = &cobra.Command{
	Use:   "preview [PROTEIN.tsv]",
	Short: "Show the first rows of a report and how its columns are classified",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := format.ParseMode(tableFormat)
		if err != nil {
			return err
		}
		raw, err := readReport(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d proteins, %d columns\n\n", args[0], raw.Len(), len(raw.Columns))
		fmt.Println(format.Preview(raw, previewRows, mode))
		fmt.Println()
		fmt.Println(format.Classification(core.ClassifyColumns(raw.Columns), mode))
		return nil
	},
}
