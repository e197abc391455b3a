package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/filter"
	"github.com/ChrisMcGann/sqvolcano/pkg/format"
	"github.com/ChrisMcGann/sqvolcano/pkg/pipeline"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

var topHits int

func init() {
	summarizeCmd.Flags().Float64Var(&enrichmentThreshold, "enrichment", 2, "Enrichment threshold on |log2 ratio| (0-10)")
	summarizeCmd.Flags().Float64Var(&statisticalThreshold, "statistical", 2, "Statistical threshold on -log10(q-value) (0-3)")
	summarizeCmd.Flags().IntVar(&topHits, "top", 0, "Also list the N most significant hits per arm")
	summarizeCmd.Flags().StringVar(&tableFormat, "format", "ascii", "Table format: ascii, markdown or tsv")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [PROTEIN.tsv]",
	Short: "Summarize axis ranges and hit counts per arm",
	Long:  `Print, for every treatment arm, the protein count, the volcano plot axis ranges and the number of proteins passing both thresholds.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(tableFormat)
	if err != nil {
		return err
	}
	run, err := loadRun(cmd)
	if err != nil {
		return err
	}
	thresholds := run.Thresholds()
	if err := thresholds.Validate(); err != nil {
		return err
	}

	raw, err := readReport(args[0])
	if err != nil {
		return err
	}
	res, err := pipeline.Analyze(raw)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	hits := filter.NewConfig(thresholds)
	out := format.NewTable(mode)
	out.Header("Arm", "Proteins", "X range", "Y range", "Up", "Down")
	out.AlignRight(0, 2, 3, 4, 5, 6)

	totalUp, totalDown := 0, 0
	var tops []*format.Table
	for _, c := range res.Comparisons {
		axes, err := volcano.Derive(c, thresholds)
		if err != nil {
			return fmt.Errorf("failed to summarize arm %s: %w", c.Arm, err)
		}
		found, err := hits.Apply(c)
		if err != nil {
			return err
		}
		up, down := filter.Count(found)
		totalUp += up
		totalDown += down
		out.Row(c.Arm, c.Table.Len(), axes.XRange, axes.YRange, up, down)

		if topHits > 0 && len(found) > 0 {
			if len(found) > topHits {
				found = found[:topHits]
			}
			top := format.NewTable(mode)
			top.Header("Arm "+c.Arm, "Protein", "log2 ratio", "-log10(q)", "Direction")
			top.AlignRight(0, 3, 4)
			for _, h := range found {
				top.Row(h.ShortName, h.Protein, core.RoundFloat(h.Log2Ratio, 3), core.RoundFloat(h.NegLog10Q, 3), h.Direction.String())
			}
			tops = append(tops, top)
		}
	}
	out.Footer("Total", raw.Len(), "", "", totalUp, totalDown)

	fmt.Printf("Thresholds: |log2 ratio| >= %g, -log10(q) >= %g\n\n", thresholds.Enrichment, thresholds.Statistical)
	fmt.Println(out.String())
	for _, top := range tops {
		fmt.Println()
		fmt.Println(top.String())
	}
	return nil
}
