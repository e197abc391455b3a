package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/sqvolcano/pkg/config"
	"github.com/ChrisMcGann/sqvolcano/pkg/pipeline"
	"github.com/ChrisMcGann/sqvolcano/pkg/store"
	storecore "github.com/ChrisMcGann/sqvolcano/pkg/store/core"
)

var (
	// Flags for process command
	showLabels bool
	emitFiles  bool
	parallel   int
	outputDir  string
	driver     string
	prefix     string
	resultsDB  string
)

func init() {
	addRunFlags(processCmd)
	processCmd.Flags().BoolVar(&showLabels, "labels", true, "Also write the plot variant with protein labels")
	processCmd.Flags().BoolVar(&emitFiles, "emit", true, "Write comparison tables and plots")
	processCmd.Flags().IntVar(&parallel, "parallel", 0, "Arms rendered concurrently (0 = all)")
	processCmd.Flags().StringVarP(&outputDir, "out", "o", ".", "Output directory of the fs driver")
	processCmd.Flags().StringVar(&driver, "driver", "fs", "Artifact store: fs, s3 or memory")
	processCmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix for every artifact")
	processCmd.Flags().StringVar(&resultsDB, "db", "", "Also write a SQLite results database")
}

var processCmd = &cobra.Command{
	Use:   "process [PROTEIN.tsv]",
	Short: "Write comparison tables and volcano plots for every arm",
	Long: `Split a SafeQuant protein report by treatment arm and write, for every
arm, a comparison table and a volcano plot. Use "-" to read from stdin.

Examples:
  # Tables and both plot variants into ./results
  sqvolcano process PROTEIN.tsv --project P1 --ligand DMSO --peptide-count 2pep -o results

  # Stricter thresholds, no labeled plots, plus a results database
  sqvolcano process PROTEIN.tsv --config run.yaml --enrichment 3 --statistical 2.5 --labels=false --db results.db

  # Deliver to S3 (bucket from SQVOLCANO_S3_BUCKET)
  sqvolcano process PROTEIN.tsv --config run.yaml --driver s3 --prefix runs/P1`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd)
	if err != nil {
		return err
	}
	applyProcessFlags(cmd, &run)
	if err := run.Validate(); err != nil {
		return err
	}

	raw, err := readReport(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st storecore.Store
	if run.EmitFiles {
		st, err = store.Open(ctx, run.Output)
		if err != nil {
			return err
		}
	}

	p, err := pipeline.New(run, st)
	if err != nil {
		return err
	}

	fmt.Printf("Processing %s...\n", args[0])
	fmt.Printf("Project: %s, ligand: %s, %s\n", run.Project, run.Ligand, run.PeptideCount)
	fmt.Printf("Thresholds: |log2 ratio| >= %g, -log10(q) >= %g\n", run.EnrichmentThreshold, run.StatisticalThreshold)

	res, err := p.Process(ctx, filepath.Base(args[0]), raw)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	fmt.Printf("\nProcessing complete!\n")
	fmt.Printf("Arms: %d\n", len(res.Summaries))
	for _, s := range res.Summaries {
		fmt.Printf("  %s: %d proteins, x range ±%g, y range %g, %d up, %d down\n",
			s.Arm, s.Proteins, s.Axes.XRange, s.Axes.YRange, s.Up, s.Down)
	}
	if len(res.Artifacts) > 0 {
		fmt.Printf("Artifacts: %d\n", len(res.Artifacts))
		for _, a := range res.Artifacts {
			if a.URL != "" {
				fmt.Printf("  %s\t%s\n", a.Key, a.URL)
			} else {
				fmt.Printf("  %s\n", a.Key)
			}
		}
	}
	if run.ResultsDB != "" {
		fmt.Printf("Results database: %s\n", run.ResultsDB)
	}
	return nil
}

// applyProcessFlags overlays the explicitly set output flags on run.
func applyProcessFlags(cmd *cobra.Command, run *config.Run) {
	flags := cmd.Flags()
	if flags.Changed("labels") {
		run.ShowLabels = showLabels
	}
	if flags.Changed("emit") {
		run.EmitFiles = emitFiles
	}
	if flags.Changed("parallel") {
		run.Parallel = parallel
	}
	if flags.Changed("out") {
		run.Output.Dir = outputDir
	}
	if flags.Changed("driver") {
		run.Output.Driver = driver
	}
	if flags.Changed("prefix") {
		run.Output.Prefix = prefix
	}
	if flags.Changed("db") {
		run.ResultsDB = resultsDB
	}
}
