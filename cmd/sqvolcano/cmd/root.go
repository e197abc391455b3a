// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/sqvolcano/pkg/config"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/logging"
	"github.com/ChrisMcGann/sqvolcano/pkg/reader/tsv"
)

var (
	// Global flags
	configFile string
	logLevel   string
	logFormat  string

	// Run flags shared by process and summarize
	project              string
	ligand               string
	peptideCount         string
	enrichmentThreshold  float64
	statisticalThreshold float64
	tableFormat          string
)

var rootCmd = &cobra.Command{
	Use:   "sqvolcano",
	Short: "sqvolcano - volcano plots from SafeQuant protein reports",
	Long: `sqvolcano splits a SafeQuant PROTEIN.tsv report into one comparison
table per treatment arm and draws a volcano plot for each of them.

Outputs per arm:
- <ligand>_vs_<arm>_<peptides>.tsv comparison table
- HTML page with the volcano plot as SVG and a table of the plotted values,
  with and without protein labels
- optional SQLite results database`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if logFormat != "text" && logFormat != "json" {
			return fmt.Errorf("invalid log format '%s', must be text or json", logFormat)
		}
		logging.Init(level, logFormat)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

// addRunFlags registers the flags naming a run and its thresholds.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&project, "project", "", "Project identifier, e.g. P1")
	cmd.Flags().StringVar(&ligand, "ligand", "", "Control ligand, e.g. DMSO")
	cmd.Flags().StringVar(&peptideCount, "peptide-count", "", "Peptide count label, e.g. 2pep")
	cmd.Flags().Float64Var(&enrichmentThreshold, "enrichment", 2, "Enrichment threshold on |log2 ratio| (0-10)")
	cmd.Flags().Float64Var(&statisticalThreshold, "statistical", 2, "Statistical threshold on -log10(q-value) (0-3)")
}

// loadRun layers defaults, the config file, the environment and the flags
// that were set explicitly on cmd.
func loadRun(cmd *cobra.Command) (config.Run, error) {
	run, err := config.Load(configFile)
	if err != nil {
		return config.Run{}, err
	}
	run, err = run.ApplyEnv(os.LookupEnv)
	if err != nil {
		return config.Run{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("project") {
		run.Project = project
	}
	if flags.Changed("ligand") {
		run.Ligand = ligand
	}
	if flags.Changed("peptide-count") {
		run.PeptideCount = peptideCount
	}
	if flags.Changed("enrichment") {
		run.EnrichmentThreshold = enrichmentThreshold
	}
	if flags.Changed("statistical") {
		run.StatisticalThreshold = statisticalThreshold
	}
	return run, nil
}

// readReport reads a protein report from path, or from stdin for "-".
func readReport(path string) (*core.Table, error) {
	if path == "-" {
		return tsv.ReadTable(os.Stdin)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	table, err := tsv.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return table, nil
}
