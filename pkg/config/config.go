// Package config holds the settings of one processing run.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/sqvolcano/pkg/store/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

// Environment variables read by ApplyEnv.
const (
	EnvS3Bucket    = "SQVOLCANO_S3_BUCKET"
	EnvS3Region    = "SQVOLCANO_S3_REGION"
	EnvS3Endpoint  = "SQVOLCANO_S3_ENDPOINT"
	EnvS3PathStyle = "SQVOLCANO_S3_PATH_STYLE"
)

var (
	peptideCountPattern = regexp.MustCompile(`^[0-9]+pep$`)
	// identifiers end up in file names
	unsafeName = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
)

// S3 holds the bucket settings of the s3 output driver. Credentials come from
// the default AWS chain.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Output selects where artifacts are delivered.
type Output struct {
	Driver    string        `yaml:"driver"` // fs, s3 or memory
	Dir       string        `yaml:"dir"`    // root directory of the fs driver
	Prefix    string        `yaml:"prefix"` // key prefix for every artifact
	URLExpiry time.Duration `yaml:"url_expiry"`
	S3        S3            `yaml:"s3"`
}

// Run is the complete, immutable configuration of one run. Values are copied,
// never shared.
type Run struct {
	Project              string  `yaml:"project"`
	Ligand               string  `yaml:"ligand"`
	PeptideCount         string  `yaml:"peptide_count"`
	EnrichmentThreshold  float64 `yaml:"enrichment_threshold"`
	StatisticalThreshold float64 `yaml:"statistical_threshold"`
	EmitFiles            bool    `yaml:"emit_files"`
	ShowLabels           bool    `yaml:"show_labels"`
	Parallel             int     `yaml:"parallel"` // 0 = one worker per arm
	ResultsDB            string  `yaml:"results_db"`
	Output               Output  `yaml:"output"`
}

// Default returns the built-in defaults.
func Default() Run {
	return Run{
		EnrichmentThreshold:  volcano.DefaultEnrichment,
		StatisticalThreshold: volcano.DefaultStatistical,
		EmitFiles:            true,
		ShowLabels:           true,
		Output: Output{
			Driver:    string(core.DriverFilesystem),
			Dir:       ".",
			URLExpiry: core.DefaultExpiry,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty path
// returns the defaults.
func Load(path string) (Run, error) {
	run := Default()
	if path == "" {
		return run, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, run)
}

// Parse overlays YAML data on base.
func Parse(data []byte, base Run) (Run, error) {
	run := base
	if err := yaml.Unmarshal(data, &run); err != nil {
		return Run{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return run, nil
}

// ApplyEnv overlays the SQVOLCANO_S3_* variables. lookup is usually os.LookupEnv.
func (r Run) ApplyEnv(lookup func(string) (string, bool)) (Run, error) {
	if v, ok := lookup(EnvS3Bucket); ok && v != "" {
		r.Output.S3.Bucket = v
	}
	if v, ok := lookup(EnvS3Region); ok && v != "" {
		r.Output.S3.Region = v
	}
	if v, ok := lookup(EnvS3Endpoint); ok && v != "" {
		r.Output.S3.Endpoint = v
	}
	if v, ok := lookup(EnvS3PathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Run{}, fmt.Errorf("invalid %s: %w", EnvS3PathStyle, err)
		}
		r.Output.S3.PathStyle = b
	}
	return r, nil
}

// Thresholds returns the volcano thresholds of the run.
func (r Run) Thresholds() volcano.Thresholds {
	return volcano.Thresholds{Enrichment: r.EnrichmentThreshold, Statistical: r.StatisticalThreshold}
}

// Validate checks that the run can name its artifacts and reach its output.
func (r Run) Validate() error {
	var errs []string

	for _, f := range []struct{ name, value string }{
		{"project", r.Project},
		{"ligand", r.Ligand},
	} {
		switch {
		case strings.TrimSpace(f.value) == "":
			errs = append(errs, f.name+" is required")
		case unsafeName.MatchString(f.value) || strings.Contains(f.value, ".."):
			errs = append(errs, fmt.Sprintf("%s %q cannot be used in a file name", f.name, f.value))
		}
	}

	if !peptideCountPattern.MatchString(r.PeptideCount) {
		errs = append(errs, fmt.Sprintf("peptide count %q must look like <digits>pep, e.g. 2pep", r.PeptideCount))
	}
	if err := r.Thresholds().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if r.Parallel < 0 {
		errs = append(errs, "parallel must not be negative")
	}

	driver, err := core.ParseDriver(r.Output.Driver)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if driver == core.DriverS3 && r.Output.S3.Bucket == "" {
		errs = append(errs, "output.s3.bucket (or "+EnvS3Bucket+") is required for the s3 driver")
	}
	if strings.HasPrefix(r.Output.Prefix, "/") || strings.Contains(r.Output.Prefix, "..") {
		errs = append(errs, fmt.Sprintf("output prefix %q must be relative", r.Output.Prefix))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
