// Package pipeline turns a protein report into per-arm artifacts: comparison
// tables, volcano plots and an optional results database.
//
// Every artifact is rendered in memory and the results database is written in
// an open transaction before anything is delivered. The database is committed
// last, so a failing run leaves no output behind.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/config"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/filter"
	"github.com/ChrisMcGann/sqvolcano/pkg/logging"
	storecore "github.com/ChrisMcGann/sqvolcano/pkg/store/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
	"github.com/ChrisMcGann/sqvolcano/pkg/writer/plot"
	"github.com/ChrisMcGann/sqvolcano/pkg/writer/sqlite"
	"github.com/ChrisMcGann/sqvolcano/pkg/writer/tsv"
)

const (
	contentTypeTSV  = "text/tab-separated-values; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Flags select which artifacts a run produces.
type Flags struct {
	EmitFiles  bool // comparison tables and plots
	ShowLabels bool // additionally the "_withText" plot variant
}

// Kind of an artifact.
type Kind string

const (
	KindTable       Kind = "table"
	KindPlot        Kind = "plot"
	KindLabeledPlot Kind = "plot_with_text"
)

// Artifact is one rendered output file.
type Artifact struct {
	Key         string
	Arm         string
	Kind        Kind
	ContentType string
	Data        []byte
	URL         string // set after delivery when the store can produce one
}

// ArmSummary describes one comparison after thresholding.
type ArmSummary struct {
	Arm      string
	Proteins int
	Axes     volcano.Axes
	Up       int
	Down     int
	Hits     []filter.Hit
}

// Result of a run.
type Result struct {
	Split     *compare.Result
	Summaries []ArmSummary
	Artifacts []Artifact
	Warnings  []string
}

// Pipeline processes reports with a fixed configuration.
type Pipeline struct {
	run   config.Run
	flags Flags
	store storecore.Store
	log   *slog.Logger
}

// New validates run and returns a pipeline delivering to store. store may be
// nil when no files are emitted.
func New(run config.Run, store storecore.Store) (*Pipeline, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	flags := Flags{EmitFiles: run.EmitFiles, ShowLabels: run.ShowLabels}
	if flags.EmitFiles && store == nil {
		return nil, fmt.Errorf("an artifact store is required to emit files")
	}
	return &Pipeline{run: run, flags: flags, store: store, log: logging.New("pipeline")}, nil
}

// Flags returns the artifact selection of the pipeline.
func (p *Pipeline) Flags() Flags { return p.flags }

// Process splits raw, renders every arm concurrently and then delivers the
// artifacts and the optional results database. source names the input in the
// database header.
func (p *Pipeline) Process(ctx context.Context, source string, raw *core.Table) (*Result, error) {
	split, err := compare.Split(raw)
	if err != nil {
		return nil, err
	}
	for _, w := range split.Warnings {
		p.log.Warn(w)
	}
	p.log.Info("report split", "arms", len(split.Arms), "proteins", split.Prepared.Len())

	res, err := p.render(ctx, split)
	if err != nil {
		return nil, err
	}

	var db *resultsDB
	if p.run.ResultsDB != "" {
		db, err = p.writeDB(source, split, res.Summaries)
		if err != nil {
			return nil, err
		}
	}

	if p.flags.EmitFiles {
		if err := p.deliver(ctx, res.Artifacts); err != nil {
			db.discard()
			return nil, err
		}
	}

	if db != nil {
		if err := db.commit(split.Arms); err != nil {
			if p.flags.EmitFiles {
				p.rollback(artifactKeys(res.Artifacts))
			}
			return nil, err
		}
		p.log.Info("results database written", "path", db.path, "comparisons", len(split.Comparisons))
	}
	return res, nil
}

func artifactKeys(artifacts []Artifact) []string {
	keys := make([]string, len(artifacts))
	for i, a := range artifacts {
		keys[i] = a.Key
	}
	return keys
}

type armOutput struct {
	summary   ArmSummary
	artifacts []Artifact
}

func (p *Pipeline) render(ctx context.Context, split *compare.Result) (*Result, error) {
	outputs := make([]armOutput, len(split.Comparisons))
	thresholds := p.run.Thresholds()

	g, gctx := errgroup.WithContext(ctx)
	limit := p.run.Parallel
	if limit <= 0 {
		limit = len(split.Comparisons)
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, c := range split.Comparisons {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.renderArm(c, thresholds)
			if err != nil {
				return fmt.Errorf("failed to process arm %s: %w", c.Arm, err)
			}
			outputs[i] = out
			p.log.Debug("arm rendered", "arm", c.Arm, "artifacts", len(out.artifacts), "hits", len(out.summary.Hits))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Split: split, Warnings: split.Warnings}
	for _, o := range outputs {
		res.Summaries = append(res.Summaries, o.summary)
		res.Artifacts = append(res.Artifacts, o.artifacts...)
	}
	return res, nil
}

func (p *Pipeline) renderArm(c *compare.Comparison, t volcano.Thresholds) (armOutput, error) {
	axes, err := volcano.Derive(c, t)
	if err != nil {
		return armOutput{}, err
	}
	hits, err := filter.NewConfig(t).Apply(c)
	if err != nil {
		return armOutput{}, err
	}
	up, down := filter.Count(hits)

	out := armOutput{summary: ArmSummary{
		Arm:      c.Arm,
		Proteins: c.Table.Len(),
		Axes:     axes,
		Up:       up,
		Down:     down,
		Hits:     hits,
	}}
	if !p.flags.EmitFiles {
		return out, nil
	}

	table, err := tsv.Encode(c)
	if err != nil {
		return armOutput{}, err
	}
	out.artifacts = append(out.artifacts, Artifact{
		Key:         p.key(tsv.FileName(p.run.Ligand, c.Arm, p.run.PeptideCount)),
		Arm:         c.Arm,
		Kind:        KindTable,
		ContentType: contentTypeTSV,
		Data:        table,
	})

	variants := []bool{false}
	if p.flags.ShowLabels {
		variants = append(variants, true)
	}
	for _, labels := range variants {
		opts := plot.Options{
			Project:      p.run.Project,
			Ligand:       p.run.Ligand,
			PeptideCount: p.run.PeptideCount,
			ShowLabels:   labels,
		}
		page, err := plot.Render(c, axes, t, opts)
		if err != nil {
			return armOutput{}, err
		}
		kind := KindPlot
		if labels {
			kind = KindLabeledPlot
		}
		out.artifacts = append(out.artifacts, Artifact{
			Key:         p.key(plot.FileName(p.run.Project, p.run.PeptideCount, p.run.Ligand, c.Arm, labels)),
			Arm:         c.Arm,
			Kind:        kind,
			ContentType: contentTypeHTML,
			Data:        page,
		})
	}
	return out, nil
}

func (p *Pipeline) key(name string) string {
	if p.run.Output.Prefix == "" {
		return name
	}
	return path.Join(p.run.Output.Prefix, name)
}

// deliver stores every artifact; on failure the ones already stored are
// removed again.
func (p *Pipeline) deliver(ctx context.Context, artifacts []Artifact) error {
	var stored []string
	for i := range artifacts {
		a := &artifacts[i]
		_, err := p.store.Put(ctx, a.Key, bytes.NewReader(a.Data), storecore.PutOptions{
			ContentType: a.ContentType,
			Metadata: map[string]string{
				"project": p.run.Project,
				"ligand":  p.run.Ligand,
				"arm":     a.Arm,
				"kind":    string(a.Kind),
			},
		})
		if err != nil {
			p.rollback(stored)
			return fmt.Errorf("failed to deliver %s: %w", a.Key, err)
		}
		stored = append(stored, a.Key)

		u, err := p.store.PresignURL(ctx, a.Key, storecore.SignedURLOptions{Expiry: p.run.Output.URLExpiry})
		switch {
		case err == nil:
			a.URL = u
		case errors.Is(err, storecore.ErrUnsupported):
		default:
			p.log.Warn("no download URL", "key", a.Key, "error", err)
		}
		p.log.Debug("artifact delivered", "key", a.Key, "bytes", len(a.Data))
	}
	p.log.Info("artifacts delivered", "count", len(stored), "driver", string(p.store.Driver()))
	return nil
}

func (p *Pipeline) rollback(keys []string) {
	// the caller's context may already be cancelled
	ctx := context.Background()
	for _, k := range keys {
		if _, err := p.store.Delete(ctx, k); err != nil {
			p.log.Warn("failed to remove partial artifact", "key", k, "error", err)
		}
	}
}

// resultsDB is a results database with an uncommitted run.
type resultsDB struct {
	w       *sqlite.Writer
	path    string
	created bool // the file did not exist before this run
	log     *slog.Logger
}

// writeDB writes every comparison without committing. A database file created
// by a failed attempt is removed again.
func (p *Pipeline) writeDB(source string, split *compare.Result, summaries []ArmSummary) (*resultsDB, error) {
	_, statErr := os.Stat(p.run.ResultsDB)
	db := &resultsDB{path: p.run.ResultsDB, created: os.IsNotExist(statErr), log: p.log}

	w, err := sqlite.NewWriter(db.path, sqlite.RunInfo{
		Project:      p.run.Project,
		Ligand:       p.run.Ligand,
		PeptideCount: p.run.PeptideCount,
		Source:       source,
	})
	if err != nil {
		db.remove()
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	db.w = w

	hits := filter.NewConfig(p.run.Thresholds())
	for i, c := range split.Comparisons {
		if err := w.WriteComparison(c, summaries[i].Axes, hits); err != nil {
			db.discard()
			return nil, err
		}
	}
	return db, nil
}

func (d *resultsDB) commit(arms []string) error {
	if err := d.w.Finalize(arms); err != nil {
		d.remove()
		return err
	}
	return nil
}

// discard rolls back the run. It is a no-op on a nil database.
func (d *resultsDB) discard() {
	if d == nil {
		return
	}
	if err := d.w.Close(); err != nil {
		d.log.Warn("failed to close results database", "path", d.path, "error", err)
	}
	d.remove()
}

func (d *resultsDB) remove() {
	if !d.created {
		return
	}
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		d.log.Warn("failed to remove results database", "path", d.path, "error", err)
	}
}

// Analyze splits a report without rendering anything.
func Analyze(raw *core.Table) (*compare.Result, error) {
	return compare.Split(raw)
}
