// Package sqlite provides SQLite database writing for comparison results
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/filter"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	schemaVersion    = 1
)

// RunInfo describes the run stored in HeaderTable.
type RunInfo struct {
	Project      string
	Ligand       string
	PeptideCount string
	Source       string // input file name
}

// Writer handles writing comparisons to SQLite database files. Everything
// written after NewWriter lives in one transaction that Finalize commits.
type Writer struct {
	db             *sql.DB
	tx             *sql.Tx
	outputPath     string
	info           RunInfo
	comparisonStmt *sql.Stmt
	proteinStmt    *sql.Stmt
	comparisonID   int
	proteinID      int
}

// NewWriter creates a new SQLite writer. An existing database at outputPath
// keeps its rows; new comparisons are appended after them once Finalize
// succeeds.
func NewWriter(outputPath string, info RunInfo) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:           db,
		outputPath:   outputPath,
		info:         info,
		comparisonID: 1,
		proteinID:    1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	w.tx, err = db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := w.nextIDs(); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		w.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ComparisonTable (
		ComparisonId INTEGER PRIMARY KEY,
		Project TEXT,
		Ligand TEXT,
		Arm TEXT,
		PeptideCount TEXT,
		XRange DOUBLE,
		YRange DOUBLE,
		EnrichmentThreshold DOUBLE,
		StatisticalThreshold DOUBLE,
		NoofProteins INTEGER,
		NoofHits INTEGER,
		blobLog2Ratio BLOB,
		blobNegLog10Q BLOB
	);

	CREATE TABLE IF NOT EXISTS ProteinTable (
		ProteinId INTEGER PRIMARY KEY,
		ComparisonId INTEGER REFERENCES ComparisonTable(ComparisonId),
		ProteinName TEXT,
		ShortName TEXT,
		Accession TEXT,
		GeneName TEXT,
		Description TEXT,
		Peptides INTEGER,
		Log2Ratio DOUBLE,
		PValue DOUBLE,
		QValue DOUBLE,
		NegLog10Q DOUBLE,
		Hit BOOL
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Project TEXT,
		Ligand TEXT,
		PeptideCount TEXT,
		Source TEXT,
		Arms TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// nextIDs continues numbering after rows already in the database
func (w *Writer) nextIDs() error {
	var maxCmp, maxProt sql.NullInt64
	if err := w.tx.QueryRow(`SELECT MAX(ComparisonId) FROM ComparisonTable`).Scan(&maxCmp); err != nil {
		return fmt.Errorf("failed to read comparison ids: %w", err)
	}
	if err := w.tx.QueryRow(`SELECT MAX(ProteinId) FROM ProteinTable`).Scan(&maxProt); err != nil {
		return fmt.Errorf("failed to read protein ids: %w", err)
	}
	if maxCmp.Valid {
		w.comparisonID = int(maxCmp.Int64) + 1
	}
	if maxProt.Valid {
		w.proteinID = int(maxProt.Int64) + 1
	}
	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.comparisonStmt, err = w.tx.Prepare(`
		INSERT INTO ComparisonTable (
			ComparisonId, Project, Ligand, Arm, PeptideCount,
			XRange, YRange, EnrichmentThreshold, StatisticalThreshold,
			NoofProteins, NoofHits, blobLog2Ratio, blobNegLog10Q
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare comparison statement: %w", err)
	}

	w.proteinStmt, err = w.tx.Prepare(`
		INSERT INTO ProteinTable (
			ProteinId, ComparisonId, ProteinName, ShortName, Accession,
			GeneName, Description, Peptides, Log2Ratio, PValue,
			QValue, NegLog10Q, Hit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare protein statement: %w", err)
	}

	return nil
}

// WriteComparison writes one comparison and all of its proteins
func (w *Writer) WriteComparison(c *compare.Comparison, axes volcano.Axes, hits *filter.Config) error {
	t := c.Table

	log2, err := c.Log2Ratios()
	if err != nil {
		return fmt.Errorf("failed to read log2 ratios: %w", err)
	}
	nlq, err := c.NegLog10Q()
	if err != nil {
		return fmt.Errorf("failed to read -log10 q-values: %w", err)
	}
	pvals := optionalFloats(t, c.PValueColumn)
	qvals := optionalFloats(t, c.QValueColumn)

	nHits := 0
	for i := range log2 {
		if hits.IsHit(log2[i], nlq[i]) {
			nHits++
		}
	}

	_, err = w.comparisonStmt.Exec(
		w.comparisonID,              // ComparisonId
		w.info.Project,              // Project
		w.info.Ligand,               // Ligand
		c.Arm,                       // Arm
		w.info.PeptideCount,         // PeptideCount
		axes.XRange,                 // XRange
		axes.YRange,                 // YRange
		hits.Thresholds.Enrichment,  // EnrichmentThreshold
		hits.Thresholds.Statistical, // StatisticalThreshold
		t.Len(),                     // NoofProteins
		nHits,                       // NoofHits
		encodeFloat64(log2),         // blobLog2Ratio
		encodeFloat64(nlq),          // blobNegLog10Q
	)
	if err != nil {
		return fmt.Errorf("failed to insert comparison %s: %w", c.Arm, err)
	}

	nameIdx := t.Index(core.ColProteinName)
	shortIdx := t.Index(core.ColProteinNameShort)
	accIdx := t.Index(core.ColAccession)
	geneIdx := t.Index(core.ColGeneName)
	descIdx := t.Index(core.ColProteinDescription)
	pepIdx := t.Index(c.PeptideColumn)

	for i, row := range t.Rows {
		_, err := w.proteinStmt.Exec(
			w.proteinID,                 // ProteinId
			w.comparisonID,              // ComparisonId
			cell(row, nameIdx),          // ProteinName
			cell(row, shortIdx),         // ShortName
			cell(row, accIdx),           // Accession
			cell(row, geneIdx),          // GeneName
			cell(row, descIdx),          // Description
			peptides(cell(row, pepIdx)), // Peptides
			nullable(log2[i]),           // Log2Ratio
			nullable(pvals[i]),          // PValue
			nullable(qvals[i]),          // QValue
			nullable(nlq[i]),            // NegLog10Q
			hits.IsHit(log2[i], nlq[i]), // Hit
		)
		if err != nil {
			return fmt.Errorf("failed to insert protein %s: %w", cell(row, nameIdx), err)
		}
		w.proteinID++
	}

	w.comparisonID++
	return nil
}

// optionalFloats parses a column that may be absent; missing columns and
// unparseable cells become NaN.
func optionalFloats(t *core.Table, name string) []float64 {
	out := make([]float64, t.Len())
	idx := t.Index(name)
	for i, row := range t.Rows {
		out[i] = math.NaN()
		if idx < 0 {
			continue
		}
		if v, err := core.ParseCell(row[idx]); err == nil {
			out[i] = v
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func peptides(s string) interface{} {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return n
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// encodeFloat64 encodes values as little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeFloat64 reverses the blob encoding of ComparisonTable
func DecodeFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("invalid blob length %d", len(blob))
	}
	out := make([]float64, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

// Finalize writes the header table, commits and closes the database. On
// failure nothing of this writer is kept.
func (w *Writer) Finalize(arms []string) error {
	_, err := w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Project, Ligand, PeptideCount, Source, Arms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, schemaVersion, time.Now().Format(headerDateFormat), w.info.Project, w.info.Ligand,
		w.info.PeptideCount, w.info.Source, strings.Join(arms, ","))
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	w.closeStatements()
	err = w.tx.Commit()
	w.tx = nil
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to commit results: %w", err)
	}

	return w.Close()
}

// Close discards everything not yet committed and closes the database
func (w *Writer) Close() error {
	w.closeStatements()
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func (w *Writer) closeStatements() {
	if w.comparisonStmt != nil {
		w.comparisonStmt.Close()
		w.comparisonStmt = nil
	}
	if w.proteinStmt != nil {
		w.proteinStmt.Close()
		w.proteinStmt = nil
	}
}
