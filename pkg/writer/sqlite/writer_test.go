package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/filter"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

func report(t *testing.T) *compare.Result {
	t.Helper()
	raw := compareTable()
	res, err := compare.Split(raw)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	return res
}

func writeAll(t *testing.T, path string, res *compare.Result) {
	t.Helper()
	w, err := NewWriter(path, RunInfo{Project: "P1", Ligand: "DMSO", PeptideCount: "2pep", Source: "PROTEIN.tsv"})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	cfg := filter.NewConfig(volcano.DefaultThresholds())
	for _, c := range res.Comparisons {
		axes, err := volcano.Derive(c, cfg.Thresholds)
		if err != nil {
			t.Fatalf("Derive() error = %v", err)
		}
		if err := w.WriteComparison(c, axes, cfg); err != nil {
			t.Fatalf("WriteComparison() error = %v", err)
		}
	}
	if err := w.Finalize(res.Arms); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
}

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	res := report(t)
	writeAll(t, path, res)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT Arm, XRange, YRange, NoofProteins, NoofHits, blobLog2Ratio FROM ComparisonTable ORDER BY ComparisonId`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	type cmpRow struct {
		Arm            string
		XRange, YRange float64
		Proteins, Hits int
		Log2           []float64
	}
	var got []cmpRow
	for rows.Next() {
		var r cmpRow
		var blob []byte
		if err := rows.Scan(&r.Arm, &r.XRange, &r.YRange, &r.Proteins, &r.Hits, &blob); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if r.Log2, err = DecodeFloat64(blob); err != nil {
			t.Fatalf("DecodeFloat64() error = %v", err)
		}
		got = append(got, r)
	}

	want := []cmpRow{
		{Arm: "A", XRange: 6, YRange: 7, Proteins: 2, Hits: 1, Log2: []float64{-1.2, 3.4}},
		{Arm: "B", XRange: 2, YRange: 3, Proteins: 2, Hits: 0, Log2: []float64{0.5, -0.7}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComparisonTable mismatch (-want +got):\n%s", diff)
	}

	var name, short string
	var peptides int
	var hit bool
	var pvalue sql.NullFloat64
	err = db.QueryRow(`SELECT ProteinName, ShortName, Peptides, Hit, PValue FROM ProteinTable WHERE ComparisonId = 1 AND Hit = 1`).
		Scan(&name, &short, &peptides, &hit, &pvalue)
	if err != nil {
		t.Fatalf("protein query: %v", err)
	}
	if name != "sp|P68871|HBB_HUMAN" || short != "HBB" || peptides != 3 || !hit {
		t.Errorf("unexpected protein row: %s %s %d %v", name, short, peptides, hit)
	}
	if pvalue.Valid {
		t.Errorf("PValue should be NULL without a pValue column, got %v", pvalue.Float64)
	}

	var arms string
	if err := db.QueryRow(`SELECT Arms FROM HeaderTable`).Scan(&arms); err != nil {
		t.Fatalf("header query: %v", err)
	}
	if arms != "A,B" {
		t.Errorf("Arms = %q, want %q", arms, "A,B")
	}
}

func TestWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	res := report(t)
	writeAll(t, path, res)
	writeAll(t, path, res)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var comparisons, proteins, maxID int
	if err := db.QueryRow(`SELECT COUNT(*), MAX(ComparisonId) FROM ComparisonTable`).Scan(&comparisons, &maxID); err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM ProteinTable`).Scan(&proteins); err != nil {
		t.Fatalf("query: %v", err)
	}
	if comparisons != 4 || maxID != 4 || proteins != 8 {
		t.Errorf("got %d comparisons (max id %d) and %d proteins, want 4, 4, 8", comparisons, maxID, proteins)
	}
}

func openWriter(t *testing.T, path string, res *compare.Result) *Writer {
	t.Helper()
	w, err := NewWriter(path, RunInfo{Project: "P1", Ligand: "DMSO", PeptideCount: "2pep"})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	cfg := filter.NewConfig(volcano.DefaultThresholds())
	for _, c := range res.Comparisons {
		axes, err := volcano.Derive(c, cfg.Thresholds)
		if err != nil {
			t.Fatalf("Derive() error = %v", err)
		}
		if err := w.WriteComparison(c, axes, cfg); err != nil {
			t.Fatalf("WriteComparison() error = %v", err)
		}
	}
	return w
}

func countRows(t *testing.T, path string) (comparisons, proteins, headers int) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	for _, q := range []struct {
		table string
		n     *int
	}{
		{"ComparisonTable", &comparisons},
		{"ProteinTable", &proteins},
		{"HeaderTable", &headers},
	} {
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + q.table).Scan(q.n); err != nil {
			t.Fatalf("count %s: %v", q.table, err)
		}
	}
	return comparisons, proteins, headers
}

func TestWriterCloseDiscardsUncommitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	res := report(t)
	writeAll(t, path, res)

	w := openWriter(t, path, res)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, p, h := countRows(t, path)
	if c != 2 || p != 4 || h != 1 {
		t.Errorf("got %d comparisons, %d proteins, %d headers, want only the first run (2, 4, 1)", c, p, h)
	}
}

func TestWriterFinalizeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	w := openWriter(t, path, report(t))
	if _, err := w.tx.Exec(`DROP TABLE HeaderTable`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	if err := w.Finalize([]string{"A", "B"}); err == nil {
		t.Fatal("expected error when the header cannot be written")
	}
	if err := w.db.Ping(); err == nil {
		t.Error("database still open after failed Finalize")
	}

	c, p, h := countRows(t, path)
	if c != 0 || p != 0 || h != 0 {
		t.Errorf("got %d comparisons, %d proteins, %d headers after failed Finalize, want none", c, p, h)
	}
}

func TestNewWriterUnopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "results.db")
	if _, err := NewWriter(path, RunInfo{}); err == nil {
		t.Error("expected error for a database in a missing directory")
	}
}

func TestDecodeFloat64InvalidLength(t *testing.T) {
	if _, err := DecodeFloat64([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func compareTable() *core.Table {
	t := core.NewTable([]string{
		"proteinName", "ac", "geneName", "proteinDescription", "nbPeptides",
		"log2ratio_A", "qValue_A", "log2ratio_B", "qValue_B",
	})
	t.Rows = [][]string{
		{"sp|P69905|HBA_HUMAN", "P69905", "HBA1", "Hemoglobin subunit alpha OS=Homo sapiens", "5", "-1.2", "0.01", "0.5", "0.5"},
		{"sp|P68871|HBB_HUMAN", "P68871", "HBB", "Hemoglobin subunit beta OS=Homo sapiens", "3", "3.4", "0.00002", "-0.7", "1"},
	}
	return t
}
