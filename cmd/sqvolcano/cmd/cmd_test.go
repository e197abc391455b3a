package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const report = "proteinName\tac\tgeneName\tproteinDescription\tnbPeptides\tlog2ratio_A\tqValue_A\n" +
	"sp|P69905|HBA_HUMAN\tP69905\tHBA1\tHemoglobin subunit alpha OS=Homo sapiens\t5\t-2.5\t0.001\n" +
	"sp|P68871|HBB_HUMAN\tP68871\tHBB\tHemoglobin subunit beta OS=Homo sapiens\t3\t3.4\t0.00002\n"

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "PROTEIN.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessCommand(t *testing.T) {
	in := writeReport(t, report)
	out := filepath.Join(t.TempDir(), "results")
	db := filepath.Join(t.TempDir(), "results.db")

	rootCmd.SetArgs([]string{"process", in,
		"--project", "P1", "--ligand", "DMSO", "--peptide-count", "2pep",
		"--labels=false", "-o", out, "--db", db,
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	for _, name := range []string{"DMSO_vs_A_2pep.tsv", "P1_2pep_DMSO_vs_A.html"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "P1_2pep_DMSO_vs_A_withText.html")); err == nil {
		t.Error("labeled plot written with --labels=false")
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("missing results database: %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"valid", report, ""},
		{"no arms", "proteinName\tac\tgeneName\tproteinDescription\tnbPeptides\n", "no treatment arms"},
		{"bad q-value", strings.Replace(report, "0.001", "0", 1), "q-value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs([]string{"validate", writeReport(t, tt.content)})
			err := rootCmd.Execute()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMissingInput(t *testing.T) {
	rootCmd.SetArgs([]string{"preview", filepath.Join(t.TempDir(), "missing.tsv")})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("error = %v", err)
	}
}
