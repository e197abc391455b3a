package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/sqvolcano/pkg/config"
	"github.com/ChrisMcGann/sqvolcano/pkg/store/core"
)

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	tests := []struct {
		name    string
		out     config.Output
		want    core.Driver
		wantErr bool
	}{
		{"default is fs", config.Output{Dir: dir}, core.DriverFilesystem, false},
		{"fs", config.Output{Driver: "fs", Dir: dir}, core.DriverFilesystem, false},
		{"memory", config.Output{Driver: "memory"}, core.DriverMemory, false},
		{"s3", config.Output{Driver: "s3", S3: config.S3{Bucket: "results", Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true}}, core.DriverS3, false},
		{"s3 without bucket", config.Output{Driver: "s3"}, "", true},
		{"unknown", config.Output{Driver: "ftp"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.out)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if s.Driver() != tt.want {
				t.Errorf("Driver() = %q, want %q", s.Driver(), tt.want)
			}
		})
	}
}
