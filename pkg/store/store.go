// Package store opens the artifact store selected by the output configuration.
package store

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/sqvolcano/pkg/config"
	"github.com/ChrisMcGann/sqvolcano/pkg/store/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/store/fs"
	"github.com/ChrisMcGann/sqvolcano/pkg/store/memory"
	"github.com/ChrisMcGann/sqvolcano/pkg/store/s3"
)

// Open returns the store for out.Driver.
func Open(ctx context.Context, out config.Output) (core.Store, error) {
	driver, err := core.ParseDriver(out.Driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		s, err := s3.New(ctx, s3.Config{
			Bucket:    out.S3.Bucket,
			Region:    out.S3.Region,
			Endpoint:  out.S3.Endpoint,
			PathStyle: out.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 store: %w", err)
		}
		return s, nil
	default:
		s, err := fs.New(out.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open output directory: %w", err)
		}
		return s, nil
	}
}
