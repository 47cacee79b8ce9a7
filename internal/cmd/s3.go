package cmd

import (
	"context"
	"fmt"

	"github.com/nguyengg/xyarc/archive"
	"github.com/nguyengg/xyarc/internal"
	"github.com/nguyengg/xyarc/internal/config"
	"github.com/nguyengg/xyarc/s3readseeker"
)

// openArchive opens the named archive for reading.
//
// name may be a local path or an s3://bucket/key URI. Warnings are logged with the logger attached to ctx.
func openArchive(ctx context.Context, name string) (*archive.Seekable, error) {
	optFns := []func(*archive.Options){func(opts *archive.Options) {
		if blockSize := config.ForArchive().BlockSize; blockSize > 0 {
			opts.BlockSize = blockSize
		}
		opts.Logger = internal.MustLogger(ctx)
	}}

	if !internal.IsS3URI(name) {
		return archive.Open(name, optFns...)
	}

	bucket, key, err := internal.ParseS3URI(name)
	if err != nil {
		return nil, err
	}

	client, err := config.NewS3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("create s3 client error: %w", err)
	}

	r, err := s3readseeker.New(client, bucket, key, func(opts *s3readseeker.Options) {
		opts.ExpectedBucketOwner = config.ForS3().ExpectedBucketOwner
		opts.CtxFn = func() context.Context {
			return ctx
		}
	})
	if err != nil {
		return nil, err
	}

	return archive.New(r, optFns...)
}
