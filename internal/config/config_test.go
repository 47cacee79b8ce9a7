package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyengg/xyarc/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadFrom(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Name), []byte(`
[default]
format = tar
filter = zstd
block-size = 4096

[s3]
profile = archives
expected-bucket-owner = 123456789012
`), 0644))

	l := &Loader{}
	path, err := l.LoadFrom(context.Background(), child)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Name), path)

	assert.Equal(t, ArchiveConfig{Format: "tar", Filter: "zstd", BlockSize: 4096}, l.ForArchive())
	assert.Equal(t, S3Config{Profile: "archives", ExpectedBucketOwner: "123456789012"}, l.ForS3())

	l.Profile = "override"
	assert.Equal(t, "override", l.ForS3().Profile)
}

func TestLoader_LoadFrom_DirectoryIsSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, Name), 0755))

	l := &Loader{}
	_, err := l.LoadFrom(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, ArchiveConfig{}, l.ForArchive())
}

func TestLoader_Empty(t *testing.T) {
	l := &Loader{}
	assert.Equal(t, ArchiveConfig{}, l.ForArchive())
	assert.Equal(t, S3Config{}, l.ForS3())
}

func TestArchiveConfig_Apply(t *testing.T) {
	opts := &archive.Options{Format: "zip", BlockSize: archive.DefaultBlockSize}
	ArchiveConfig{Filter: "gzip"}.Apply(opts)
	assert.Equal(t, "zip", opts.Format)
	assert.Equal(t, "gzip", opts.Filter)
	assert.Equal(t, archive.DefaultBlockSize, opts.BlockSize)

	ArchiveConfig{Format: "tar", BlockSize: 512}.Apply(opts)
	assert.Equal(t, "tar", opts.Format)
	assert.Equal(t, 512, opts.BlockSize)
}
