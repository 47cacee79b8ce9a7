package config

import (
	"github.com/nguyengg/xyarc/archive"
)

// ArchiveConfig contains the archive settings from the [default] section.
//
// Empty values mean the archive package's own defaults apply.
type ArchiveConfig struct {
	Format    string
	Filter    string
	BlockSize int
}

// ForArchive returns the archive configuration.
func (l *Loader) ForArchive() (c ArchiveConfig) {
	sec := l.section("default")

	c.Format = sec.Key("format").String()
	c.Filter = sec.Key("filter").String()
	c.BlockSize = sec.Key("block-size").MustInt(0)

	return
}

// ForArchive calls Loader.ForArchive on the DefaultLoader instance.
func ForArchive() (c ArchiveConfig) {
	return DefaultLoader.ForArchive()
}

// Apply copies the non-empty settings into the given archive.Options.
//
// Apply can be passed directly as one of the archive.Open optFns.
func (c ArchiveConfig) Apply(opts *archive.Options) {
	if c.Format != "" {
		opts.Format = c.Format
	}
	if c.Filter != "" {
		opts.Filter = c.Filter
	}
	if c.BlockSize > 0 {
		opts.BlockSize = c.BlockSize
	}
}

// S3Config contains the settings from the [s3] section.
type S3Config struct {
	Profile             string
	ExpectedBucketOwner string
}

// ForS3 returns the S3 configuration.
//
// Loader.Profile takes precedence over the profile from the file.
func (l *Loader) ForS3() (c S3Config) {
	sec := l.section("s3")

	c.Profile = sec.Key("profile").String()
	c.ExpectedBucketOwner = sec.Key("expected-bucket-owner").String()

	if l.Profile != "" {
		c.Profile = l.Profile
	}

	return
}

// ForS3 calls Loader.ForS3 on the DefaultLoader instance.
func ForS3() (c S3Config) {
	return DefaultLoader.ForS3()
}
