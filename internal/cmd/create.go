package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nguyengg/xyarc/archive"
	"github.com/nguyengg/xyarc/codec"
	"github.com/nguyengg/xyarc/internal"
	"github.com/nguyengg/xyarc/internal/config"
	"github.com/nguyengg/xyarc/util"
)

type Create struct {
	Output  string            `short:"o" long:"output" description:"name of the archive to create; a numeric suffix is added if it already exists" required:"yes"`
	Format  string            `long:"format" description:"archive format; by default guessed from the output name or the [default] section of .xyarc"`
	Filter  string            `long:"filter" description:"compression filter; by default guessed from the output name or the [default] section of .xyarc"`
	Options map[string]string `short:"O" long:"option" description:"format or filter option such as compression:store or compression-level:9"`
	Args    struct {
		Files []string `positional-arg-name:"file" description:"the files and directories to add" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Create) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	ctx = internal.WithPrefixLogger(ctx, internal.Prefix(0, 1, c.Output))
	logger := internal.MustLogger(ctx)

	name, err := c.create(ctx)
	if err != nil {
		return fmt.Errorf("create archive error: %w", err)
	}

	logger.Printf(`done creating "%s"`, name)
	return nil
}

// optFns returns the archive options in order of increasing precedence: .xyarc, then the output name, then flags.
func (c *Create) optFns(ctx context.Context) func(*archive.Options) {
	return func(opts *archive.Options) {
		opts.Mode = archive.ModeWrite
		opts.Logger = internal.MustLogger(ctx)
		config.ForArchive().Apply(opts)

		if format, filter := archive.GuessFormat(c.Output); format != "" {
			opts.Format, opts.Filter = format, filter
		}

		if c.Format != "" {
			opts.Format = c.Format
		}
		if c.Filter != "" {
			opts.Filter = c.Filter
		}
		if len(c.Options) != 0 {
			opts.FormatOptions = c.Options
		}
	}
}

// validate checks the --format and --filter flags before any file is created.
func (c *Create) validate() error {
	if c.Format != "" && !slices.Contains(archive.Formats(), c.Format) {
		return fmt.Errorf(`unknown format "%s"; must be one of %s`, c.Format, strings.Join(archive.Formats(), ", "))
	}
	if _, ok := codec.Lookup(c.Filter); c.Filter != "" && !ok {
		return fmt.Errorf(`unknown filter "%s"; must be one of %s`, c.Filter, strings.Join(codec.Names(), ", "))
	}

	return nil
}

func (c *Create) create(ctx context.Context) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}

	stem, ext := util.StemAndExt(filepath.Base(c.Output))
	f, err := util.OpenExclFile(filepath.Dir(c.Output), stem, ext, 0666)
	if err != nil {
		return "", err
	}

	success := false
	defer func() {
		if _ = f.Close(); !success {
			_ = os.Remove(f.Name())
		}
	}()

	s, err := archive.New(f, c.optFns(ctx))
	if err != nil {
		return "", err
	}

	if err = internal.Create(ctx, s, c.Args.Files); err != nil {
		_ = s.Close()
		return "", err
	}

	if err = s.Close(); err != nil {
		return "", err
	}

	if err = f.Close(); err != nil {
		return "", fmt.Errorf(`close file "%s" error: %w`, f.Name(), err)
	}

	success = true
	return f.Name(), nil
}
