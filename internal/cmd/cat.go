package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/nguyengg/xyarc/archive"
	"github.com/nguyengg/xyarc/internal"
)

// Cat prints the payload of named entries in the order they are given, not the order they appear in the archive.
type Cat struct {
	Args struct {
		Archive string   `positional-arg-name:"archive" description:"local path or s3:// URI of the archive" required:"yes"`
		Names   []string `positional-arg-name:"name" description:"names of the entries to print" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	ctx = internal.WithPrefixLogger(ctx, internal.Prefix(0, 1, c.Args.Archive))

	s, err := openArchive(ctx, c.Args.Archive)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, name := range c.Args.Names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err = s.Copy(archive.Name(name), stdout); err != nil {
			return fmt.Errorf(`cat "%s" error: %w`, name, err)
		}
	}

	return nil
}
