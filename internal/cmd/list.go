package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xyarc/archive"
	"github.com/nguyengg/xyarc/internal"
)

// stdout is where list and cat write their output.
var stdout io.Writer = os.Stdout

type List struct {
	Args struct {
		Archives []string `positional-arg-name:"archive" description:"local paths or s3:// URIs of the archives" required:"yes"`
	} `positional-args:"yes"`
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Archives)
	for i, name := range c.Args.Archives {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, name))

		if err := c.list(ctx, name); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}

			internal.MustLogger(ctx).Printf("list error: %v", err)
			continue
		}

		success++
	}

	if n > 1 {
		log.Printf("successfully listed %d/%d archives", success, n)
	}
	if success != n {
		return fmt.Errorf("failed to list %d/%d archives", n-success, n)
	}

	return nil
}

func (c *List) list(ctx context.Context, name string) error {
	s, err := openArchive(ctx, name)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(c.Args.Archives) > 1 {
		_, _ = fmt.Fprintf(stdout, "%s:\n", name)
	}

	for e, err := range s.Entries() {
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(stdout, formatEntry(e))

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

// formatEntry returns the `ls -l`-like line for the given entry.
func formatEntry(e *archive.Entry) string {
	size := "-"
	if e.Size() >= 0 {
		size = humanize.IBytes(uint64(e.Size()))
	}

	line := fmt.Sprintf("%s %9s %s %s", e.Mode(), size, e.ModTime().Local().Format("2006-01-02 15:04"), e.Name())
	if e.Mode()&fs.ModeSymlink != 0 && e.Linkname() != "" {
		line += " -> " + e.Linkname()
	}

	return line
}
