package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/nguyengg/xyarc/internal"
)

type Extract struct {
	Directory string `short:"C" long:"directory" description:"parent directory of the extracted directories" default:"."`
	Args      struct {
		Archives []string `positional-arg-name:"archive" description:"local paths or s3:// URIs of the archives" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Archives)
	for i, name := range c.Args.Archives {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, name))
		logger := internal.MustLogger(ctx)
		logger.Printf("start extracting")

		target, err := c.extract(ctx, name)
		if err == nil {
			logger.Printf(`done extracting to "%s"`, target)
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d archives", success, n)
	if success != n {
		return fmt.Errorf("failed to extract %d/%d archives", n-success, n)
	}

	return nil
}

func (c *Extract) extract(ctx context.Context, name string) (string, error) {
	s, err := openArchive(ctx, name)
	if err != nil {
		return "", err
	}
	defer s.Close()

	return internal.Extract(ctx, s, name, c.Directory)
}
