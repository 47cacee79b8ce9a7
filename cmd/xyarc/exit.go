//go:build !windows

package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

// exit sets a non-zero exit code unless err is nil or only the help message was printed.
func exit(err error) {
	if err != nil && !flags.WroteHelp(err) {
		os.Exit(1)
	}
}
