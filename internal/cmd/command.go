package cmd

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xyarc/internal/config"
)

// Options are the global options shared by all commands.
type Options struct {
	Profile string `short:"p" long:"profile" description:"AWS profile for s3:// archives, overriding the [s3] profile in .xyarc"`
}

// NewParser returns the parser of all xyarc commands.
//
// The .xyarc configuration file is loaded right before the chosen command executes so that Options.Profile can take
// effect.
func NewParser() (*flags.Parser, error) {
	opts := &Options{}

	p := flags.NewNamedParser("xyarc", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	for _, c := range []struct {
		name, alias, description string
		data                     any
	}{
		{"list", "ls", "list the entries of archives", &List{}},
		{"cat", "", "print the payload of named entries to stdout", &Cat{}},
		{"extract", "x", "extract archives into new directories", &Extract{}},
		{"create", "c", "create an archive from files and directories", &Create{}},
	} {
		command, err := p.AddCommand(c.name, c.description, "", c.data)
		if err != nil {
			return nil, err
		}
		if c.alias != "" {
			command.Aliases = []string{c.alias}
		}
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if _, err := config.LoadProfile(context.Background(), opts.Profile); err != nil {
			return fmt.Errorf("load %s error: %w", config.Name, err)
		}

		return command.Execute(args)
	}

	return p, nil
}
