package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file that Loader looks for.
const Name = ".xyarc"

// Loader can be used for loading .xyarc configuration as well as overridden with command-line settings.
type Loader struct {
	// Profile is the AWS profile to use, taking precedence over the profile setting in the [s3] section.
	Profile string

	cfg           *ini.File
	s3clientCache sync.Map
}

// Load will traverse the directory hierarchy upwards to find the first ".xyarc" file available and load its contents
// into the Loader.
//
// The name of the .xyarc file is returned, or an empty string if none was found.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts the search from the given directory instead of the working directory.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(cur, Name)
		fi, err := os.Stat(path)
		if err == nil && !fi.IsDir() {
			if l.cfg, err = ini.Load(path); err != nil {
				l.cfg = ini.Empty()
				return path, err
			}

			return path, nil
		}

		if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}

		cur = parent
	}
}

// LoadProfile is a convenient method to set Loader.Profile then call Load.
func (l *Loader) LoadProfile(ctx context.Context, profile string) (string, error) {
	l.Profile = profile
	return l.Load(ctx)
}

func (l *Loader) section(name string) *ini.Section {
	if l.cfg == nil {
		l.cfg = ini.Empty()
	}

	// GetSection only fails if the section doesn't exist, in which case an empty one is just as good.
	sec, err := l.cfg.GetSection(name)
	if err != nil {
		return ini.Empty().Section(name)
	}

	return sec
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

// LoadProfile calls Loader.LoadProfile on the DefaultLoader instance.
func LoadProfile(ctx context.Context, profile string) (string, error) {
	return DefaultLoader.LoadProfile(ctx, profile)
}
