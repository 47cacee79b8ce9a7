package internal

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nguyengg/xyarc/archive"
)

// Create adds the named files and directories to the archive.
//
// Directories are walked recursively. Entry names are relative to the parent of each argument, so "path/to/dir" is
// archived as "dir/...".
//
// The context must have a logger attached by WithPrefixLogger.
func Create(ctx context.Context, s *archive.Seekable, files []string) error {
	logger := MustLogger(ctx)

	for _, file := range files {
		parent := filepath.Dir(filepath.Clean(file))

		if err := filepath.WalkDir(file, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rel, err := filepath.Rel(parent, p)
			if err != nil {
				return err
			}

			fi, err := d.Info()
			if err != nil {
				return fmt.Errorf(`stat file "%s" error: %w`, p, err)
			}

			name := filepath.ToSlash(rel)

			switch mode := fi.Mode(); {
			case mode.IsRegular():
				return s.WritePath(archive.HeaderFromFileInfo(name, fi), p)
			case mode.IsDir():
				return s.Write(archive.HeaderFromFileInfo(name, fi), nil)
			case mode&fs.ModeSymlink != 0:
				return addSymlink(s, name, p, fi)
			default:
				logger.Printf(`skip "%s" of unsupported type %s`, p, mode.Type())
				return nil
			}
		}); err != nil {
			return fmt.Errorf(`add "%s" error: %w`, file, err)
		}
	}

	return nil
}

// addSymlink writes the symlink at p as an entry.
//
// Tar stores the link target in the header; zip stores it as the payload.
func addSymlink(s *archive.Seekable, name, p string, fi os.FileInfo) error {
	linkname, err := os.Readlink(p)
	if err != nil {
		return fmt.Errorf(`read symlink "%s" error: %w`, p, err)
	}

	h := archive.HeaderFromFileInfo(name, fi)
	if s.Format() == "tar" {
		h.Linkname = linkname
		return s.Write(h, nil)
	}

	h.Size = int64(len(linkname))
	return s.Write(h, []byte(linkname))
}
