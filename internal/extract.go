package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyengg/xyarc/archive"
	"github.com/nguyengg/xyarc/util"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// Extract extracts all entries of the given archive into a new directory under dir.
//
// The new directory is named after the stem of the archive's name (see util.MkExclDir). If all entries share a common
// root directory, that root is stripped so that extracting "test.zip" whose entries are all under "test/" produces
// "test/a.txt" rather than "test/test/a.txt". The directory is removed if extraction fails.
//
// The context must have a logger attached by WithPrefixLogger.
func Extract(ctx context.Context, s *archive.Seekable, name, dir string) (target string, err error) {
	logger := MustLogger(ctx)

	// the first pass only decodes headers to compute the root dir and total size. the second pass then seeks back to
	// each entry to stream its payload.
	var (
		entries []*archive.Entry
		total   int64
		rootDir RootDir
		hasRoot = true
		finder  = NewRootDirFinder()
	)
	for e, err := range s.Entries() {
		if err != nil {
			return "", fmt.Errorf("list entries error: %w", err)
		}

		entries = append(entries, e)
		if hasRoot {
			rootDir, hasRoot = finder(e.Name())
		}
		if total >= 0 && e.Mode().IsRegular() {
			if e.Size() < 0 {
				total = -1
			} else {
				total += e.Size()
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
	}

	base := path.Base(toSlash(name))
	stem, _ := util.StemAndExt(base)
	if target, err = util.MkExclDir(dir, stem, 0755); err != nil {
		return "", fmt.Errorf("create output directory error: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(target)
		}
	}()

	bar := NewBytesBar(total, "extracting", base)
	defer bar.Close()

	sometimes := rate.Sometimes{Interval: 5 * time.Second}
	buf := make([]byte, 32*1024)
	n := len(entries)

	for i, e := range entries {
		rel := rootDir.Trim(e.Name())
		if rel == "" {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return "", fmt.Errorf(`entry "%s" would be extracted outside of "%s"`, e.Name(), target)
		}

		rel = path.Clean(rel)
		if err = checkParents(target, rel); err != nil {
			return "", fmt.Errorf(`entry "%s" would be extracted through a symlink: %w`, e.Name(), err)
		}

		p := filepath.Join(target, filepath.FromSlash(rel))

		switch mode := e.Mode(); {
		case mode.IsDir():
			if err = os.MkdirAll(p, 0755); err != nil {
				return "", fmt.Errorf(`create directory "%s" error: %w`, p, err)
			}
		case mode&fs.ModeSymlink != 0:
			if err = extractSymlink(s, e, rel, p); err != nil {
				return "", err
			}
		case mode.IsRegular():
			if err = extractFile(ctx, s, e, p, bar, buf); err != nil {
				return "", err
			}
		default:
			logger.Printf(`skip "%s" of unsupported type %s`, e.Name(), mode.Type())
		}

		sometimes.Do(func() {
			logger.Printf("extracted %d/%d entries so far", i+1, n)
		})
	}

	success = true
	return target, nil
}

func extractFile(ctx context.Context, s *archive.Seekable, e *archive.Entry, p string, bar *progressbar.ProgressBar, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf(`create path to file "%s" error: %w`, p, err)
	}

	r, err := s.Stream(e)
	if err != nil {
		return err
	}
	defer r.Close()

	perm := e.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	w, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0200)
	if err != nil {
		return fmt.Errorf(`create file "%s" error: %w`, p, err)
	}

	_, err = util.CopyBufferWithContext(ctx, io.MultiWriter(w, bar), r, buf)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf(`write to file "%s" error: %w`, p, err)
	}

	if mtime := e.ModTime(); !mtime.IsZero() {
		if err = os.Chtimes(p, time.Time{}, mtime); err != nil {
			return fmt.Errorf(`change mod time of "%s" error: %w`, p, err)
		}
	}

	return nil
}

// extractSymlink creates the symlink described by e at p, rel being p relative to the output directory.
//
// The link must point inside the output directory. Zip archives store the link target as the payload instead of in
// the header.
func extractSymlink(s *archive.Seekable, e *archive.Entry, rel, p string) error {
	linkname := e.Linkname()
	if linkname == "" {
		data, err := s.Read(e)
		if err != nil {
			return err
		}

		linkname = string(data)
	}

	if filepath.IsAbs(linkname) || path.IsAbs(toSlash(linkname)) ||
		!filepath.IsLocal(filepath.FromSlash(path.Join(path.Dir(rel), toSlash(linkname)))) {
		return fmt.Errorf(`symlink "%s" points outside of the output directory: "%s"`, e.Name(), linkname)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf(`create path to symlink "%s" error: %w`, p, err)
	}

	if err := os.Symlink(linkname, p); err != nil {
		return fmt.Errorf(`create symlink "%s" error: %w`, p, err)
	}

	return nil
}

// checkParents returns an error if any existing parent directory of rel under target is a symlink.
//
// Entries are never written through symlinks so that an earlier entry can't redirect a later one.
func checkParents(target, rel string) error {
	dir := target
	for _, name := range strings.Split(path.Dir(rel), "/") {
		if name == "." {
			continue
		}

		dir = filepath.Join(dir, name)
		switch fi, err := os.Lstat(dir); {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			return err
		case fi.Mode()&fs.ModeSymlink != 0:
			return fmt.Errorf(`"%s" is a symlink`, dir)
		}
	}

	return nil
}
