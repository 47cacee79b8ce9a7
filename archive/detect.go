package archive

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/mholt/archives"
	"github.com/nguyengg/xyarc/codec"
)

// shortExts are the single-extension aliases of filtered tarballs.
var shortExts = map[string][2]string{
	".tgz":  {"tar", "gzip"},
	".taz":  {"tar", "gzip"},
	".tbz":  {"tar", "bzip2"},
	".tbz2": {"tar", "bzip2"},
	".txz":  {"tar", "xz"},
	".tzst": {"tar", "zstd"},
	".jar":  {"zip", codec.None},
}

// splitExt returns the format and filter implied by the extension(s) of the given file name.
//
// The returned format is empty if the name does not look like a supported archive. The returned filter is codec.None
// if there is no compression extension.
func splitExt(name string) (format, filter string) {
	name = strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))

	for ext, v := range shortExts {
		if strings.HasSuffix(name, ext) {
			return v[0], v[1]
		}
	}

	filter = codec.None
	if c, ok := codec.FromExt(path.Ext(name)); ok {
		filter = c.Name()
		name = strings.TrimSuffix(name, c.Ext())
	}

	for _, f := range formats {
		if f.ext != "" && strings.HasSuffix(name, f.ext) {
			return f.name, filter
		}
	}

	return "", filter
}

// IsArchiveName returns the name of the archive format implied by the given file name, or the empty string if the
// name does not look like a supported archive.
//
// For example, "foo.tar.gz" returns "tar", "foo.zip" returns "zip", and "foo.txt.gz" returns "".
func IsArchiveName(name string) string {
	format, _ := splitExt(name)
	return format
}

// IsArchive returns true if the named file can be opened with the given format (use "" to auto-detect) and has at
// least one readable entry.
func IsArchive(name, format string) bool {
	c, err := OpenCursor(name, func(opts *Options) {
		opts.Format = format
		opts.Logger = discardLogger
	})
	if err != nil {
		return false
	}
	defer c.Close()

	_, err = c.Next()
	return err == nil
}

// identify runs format detection on the given stream.
//
// The returned io.Reader replays the bytes consumed during detection and must be used in place of r. ok is false if
// no known format or compression matches.
func identify(r io.Reader) (format, filter string, rr io.Reader, ok bool, err error) {
	f, rr, err := archives.Identify(context.Background(), "", r)
	switch {
	case errors.Is(err, archives.NoMatch):
		return "", codec.None, rr, false, nil
	case err != nil:
		return "", "", rr, false, err
	}

	format, filter = splitExt("archive" + f.Extension())
	return format, filter, rr, true, nil
}

// GuessFormat returns the format and filter implied by the given file name.
//
// The format is empty if the name does not look like a supported archive; the filter is codec.None if there is no
// compression extension. Writers have no auto-detection, so this is how a format is picked from an output name.
func GuessFormat(name string) (format, filter string) {
	return splitExt(name)
}
