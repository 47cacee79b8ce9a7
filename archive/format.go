package archive

import (
	"io"
	"log"
	"sort"

	"github.com/nguyengg/xyarc/codec"
)

// DefaultBlockSize is the default value for Options.BlockSize.
const DefaultBlockSize = 10240

// Mode is the mode in which an archive is opened.
type Mode int

const (
	// ModeRead opens an existing archive for reading.
	ModeRead Mode = iota
	// ModeWrite creates a new archive.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	default:
		return "?"
	}
}

// Options customises OpenCursor, NewCursor, Open, and New.
type Options struct {
	// Mode is either ModeRead (default) or ModeWrite.
	Mode Mode

	// Format is the archive format such as "tar" or "zip".
	//
	// By default, the empty string will auto-detect the format when reading. Writing requires an explicit format.
	Format string

	// Filter is the compression filter such as "gzip" or "zstd".
	//
	// By default, the empty string will auto-detect the filter when reading, and write without compression.
	Filter string

	// BlockSize is the size of the buffer placed between the backing resource and the codec.
	//
	// It is advisory; codecs may read or write in different sizes. Defaults to DefaultBlockSize.
	BlockSize int

	// FormatOptions are passed to both the format and the filter when writing.
	//
	// For example, {"compression": "store"} disables compression for zip while {"compression-level": "6"} sets the
	// gzip, bzip2, or zstd compression level.
	FormatOptions map[string]string

	// Logger receives the non-fatal warnings reported by the format drivers.
	//
	// Defaults to log.Default.
	Logger *log.Logger
}

func newOptions(optFns []func(*Options)) *Options {
	opts := &Options{
		BlockSize: DefaultBlockSize,
		Logger:    log.Default(),
	}
	for _, fn := range optFns {
		fn(opts)
	}

	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return opts
}

// reader is the decoding half of a format driver.
type reader interface {
	// Next decodes the next header, returning io.EOF if there are no more entries.
	//
	// A *Warning error may be returned alongside a valid header.
	Next() (*Header, error)
	// Read reads the payload of the entry returned by the last Next.
	Read(p []byte) (int, error)
	Close() error
}

// writer is the encoding half of a format driver.
type writer interface {
	WriteHeader(h *Header) error
	Write(p []byte) (int, error)
	FinishEntry() error
	// Close writes the archive trailer but must not close the underlying io.Writer.
	Close() error
}

// source is what format drivers read from.
type source struct {
	// r is the decoded stream, positioned at the start of the archive.
	r io.Reader
	// ra is the raw resource; it is nil if the archive is filtered because random access into a compressed stream is
	// not possible.
	ra io.ReaderAt
	// size is the size of ra.
	size int64
}

// format is an entry of the format table.
type format struct {
	name string
	// ext is the file name extension without any filter extension.
	ext string
	// sizeUpfront is true if headers must declare the payload size before the payload is written.
	sizeUpfront bool

	newReader func(src *source) (reader, error)
	// newWriter is nil if the format is read-only.
	newWriter func(dst io.Writer, opts map[string]string) (writer, error)
}

// formatAll is the name of the format that auto-detects any other format when reading.
const formatAll = ""

var formats = map[string]*format{
	formatAll: {name: formatAll},
	"tar":     {name: "tar", ext: ".tar", sizeUpfront: true, newReader: newTarReader, newWriter: newTarWriter},
	"zip":     {name: "zip", ext: ".zip", newReader: newZipReader, newWriter: newZipWriter},
	"rar":     {name: "rar", ext: ".rar", newReader: newRarReader},
	"7z":      {name: "7z", ext: ".7z", newReader: newSevenZipReader},
}

// Formats returns the sorted names of all supported formats, excluding auto-detection.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		if name != formatAll {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

// lookup validates the requested format and filter against the mode.
//
// A nil codec.Codec is returned when the filter must be auto-detected.
func lookup(opts *Options) (*format, codec.Codec, error) {
	f, ok := formats[opts.Format]
	if !ok {
		return nil, nil, newError("open", opts.Format, ErrUnsupportedFormat, nil)
	}

	var c codec.Codec
	switch {
	case opts.Filter != "":
		if c, ok = codec.Lookup(opts.Filter); !ok {
			return nil, nil, newError("open", opts.Filter, ErrUnsupportedFilter, nil)
		}
	case opts.Mode == ModeWrite:
		c, _ = codec.Lookup(codec.None)
	}

	switch opts.Mode {
	case ModeRead:
	case ModeWrite:
		if f.newWriter == nil {
			return nil, nil, newError("open", opts.Format, ErrCannotWrite, nil)
		}
	default:
		return nil, nil, newError("open", opts.Mode.String(), ErrInvalidMode, nil)
	}

	return f, c, nil
}
