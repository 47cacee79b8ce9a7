package archive

import (
	"fmt"
	"os"
	"time"
)

// Compression is the compression method of entries written by ZipFile.
type Compression int

const (
	// ZipStored writes entries without compression.
	ZipStored Compression = iota
	// ZipDeflated writes entries with Deflate.
	ZipDeflated
)

// ZipEntry is a view over an Entry using the field names of Python's zipfile.ZipInfo.
type ZipEntry struct {
	e *Entry
}

// Entry returns the underlying Entry.
func (z ZipEntry) Entry() *Entry {
	return z.e
}

// Filename returns the entry's name.
func (z ZipEntry) Filename() string {
	return z.e.Name()
}

// FileSize returns the entry's uncompressed size.
func (z ZipEntry) FileSize() int64 {
	return z.e.Size()
}

// DateTime returns year, month, day, hour, minute, and second of the entry's modification time in local time.
func (z ZipEntry) DateTime() [6]int {
	t := z.e.ModTime().In(time.Local)
	return [6]int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
}

// ZipFile is a Seekable restricted to the zip format with an API similar to Python's zipfile.ZipFile.
type ZipFile struct {
	s *Seekable
}

func zipOptFns(mode Mode, compression Compression) (func(*Options), error) {
	var method string
	switch compression {
	case ZipStored:
		method = "store"
	case ZipDeflated:
		method = "deflate"
	default:
		return nil, fmt.Errorf("unknown zip compression %d", compression)
	}

	return func(opts *Options) {
		opts.Mode = mode
		opts.Format = "zip"
		opts.Filter = ""
		if mode == ModeWrite {
			opts.FormatOptions = map[string]string{"compression": method}
		}
	}, nil
}

// OpenZip opens the named zip file. The compression method only applies to ModeWrite.
func OpenZip(name string, mode Mode, compression Compression) (*ZipFile, error) {
	fn, err := zipOptFns(mode, compression)
	if err != nil {
		return nil, err
	}

	s, err := Open(name, fn)
	if err != nil {
		return nil, err
	}

	return &ZipFile{s: s}, nil
}

// NewZip returns a ZipFile over an already-open resource. The caller retains ownership of f.
func NewZip(f File, mode Mode, compression Compression) (*ZipFile, error) {
	fn, err := zipOptFns(mode, compression)
	if err != nil {
		return nil, err
	}

	s, err := New(f, fn)
	if err != nil {
		return nil, err
	}

	return &ZipFile{s: s}, nil
}

// IsZipFile returns true if the named file is a readable zip archive.
func IsZipFile(name string) bool {
	return IsArchive(name, "zip")
}

// Infolist returns all entries in archive order.
func (z *ZipFile) Infolist() ([]ZipEntry, error) {
	var entries []ZipEntry
	for e, err := range z.s.Entries() {
		if err != nil {
			return nil, err
		}

		entries = append(entries, ZipEntry{e})
	}

	return entries, nil
}

// Namelist returns the names of all entries in archive order.
func (z *ZipFile) Namelist() ([]string, error) {
	var names []string
	for e, err := range z.s.Entries() {
		if err != nil {
			return nil, err
		}

		names = append(names, e.Name())
	}

	return names, nil
}

// GetInfo returns the entry with the given name.
func (z *ZipFile) GetInfo(name string) (ZipEntry, error) {
	e, err := z.s.Entry(name)
	if err != nil {
		return ZipEntry{}, err
	}

	return ZipEntry{e}, nil
}

// Read returns the full payload of the entry with the given name.
func (z *ZipFile) Read(name string) ([]byte, error) {
	return z.s.Read(Name(name))
}

// Open returns an EntryReader over the payload of the entry with the given name.
func (z *ZipFile) Open(name string) (*EntryReader, error) {
	return z.s.Stream(Name(name))
}

// WriteStr adds an entry with the given name and payload, timestamped now.
func (z *ZipFile) WriteStr(name string, data []byte) error {
	return z.s.Write(NewHeader(name), data)
}

// WritePath adds the file at path as an entry named arcname, or path itself if arcname is empty.
func (z *ZipFile) WritePath(path, arcname string) error {
	if arcname == "" {
		return z.s.WritePath(nil, path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf(`stat file "%s" error: %w`, path, err)
	}

	return z.s.WritePath(HeaderFromFileInfo(arcname, fi), path)
}

// Close closes the underlying Seekable.
func (z *ZipFile) Close() error {
	return z.s.Close()
}
