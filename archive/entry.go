package archive

import (
	"io/fs"
	"os"
	"path"
	"time"
)

// SizeUnknown is the size of a Header whose payload length is not known yet.
const SizeUnknown int64 = -1

// Header contains the metadata of an entry to be written.
//
// Unlike Entry, Header is a plain value that callers are free to modify before handing it to Cursor.WriteHeader,
// Cursor.Create, or Seekable.Write.
type Header struct {
	// Name is the full name of the entry in the archive using `/` as separator.
	Name string
	// Size is the length of the payload, or SizeUnknown.
	Size int64
	// ModTime is the modification time; only whole seconds are kept.
	ModTime time.Time
	// Mode contains both the file type and permission bits.
	Mode fs.FileMode
	// Linkname is the target of a symbolic link.
	Linkname string
}

// NewHeader returns a Header for a regular file with the given name, unknown size, and current time.
func NewHeader(name string) *Header {
	return &Header{
		Name:    name,
		Size:    SizeUnknown,
		ModTime: time.Now().Truncate(time.Second),
		Mode:    0644,
	}
}

// HeaderFromFileInfo fills a Header from the given os.FileInfo.
//
// If name is empty, fi.Name() is used instead.
func HeaderFromFileInfo(name string, fi os.FileInfo) *Header {
	if name == "" {
		name = fi.Name()
	}

	h := &Header{
		Name:    name,
		Size:    fi.Size(),
		ModTime: fi.ModTime().Truncate(time.Second),
		Mode:    fi.Mode(),
	}
	if !fi.Mode().IsRegular() {
		h.Size = 0
	}

	return h
}

// FileInfo returns an fs.FileInfo describing the header.
func (h *Header) FileInfo() fs.FileInfo {
	return headerFileInfo{*h}
}

// Entry describes one member of an archive as decoded from its header.
//
// Entry is immutable; use Header to get a modifiable copy of its metadata.
type Entry struct {
	hdr  Header
	hpos int64
}

func newEntry(hdr Header, hpos int64) *Entry {
	hdr.ModTime = hdr.ModTime.Truncate(time.Second)
	return &Entry{hdr: hdr, hpos: hpos}
}

// Name returns the full name of the entry in the archive.
func (e *Entry) Name() string {
	return e.hdr.Name
}

// Size returns the declared payload length, which may be SizeUnknown.
func (e *Entry) Size() int64 {
	return e.hdr.Size
}

// ModTime returns the modification time with second granularity.
func (e *Entry) ModTime() time.Time {
	return e.hdr.ModTime
}

// Mode returns the combined file type and permission bits.
func (e *Entry) Mode() fs.FileMode {
	return e.hdr.Mode
}

// Linkname returns the target of a symbolic link entry.
func (e *Entry) Linkname() string {
	return e.hdr.Linkname
}

// HeaderPosition returns the marker identifying where in the archive's forward sequence this entry's header was
// found.
//
// The marker is the zero-based sequence number of the header so it is only meaningful for comparing entries of the
// same archive.
func (e *Entry) HeaderPosition() int64 {
	return e.hpos
}

// Header returns a copy of the entry's metadata.
func (e *Entry) Header() Header {
	return e.hdr
}

// FileInfo returns an fs.FileInfo describing the entry.
func (e *Entry) FileInfo() fs.FileInfo {
	return headerFileInfo{e.hdr}
}

func (e *Entry) String() string {
	return e.hdr.Mode.String() + " " + e.hdr.Name
}

// headerFileInfo implements fs.FileInfo for Header.
type headerFileInfo struct {
	h Header
}

var _ fs.FileInfo = headerFileInfo{}

func (fi headerFileInfo) Name() string {
	return path.Base(fi.h.Name)
}

func (fi headerFileInfo) Size() int64 {
	return fi.h.Size
}

func (fi headerFileInfo) Mode() fs.FileMode {
	return fi.h.Mode
}

func (fi headerFileInfo) ModTime() time.Time {
	return fi.h.ModTime
}

func (fi headerFileInfo) IsDir() bool {
	return fi.h.Mode.IsDir()
}

func (fi headerFileInfo) Sys() any {
	return nil
}
