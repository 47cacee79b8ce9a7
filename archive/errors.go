package archive

import (
	"errors"
	"io"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when the requested format is not registered.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnsupportedFilter is returned when the requested filter is not registered.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrCannotWrite is returned when opening for writing with a format that has no encoder.
	ErrCannotWrite = errors.New("cannot write format")
	// ErrOpenFailed is returned when the format driver rejects the resource.
	ErrOpenFailed = errors.New("open failed")
	// ErrEntryRead is returned when an entry header or payload cannot be decoded.
	ErrEntryRead = errors.New("entry read error")
	// ErrNotFound is returned when no entry matches the requested name.
	ErrNotFound = errors.New("entry not found")
	// ErrHeaderWrite is returned when an entry header cannot be written.
	ErrHeaderWrite = errors.New("header write error")
	// ErrEntryWrite is returned when an entry payload cannot be written or finished.
	ErrEntryWrite = errors.New("entry write error")
	// ErrStreamClosed is returned when using an EntryReader or EntryWriter after it has been closed.
	ErrStreamClosed = errors.New("stream closed")
	// ErrStreamStillOpen is returned when the cursor must move while an entry stream is still in use.
	ErrStreamStillOpen = errors.New("previous entry stream still open")
	// ErrClosed is returned when using a Cursor or Seekable that has been closed.
	ErrClosed = errors.New("archive already closed")
	// ErrTruncated is returned when an entry ends before its declared size.
	ErrTruncated = errors.New("entry truncated")
	// ErrInvalidMode is returned when calling a read method in write mode or vice versa.
	ErrInvalidMode = errors.New("invalid operation for archive mode")
	// ErrNoCurrentEntry is returned when reading or writing payload without a current entry.
	ErrNoCurrentEntry = errors.New("no current entry")
)

// ErrEndOfEntries is returned by Cursor.Next when there are no more entries.
//
// It is io.EOF so that callers can use the usual `err == io.EOF` check; it is never wrapped.
var ErrEndOfEntries = io.EOF

// Error records a failed archive operation.
//
// Kind is always one of the sentinel errors of this package while Err is the underlying cause if any. Both can be
// matched with errors.Is.
type Error struct {
	Op   string
	Name string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Name != "" {
		sb.WriteString(` "` + e.Name + `"`)
	}
	sb.WriteString(" error: ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newError(op, name string, kind, err error) *Error {
	return &Error{Op: op, Name: name, Kind: kind, Err: err}
}
