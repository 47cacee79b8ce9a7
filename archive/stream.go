package archive

import (
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// EntryReader reads the payload of a single entry, bounded by the entry's declared size.
//
// An EntryReader is only valid while its entry is the current entry of the Cursor that created it. Reading after the
// Cursor has moved on returns ErrStreamClosed.
type EntryReader struct {
	c      *Cursor
	e      *Entry
	n      int64
	eof    bool
	closed bool
}

// Entry returns the entry being read.
func (r *EntryReader) Entry() *Entry {
	return r.e
}

// Read implements io.Reader.
//
// If the archive ends before the declared size has been read, Read returns an error wrapping both ErrTruncated and
// io.ErrUnexpectedEOF.
func (r *EntryReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, newError("read", r.e.Name(), ErrStreamClosed, nil)
	}
	if r.c.cur != r.e {
		return 0, newError("read", r.e.Name(), ErrStreamClosed, errors.New("archive has moved past the entry"))
	}
	if r.eof {
		return 0, io.EOF
	}

	size := r.e.Size()
	if size >= 0 {
		remaining := size - r.n
		if remaining <= 0 {
			r.eof = true
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := r.c.ReadPayload(p)
	r.n += int64(n)

	switch {
	case err == io.EOF:
		if size >= 0 && r.n < size {
			return n, newError("read", r.e.Name(), ErrTruncated, io.ErrUnexpectedEOF)
		}

		r.eof = true
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, newError("read", r.e.Name(), ErrTruncated, err)
	}

	return n, err
}

// Remaining returns the number of payload bytes left to read, or SizeUnknown if the entry's size is not known.
func (r *EntryReader) Remaining() int64 {
	if size := r.e.Size(); size >= 0 {
		return size - r.n
	}

	return SizeUnknown
}

// Done returns true if the EntryReader has been closed or its payload has been read to completion.
func (r *EntryReader) Done() bool {
	return r.closed || r.eof || (r.e.Size() >= 0 && r.n >= r.e.Size())
}

// Close marks the EntryReader done. The rest of the payload, if any, is left for the next Cursor.Next to skip over.
func (r *EntryReader) Close() error {
	r.closed = true
	return nil
}

// EntryWriter writes the payload of a single entry.
//
// The entry is finished on Close, which must be called before another entry can be written.
type EntryWriter struct {
	c *Cursor
	h Header
	// buf is non-nil if the header's size was unknown and must be computed from the payload on Close.
	buf    *bytebufferpool.ByteBuffer
	n      int64
	closed bool
}

func newEntryWriter(c *Cursor, h *Header) (*EntryWriter, error) {
	w := &EntryWriter{c: c, h: *h}
	if h.Size < 0 {
		w.buf = bytebufferpool.Get()
		return w, nil
	}

	if err := c.WriteHeader(&w.h); err != nil {
		return nil, err
	}

	return w, nil
}

// Header returns the header of the entry being written.
func (w *EntryWriter) Header() Header {
	return w.h
}

// Write implements io.Writer.
func (w *EntryWriter) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, newError("write", w.h.Name, ErrStreamClosed, nil)
	}

	if w.buf != nil {
		n, err = w.buf.Write(p)
	} else {
		n, err = w.c.WritePayload(p)
	}

	w.n += int64(n)
	return
}

// Done returns true if the EntryWriter has been closed.
func (w *EntryWriter) Done() bool {
	return w.closed
}

// Close finishes the entry. It is idempotent.
func (w *EntryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if buf := w.buf; buf != nil {
		w.buf = nil
		defer bytebufferpool.Put(buf)

		w.h.Size = int64(buf.Len())
		if err := w.c.WriteHeader(&w.h); err != nil {
			return err
		}
		if _, err := w.c.WritePayload(buf.B); err != nil {
			return err
		}
	}

	return w.c.FinishEntry()
}
