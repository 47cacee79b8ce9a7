package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"os"

	"github.com/nguyengg/xyarc/codec"
	"github.com/nguyengg/xyarc/util"
)

// File is an already-open backing resource such as *os.File.
//
// Cursors in ModeRead need the File to also implement io.Reader, ModeWrite io.Writer. zip and 7z archives make use of
// io.ReaderAt if available. Seeking back to the start is what allows Seekable to reopen an archive.
type File interface {
	io.Seeker
}

type state int

const (
	stateUninitialized state = iota
	stateOpen
	stateClosed
)

var discardLogger = log.New(io.Discard, "", 0)

// Cursor provides forward-only iteration over the entries of an archive and streaming of their payloads.
//
// A Cursor makes exactly one pass over the archive. Use Seekable to access entries in any order.
//
// Cursor is not safe for concurrent use.
type Cursor struct {
	opts   *Options
	format *format
	filter codec.Codec
	name   string

	f     File
	owned bool
	state state

	// closer releases the codec session but never the File.
	closer func() error
	r      reader
	w      writer

	// cur is the current entry, nil if there is none.
	cur *Entry
	// consumed is the number of payload bytes read from or written to cur.
	consumed int64
	// pos is returned by Position.
	pos int64
	// seq is the number of headers decoded or written so far.
	seq   int64
	eof   bool
	fatal error
}

// OpenCursor opens the named file and returns a Cursor over it.
//
// The Cursor owns the file and will close it upon Cursor.Close. In ModeWrite, the file is created or truncated.
func OpenCursor(name string, optFns ...func(*Options)) (*Cursor, error) {
	opts := newOptions(optFns)

	f, c, err := lookup(opts)
	if err != nil {
		return nil, err
	}

	var file *os.File
	if opts.Mode == ModeWrite {
		file, err = os.Create(name)
	} else {
		file, err = os.Open(name)
	}
	if err != nil {
		return nil, newError("open", name, ErrOpenFailed, err)
	}

	cur := &Cursor{opts: opts, format: f, filter: c, name: name, f: file, owned: true}
	if err = cur.open(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return cur, nil
}

// NewCursor returns a Cursor over an already-open resource.
//
// The caller retains ownership of f: Cursor.Close will not close it. Reading or writing starts at the current offset
// of f.
func NewCursor(f File, optFns ...func(*Options)) (*Cursor, error) {
	opts := newOptions(optFns)

	fm, c, err := lookup(opts)
	if err != nil {
		return nil, err
	}

	cur := &Cursor{opts: opts, format: fm, filter: c, name: nameOf(f), f: f}
	if err = cur.open(); err != nil {
		return nil, err
	}

	return cur, nil
}

func nameOf(f File) string {
	if n, ok := f.(interface{ Name() string }); ok {
		return n.Name()
	}

	return ""
}

func (c *Cursor) open() (err error) {
	c.pos = -1

	if c.opts.Mode == ModeWrite {
		err = c.openWrite()
	} else {
		err = c.openRead()
	}
	if err != nil {
		return err
	}

	c.state = stateOpen
	return nil
}

func (c *Cursor) openRead() error {
	r, ok := c.f.(io.Reader)
	if !ok {
		return newError("open", c.name, ErrOpenFailed, errors.New("resource is not readable"))
	}

	start, err := c.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return newError("open", c.name, ErrOpenFailed, err)
	}

	if c.filter == nil {
		_, filter, _, _, err := identify(r)
		if err != nil {
			return newError("open", c.name, ErrOpenFailed, fmt.Errorf("detect filter error: %w", err))
		}
		if _, err = c.f.Seek(start, io.SeekStart); err != nil {
			return newError("open", c.name, ErrOpenFailed, err)
		}

		c.filter, _ = codec.Lookup(filter)
	}

	dec, err := c.filter.NewDecoder(bufio.NewReaderSize(r, c.opts.BlockSize))
	if err != nil {
		return newError("open", c.name, ErrOpenFailed, fmt.Errorf("create %s decoder error: %w", c.filter.Name(), err))
	}

	src := &source{r: dec}
	if c.filter.Name() == codec.None {
		if src.ra, src.size, err = readerAt(c.f, start); err != nil {
			_ = dec.Close()
			return newError("open", c.name, ErrOpenFailed, err)
		}
	}

	if c.format.name == formatAll {
		name, _, rr, ok, err := identify(dec)
		if err == nil && (!ok || name == "") {
			err = errors.New("unrecognized archive format")
		}
		if err != nil {
			_ = dec.Close()
			return newError("open", c.name, ErrOpenFailed, err)
		}

		c.format, src.r = formats[name], rr
	}

	rd, err := c.format.newReader(src)
	switch classify(err) {
	case resultOK:
	case resultWarn:
		if rd != nil {
			c.warn("open", c.name, err)
			break
		}
		fallthrough
	default:
		_ = dec.Close()
		return newError("open", c.name, ErrOpenFailed, err)
	}

	c.r = rd
	c.closer = util.ChainCloser(rd.Close, dec.Close)
	return nil
}

func (c *Cursor) openWrite() error {
	w, ok := c.f.(io.Writer)
	if !ok {
		return newError("open", c.name, ErrOpenFailed, errors.New("resource is not writable"))
	}

	bw := bufio.NewWriterSize(w, c.opts.BlockSize)

	enc, err := c.filter.NewEncoder(bw, c.opts.FormatOptions)
	if err != nil {
		return newError("open", c.name, ErrOpenFailed, fmt.Errorf("create %s encoder error: %w", c.filter.Name(), err))
	}

	wr, err := c.format.newWriter(enc, c.opts.FormatOptions)
	if err != nil {
		_ = enc.Close()
		return newError("open", c.name, ErrOpenFailed, err)
	}

	c.w = wr
	// order matters: the format trailer goes through the encoder which must be flushed before the buffer.
	c.closer = util.ChainCloser(wr.Close, enc.Close, bw.Flush)
	return nil
}

// Format returns the name of the archive format, which is only known after open if auto-detection was requested.
func (c *Cursor) Format() string {
	return c.format.name
}

// Filter returns the name of the compression filter.
func (c *Cursor) Filter() string {
	return c.filter.Name()
}

// Mode returns the mode the Cursor was opened with.
func (c *Cursor) Mode() Mode {
	return c.opts.Mode
}

// Entry returns the current entry, or nil if there is none.
func (c *Cursor) Entry() *Entry {
	return c.cur
}

// Position returns the header position of the current entry.
//
// Before the first header is read, Position returns -1. After Next has returned ErrEndOfEntries, Position returns the
// number of entries in the archive which is past every entry's header position.
func (c *Cursor) Position() int64 {
	return c.pos
}

// touched returns true if some of the current entry's payload has been consumed.
func (c *Cursor) touched() bool {
	return c.consumed > 0
}

// Next advances to the next entry and returns its decoded header.
//
// ErrEndOfEntries (io.EOF) is returned when there are no more entries. Transient decoder errors are retried up to 3
// times before an ErrEntryRead is returned.
func (c *Cursor) Next() (*Entry, error) {
	if err := c.check("next header", ModeRead); err != nil {
		return nil, err
	}
	if c.fatal != nil {
		return nil, c.fatal
	}
	if c.eof {
		return nil, io.EOF
	}

	c.cur, c.consumed = nil, 0

	hdr, err := c.nextHeader()
	if err != nil {
		return nil, err
	}

	c.cur = newEntry(*hdr, c.seq)
	c.pos = c.seq
	c.seq++
	return c.cur, nil
}

func (c *Cursor) nextHeader() (*Header, error) {
	for attempt := 1; ; attempt++ {
		hdr, err := c.r.Next()

		switch classify(err) {
		case resultOK:
			return hdr, nil
		case resultWarn:
			if hdr != nil {
				c.warn("next header", hdr.Name, err)
				return hdr, nil
			}
			return nil, newError("next header", "", ErrEntryRead, err)
		case resultEOF:
			c.eof = true
			c.pos = c.seq
			return nil, io.EOF
		case resultRetry:
			if attempt < maxRetries {
				continue
			}
			return nil, newError("next header", "", ErrEntryRead, fmt.Errorf("giving up after %d attempts: %w", attempt, err))
		case resultFatal:
			c.fatal = newError("next header", "", ErrEntryRead, err)
			return nil, c.fatal
		default:
			return nil, newError("next header", "", ErrEntryRead, err)
		}
	}
}

// Entries returns an iterator over the remaining entries of the archive.
//
// The iterator stops after the first error. Each yielded entry is current until the iterator resumes, so its payload
// may be read with ReadPayload or Stream inside the loop body.
func (c *Cursor) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			e, err := c.Next()
			if err == io.EOF {
				return
			}

			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// ReadPayload reads up to len(p) bytes from the current entry's payload.
//
// io.EOF is returned at the end of the payload. The number of bytes returned is not bounded by the entry's declared
// size; use Stream for that.
func (c *Cursor) ReadPayload(p []byte) (int, error) {
	if err := c.check("read", ModeRead); err != nil {
		return 0, err
	}
	if c.cur == nil {
		return 0, newError("read", "", ErrNoCurrentEntry, nil)
	}
	if c.fatal != nil {
		return 0, c.fatal
	}

	for attempt := 1; ; attempt++ {
		n, err := c.r.Read(p)
		c.consumed += int64(n)

		switch classify(err) {
		case resultOK:
			return n, nil
		case resultEOF:
			return n, io.EOF
		case resultWarn:
			c.warn("read", c.cur.Name(), err)
			return n, nil
		case resultRetry:
			if n == 0 && attempt < maxRetries {
				continue
			}
			if n > 0 {
				return n, nil
			}
			return 0, newError("read", c.cur.Name(), ErrEntryRead, fmt.Errorf("giving up after %d attempts: %w", attempt, err))
		case resultFatal:
			c.fatal = newError("read", c.cur.Name(), ErrEntryRead, err)
			return n, c.fatal
		default:
			return n, newError("read", c.cur.Name(), ErrEntryRead, err)
		}
	}
}

// Stream returns an EntryReader bounded by the current entry's declared size.
func (c *Cursor) Stream() (*EntryReader, error) {
	if err := c.check("read", ModeRead); err != nil {
		return nil, err
	}
	if c.cur == nil {
		return nil, newError("read", "", ErrNoCurrentEntry, nil)
	}

	return &EntryReader{c: c, e: c.cur}, nil
}

// WriteHeader writes the header of a new entry, implicitly finishing the previous one.
//
// Formats such as tar must know the payload size upfront; passing SizeUnknown to them returns ErrHeaderWrite. Use
// Create to write entries whose size is not known in advance.
func (c *Cursor) WriteHeader(h *Header) error {
	if err := c.check("write header", ModeWrite); err != nil {
		return err
	}
	if h.Size < 0 && c.format.sizeUpfront {
		return newError("write header", h.Name, ErrHeaderWrite, fmt.Errorf("%s requires the entry size before the payload", c.format.name))
	}
	if err := c.FinishEntry(); err != nil {
		return err
	}

	if err := c.w.WriteHeader(h); err != nil {
		return newError("write header", h.Name, ErrHeaderWrite, err)
	}

	c.cur, c.consumed = newEntry(*h, c.seq), 0
	c.pos = c.seq
	c.seq++
	return nil
}

// WritePayload writes to the current entry's payload.
func (c *Cursor) WritePayload(p []byte) (int, error) {
	if err := c.check("write", ModeWrite); err != nil {
		return 0, err
	}
	if c.cur == nil {
		return 0, newError("write", "", ErrNoCurrentEntry, nil)
	}

	n, err := c.w.Write(p)
	c.consumed += int64(n)
	if err != nil {
		return n, newError("write", c.cur.Name(), ErrEntryWrite, err)
	}

	return n, nil
}

// FinishEntry completes the current entry. It is a no-op if there is no current entry.
func (c *Cursor) FinishEntry() error {
	if err := c.check("finish entry", ModeWrite); err != nil {
		return err
	}
	if c.cur == nil {
		return nil
	}

	name := c.cur.Name()
	c.cur = nil
	if err := c.w.FinishEntry(); err != nil {
		return newError("finish entry", name, ErrEntryWrite, err)
	}

	return nil
}

// Write writes a complete entry whose payload is data. The header's size is replaced by len(data).
func (c *Cursor) Write(h *Header, data []byte) error {
	hdr := *h
	hdr.Size = int64(len(data))

	if err := c.WriteHeader(&hdr); err != nil {
		return err
	}
	if _, err := c.WritePayload(data); err != nil {
		return err
	}

	return c.FinishEntry()
}

// Create returns an EntryWriter for a new entry.
//
// If h.Size is SizeUnknown, the payload is buffered in memory until EntryWriter.Close so that the header can be
// written with the actual size. Otherwise, the header is written immediately and the payload goes straight to the
// archive.
func (c *Cursor) Create(h *Header) (*EntryWriter, error) {
	if err := c.check("create", ModeWrite); err != nil {
		return nil, err
	}

	return newEntryWriter(c, h)
}

// Close releases the codec session, and the backing file if it was opened by OpenCursor.
//
// In ModeWrite, Close also writes the archive trailer. Close is idempotent; only the first call has any effect.
func (c *Cursor) Close() error {
	if c.state != stateOpen {
		return nil
	}

	c.state = stateClosed
	c.cur = nil

	var err error
	if c.closer != nil {
		err = c.closer()
	}
	if c.owned {
		if closer, ok := c.f.(io.Closer); ok {
			if cerr := closer.Close(); err == nil {
				err = cerr
			}
		}
	}

	if err != nil {
		return fmt.Errorf(`close archive "%s" error: %w`, c.name, err)
	}

	return nil
}

func (c *Cursor) check(op string, mode Mode) error {
	if c.state != stateOpen {
		return newError(op, c.name, ErrClosed, nil)
	}
	if c.opts.Mode != mode {
		return newError(op, c.name, ErrInvalidMode, fmt.Errorf("archive is opened in mode %q", c.opts.Mode))
	}

	return nil
}

func (c *Cursor) warn(op, name string, err error) {
	c.opts.Logger.Printf(`warning: %s "%s": %v`, op, name, err)
}
