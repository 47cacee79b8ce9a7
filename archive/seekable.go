package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

// Member identifies an entry of a Seekable: either a Name or an *Entry returned by the same Seekable.
type Member interface {
	resolve(s *Seekable) (*Entry, error)
}

// Name is a Member that resolves to the first entry with that name.
type Name string

func (n Name) resolve(s *Seekable) (*Entry, error) {
	return s.Entry(string(n))
}

func (e *Entry) resolve(_ *Seekable) (*Entry, error) {
	if e == nil {
		return nil, newError("resolve", "", ErrNotFound, errors.New("nil entry"))
	}

	return e, nil
}

// stream is either an *EntryReader or *EntryWriter.
type stream interface {
	io.Closer
	Done() bool
}

// Seekable provides random access to the entries of an archive on top of a forward-only Cursor.
//
// Entries are remembered in the order the Cursor decodes them. Moving forward reuses the open Cursor while moving
// backward reopens the archive from the start, so reading entries in their natural order is cheapest. Only the headers
// are remembered; payloads are always decoded again.
//
// At most one EntryReader or EntryWriter may be in use at a time. Seekable is not safe for concurrent use.
type Seekable struct {
	name   string
	f      File
	owned  bool
	optFns []func(*Options)
	mode   Mode
	pinned bool

	c         *Cursor
	entries   []*Entry
	exhausted bool
	active    stream
	closed    bool
}

// Open opens the named file and returns a Seekable over it.
//
// The Seekable owns the file and will close it upon Seekable.Close. In ModeWrite, the file is created or truncated.
func Open(name string, optFns ...func(*Options)) (*Seekable, error) {
	opts := newOptions(optFns)
	if _, _, err := lookup(opts); err != nil {
		return nil, err
	}

	var (
		file *os.File
		err  error
	)
	if opts.Mode == ModeWrite {
		file, err = os.Create(name)
	} else {
		file, err = os.Open(name)
	}
	if err != nil {
		return nil, newError("open", name, ErrOpenFailed, err)
	}

	s := &Seekable{name: name, f: file, owned: true, optFns: optFns, mode: opts.Mode}
	if s.c, err = s.open(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return s, nil
}

// New returns a Seekable over an already-open resource.
//
// In ModeRead, f is rewound to offset 0, and so will it be every time the archive must be reopened. The caller retains
// ownership of f: Seekable.Close will not close it.
func New(f File, optFns ...func(*Options)) (*Seekable, error) {
	opts := newOptions(optFns)
	if _, _, err := lookup(opts); err != nil {
		return nil, err
	}

	if opts.Mode == ModeRead {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, newError("open", nameOf(f), ErrOpenFailed, err)
		}
	}

	s := &Seekable{name: nameOf(f), f: f, optFns: optFns, mode: opts.Mode}

	var err error
	if s.c, err = s.open(); err != nil {
		return nil, err
	}

	return s, nil
}

// open creates a new Cursor over s.f which the Cursor never owns.
func (s *Seekable) open() (*Cursor, error) {
	c, err := NewCursor(s.f, s.optFns...)
	if err != nil {
		return nil, err
	}

	// pins the detected format and filter so that reopening skips detection.
	if s.mode == ModeRead && !s.pinned {
		s.pinned = true
		format, filter := c.Format(), c.Filter()
		s.optFns = append(s.optFns[:len(s.optFns):len(s.optFns)], func(opts *Options) {
			opts.Format = format
			opts.Filter = filter
		})
	}

	return c, nil
}

// Format returns the name of the archive format.
func (s *Seekable) Format() string {
	return s.c.Format()
}

// Filter returns the name of the compression filter.
func (s *Seekable) Filter() string {
	return s.c.Filter()
}

// Entries returns an iterator over all entries of the archive in their natural order.
//
// Entries found by previous iterations are yielded first, then the rest are decoded from the archive. The iterator
// stops after the first error. The payload of each yielded entry may be read inside the loop body.
func (s *Seekable) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		if err := s.check("list entries", ModeRead); err != nil {
			yield(nil, err)
			return
		}

		for i := 0; ; {
			if i < len(s.entries) {
				if !yield(s.entries[i], nil) {
					return
				}

				i++
				continue
			}

			if s.exhausted {
				return
			}

			if err := s.checkStream("list entries", ""); err != nil {
				yield(nil, err)
				return
			}

			// the live cursor must sit on the last known entry for the next header to be a new one.
			if i > 0 {
				if _, err := s.moveTo(s.entries[i-1], false); err != nil {
					yield(nil, err)
					return
				}
			}

			switch _, err := s.advance(); {
			case err == io.EOF:
				return
			case err != nil:
				yield(nil, err)
				return
			}
		}
	}
}

// Entry returns the first entry with the given name.
//
// ErrNotFound is returned if no entry matches.
func (s *Seekable) Entry(name string) (*Entry, error) {
	for e, err := range s.Entries() {
		if err != nil {
			return nil, err
		}

		if e.Name() == name {
			return e, nil
		}
	}

	return nil, newError("get entry", name, ErrNotFound, nil)
}

// Seek positions the archive so that the given entry's payload can be read from the start.
//
// Seeking to an entry found before the current one reopens the archive.
func (s *Seekable) Seek(e *Entry) error {
	if err := s.check("seek", ModeRead); err != nil {
		return err
	}

	e, err := e.resolve(s)
	if err != nil {
		return err
	}
	if err = s.checkStream("seek", e.Name()); err != nil {
		return err
	}

	_, err = s.moveTo(e, true)
	return err
}

// Read returns the full payload of the given member.
func (s *Seekable) Read(m Member) ([]byte, error) {
	r, err := s.Stream(m)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Stream returns an EntryReader over the payload of the given member.
//
// The EntryReader must be closed or read to completion before the archive can be used again.
func (s *Seekable) Stream(m Member) (*EntryReader, error) {
	if err := s.check("stream", ModeRead); err != nil {
		return nil, err
	}
	if err := s.checkStream("stream", ""); err != nil {
		return nil, err
	}

	e, err := m.resolve(s)
	if err != nil {
		return nil, err
	}

	if _, err = s.moveTo(e, true); err != nil {
		return nil, err
	}

	r, err := s.c.Stream()
	if err != nil {
		return nil, err
	}

	s.active = r
	return r, nil
}

// Copy writes the payload of the given member to dst, returning the number of bytes copied.
func (s *Seekable) Copy(m Member, dst io.Writer) (int64, error) {
	r, err := s.Stream(m)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return io.Copy(dst, r)
}

// ReadPath writes the payload of the given member to a new file at path.
//
// The file gets the entry's permission bits and modification time. An existing file is truncated.
func (s *Seekable) ReadPath(m Member, path string) (err error) {
	r, err := s.Stream(m)
	if err != nil {
		return err
	}
	defer r.Close()

	e := r.Entry()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, e.Mode().Perm()|0200)
	if err != nil {
		return fmt.Errorf(`create file "%s" error: %w`, path, err)
	}

	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf(`write file "%s" error: %w`, path, err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf(`close file "%s" error: %w`, path, err)
	}

	if mtime := e.ModTime(); !mtime.IsZero() {
		if err = os.Chtimes(path, mtime, mtime); err != nil {
			return fmt.Errorf(`set file "%s" times error: %w`, path, err)
		}
	}

	return nil
}

// Write adds a complete entry whose payload is data.
func (s *Seekable) Write(h *Header, data []byte) error {
	if err := s.check("write", ModeWrite); err != nil {
		return err
	}
	if err := s.checkStream("write", h.Name); err != nil {
		return err
	}

	return s.c.Write(h, data)
}

// Create returns an EntryWriter for a new entry.
//
// The EntryWriter must be closed before the archive can be used again.
func (s *Seekable) Create(h *Header) (*EntryWriter, error) {
	if err := s.check("create", ModeWrite); err != nil {
		return nil, err
	}
	if err := s.checkStream("create", h.Name); err != nil {
		return nil, err
	}

	w, err := s.c.Create(h)
	if err != nil {
		return nil, err
	}

	s.active = w
	return w, nil
}

// WritePath adds the file at path as a new entry.
//
// If h is nil, the header is derived from the file using path as the entry's name. Otherwise, h.Size is replaced by
// the size of the file, and an empty Name, zero Mode, or zero ModTime is taken from the file as well.
func (s *Seekable) WritePath(h *Header, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf(`open file "%s" error: %w`, path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf(`stat file "%s" error: %w`, path, err)
	}

	hdr := HeaderFromFileInfo(filepath.ToSlash(path), fi)
	if h != nil {
		// zero fields of h fall back to the file's own metadata.
		stat := hdr
		hdr = &Header{Name: h.Name, Size: stat.Size, ModTime: h.ModTime, Mode: h.Mode, Linkname: h.Linkname}
		if hdr.Name == "" {
			hdr.Name = stat.Name
		}
		if hdr.Mode == 0 {
			hdr.Mode = stat.Mode
		}
		if hdr.ModTime.IsZero() {
			hdr.ModTime = stat.ModTime
		}
	}

	if !fi.Mode().IsRegular() {
		return s.Write(hdr, nil)
	}

	w, err := s.Create(hdr)
	if err != nil {
		return err
	}

	if _, err = io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf(`copy file "%s" error: %w`, path, err)
	}

	return w.Close()
}

// Close closes the archive. It is idempotent.
//
// A still-open EntryWriter is closed first so that its entry is not lost. The backing file is closed only if it was
// opened by Open.
func (s *Seekable) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.active != nil && !s.active.Done() {
		err = s.active.Close()
	}

	if cerr := s.c.Close(); err == nil {
		err = cerr
	}

	if s.owned {
		if cerr := s.closeFile(); err == nil {
			err = cerr
		}
	}

	return err
}

func (s *Seekable) closeFile() error {
	if closer, ok := s.f.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// advance decodes the next header, remembering the entry if it has not been seen before.
//
// Every header the live cursor decodes goes through advance so that s.entries is always a prefix of the archive's
// entries.
func (s *Seekable) advance() (*Entry, error) {
	e, err := s.c.Next()
	if err != nil {
		if err == io.EOF {
			s.exhausted = true
		}

		return nil, err
	}

	if e.HeaderPosition() == int64(len(s.entries)) {
		s.entries = append(s.entries, e)
	}

	return e, nil
}

// moveTo makes target the current entry of the live cursor, reopening the archive if necessary.
//
// If fresh is true, a current entry whose payload has been partially consumed is reopened as well.
func (s *Seekable) moveTo(target *Entry, fresh bool) (*Entry, error) {
	hpos := target.HeaderPosition()

	c := s.c
	if cur := c.Entry(); cur != nil && c.Position() == hpos && !(fresh && c.touched()) {
		return cur, s.verify(cur, target)
	}

	if c.Position() >= hpos || c.eof || c.fatal != nil {
		if err := s.reopen(); err != nil {
			return nil, err
		}
	}

	for {
		e, err := s.advance()
		if err == io.EOF {
			return nil, newError("seek", target.Name(), ErrNotFound, fmt.Errorf("archive has fewer than %d entries", hpos+1))
		}
		if err != nil {
			return nil, err
		}

		if e.HeaderPosition() == hpos {
			return e, s.verify(e, target)
		}
	}
}

func (s *Seekable) verify(e, target *Entry) error {
	if e.Name() != target.Name() {
		return newError("seek", target.Name(), ErrNotFound, fmt.Errorf(`found "%s" at its position instead`, e.Name()))
	}

	return nil
}

// reopen replaces the live cursor with a fresh one at the start of the archive.
//
// If that fails, the Seekable is closed since it cannot be used anymore.
func (s *Seekable) reopen() (err error) {
	if err = s.c.Close(); err != nil {
		s.c.opts.Logger.Printf(`warning: close archive "%s" before reopening error: %v`, s.name, err)
	}

	defer func() {
		if err != nil {
			s.closed = true
			if s.owned {
				_ = s.closeFile()
			}
		}
	}()

	if _, err = s.f.Seek(0, io.SeekStart); err != nil {
		return newError("reopen", s.name, ErrOpenFailed, err)
	}

	c, err := s.open()
	if err != nil {
		return err
	}

	s.c = c
	return nil
}

func (s *Seekable) check(op string, mode Mode) error {
	if s.closed {
		return newError(op, s.name, ErrClosed, nil)
	}
	if s.mode != mode {
		return newError(op, s.name, ErrInvalidMode, fmt.Errorf("archive is opened in mode %q", s.mode))
	}

	return nil
}

func (s *Seekable) checkStream(op, name string) error {
	if s.active == nil || s.active.Done() {
		s.active = nil
		return nil
	}

	return newError(op, name, ErrStreamStillOpen, errors.New("close or drain the previous stream first"))
}
