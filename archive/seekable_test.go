package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekable_HelloBye(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "tar", path: func(t *testing.T) string { return writeTestArchive(t, "test.tar", "tar", "", helloBye...) }},
		{name: "tar.gz", path: func(t *testing.T) string { return writeStdTarGz(t, helloBye...) }},
		{name: "tar.xz", path: func(t *testing.T) string { return writeTestArchive(t, "test.tar.xz", "tar", "xz", helloBye...) }},
		{name: "zip", path: func(t *testing.T) string { return writeTestArchive(t, "test.zip", "zip", "", helloBye...) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.path(t))
			require.NoError(t, err)
			defer s.Close()

			e, err := s.Entry("b.txt")
			require.NoError(t, err)
			assert.Equal(t, "b.txt", e.Name())
			assert.Equal(t, int64(3), e.Size())

			data, err := s.Read(Name("b.txt"))
			require.NoError(t, err)
			assert.Equal(t, "bye", string(data))

			// backward.
			data, err = s.Read(Name("a.txt"))
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			var names []string
			for e, err := range s.Entries() {
				require.NoError(t, err)
				names = append(names, e.Name())
			}
			assert.Equal(t, []string{"a.txt", "b.txt"}, names)
		})
	}
}

func testEntries(n int) []testEntry {
	entries := make([]testEntry, n)
	for i := range entries {
		entries[i] = testEntry{
			name: fmt.Sprintf("dir/file-%02d.txt", i),
			data: string(bytes.Repeat([]byte{byte('a' + i)}, 100*(i+1))),
		}
	}

	return entries
}

func TestSeekable_RandomAccess(t *testing.T) {
	entries := testEntries(8)
	path := writeTestArchive(t, "test.tar.gz", "tar", "gzip", entries...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, i := range []int{3, 1, 7, 7, 0, 5, 2, 6, 4, 0, 1} {
		data, err := s.Read(Name(entries[i].name))
		require.NoErrorf(t, err, "Read(%s) error = %v", entries[i].name, err)
		assert.Equalf(t, entries[i].data, string(data), "Read(%s) mismatch", entries[i].name)
	}
}

func TestSeekable_OrderPreservation(t *testing.T) {
	entries := testEntries(5)
	path := writeTestArchive(t, "test.zip", "zip", "", entries...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	collect := func() (got []*Entry) {
		for e, err := range s.Entries() {
			require.NoError(t, err)
			got = append(got, e)
		}
		return
	}

	// stop the first pass early so that the second pass mixes remembered and live entries.
	for _, err := range s.Entries() {
		require.NoError(t, err)
		break
	}

	first := collect()
	second := collect()
	require.Len(t, first, len(entries))
	assert.Equal(t, first, second)
	for i, e := range first {
		assert.Same(t, e, second[i])
		assert.Equal(t, int64(i), e.HeaderPosition())
		assert.Equal(t, entries[i].name, e.Name())
	}
}

func TestSeekable_ReadDuringIteration(t *testing.T) {
	entries := testEntries(4)
	path := writeTestArchive(t, "test.tar", "tar", "", entries...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	i := 0
	for e, err := range s.Entries() {
		require.NoError(t, err)

		data, err := s.Read(e)
		require.NoError(t, err)
		assert.Equal(t, entries[i].data, string(data))
		i++
	}
	assert.Equal(t, len(entries), i)
}

func TestSeekable_Seek(t *testing.T) {
	entries := testEntries(3)
	path := writeTestArchive(t, "test.tar", "tar", "", entries...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	e0, err := s.Entry(entries[0].name)
	require.NoError(t, err)
	e2, err := s.Entry(entries[2].name)
	require.NoError(t, err)

	// equal position with untouched payload is a no-op.
	c := s.c
	require.NoError(t, s.Seek(e2))
	assert.Same(t, c, s.c)

	// backward reopens.
	require.NoError(t, s.Seek(e0))
	assert.NotSame(t, c, s.c)
	assert.Equal(t, int64(0), s.c.Position())

	// partially consumed payload reopens as well so the full payload is returned.
	r, err := s.Stream(e0)
	require.NoError(t, err)
	buf := make([]byte, 10)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := s.Read(e0)
	require.NoError(t, err)
	assert.Equal(t, entries[0].data, string(data))

	// then forward again.
	data, err = s.Read(e2)
	require.NoError(t, err)
	assert.Equal(t, entries[2].data, string(data))
}

func TestSeekable_NotFound(t *testing.T) {
	path := writeTestArchive(t, "test.tar", "tar", "", helloBye...)
	other := writeTestArchive(t, "other.tar", "tar", "", testEntry{"c.txt", "other"}, testEntry{"d.txt", "other"}, testEntry{"e.txt", "other"})

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Read(Name("missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)

	o, err := Open(other)
	require.NoError(t, err)
	defer o.Close()

	// same position, different name.
	c, err := o.Entry("c.txt")
	require.NoError(t, err)
	_, err = s.Read(c)
	assert.ErrorIs(t, err, ErrNotFound)

	// past the last entry.
	e, err := o.Entry("e.txt")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Seek(e), ErrNotFound)

	// still usable.
	data, err := s.Read(Name("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))
}

func TestSeekable_StreamStillOpen(t *testing.T) {
	path := writeTestArchive(t, "test.tar", "tar", "", helloBye...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	r, err := s.Stream(Name("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Remaining())

	buf := make([]byte, 2)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.False(t, r.Done())

	_, err = s.Read(Name("b.txt"))
	assert.ErrorIs(t, err, ErrStreamStillOpen)
	_, err = s.Stream(Name("a.txt"))
	assert.ErrorIs(t, err, ErrStreamStillOpen)
	e, err := s.Entry("a.txt")
	require.NoError(t, err, "remembered entries need no cursor movement")
	assert.ErrorIs(t, s.Seek(e), ErrStreamStillOpen)

	// draining the stream is as good as closing it.
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "llo", string(rest))
	assert.True(t, r.Done())

	data, err := s.Read(Name("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))

	// the old stream is no longer bound to the current entry.
	_, err = r.Read(buf)
	assert.Error(t, err)
}

// flakyFile fails every Seek once broken is set.
type flakyFile struct {
	*os.File
	broken bool
}

func (f *flakyFile) Seek(offset int64, whence int) (int64, error) {
	if f.broken {
		return 0, errors.New("seek is broken")
	}

	return f.File.Seek(offset, whence)
}

func TestSeekable_FailedReopen(t *testing.T) {
	path := writeTestArchive(t, "test.tar", "tar", "", helloBye...)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ff := &flakyFile{File: f}
	s, err := New(ff)
	require.NoError(t, err)

	data, err := s.Read(Name("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))

	ff.broken = true
	_, err = s.Read(Name("a.txt"))
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = s.Read(Name("a.txt"))
	assert.ErrorIs(t, err, ErrClosed)
	for _, err = range s.Entries() {
		assert.ErrorIs(t, err, ErrClosed)
	}

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSeekable_Write(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("from path"), 0600))
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	for _, format := range []string{"tar", "zip"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test."+format)

			s, err := Open(path, func(opts *Options) {
				opts.Mode = ModeWrite
				opts.Format = format
			})
			require.NoError(t, err)

			require.NoError(t, s.Write(NewHeader("a.txt"), []byte("hello")))
			require.NoError(t, s.WritePath(&Header{Name: "renamed.txt", Mode: 0644, ModTime: mtime}, src))

			w, err := s.Create(NewHeader("streamed.txt"))
			require.NoError(t, err)
			_, err = io.WriteString(w, "stream")
			require.NoError(t, err)

			// the writer must be closed first.
			assert.ErrorIs(t, s.Write(NewHeader("b.txt"), nil), ErrStreamStillOpen)

			// the writer is closed by Seekable.Close.
			_, err = s.Read(Name("a.txt"))
			assert.ErrorIs(t, err, ErrInvalidMode)
			require.NoError(t, s.Close())
			assert.NoError(t, s.Close())

			s, err = Open(path)
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, format, s.Format())

			want := map[string]string{"a.txt": "hello", "renamed.txt": "from path", "streamed.txt": "stream"}
			for name, data := range want {
				got, err := s.Read(Name(name))
				require.NoError(t, err)
				assert.Equal(t, data, string(got))
			}

			e, err := s.Entry("renamed.txt")
			require.NoError(t, err)
			assert.True(t, e.ModTime().Equal(mtime), "ModTime() = %v, want %v", e.ModTime(), mtime)

			assert.ErrorIs(t, s.Write(NewHeader("c.txt"), nil), ErrInvalidMode)
		})
	}
}

func TestSeekable_WritePath_Defaults(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("from path"), 0600))
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	for _, format := range []string{"tar", "zip"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test."+format)

			s, err := Open(path, func(opts *Options) {
				opts.Mode = ModeWrite
				opts.Format = format
			})
			require.NoError(t, err)
			require.NoError(t, s.WritePath(&Header{Name: "only-name.txt"}, src))
			require.NoError(t, s.Close())

			s, err = Open(path)
			require.NoError(t, err)
			defer s.Close()

			e, err := s.Entry("only-name.txt")
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), e.Mode().Perm())
			assert.True(t, e.ModTime().Equal(mtime), "ModTime() = %v, want %v", e.ModTime(), mtime)
			assert.Equal(t, int64(len("from path")), e.Size())
		})
	}
}

func TestSeekable_NilEntry(t *testing.T) {
	s, err := Open(writeTestArchive(t, "test.tar", "tar", "", helloBye...))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Read((*Entry)(nil))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Stream((*Entry)(nil))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Seek(nil), ErrNotFound)

	// still usable afterwards.
	data, err := s.Read(Name("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))
}

func TestSeekable_ReadPath(t *testing.T) {
	path := writeTestArchive(t, "test.zip", "zip", "", helloBye...)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	dst := filepath.Join(t.TempDir(), "b.txt")
	require.NoError(t, s.ReadPath(Name("b.txt"), dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))

	var buf bytes.Buffer
	n, err := s.Copy(Name("a.txt"), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", buf.String())
}

func TestNew_CallerOwnsFile(t *testing.T) {
	path := writeTestArchive(t, "test.tar", "tar", "", helloBye...)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	// New rewinds regardless of the current offset.
	_, err = f.Seek(100, io.SeekStart)
	require.NoError(t, err)

	s, err := New(f)
	require.NoError(t, err)

	data, err := s.Read(Name("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))
	require.NoError(t, s.Close())

	_, err = f.Seek(0, io.SeekStart)
	assert.NoError(t, err)
}
