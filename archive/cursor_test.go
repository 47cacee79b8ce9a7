package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/nguyengg/xyarc/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	name, data string
}

var helloBye = []testEntry{{"a.txt", "hello"}, {"b.txt", "bye"}}

// writeTestArchive creates an archive in a new temporary directory using Cursor.
func writeTestArchive(t *testing.T, name, format, filter string, entries ...testEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	c, err := OpenCursor(path, func(opts *Options) {
		opts.Mode = ModeWrite
		opts.Format = format
		opts.Filter = filter
	})
	require.NoError(t, err)

	for _, e := range entries {
		require.NoError(t, c.Write(NewHeader(e.name), []byte(e.data)))
	}

	require.NoError(t, c.Close())
	return path
}

// writeStdTarGz creates a gzip-compressed tar archive without going through this package.
func writeStdTarGz(t *testing.T, entries ...testEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "std.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Size:     int64(len(e.data)),
			Mode:     0644,
			ModTime:  time.Unix(1700000000, 0),
			Typeflag: tar.TypeReg,
		}))
		_, err = tw.Write([]byte(e.data))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

func readAll(t *testing.T, c *Cursor) map[string]string {
	t.Helper()

	got := make(map[string]string)
	for e, err := range c.Entries() {
		require.NoError(t, err)

		r, err := c.Stream()
		require.NoError(t, err)

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		got[e.Name()] = string(data)
	}

	return got
}

func TestOpenCursor_Errors(t *testing.T) {
	dir := t.TempDir()

	notArchive := filepath.Join(dir, "not-archive.txt")
	require.NoError(t, os.WriteFile(notArchive, []byte("just some text that is no archive"), 0644))

	tests := []struct {
		name    string
		path    string
		mode    Mode
		format  string
		filter  string
		wantErr error
	}{
		{name: "unknown filter", path: filepath.Join(dir, "unknown-filter.zip"), mode: ModeWrite, format: "zip", filter: "unknown", wantErr: ErrUnsupportedFilter},
		{name: "unknown format", path: filepath.Join(dir, "unknown-format.cpio"), mode: ModeWrite, format: "cpio", wantErr: ErrUnsupportedFormat},
		{name: "read-only format", path: filepath.Join(dir, "read-only.rar"), mode: ModeWrite, format: "rar", wantErr: ErrCannotWrite},
		{name: "auto-detect write", path: filepath.Join(dir, "auto-detect"), mode: ModeWrite, wantErr: ErrCannotWrite},
		{name: "missing file", path: filepath.Join(dir, "missing.tar"), mode: ModeRead, format: "tar", wantErr: ErrOpenFailed},
		{name: "not an archive", path: notArchive, mode: ModeRead, wantErr: ErrOpenFailed},
		{name: "zip through filter", path: notArchive, mode: ModeRead, format: "zip", filter: "gzip", wantErr: ErrOpenFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenCursor(tt.path, func(opts *Options) {
				opts.Mode = tt.mode
				opts.Format = tt.format
				opts.Filter = tt.filter
			})
			assert.ErrorIsf(t, err, tt.wantErr, "OpenCursor() error = %v, want %v", err, tt.wantErr)

			if tt.mode == ModeWrite {
				// validation happens before the resource is touched.
				_, err = os.Stat(tt.path)
				assert.Truef(t, os.IsNotExist(err), "file %s must not exist", tt.path)
			}
		})
	}
}

func TestCursor_Next(t *testing.T) {
	tests := []struct {
		name   string
		path   func(t *testing.T) string
		format string
		filter string
	}{
		{name: "tar", path: func(t *testing.T) string { return writeTestArchive(t, "test.tar", "tar", "", helloBye...) }},
		{name: "tar.zst", path: func(t *testing.T) string { return writeTestArchive(t, "test.tar.zst", "tar", "zstd", helloBye...) }},
		{name: "zip", path: func(t *testing.T) string { return writeTestArchive(t, "test.zip", "zip", "", helloBye...) }},
		{name: "explicit tar.gz", path: func(t *testing.T) string { return writeStdTarGz(t, helloBye...) }, format: "tar", filter: "gzip"},
		{name: "detected tar.gz", path: func(t *testing.T) string { return writeStdTarGz(t, helloBye...) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := OpenCursor(tt.path(t), func(opts *Options) {
				opts.Format = tt.format
				opts.Filter = tt.filter
			})
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, int64(-1), c.Position())

			for i, want := range helloBye {
				e, err := c.Next()
				require.NoErrorf(t, err, "Next() error = %v", err)
				assert.Equal(t, want.name, e.Name())
				assert.Equal(t, int64(len(want.data)), e.Size())
				assert.Equal(t, int64(i), e.HeaderPosition())
				assert.Equal(t, int64(i), c.Position())

				buf := make([]byte, 64)
				n, err := c.ReadPayload(buf)
				if err != nil {
					assert.Equal(t, io.EOF, err)
				}
				assert.Equal(t, want.data, string(buf[:n]))
			}

			_, err = c.Next()
			assert.Equal(t, io.EOF, err)
			assert.Equal(t, int64(len(helloBye)), c.Position())
			assert.Nil(t, c.Entry())

			// end-of-entries is sticky.
			_, err = c.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestCursor_CreateUnknownSize(t *testing.T) {
	tests := []struct {
		format, filter string
	}{
		{"tar", ""},
		{"tar", "gzip"},
		{"tar", "xz"},
		{"tar", "bzip2"},
		{"tar", "lz4"},
		{"zip", ""},
	}

	for _, tt := range tests {
		t.Run(tt.format+"+"+tt.filter, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test")

			c, err := OpenCursor(path, func(opts *Options) {
				opts.Mode = ModeWrite
				opts.Format = tt.format
				opts.Filter = tt.filter
			})
			require.NoError(t, err)

			w, err := c.Create(NewHeader("data.txt"))
			require.NoError(t, err)
			_, err = w.Write([]byte("da"))
			require.NoError(t, err)
			_, err = w.Write([]byte("ta"))
			require.NoError(t, err)
			require.NoError(t, w.Close())
			assert.True(t, w.Done())

			_, err = w.Write([]byte("more"))
			assert.ErrorIs(t, err, ErrStreamClosed)
			assert.NoError(t, w.Close())

			require.NoError(t, c.Close())

			c, err = OpenCursor(path)
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.format, c.Format())
			assert.Equal(t, map[string]string{"data.txt": "data"}, readAll(t, c))
		})
	}
}

func TestCursor_CreateKnownSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.tar")

	c, err := OpenCursor(path, func(opts *Options) {
		opts.Mode = ModeWrite
		opts.Format = "tar"
	})
	require.NoError(t, err)

	h := NewHeader("known.txt")
	h.Size = 5
	w, err := c.Create(h)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// the declared size must be honoured.
	h = NewHeader("short.txt")
	h.Size = 5
	w, err = c.Create(h)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hi")
	require.NoError(t, err)
	assert.ErrorIs(t, w.Close(), ErrEntryWrite)

	// the trailer cannot be written after a short entry either.
	assert.Error(t, c.Close())
}

func TestCursor_WriteHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.tar")

	c, err := OpenCursor(path, func(opts *Options) {
		opts.Mode = ModeWrite
		opts.Format = "tar"
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.WriteHeader(NewHeader("unknown-size.txt"))
	assert.ErrorIs(t, err, ErrHeaderWrite)

	_, err = c.WritePayload([]byte("data"))
	assert.ErrorIs(t, err, ErrNoCurrentEntry)

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestCursor_Close(t *testing.T) {
	path := writeTestArchive(t, "test.tar", "tar", "", helloBye...)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := NewCursor(f)
	require.NoError(t, err)
	assert.Equal(t, path, c.name)

	_, err = c.Next()
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.ReadPayload(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)

	// the caller still owns f.
	_, err = f.Seek(0, io.SeekStart)
	assert.NoError(t, err)
}

func TestCursor_FormatOptions(t *testing.T) {
	data := bytes.Repeat([]byte("compressible "), 1024)

	sizes := make(map[string]int64)
	for _, compression := range []string{"store", "deflate"} {
		path := filepath.Join(t.TempDir(), compression+".zip")

		c, err := OpenCursor(path, func(opts *Options) {
			opts.Mode = ModeWrite
			opts.Format = "zip"
			opts.FormatOptions = map[string]string{"compression": compression}
		})
		require.NoError(t, err)
		require.NoError(t, c.Write(NewHeader("data"), data))
		require.NoError(t, c.Close())

		fi, err := os.Stat(path)
		require.NoError(t, err)
		sizes[compression] = fi.Size()
	}

	assert.Greater(t, sizes["store"], int64(len(data)))
	assert.Less(t, sizes["deflate"], sizes["store"])

	_, err := OpenCursor(filepath.Join(t.TempDir(), "bad.zip"), func(opts *Options) {
		opts.Mode = ModeWrite
		opts.Format = "zip"
		opts.FormatOptions = map[string]string{"compression": "lzma"}
	})
	assert.ErrorIs(t, err, ErrOpenFailed)
}

// fakeReader is a format driver that replays scripted results.
type fakeReader struct {
	results []fakeResult
	calls   int
	payload *bytes.Reader
}

type fakeResult struct {
	hdr     *Header
	err     error
	payload string
}

func (f *fakeReader) Next() (*Header, error) {
	f.calls++
	if len(f.results) == 0 {
		return nil, io.EOF
	}

	r := f.results[0]
	f.results = f.results[1:]
	f.payload = bytes.NewReader([]byte(r.payload))
	return r.hdr, r.err
}

func (f *fakeReader) Read(p []byte) (int, error) {
	return f.payload.Read(p)
}

func (f *fakeReader) Close() error {
	return nil
}

func newFakeCursor(r reader, logger *log.Logger) *Cursor {
	none, _ := codec.Lookup(codec.None)
	return &Cursor{
		opts:   newOptions([]func(*Options){func(opts *Options) { opts.Logger = logger }}),
		format: formats["tar"],
		filter: none,
		r:      r,
		state:  stateOpen,
		pos:    -1,
	}
}

func TestCursor_NextResults(t *testing.T) {
	hdr := &Header{Name: "a.txt", Size: 5}

	tests := []struct {
		name      string
		results   []fakeResult
		wantErr   error
		wantCalls int
		wantLog   bool
	}{
		{
			name:      "ok",
			results:   []fakeResult{{hdr: hdr}},
			wantCalls: 1,
		},
		{
			name:      "retry then ok",
			results:   []fakeResult{{err: io.ErrNoProgress}, {err: io.ErrNoProgress}, {hdr: hdr}},
			wantCalls: 3,
		},
		{
			name:      "retry exhausted",
			results:   []fakeResult{{err: io.ErrNoProgress}, {err: io.ErrNoProgress}, {err: io.ErrNoProgress}, {hdr: hdr}},
			wantErr:   ErrEntryRead,
			wantCalls: 3,
		},
		{
			name:      "warning",
			results:   []fakeResult{{hdr: hdr, err: &Warning{Err: io.ErrShortBuffer}}},
			wantCalls: 1,
			wantLog:   true,
		},
		{
			name:      "failed",
			results:   []fakeResult{{err: os.ErrPermission}},
			wantErr:   ErrEntryRead,
			wantCalls: 1,
		},
		{
			name:      "fatal",
			results:   []fakeResult{{err: io.ErrUnexpectedEOF}},
			wantErr:   ErrEntryRead,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := &fakeReader{results: tt.results}
			c := newFakeCursor(r, log.New(&buf, "", 0))

			e, err := c.Next()
			assert.Equal(t, tt.wantCalls, r.calls)
			assert.Equal(t, tt.wantLog, buf.Len() > 0, buf.String())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c.Entry())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "a.txt", e.Name())
			assert.Equal(t, int64(0), c.Position())
		})
	}
}

func TestCursor_FatalIsSticky(t *testing.T) {
	r := &fakeReader{results: []fakeResult{{err: io.ErrUnexpectedEOF}, {hdr: &Header{Name: "a.txt"}}}}
	c := newFakeCursor(r, discardLogger)

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrEntryRead)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrEntryRead)
	assert.Equal(t, 1, r.calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want result
	}{
		{name: "nil", err: nil, want: resultOK},
		{name: "eof", err: io.EOF, want: resultEOF},
		{name: "warning", err: &Warning{Err: io.ErrShortBuffer}, want: resultWarn},
		{name: "insecure tar path", err: tar.ErrInsecurePath, want: resultWarn},
		{name: "no progress", err: io.ErrNoProgress, want: resultRetry},
		{name: "deadline", err: os.ErrDeadlineExceeded, want: resultRetry},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: resultFatal},
		{name: "bad tar header", err: tar.ErrHeader, want: resultFatal},
		{name: "other", err: os.ErrPermission, want: resultFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
