package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// errNeedsRandomAccess is returned by drivers whose format keeps its directory at the end of the archive.
var errNeedsRandomAccess = errors.New("format requires an unfiltered, seekable archive")

type zipReader struct {
	files []*zip.File
	i     int
	rc    io.ReadCloser
}

func newZipReader(src *source) (reader, error) {
	if src.ra == nil {
		return nil, errNeedsRandomAccess
	}

	zr, err := zip.NewReader(src.ra, src.size)
	if zr == nil {
		return nil, err
	}

	// zip.ErrInsecurePath comes with a usable reader.
	return &zipReader{files: zr.File, i: -1}, err
}

func (z *zipReader) Next() (*Header, error) {
	if err := z.closeEntry(); err != nil {
		return nil, err
	}

	if z.i++; z.i >= len(z.files) {
		return nil, io.EOF
	}

	f := z.files[z.i]
	return &Header{
		Name:    f.Name,
		Size:    int64(f.UncompressedSize64),
		ModTime: f.Modified,
		Mode:    f.Mode(),
	}, nil
}

func (z *zipReader) Read(p []byte) (n int, err error) {
	if z.i < 0 || z.i >= len(z.files) {
		return 0, io.EOF
	}

	// opened lazily so that skipping over entries never decompresses them.
	if z.rc == nil {
		if z.rc, err = z.files[z.i].Open(); err != nil {
			return 0, err
		}
	}

	return z.rc.Read(p)
}

func (z *zipReader) closeEntry() error {
	if z.rc == nil {
		return nil
	}

	err := z.rc.Close()
	z.rc = nil
	return err
}

func (z *zipReader) Close() error {
	return z.closeEntry()
}

type zipWriter struct {
	zw     *zip.Writer
	method uint16
	fw     io.Writer
}

func newZipWriter(dst io.Writer, opts map[string]string) (writer, error) {
	w := &zipWriter{
		zw:     zip.NewWriter(dst),
		method: zip.Deflate,
	}
	w.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	switch v := opts["compression"]; v {
	case "", "deflate":
	case "store":
		w.method = zip.Store
	default:
		return nil, fmt.Errorf(`unknown zip compression "%s"`, v)
	}

	return w, nil
}

func (z *zipWriter) WriteHeader(h *Header) (err error) {
	fh := &zip.FileHeader{
		Name:     h.Name,
		Method:   z.method,
		Modified: h.ModTime,
	}
	fh.SetMode(h.Mode)

	if h.Mode.IsDir() {
		if !strings.HasSuffix(fh.Name, "/") {
			fh.Name += "/"
		}
		fh.Method = zip.Store
	} else if h.Size >= 0 {
		fh.UncompressedSize64 = uint64(h.Size)
	}

	z.fw, err = z.zw.CreateHeader(fh)
	return
}

func (z *zipWriter) Write(p []byte) (int, error) {
	if z.fw == nil {
		return 0, ErrNoCurrentEntry
	}

	return z.fw.Write(p)
}

func (z *zipWriter) FinishEntry() error {
	// the zip.Writer finishes an entry when the next one is created or when it is closed.
	z.fw = nil
	return nil
}

func (z *zipWriter) Close() error {
	return z.zw.Close()
}
