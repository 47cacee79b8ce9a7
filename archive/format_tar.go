package archive

import (
	"archive/tar"
	"io"
	"strings"
)

type tarReader struct {
	tr *tar.Reader
}

func newTarReader(src *source) (reader, error) {
	return &tarReader{tr: tar.NewReader(src.r)}, nil
}

func (t *tarReader) Next() (*Header, error) {
	for {
		hdr, err := t.tr.Next()
		if hdr == nil {
			return nil, err
		}

		// global PAX headers only carry defaults for subsequent entries.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		fi := hdr.FileInfo()
		return &Header{
			Name:     hdr.Name,
			Size:     hdr.Size,
			ModTime:  hdr.ModTime,
			Mode:     fi.Mode(),
			Linkname: hdr.Linkname,
		}, err
	}
}

func (t *tarReader) Read(p []byte) (int, error) {
	return t.tr.Read(p)
}

func (t *tarReader) Close() error {
	return nil
}

// tarWriter writes GNU tar archives.
type tarWriter struct {
	tw *tar.Writer
}

func newTarWriter(dst io.Writer, _ map[string]string) (writer, error) {
	return &tarWriter{tw: tar.NewWriter(dst)}, nil
}

func (t *tarWriter) WriteHeader(h *Header) error {
	hdr, err := tar.FileInfoHeader(h.FileInfo(), h.Linkname)
	if err != nil {
		return err
	}

	// FileInfoHeader only uses the base name.
	hdr.Name = h.Name
	if h.Mode.IsDir() && !strings.HasSuffix(hdr.Name, "/") {
		hdr.Name += "/"
	}
	hdr.ModTime = h.ModTime
	hdr.Format = tar.FormatGNU

	return t.tw.WriteHeader(hdr)
}

func (t *tarWriter) Write(p []byte) (int, error) {
	return t.tw.Write(p)
}

func (t *tarWriter) FinishEntry() error {
	return t.tw.Flush()
}

func (t *tarWriter) Close() error {
	return t.tw.Close()
}
