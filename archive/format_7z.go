package archive

import (
	"io"

	"github.com/bodgit/sevenzip"
)

type sevenZipReader struct {
	files []*sevenzip.File
	i     int
	rc    io.ReadCloser
}

func newSevenZipReader(src *source) (reader, error) {
	if src.ra == nil {
		return nil, errNeedsRandomAccess
	}

	zr, err := sevenzip.NewReader(src.ra, src.size)
	if err != nil {
		return nil, err
	}

	return &sevenZipReader{files: zr.File, i: -1}, nil
}

func (s *sevenZipReader) Next() (*Header, error) {
	if err := s.closeEntry(); err != nil {
		return nil, err
	}

	if s.i++; s.i >= len(s.files) {
		return nil, io.EOF
	}

	f := s.files[s.i]
	return &Header{
		Name:    f.Name,
		Size:    int64(f.UncompressedSize),
		ModTime: f.Modified,
		Mode:    f.Mode(),
	}, nil
}

func (s *sevenZipReader) Read(p []byte) (n int, err error) {
	if s.i < 0 || s.i >= len(s.files) {
		return 0, io.EOF
	}

	if s.rc == nil {
		if s.rc, err = s.files[s.i].Open(); err != nil {
			return 0, err
		}
	}

	return s.rc.Read(p)
}

func (s *sevenZipReader) closeEntry() error {
	if s.rc == nil {
		return nil
	}

	err := s.rc.Close()
	s.rc = nil
	return err
}

func (s *sevenZipReader) Close() error {
	return s.closeEntry()
}
