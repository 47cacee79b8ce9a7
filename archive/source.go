package archive

import (
	"errors"
	"fmt"
	"io"
)

// readerAt returns the section of f from start to its end as an io.ReaderAt, along with the section's size.
//
// The position of f is restored to start upon return.
func readerAt(f File, start int64) (io.ReaderAt, int64, error) {
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine archive size error: %w", err)
	}
	if _, err = f.Seek(start, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek to start error: %w", err)
	}

	ra, ok := f.(io.ReaderAt)
	if !ok {
		rs, ok := f.(io.ReadSeeker)
		if !ok {
			return nil, 0, errors.New("resource is not readable")
		}

		ra = &seekerReaderAt{rs: rs}
	}

	return io.NewSectionReader(ra, start, end-start), end - start, nil
}

// seekerReaderAt adapts an io.ReadSeeker to io.ReaderAt.
//
// Each ReadAt seeks to the requested offset then restores the original position so that it can be interleaved with
// sequential reads. It is not safe for concurrent use.
type seekerReaderAt struct {
	rs io.ReadSeeker
}

func (s *seekerReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	pos, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	if _, err = s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	n, err = io.ReadFull(s.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	if _, seekErr := s.rs.Seek(pos, io.SeekStart); seekErr != nil && err == nil {
		err = seekErr
	}

	return n, err
}
