package archive

import (
	"github.com/nwaples/rardecode/v2"
)

type rarReader struct {
	r *rardecode.Reader
}

func newRarReader(src *source) (reader, error) {
	r, err := rardecode.NewReader(src.r)
	if err != nil {
		return nil, err
	}

	return &rarReader{r: r}, nil
}

func (r *rarReader) Next() (*Header, error) {
	fh, err := r.r.Next()
	if err != nil {
		return nil, err
	}

	h := &Header{
		Name:    fh.Name,
		Size:    fh.UnPackedSize,
		ModTime: fh.ModificationTime,
		Mode:    fh.Mode(),
	}
	if fh.UnKnownSize {
		h.Size = SizeUnknown
	}

	return h, nil
}

func (r *rarReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *rarReader) Close() error {
	return nil
}
