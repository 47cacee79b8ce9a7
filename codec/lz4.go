package codec

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec implements Codec for lz4 compression algorithm.
type lz4Codec struct {
}

var _ Codec = lz4Codec{}

func (c lz4Codec) Name() string {
	return "lz4"
}

func (c lz4Codec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(src)), nil
}

func (c lz4Codec) NewEncoder(dst io.Writer, _ map[string]string) (io.WriteCloser, error) {
	return lz4.NewWriter(dst), nil
}

func (c lz4Codec) Ext() string {
	return ".lz4"
}
