package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipCodec implements Codec for gzip compression algorithm.
type gzipCodec struct {
}

var _ Codec = gzipCodec{}

func (c gzipCodec) Name() string {
	return "gzip"
}

func (c gzipCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

func (c gzipCodec) NewEncoder(dst io.Writer, opts map[string]string) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(dst, level(opts, gzip.BestCompression))
}

func (c gzipCodec) Ext() string {
	return ".gz"
}
