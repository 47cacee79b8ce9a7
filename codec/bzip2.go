package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Codec implements Codec for bzip2 compression algorithm.
//
// The standard library can only decompress bzip2, so both directions use dsnet/compress for symmetry.
type bzip2Codec struct {
}

var _ Codec = bzip2Codec{}

func (c bzip2Codec) Name() string {
	return "bzip2"
}

func (c bzip2Codec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(src, nil)
}

func (c bzip2Codec) NewEncoder(dst io.Writer, opts map[string]string) (io.WriteCloser, error) {
	return bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: level(opts, bzip2.BestCompression)})
}

func (c bzip2Codec) Ext() string {
	return ".bz2"
}
