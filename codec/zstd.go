package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec implements Codec for zstd compression algorithm.
type zstdCodec struct{}

var _ Codec = zstdCodec{}

func (c zstdCodec) Name() string {
	return "zstd"
}

func (c zstdCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}

	return &zstdDecoder{dec}, nil
}

type zstdDecoder struct {
	*zstd.Decoder
}

func (d *zstdDecoder) Close() error {
	d.Decoder.Close()
	return nil
}

func (c zstdCodec) NewEncoder(dst io.Writer, opts map[string]string) (io.WriteCloser, error) {
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level(opts, 19))))
}

func (c zstdCodec) Ext() string {
	return ".zst"
}
