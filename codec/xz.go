package codec

import (
	"io"

	"github.com/ulikunitz/xz"
)

// xzCodec implements Codec for xz compression algorithm.
type xzCodec struct {
}

var _ Codec = xzCodec{}

func (c xzCodec) Name() string {
	return "xz"
}

func (c xzCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := xz.NewReader(src)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r), nil
}

func (c xzCodec) NewEncoder(dst io.Writer, _ map[string]string) (io.WriteCloser, error) {
	return xz.NewWriter(dst)
}

func (c xzCodec) Ext() string {
	return ".xz"
}
