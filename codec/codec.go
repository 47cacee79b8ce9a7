// Package codec provides the compression filters that can wrap an archive's byte stream.
//
// Filters are looked up by name with Lookup. The empty name is reserved for callers that want auto-detection and is
// never registered here.
package codec

import (
	"io"
	"sort"
	"strconv"

	"github.com/nguyengg/xyarc/util"
)

// Codec has methods to create compressor/encoder and decompressor/decoder.
type Codec interface {
	// Name returns the canonical name of the filter, such as "gzip".
	Name() string
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
	// NewEncoder creates an encoder to compress contents to the given io.Writer.
	//
	// Options are filter-specific; unrecognised keys are ignored.
	NewEncoder(dst io.Writer, opts map[string]string) (io.WriteCloser, error)
	// Ext returns the file name extension of files compressed with this codec, such as ".gz".
	Ext() string
}

// None is the name of the pass-through filter.
const None = "none"

var (
	registry = map[string]Codec{}
	aliases  = map[string]string{}
)

func register(c Codec, alias ...string) {
	registry[c.Name()] = c
	for _, a := range alias {
		aliases[a] = c.Name()
	}
}

func init() {
	register(noneCodec{})
	register(gzipCodec{}, "gz")
	register(bzip2Codec{}, "bz2")
	register(xzCodec{})
	register(zstdCodec{}, "zst")
	register(lz4Codec{})
}

// Lookup returns the Codec registered under the given name or alias.
func Lookup(name string) (Codec, bool) {
	if n, ok := aliases[name]; ok {
		name = n
	}

	c, ok := registry[name]
	return c, ok
}

// FromExt returns the Codec whose Ext matches the given extension, such as ".zst".
func FromExt(ext string) (Codec, bool) {
	for _, c := range registry {
		if c.Ext() != "" && c.Ext() == ext {
			return c, true
		}
	}

	return nil, false
}

// Names returns the sorted canonical names of all registered codecs.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// level parses the "compression-level" option, returning def if absent or invalid.
func level(opts map[string]string, def int) int {
	v, ok := opts["compression-level"]
	if !ok {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

// noneCodec implements Codec without any compression.
type noneCodec struct {
}

func (c noneCodec) Name() string {
	return None
}

func (c noneCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(src), nil
}

func (c noneCodec) NewEncoder(dst io.Writer, _ map[string]string) (io.WriteCloser, error) {
	return &util.WriteNoopCloser{Writer: dst}, nil
}

func (c noneCodec) Ext() string {
	return ""
}
