package download

import (
	"errors"
	"io"
	"strings"

	"github.com/mholt/archives"
)

const encodingNone = "none"

// decoderFor picks the stream decoder for a Content-Encoding value. Unknown or
// absent encodings are written through as-is.
func decoderFor(contentEncoding string) (archives.Decompressor, string) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return archives.Gz{}, "gzip"
	case "deflate":
		return archives.Zlib{}, "deflate"
	case "br":
		return archives.Brotli{}, "br"
	case "zstd":
		return archives.Zstd{}, "zstd"
	default:
		return nil, encodingNone
	}
}

func decodeBody(r io.Reader, contentEncoding string) (io.ReadCloser, string, error) {
	dec, name := decoderFor(contentEncoding)
	if dec == nil {
		return io.NopCloser(r), name, nil
	}
	rc, err := dec.OpenReader(r)
	if errors.Is(err, io.EOF) {
		// empty body, nothing to decode
		return io.NopCloser(strings.NewReader("")), name, nil
	}
	if err != nil {
		return nil, name, err
	}
	return rc, name, nil
}
