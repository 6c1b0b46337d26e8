// FILE: src/internal/transport/codec.go
package transport

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec compresses request bodies. The zero-compression codec passes
// bodies through unchanged.
type Codec struct {
	name string
	zenc *zstd.Encoder
}

// NewCodec accepts "", "none", "gzip" or "zstd"
func NewCodec(name string) (*Codec, error) {
	switch name {
	case "", "none":
		return &Codec{}, nil
	case "gzip":
		return &Codec{name: "gzip"}, nil
	case "zstd":
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		return &Codec{name: "zstd", zenc: enc}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", name)
	}
}

// ContentEncoding is the HTTP Content-Encoding value, empty for none
func (c *Codec) ContentEncoding() string {
	return c.name
}

func (c *Codec) Encode(src []byte) ([]byte, error) {
	switch c.name {
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(src); err != nil {
			return nil, fmt.Errorf("gzip encode: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip encode: %w", err)
		}
		return buf.Bytes(), nil
	case "zstd":
		return c.zenc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
	default:
		return src, nil
	}
}

var (
	zdecOnce sync.Once
	zdec     *zstd.Decoder
	zdecErr  error
)

// Decode reverses a Content-Encoding, refusing output larger than limit
func Decode(encoding string, src []byte, limit int64) ([]byte, error) {
	var out []byte
	switch encoding {
	case "", "identity":
		out = src
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer r.Close()
		out, err = io.ReadAll(io.LimitReader(r, limit+1))
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
	case "zstd":
		zdecOnce.Do(func() {
			zdec, zdecErr = zstd.NewReader(nil)
		})
		if zdecErr != nil {
			return nil, fmt.Errorf("zstd decoder: %w", zdecErr)
		}
		var err error
		out, err = zdec.DecodeAll(src, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", encoding)
	}

	if int64(len(out)) > limit {
		return nil, fmt.Errorf("decoded body exceeds %d bytes", limit)
	}
	return out, nil
}
