// Package compression implements the closed set of batch compression
// algorithms: None and Gzip. The compressor is an interface with exactly
// these two variants, selected by the 2-bit attribute code carried in a
// MessagesBatch.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/tideline-io/tideline/internal/brokerrors"
)

// Algorithm identifies a compression variant by its 2-bit wire code.
type Algorithm uint8

const (
	None Algorithm = 0
	Gzip Algorithm = 1
)

// FromCode maps the attributes bits 6-7 value to an Algorithm.
func FromCode(code uint8) (Algorithm, error) {
	switch Algorithm(code) {
	case None:
		return None, nil
	case Gzip:
		return Gzip, nil
	default:
		return 0, fmt.Errorf("%w: code %d", brokerrors.ErrInvalidCompressionAlgorithm, code)
	}
}

func (a Algorithm) Code() uint8 { return uint8(a) }

// MinDataSize is the threshold below which compression is skipped even
// when the caller asked for it: small batches don't amortize the gzip
// frame overhead.
func (a Algorithm) MinDataSize() int {
	switch a {
	case Gzip:
		return 512
	default:
		return 0
	}
}

// Compress returns data compressed with a, or data unchanged for None.
// The destination buffer is pre-sized to 0.75x the input as a heuristic;
// the compressor grows it as needed.
func (a Algorithm) Compress(data []byte) ([]byte, error) {
	if a == None {
		return data, nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(data)*3/4))
	w := gzip.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. The destination buffer is pre-sized to
// len(data)/0.75 as a heuristic.
func (a Algorithm) Decompress(data []byte) ([]byte, error) {
	if a == None {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := bytes.NewBuffer(make([]byte, 0, len(data)*4/3))
	if _, err := io.Copy(out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
