// Package filters implements the stream filters this module needs to decode
// content streams, xref streams and object streams.
package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// FlateParams holds the predictor parameters from /DecodeParms
type FlateParams struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
}

// FlateDecode decompresses zlib data and reverses any PNG or TIFF predictor
func FlateDecode(data []byte, params FlateParams) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		// Some producers truncate the final block; keep what decoded
		if len(decoded) == 0 {
			return nil, fmt.Errorf("reading zlib stream: %w", err)
		}
	}

	switch {
	case params.Predictor <= 1:
		return decoded, nil
	case params.Predictor == 2:
		return tiffPredictor(decoded, params)
	case params.Predictor >= 10:
		return pngPredictor(decoded, params)
	default:
		return nil, fmt.Errorf("unsupported predictor %d", params.Predictor)
	}
}

// pngPredictor reverses PNG row filters (predictors 10-15). Each row is
// prefixed with a filter-type byte.
func pngPredictor(data []byte, params FlateParams) ([]byte, error) {
	bpp := (params.Colors*params.BitsPerComponent + 7) / 8
	if bpp < 1 {
		bpp = 1
	}
	rowLen := (params.Colors*params.BitsPerComponent*params.Columns + 7) / 8
	if rowLen < 1 {
		return nil, fmt.Errorf("invalid predictor row length")
	}

	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)

	for pos := 0; pos+1 <= len(data); pos += rowLen + 1 {
		if pos+1+rowLen > len(data) {
			break // trailing partial row
		}
		filter := data[pos]
		row := make([]byte, rowLen)
		copy(row, data[pos+1:pos+1+rowLen])

		switch filter {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				var left byte
				if i >= bpp {
					left = row[i-bpp]
				}
				row[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = row[i-bpp]
					upLeft = prev[i-bpp]
				}
				row[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("invalid PNG filter type %d", filter)
		}

		out = append(out, row...)
		prev = row
	}

	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiffPredictor reverses horizontal differencing (predictor 2). Only the
// 8-bit component case is supported.
func tiffPredictor(data []byte, params FlateParams) ([]byte, error) {
	if params.BitsPerComponent != 8 {
		return nil, fmt.Errorf("TIFF predictor with %d bits per component not supported", params.BitsPerComponent)
	}
	rowLen := params.Colors * params.Columns
	if rowLen < 1 {
		return nil, fmt.Errorf("invalid predictor row length")
	}

	out := make([]byte, len(data))
	copy(out, data)
	for rowStart := 0; rowStart+rowLen <= len(out); rowStart += rowLen {
		for i := params.Colors; i < rowLen; i++ {
			out[rowStart+i] += out[rowStart+i-params.Colors]
		}
	}
	return out, nil
}
