package filters

import (
	"encoding/ascii85"
	"fmt"
)

// ASCIIHexDecode decodes hex-encoded stream data. Whitespace is ignored and
// the data may end with an optional '>' marker; an odd final digit is padded
// with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	haveHi := false

	for i, b := range data {
		switch {
		case b == '>':
			if haveHi {
				out = append(out, hi<<4)
			}
			return out, nil
		case isHexSpace(b):
			continue
		}

		v, ok := hexDigit(b)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q at offset %d", b, i)
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}

	if haveHi {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 encoded stream data, tolerating whitespace
// and the trailing '~>' marker
func ASCII85Decode(data []byte) ([]byte, error) {
	compact := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if isHexSpace(b) {
			continue
		}
		if b == '~' {
			break
		}
		compact = append(compact, b)
	}

	out := make([]byte, len(compact))
	n, _, err := ascii85.Decode(out, compact, true)
	if err != nil {
		return nil, fmt.Errorf("decoding ascii85 data: %w", err)
	}
	return out[:n], nil
}

func isHexSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == 0
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
