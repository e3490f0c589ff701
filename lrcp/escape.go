package lrcp

import "fmt"

// EscapeData appends the wire form of a DATA payload to dst and returns the extended buffer.
// '\' is written as `\\` and '/' as `\/`; every other byte is copied unchanged.
func EscapeData(dst, src []byte) []byte {
	for _, c := range src {
		switch c {
		case '\\', '/':
			dst = append(dst, '\\', c)
		default:
			dst = append(dst, c)
		}
	}

	return dst
}

// EscapedLen returns the length of src after escaping.
func EscapedLen(src []byte) int {
	n := len(src)
	for _, c := range src {
		if c == '\\' || c == '/' {
			n++
		}
	}

	return n
}

// UnescapeData decodes the wire form of a DATA payload.
//
// The input is scanned once from left to right. A backslash must be followed by
// '\' or '/', and a bare '/' is not allowed; either case yields ErrInvalidEscape.
// The returned slice never aliases src.
func UnescapeData(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	escaped := false
	for i, c := range src {
		if escaped {
			if c != '\\' && c != '/' {
				return nil, fmt.Errorf("%w: '\\%c' at offset %d", ErrInvalidEscape, c, i-1)
			}
			out = append(out, c)
			escaped = false

			continue
		}

		switch c {
		case '\\':
			escaped = true
		case '/':
			return nil, fmt.Errorf("%w: unescaped '/' at offset %d", ErrInvalidEscape, i)
		default:
			out = append(out, c)
		}
	}

	if escaped {
		return nil, fmt.Errorf("%w: dangling '\\' at end of payload", ErrInvalidEscape)
	}

	return out, nil
}
