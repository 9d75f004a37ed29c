package corpus

import "bytes"

var nonFinite = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// SanitizeNonFinite rewrites the bare NaN, Infinity and -Infinity literals
// some exporters emit into JSON null. String contents are left untouched.
func SanitizeNonFinite(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}

	out := make([]byte, 0, len(data))
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(data) {
					i++
					out = append(out, data[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if lit := matchNonFinite(data[i:]); lit > 0 {
			out = append(out, "null"...)
			i += lit - 1
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchNonFinite(b []byte) int {
	for _, lit := range nonFinite {
		if bytes.HasPrefix(b, lit) {
			return len(lit)
		}
	}
	return 0
}
