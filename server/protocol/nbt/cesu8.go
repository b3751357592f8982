package nbt

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"
)

var errBadCESU8 = errors.New("nbt: malformed CESU-8 string")

// appendCESU8 converts s from UTF-8 to the Java CESU-8 flavour: NUL becomes
// the two byte sequence C0 80 and supplementary code points become a
// surrogate pair of two three byte sequences.
func appendCESU8(dst []byte, s string) []byte {
	plain := true
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= 0xf0 {
			plain = false
			break
		}
	}
	if plain {
		return append(dst, s...)
	}
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xc0, 0x80)
		case r < 0x10000:
			dst = utf8.AppendRune(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendSurrogate(dst, uint16(hi))
			dst = appendSurrogate(dst, uint16(lo))
		}
	}
	return dst
}

func appendSurrogate(dst []byte, u uint16) []byte {
	return append(dst, 0xe0|byte(u>>12), 0x80|byte(u>>6)&0x3f, 0x80|byte(u)&0x3f)
}

// decodeCESU8 converts Java CESU-8 bytes to a UTF-8 string. Input that is
// already valid UTF-8 passes through unchanged; otherwise the NUL and
// surrogate pair sequences are rewritten and anything else fails.
func decodeCESU8(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			out = append(out, c)
			i++
		case c&0xe0 == 0xc0:
			if i+2 > len(b) || b[i+1]&0xc0 != 0x80 {
				return "", errBadCESU8
			}
			if c == 0xc0 && b[i+1] == 0x80 {
				out = append(out, 0)
			} else {
				r := rune(c&0x1f)<<6 | rune(b[i+1]&0x3f)
				if r < 0x80 {
					return "", errBadCESU8
				}
				out = utf8.AppendRune(out, r)
			}
			i += 2
		case c&0xf0 == 0xe0:
			u, ok := surrogate(b[i:])
			if !ok {
				return "", errBadCESU8
			}
			switch {
			case u >= 0xd800 && u <= 0xdbff:
				lo, ok := surrogate(b[i+3:])
				if !ok || lo < 0xdc00 || lo > 0xdfff {
					return "", errBadCESU8
				}
				out = utf8.AppendRune(out, utf16.DecodeRune(rune(u), rune(lo)))
				i += 6
			case u >= 0xdc00 && u <= 0xdfff:
				return "", errBadCESU8
			case u < 0x800:
				return "", errBadCESU8
			default:
				out = utf8.AppendRune(out, rune(u))
				i += 3
			}
		default:
			return "", errBadCESU8
		}
	}
	return string(out), nil
}

// surrogate decodes a single three byte sequence to its 16-bit value.
func surrogate(b []byte) (uint16, bool) {
	if len(b) < 3 || b[0]&0xf0 != 0xe0 || b[1]&0xc0 != 0x80 || b[2]&0xc0 != 0x80 {
		return 0, false
	}
	return uint16(b[0]&0x0f)<<12 | uint16(b[1]&0x3f)<<6 | uint16(b[2]&0x3f), true
}
