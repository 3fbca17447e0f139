package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/cuemby/docql/pkg/value"
)

// Key-encodable tags. Ordered so that byte-lexicographic comparison
// of the tag byte alone reproduces the cross-kind tier order from
// value.Compare for the kinds a document id may hold (null is used
// only as the "start of table" sentinel, never as a stored id).
const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagString
)

// EncodeKey encodes a primary-key Value into bytes whose
// lexicographic byte order matches value.Compare, as required by
// spec.md §4.1. Only the kinds a document id may legally hold —
// null (sentinel), bool, int64, and string — are supported; any other
// kind is a programmer error since the parser/evaluator reject
// non-scalar ids before they reach storage.
func EncodeKey(v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindNull:
		return []byte{tagNull}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return []byte{tagTrue}, nil
		}
		return []byte{tagFalse}, nil
	case value.KindInt:
		i, _ := v.AsInt()
		buf := make([]byte, 9)
		buf[0] = tagInt
		// Flip the sign bit so that two's-complement ordering matches
		// signed numeric ordering under big-endian byte comparison.
		binary.BigEndian.PutUint64(buf[1:], uint64(i)^(1<<63))
		return buf, nil
	case value.KindString:
		s, _ := v.AsString()
		buf := make([]byte, 0, len(s)+1)
		buf = append(buf, tagString)
		buf = append(buf, escapeString(s)...)
		return buf, nil
	default:
		return nil, fmt.Errorf("storage: value of kind %s is not key-encodable", v.Kind())
	}
}

// escapeString escapes embedded 0x00 bytes as 0x00 0xFF and terminates
// the string with 0x00 0x00, so that byte-lexicographic order over
// escaped strings matches Go string (UTF-8 byte) order, including for
// strings that are a prefix of one another.
func escapeString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// DecodeKey is the inverse of EncodeKey, used by tests and by any
// caller that needs to recover the original id Value from a stored
// key. Float is never produced since EncodeKey never emits it.
func DecodeKey(b []byte) (value.Value, error) {
	if len(b) == 0 {
		return value.Null(), fmt.Errorf("storage: empty key")
	}
	switch b[0] {
	case tagNull:
		return value.Null(), nil
	case tagFalse:
		return value.Bool(false), nil
	case tagTrue:
		return value.Bool(true), nil
	case tagInt:
		if len(b) != 9 {
			return value.Null(), fmt.Errorf("storage: malformed int key")
		}
		u := binary.BigEndian.Uint64(b[1:])
		i := int64(u ^ (1 << 63))
		return value.Int(i), nil
	case tagString:
		s, err := unescapeString(b[1:])
		if err != nil {
			return value.Null(), err
		}
		return value.String(s), nil
	default:
		return value.Null(), fmt.Errorf("storage: unknown key tag %d", b[0])
	}
}

func unescapeString(b []byte) (string, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == 0x00 {
			if i+1 >= len(b) {
				return "", fmt.Errorf("storage: truncated escaped string key")
			}
			switch b[i+1] {
			case 0xFF:
				out = append(out, 0x00)
				i++
				continue
			case 0x00:
				return string(out), nil
			default:
				return "", fmt.Errorf("storage: malformed escape in string key")
			}
		}
		out = append(out, b[i])
	}
	return "", fmt.Errorf("storage: unterminated string key")
}

// minKey is the lowest possible encoded key, used as the seek target
// when a scan has no explicit start key.
var minKey = []byte{tagNull}
