package canon

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrEncoding is returned when a value cannot be canonicalized: invalid
// UTF-8 in a string, or (via FromGo) an unsupported Go type at the
// caller boundary.
var ErrEncoding = errors.New("canon: encoding error")

// Bytes renders v as its canonical byte sequence: object keys sorted
// lexicographically, no insignificant whitespace, "," between elements
// and ":" between key/value, arrays in insertion order, strings as raw
// UTF-8, numbers in a stable textual form.
func Bytes(v Value) ([]byte, error) {
	var sb strings.Builder
	if err := write(&sb, v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// MustBytes panics on encoding error. Reserved for call sites operating
// on values already known to be well-formed (e.g. engine-internal
// receipts), never on raw caller input.
func MustBytes(v Value) []byte {
	b, err := Bytes(v)
	if err != nil {
		panic(err)
	}
	return b
}

func write(sb *strings.Builder, v Value) error {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
		return nil
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return nil
	case KindNumber:
		sb.WriteString(formatNumber(v))
		return nil
	case KindString:
		if !utf8.ValidString(v.str) {
			return fmt.Errorf("%w: invalid UTF-8 in string value", ErrEncoding)
		}
		writeQuotedString(sb, v.str)
		return nil
	case KindBytes:
		// Byte inputs pass through unchanged: canonicalize them as a
		// JSON string of their raw content, never re-encoded or
		// normalized.
		if !utf8.Valid(v.bytes_) {
			return fmt.Errorf("%w: invalid UTF-8 in byte value", ErrEncoding)
		}
		writeQuotedString(sb, string(v.bytes_))
		return nil
	case KindArray:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := write(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeQuotedString(sb, k)
			sb.WriteByte(':')
			if err := write(sb, v.obj[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("%w: unknown value kind", ErrEncoding)
	}
}

// formatNumber renders integers as decimal integers and floats with
// their shortest round-trip textual form (strconv's 'g', precision -1).
// This is the one deterministic choice spec.md's Open Question on
// floating-point canonicalization asks implementers to make; documented
// in SPEC_FULL.md section 4.1 and applied uniformly here.
func formatNumber(v Value) string {
	if v.isInt {
		return strconv.FormatInt(v.i, 10)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

func writeQuotedString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}
