package ir

import (
	"bytes"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/typefn/internal/errors"
)

// MarshalCanonical renders v as RFC 8785 canonical JSON. It is the only
// encoding used for schema and contract hashes, never for call values.
//
// Compared to encoding/json:
//   - object keys are NFC normalized, then ordered by UTF-16 code units
//   - strings are NFC normalized and only '"', '\\' and control characters
//     are escaped (no HTML escaping, U+2028/U+2029 stay literal)
//   - floats and nulls are rejected, so a hash never depends on float
//     formatting
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		return errors.New("null is forbidden in canonical JSON")
	case IRFloat:
		return errors.Newf("floats are forbidden in canonical JSON: %v", float64(val))
	case IRString:
		writeCanonicalString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return errors.Wrapf(err, "[%d]", i)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		return writeCanonicalObject(buf, val)
	default:
		return errors.Newf("unsupported value for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj IRObject) error {
	// Keys are compared after normalization so that two spellings of the
	// same key cannot reorder the output.
	type entry struct {
		key string
		val IRValue
	}
	entries := make([]entry, 0, len(obj))
	for k, v := range obj {
		entries = append(entries, entry{key: norm.NFC.String(k), val: v})
	}
	slices.SortFunc(entries, func(a, b entry) int { return compareKeysRFC8785(a.key, b.key) })

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			if entries[i-1].key == e.key {
				return errors.Newf("duplicate key %q after normalization", e.key)
			}
			buf.WriteByte(',')
		}
		writeEscaped(buf, e.key)
		buf.WriteByte(':')
		if err := writeCanonical(buf, e.val); err != nil {
			return errors.Wrapf(err, "%q", e.key)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	writeEscaped(buf, norm.NFC.String(s))
}

const hexDigits = "0123456789abcdef"

// writeEscaped writes s as a JSON string with the minimal escaping of
// RFC 8785 section 3.2.2.2.
func writeEscaped(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf.WriteString(`�`)
			} else {
				buf.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}
