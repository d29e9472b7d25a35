// Package canonical produces the deterministic byte form of transaction values.
//
// All signing digests and transaction identifiers MUST be computed over bytes
// produced here. The encoding is compact JSON with object keys sorted at every
// nesting level, array order preserved, and a fixed spelling for null, numbers
// and string escapes.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"ledgertx.io/ledgertx/txerr"
)

// Marshal returns the canonical bytes for v.
//
// v is first rendered through encoding/json, so struct tags and custom
// MarshalJSON methods decide field names and presence. A field that renders as
// null is kept as null, never dropped.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, txerr.Wrap(txerr.KindCanonical, "TX-CANON-001", "value is not representable as JSON", err)
	}
	return MarshalJSON(raw)
}

// MarshalJSON canonicalizes existing JSON text.
//
// Duplicate object keys are rejected rather than resolved.
func MarshalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, txerr.New(txerr.KindCanonical, "TX-CANON-002", "trailing data after JSON value")
	}

	var buf bytes.Buffer
	buf.Grow(len(raw))
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Equal reports whether a and b canonicalize to the same bytes.
func Equal(a, b any) (bool, error) {
	ca, err := Marshal(a)
	if err != nil {
		return false, err
	}
	cb, err := Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

type object map[string]any

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, txerr.Wrap(txerr.KindCanonical, "TX-CANON-003", "invalid JSON", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := object{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, txerr.Wrap(txerr.KindCanonical, "TX-CANON-003", "invalid JSON", err)
				}
				key, ok := kt.(string)
				if !ok {
					return nil, txerr.New(txerr.KindCanonical, "TX-CANON-003", "object key is not a string")
				}
				if _, dup := obj[key]; dup {
					return nil, txerr.New(txerr.KindCanonical, "TX-CANON-004", fmt.Sprintf("duplicate object key %q", key))
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, txerr.Wrap(txerr.KindCanonical, "TX-CANON-003", "invalid JSON", err)
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, txerr.Wrap(txerr.KindCanonical, "TX-CANON-003", "invalid JSON", err)
			}
			return arr, nil
		default:
			return nil, txerr.New(txerr.KindCanonical, "TX-CANON-003", "unexpected delimiter")
		}
	default:
		return tok, nil
	}
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, t)
	case json.Number:
		n, err := formatNumber(string(t))
		if err != nil {
			return err
		}
		buf.WriteString(n)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case object:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		// Byte order of UTF-8 equals code point order.
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeValue(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return txerr.New(txerr.KindCanonical, "TX-CANON-005", fmt.Sprintf("unsupported value type %T", v))
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString escapes only what JSON requires: quote, backslash and control
// characters. Non-ASCII text is emitted as raw UTF-8 and HTML characters are
// left alone.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
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
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		buf.WriteRune(r)
		i += size
	}
	buf.WriteByte('"')
}

var errBadNumber = errors.New("malformed number")

// formatNumber returns the shortest round-trip spelling of a JSON number.
// Integer literals are kept verbatim so values beyond 2^53 survive; other
// numbers follow the ECMAScript Number-to-String rules.
func formatNumber(lit string) (string, error) {
	if lit == "" {
		return "", txerr.Wrap(txerr.KindCanonical, "TX-CANON-006", "invalid number", errBadNumber)
	}
	if !strings.ContainsAny(lit, ".eE") {
		if lit == "-0" {
			return "0", nil
		}
		return lit, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", txerr.Wrap(txerr.KindCanonical, "TX-CANON-006", "invalid number "+lit, errBadNumber)
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	// Go pads the exponent to two digits; ECMAScript does not.
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits, nil
}
