// Package format renders captured datagrams as hex and character text.
//
// Both views are pure functions of their input: the same bytes always render
// to the same strings.
package format

import (
	"errors"
	"strings"
)

const (
	// BytesPerRow is the number of bytes on one row of the hex view.
	BytesPerRow = 16

	// stride is the width of one byte in the hex view: two digits and a separator.
	stride = 3

	hexDigits = "0123456789ABCDEF"

	// unprintable replaces payload bytes that have no visible rendering.
	unprintable = '.'
)

// ErrInvalidHex is returned by ParseHex for text HexText cannot produce.
var ErrInvalidHex = errors.New("sniffer: invalid hex text")

// Encode returns the hex view of raw and the character view of payload.
func Encode(raw, payload []byte) (hexText, payloadText string) {
	return HexText(raw), PayloadText(payload)
}

// HexText renders raw as uppercase hex pairs, 16 per row. Pairs on a row are
// separated by one space and rows by a newline, with no trailing separator.
func HexText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(raw)*stride - 1)
	for i, b := range raw {
		if i > 0 {
			sb.WriteByte(separator(i - 1))
		}
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0F])
	}
	return sb.String()
}

// PayloadText renders payload one character per byte. Printable ASCII and the
// newline byte are kept, everything else becomes '.'.
func PayloadText(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}

	buf := make([]byte, len(payload))
	for i, b := range payload {
		buf[i] = printable(b)
	}
	return string(buf)
}

func printable(b byte) byte {
	if b == '\n' || (b >= 0x20 && b <= 0x7E) {
		return b
	}
	return unprintable
}

// separator returns the character written after byte i.
func separator(i int) byte {
	if (i+1)%BytesPerRow == 0 {
		return '\n'
	}
	return ' '
}

// ParseHex is the inverse of HexText.
func ParseHex(text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	if (len(text)+1)%stride != 0 {
		return nil, ErrInvalidHex
	}

	out := make([]byte, (len(text)+1)/stride)
	for i := range out {
		pos := i * stride
		hi, ok1 := fromHex(text[pos])
		lo, ok2 := fromHex(text[pos+1])
		if !ok1 || !ok2 {
			return nil, ErrInvalidHex
		}
		out[i] = hi<<4 | lo
		if i < len(out)-1 && text[pos+2] != separator(i) {
			return nil, ErrInvalidHex
		}
	}
	return out, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
