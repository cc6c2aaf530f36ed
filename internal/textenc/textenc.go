// Package textenc normalises dump input to UTF-8 text. Dumps captured on
// Windows hosts often arrive as UTF-16 (adb shell redirection through
// PowerShell) or in a legacy code page.
package textenc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a supported input encoding.
type Encoding string

const (
	Auto        Encoding = "auto"
	UTF8        Encoding = "utf-8"
	UTF16LE     Encoding = "utf-16le"
	UTF16BE     Encoding = "utf-16be"
	Windows1252 Encoding = "windows-1252"
	Latin1      Encoding = "iso-8859-1"
)

// sniffSize is how much input Detect looks at.
const sniffSize = 4096

// ParseEncoding maps a user supplied name to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Auto, nil
	case "utf-8", "utf8":
		return UTF8, nil
	case "utf-16le", "utf16le", "utf-16", "utf16":
		return UTF16LE, nil
	case "utf-16be", "utf16be":
		return UTF16BE, nil
	case "windows-1252", "cp1252":
		return Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return Latin1, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

// Detect guesses the encoding of sample from its BOM, NUL byte layout and
// UTF-8 validity.
func Detect(sample []byte) Encoding {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return UTF8
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		return UTF16LE
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return UTF16BE
	}

	if len(sample) >= 4 {
		var evenNUL, oddNUL int
		for i, b := range sample {
			if b != 0 {
				continue
			}
			if i%2 == 0 {
				evenNUL++
			} else {
				oddNUL++
			}
		}
		half := len(sample) / 2
		if oddNUL*10 > half*3 && oddNUL > evenNUL*4 {
			return UTF16LE
		}
		if evenNUL*10 > half*3 && evenNUL > oddNUL*4 {
			return UTF16BE
		}
	}

	if utf8.Valid(trimPartialRune(sample)) {
		return UTF8
	}
	return Windows1252
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the end
// of a sniffed sample.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= 3 && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

func decoderFor(enc Encoding) (*encoding.Decoder, error) {
	switch enc {
	case UTF8:
		return unicode.UTF8BOM.NewDecoder(), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), nil
	case Windows1252:
		return charmap.Windows1252.NewDecoder(), nil
	case Latin1:
		return charmap.ISO8859_1.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// NewReader wraps r so that it yields UTF-8. With Auto the encoding is
// detected from the first bytes; the encoding actually used is returned.
func NewReader(r io.Reader, enc Encoding) (io.Reader, Encoding, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	if enc == "" || enc == Auto {
		sample, err := br.Peek(sniffSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, "", fmt.Errorf("failed to sniff encoding: %w", err)
		}
		enc = Detect(sample)
	}
	dec, err := decoderFor(enc)
	if err != nil {
		return nil, "", err
	}
	return transform.NewReader(br, dec), enc, nil
}

// Decode converts data to a UTF-8 string.
func Decode(data []byte, enc Encoding) (string, Encoding, error) {
	if enc == "" || enc == Auto {
		sample := data
		if len(sample) > sniffSize {
			sample = sample[:sniffSize]
		}
		enc = Detect(sample)
	}
	dec, err := decoderFor(enc)
	if err != nil {
		return "", "", err
	}
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s input: %w", enc, err)
	}
	return string(out), enc, nil
}
