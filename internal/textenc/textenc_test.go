package textenc

import (
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const banner = "== Camera Provider HAL legacy/0 (v2.5, remote) static info: 1 devices: ==\n"

func encodeUTF16(t *testing.T, s string, endian unicode.Endianness, bom unicode.BOMPolicy) []byte {
	t.Helper()
	out, err := unicode.UTF16(endian, bom).NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte(out)
}

func TestDetect(t *testing.T) {
	latin, err := charmap.Windows1252.NewEncoder().String("Café lens\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name  string
		input []byte
		want  Encoding
	}{
		{"plain ascii", []byte(banner), UTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, banner...), UTF8},
		{"utf16le bom", encodeUTF16(t, banner, unicode.LittleEndian, unicode.UseBOM), UTF16LE},
		{"utf16be bom", encodeUTF16(t, banner, unicode.BigEndian, unicode.UseBOM), UTF16BE},
		{"utf16le no bom", encodeUTF16(t, banner, unicode.LittleEndian, unicode.IgnoreBOM), UTF16LE},
		{"utf16be no bom", encodeUTF16(t, banner, unicode.BigEndian, unicode.IgnoreBOM), UTF16BE},
		{"windows-1252", []byte(latin), Windows1252},
		{"utf8 multibyte", []byte("Café lens\n"), UTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.input); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectTruncatedRune(t *testing.T) {
	sample := []byte("lens é")
	sample = sample[:len(sample)-1]
	if got := Detect(sample); got != UTF8 {
		t.Errorf("Detect(truncated) = %q, want %q", got, UTF8)
	}
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"utf8", []byte(banner)},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, banner...)},
		{"utf16le bom", encodeUTF16(t, banner, unicode.LittleEndian, unicode.UseBOM)},
		{"utf16be no bom", encodeUTF16(t, banner, unicode.BigEndian, unicode.IgnoreBOM)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := NewReader(strings.NewReader(string(tt.input)), Auto)
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != banner {
				t.Errorf("NewReader(%s) = %q, want %q", tt.name, got, banner)
			}
		})
	}
}

func TestDecodeExplicit(t *testing.T) {
	got, enc, err := Decode([]byte{'C', 'a', 'f', 0xE9}, Latin1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if enc != Latin1 || got != "Café" {
		t.Errorf("Decode() = %q (%s), want %q (%s)", got, enc, "Café", Latin1)
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		input   string
		want    Encoding
		wantErr bool
	}{
		{"", Auto, false},
		{"AUTO", Auto, false},
		{"utf8", UTF8, false},
		{"UTF-16", UTF16LE, false},
		{"utf-16be", UTF16BE, false},
		{"cp1252", Windows1252, false},
		{"latin1", Latin1, false},
		{"ebcdic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEncoding(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEncoding(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEncoding(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
