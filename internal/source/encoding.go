package source

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func normalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "-", " ", "-").Replace(n)
	switch n {
	case "", "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return "latin-1"
	case "windows-1252", "cp1252":
		return "windows-1252"
	case "utf-8", "utf8":
		return "utf-8"
	}
	return n
}

// Encoding resolves a charset name.
func Encoding(name string) (encoding.Encoding, error) {
	switch normalizeEncoding(name) {
	case "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252":
		return charmap.Windows1252, nil
	case "utf-8":
		return unicode.UTF8BOM, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// NewDecodingReader wraps r so that it yields UTF-8.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Encoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
