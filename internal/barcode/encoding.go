package barcode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is the text encoding a barcode message must be representable in.
type Encoding string

const (
	// EncodingASCII is the legacy scanner-safe subset. It is written to
	// pass.json as iso-8859-1 but only accepts 7-bit characters.
	EncodingASCII  Encoding = "ascii"
	EncodingLatin1 Encoding = "iso-8859-1"
	EncodingUTF8   Encoding = "utf-8"
)

func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingASCII, EncodingLatin1, EncodingUTF8:
		return e, nil
	case "":
		return EncodingASCII, nil
	case "latin1", "latin-1":
		return EncodingLatin1, nil
	case "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("unknown barcode encoding %q", s)
	}
}

// MessageEncoding is the value of the messageEncoding key in pass.json.
func (e Encoding) MessageEncoding() string {
	if e == EncodingUTF8 {
		return "utf-8"
	}
	return "iso-8859-1"
}

// Check reports the first character of s the encoding cannot carry.
func (e Encoding) Check(s string) error {
	switch e {
	case EncodingUTF8:
		if !utf8.ValidString(s) {
			return fmt.Errorf("message is not valid utf-8")
		}
		return nil
	case EncodingLatin1:
		if _, err := charmap.ISO8859_1.NewEncoder().String(s); err != nil {
			return fmt.Errorf("message not representable in iso-8859-1: %w", err)
		}
		return nil
	default:
		for i, r := range s {
			if r >= utf8.RuneSelf {
				return fmt.Errorf("non-ascii character %q at offset %d", r, i)
			}
		}
		return nil
	}
}
