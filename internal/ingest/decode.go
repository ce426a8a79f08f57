package ingest

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported in Meta.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var errBinary = errors.New("file contains NUL bytes")

// decode returns the upload as text. UTF-8 is tried first with any byte
// order mark stripped; anything else is read as Latin-1. NUL bytes mean the
// upload is binary (or UTF-16), which neither decoding can represent.
func decode(data []byte) (string, string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", &DecodeError{Err: errBinary}
	}

	if utf8.Valid(data) {
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err == nil {
			return string(out), EncodingUTF8, nil
		}
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", &DecodeError{Err: err}
	}
	return string(out), EncodingLatin1, nil
}
