package ingest

import (
	"encoding/csv"
	"strings"
)

// delimiters in preference order.
var delimiters = []rune{',', ';', '\t', '|'}

// detectDelimiter picks the first delimiter that splits the header line into
// more than one column, falling back to comma.
func detectDelimiter(text string) rune {
	header := firstLine(text)
	for _, d := range delimiters {
		r := csv.NewReader(strings.NewReader(header))
		r.Comma = d
		r.LazyQuotes = true
		fields, err := r.Read()
		if err == nil && len(fields) > 1 {
			return d
		}
	}
	return ','
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSuffix(text, "\r")
}

func newReader(text string, delim rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r
}
