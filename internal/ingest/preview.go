package ingest

import (
	"errors"
	"fmt"
	"io"
)

// DefaultPreviewRows is the number of rows returned when no limit is given.
const DefaultPreviewRows = 20

// PreviewResult is the head of an upload, used to choose a column mapping.
type PreviewResult struct {
	Delimiter            string     `json:"delimiter"`
	Encoding             string     `json:"encoding"`
	Headers              []string   `json:"headers"`
	Rows                 [][]string `json:"rows"`
	TotalRows            int        `json:"total_rows"`
	SuggestedEmailColumn string     `json:"suggested_email_column,omitempty"`
	SuggestedTagColumn   string     `json:"suggested_tag_column,omitempty"`
}

// Preview reads the header and the first limit rows of data. All rows are
// still scanned so TotalRows is exact.
func Preview(data []byte, limit int) (*PreviewResult, error) {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}

	text, enc, err := decode(data)
	if err != nil {
		return nil, err
	}

	delim := detectDelimiter(text)
	r := newReader(text, delim)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading header: %w", err)
	}

	p := &PreviewResult{
		Delimiter: string(delim),
		Encoding:  enc,
		Headers:   header,
		Rows:      make([][]string, 0, limit),
	}
	if i := suggestColumn(header, FieldEmail); i >= 0 {
		p.SuggestedEmailColumn = header[i]
	}
	if i := suggestColumn(header, FieldTag); i >= 0 {
		p.SuggestedTagColumn = header[i]
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading row %d: %w", p.TotalRows, err)
		}
		if len(p.Rows) < limit {
			p.Rows = append(p.Rows, row)
		}
		p.TotalRows++
	}
	return p, nil
}
