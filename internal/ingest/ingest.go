// Package ingest parses uploaded CSV files into (email, tag) records.
package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
)

// Meta describes how an upload was read.
type Meta struct {
	Delimiter   string   `json:"delimiter"`
	Encoding    string   `json:"encoding"`
	Headers     []string `json:"headers"`
	EmailColumn string   `json:"email_column"`
	TagColumn   string   `json:"tag_column"`
	Rows        int      `json:"rows"`
}

// Parse decodes data, detects its delimiter and returns one record per data
// row in file order. Rows with empty values are kept so every row of the
// upload is accounted for downstream.
func Parse(data []byte, m ColumnMapping) ([]domain.UploadedRecord, Meta, error) {
	text, enc, err := decode(data)
	if err != nil {
		return nil, Meta{}, err
	}

	delim := detectDelimiter(text)
	r := newReader(text, delim)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, Meta{}, ErrEmptyFile
	}
	if err != nil {
		return nil, Meta{}, fmt.Errorf("ingest: reading header: %w", err)
	}

	emailIdx, err := resolveColumn(header, FieldEmail, m.EmailColumn)
	if err != nil {
		return nil, Meta{}, err
	}
	tagIdx, err := resolveColumn(header, FieldTag, m.TagColumn)
	if err != nil {
		return nil, Meta{}, err
	}

	var records []domain.UploadedRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Meta{}, fmt.Errorf("ingest: reading row %d: %w", len(records), err)
		}
		records = append(records, domain.UploadedRecord{
			RowIndex: len(records),
			RawEmail: cell(row, emailIdx),
			RawTag:   cell(row, tagIdx),
		})
	}

	meta := Meta{
		Delimiter:   string(delim),
		Encoding:    enc,
		Headers:     header,
		EmailColumn: header[emailIdx],
		TagColumn:   header[tagIdx],
		Rows:        len(records),
	}
	return records, meta, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
