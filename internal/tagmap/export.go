package tagmap

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
)

// Download names and content type of exported files.
const (
	MappedFilename  = "mapped_emails_tags.csv"
	ResultsFilename = "smartlead_tag_apply_results.csv"
	CSVContentType  = "text/csv; charset=utf-8"
)

// ExportHeader is the fixed column order of the mapped CSV.
var ExportHeader = []string{"email", "tag", "email_account_id", "tag_id"}

// ResultsHeader is the column order of the per-row results CSV.
var ResultsHeader = []string{"row", "email", "email_normalized", "tag", "email_account_id", "tag_id", "status", "detail"}

// notAvailable fills id cells that did not resolve.
const notAvailable = "n/a"

// Export serializes enriched records as CSV with a header row.
func Export(records []domain.EnrichedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes enriched records to w in the given order.
func WriteCSV(w io.Writer, records []domain.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Email,
			r.Tag,
			strconv.FormatInt(r.EmailAccountID, 10),
			strconv.FormatInt(r.TagID, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", r.RowIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportResults serializes per-row results as CSV with a header row.
func ExportResults(rows []RowResult) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(ResultsHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.RowIndex),
			r.Email,
			r.EmailNormalized,
			r.Tag,
			formatOptionalID(r.EmailAccountID),
			formatOptionalID(r.TagID),
			string(r.Status),
			r.Detail,
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", r.RowIndex, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return notAvailable
	}
	return strconv.FormatInt(*id, 10)
}
