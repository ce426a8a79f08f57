package ingest

import "strings"

// Field is a logical column of the upload.
type Field string

const (
	FieldEmail Field = "email"
	FieldTag   Field = "tag"
)

// ColumnMapping names the header columns holding emails and tags. An empty
// name lets the ingestor pick a column by its conventional header.
type ColumnMapping struct {
	EmailColumn string `json:"email_column"`
	TagColumn   string `json:"tag_column"`
}

// columnAliases maps lowercase header names to logical fields.
var columnAliases = map[string]Field{
	"email":         FieldEmail,
	"email_address": FieldEmail,
	"emailaddress":  FieldEmail,
	"email address": FieldEmail,
	"e-mail":        FieldEmail,
	"mail":          FieldEmail,
	"from_email":    FieldEmail,
	"account_email": FieldEmail,

	"tag":      FieldTag,
	"tags":     FieldTag,
	"tag_name": FieldTag,
	"tagname":  FieldTag,
	"tag name": FieldTag,
	"label":    FieldTag,
}

func canonicalHeader(h string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(h)), "\"'")
}

// resolveColumn returns the header index for field. A named column matches
// exactly (ignoring surrounding whitespace) before falling back to a
// case-insensitive match; an empty name goes through the alias table.
func resolveColumn(header []string, field Field, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, nil
			}
		}
		return -1, &ColumnMappingError{Field: field, Column: name, Available: header}
	}

	if i := suggestColumn(header, field); i >= 0 {
		return i, nil
	}
	return -1, &ColumnMappingError{Field: field, Available: header}
}

// suggestColumn finds the conventional column for field, or -1.
func suggestColumn(header []string, field Field) int {
	for i, h := range header {
		if columnAliases[canonicalHeader(h)] == field {
			return i
		}
	}

	// Fallback: scan for any header containing "email" if no alias matched
	if field == FieldEmail {
		for i, h := range header {
			if strings.Contains(canonicalHeader(h), "email") {
				return i
			}
		}
	}
	return -1
}
