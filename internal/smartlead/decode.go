package smartlead

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// entry is one decoded listing row.
type entry struct {
	ID  int64
	Key string
}

// decodeRows reads a JSON array of objects, keeping rows with a usable id and
// a non-empty key. A non-empty listing in which no row carries both fields
// means the schema does not match the response.
func decodeRows(raw json.RawMessage, idField, keyField string) ([]entry, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: expected a list of objects: %v", ErrMalformedResponse, err)
	}

	entries := make([]entry, 0, len(rows))
	withFields := 0
	for _, row := range rows {
		idRaw, hasID := row[idField]
		keyRaw, hasKey := row[keyField]
		if !hasID || !hasKey {
			continue
		}
		withFields++

		id, ok := parseID(idRaw)
		if !ok {
			continue
		}
		var key string
		if err := json.Unmarshal(keyRaw, &key); err != nil || strings.TrimSpace(key) == "" {
			continue
		}
		entries = append(entries, entry{ID: id, Key: key})
	}

	if len(rows) > 0 && withFields == 0 {
		return nil, fmt.Errorf("%w: rows lack fields %q and %q", ErrMalformedResponse, idField, keyField)
	}
	return entries, nil
}

// parseID accepts integer JSON numbers and numeric strings.
func parseID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	}

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// listingRows extracts the account array from a REST listing, which is
// either a bare array or an object wrapping one.
func listingRows(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, key := range []string{"data", "email_accounts", "accounts"} {
		if rows, ok := wrapped[key]; ok {
			return rows, nil
		}
	}
	return nil, fmt.Errorf("%w: no account list in response", ErrMalformedResponse)
}
