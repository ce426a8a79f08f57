package tagmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/normalize"
)

// Reconcile joins uploaded rows against the lookups in a single pass. Each
// row gets exactly one log entry: matched, unmatched_email, unmatched_tag or
// ambiguous_tag. Only matched rows are returned as enriched records, with
// their uploaded email and tag unchanged.
func Reconcile(records []domain.UploadedRecord, accounts AccountLookup, tags TagLookup) ([]domain.EnrichedRecord, []domain.ActionLogEntry) {
	enriched := make([]domain.EnrichedRecord, 0, len(records))
	log := make([]domain.ActionLogEntry, 0, len(records))

	for _, rec := range records {
		emailKey := normalize.Key(rec.RawEmail)
		tagKey := normalize.Key(rec.RawTag)

		accountID, ok := accounts[emailKey]
		if !ok {
			log = append(log, domain.ActionLogEntry{
				RowIndex: rec.RowIndex,
				Status:   domain.StatusUnmatchedEmail,
				Detail:   fmt.Sprintf("no email account for %q", rec.RawEmail),
			})
			continue
		}

		ids := tags[tagKey]
		switch {
		case len(ids) == 0:
			log = append(log, domain.ActionLogEntry{
				RowIndex: rec.RowIndex,
				Status:   domain.StatusUnmatchedTag,
				Detail:   fmt.Sprintf("no tag named %q", rec.RawTag),
			})
			continue
		case len(ids) > 1:
			log = append(log, domain.ActionLogEntry{
				RowIndex: rec.RowIndex,
				Status:   domain.StatusAmbiguousTag,
				Detail:   fmt.Sprintf("tag %q matches ids [%s]", rec.RawTag, joinIDs(ids)),
			})
			continue
		}

		enriched = append(enriched, domain.EnrichedRecord{
			RowIndex:       rec.RowIndex,
			Email:          rec.RawEmail,
			Tag:            rec.RawTag,
			EmailAccountID: accountID,
			TagID:          ids[0],
		})
		log = append(log, domain.ActionLogEntry{
			RowIndex: rec.RowIndex,
			Status:   domain.StatusMatched,
			TagID:    ids[0],
		})
	}

	return enriched, log
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
