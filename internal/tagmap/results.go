package tagmap

import (
	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/normalize"
)

// RowResult is the final outcome of one uploaded row. Ids are nil when they
// did not resolve; an ambiguous tag leaves TagID nil.
type RowResult struct {
	RowIndex        int           `json:"row_index"`
	Email           string        `json:"email"`
	EmailNormalized string        `json:"email_normalized"`
	Tag             string        `json:"tag"`
	EmailAccountID  *int64        `json:"email_account_id"`
	TagID           *int64        `json:"tag_id"`
	Status          domain.Status `json:"status"`
	Detail          string        `json:"detail,omitempty"`
}

// Summary counts the outcomes of a run.
type Summary struct {
	TotalRows      int  `json:"total_rows"`
	Matched        int  `json:"matched"`
	UnmatchedEmail int  `json:"unmatched_email"`
	UnmatchedTag   int  `json:"unmatched_tag"`
	AmbiguousTag   int  `json:"ambiguous_tag"`
	Skipped        int  `json:"skipped"`
	TotalBatches   int  `json:"total_batches"`
	AppliedBatches int  `json:"applied_batches"`
	FailedBatches  int  `json:"failed_batches"`
	AppliedRows    int  `json:"applied_rows"`
	FailedRows     int  `json:"failed_rows"`
	DryRun         bool `json:"dry_run"`
}

// buildRowResults merges the reconciliation log and, when chunks were sent,
// the per-chunk apply log into one result per uploaded row. applyLog[i]
// must describe chunks[i].
func buildRowResults(records []domain.UploadedRecord, accounts AccountLookup, tags TagLookup,
	reconcileLog []domain.ActionLogEntry, chunks []domain.BatchChunk, applyLog []domain.ActionLogEntry) []RowResult {

	byRow := make(map[int]domain.ActionLogEntry, len(reconcileLog))
	for _, e := range reconcileLog {
		byRow[e.RowIndex] = e
	}
	for i, chunk := range chunks {
		if i >= len(applyLog) {
			break
		}
		if !applyLog[i].Status.IsApply() {
			continue
		}
		for _, row := range chunk.Rows {
			byRow[row] = applyLog[i]
		}
	}

	results := make([]RowResult, 0, len(records))
	for _, rec := range records {
		emailKey := normalize.Key(rec.RawEmail)
		r := RowResult{
			RowIndex:        rec.RowIndex,
			Email:           rec.RawEmail,
			EmailNormalized: emailKey,
			Tag:             rec.RawTag,
		}
		if id, ok := accounts[emailKey]; ok {
			r.EmailAccountID = &id
		}
		if id, ok := tags.Resolve(normalize.Key(rec.RawTag)); ok {
			r.TagID = &id
		}
		if e, ok := byRow[rec.RowIndex]; ok {
			r.Status = e.Status
			if e.Status != domain.StatusApplySuccess {
				r.Detail = e.Detail
			}
		}
		results = append(results, r)
	}
	return results
}

// summarize counts row classifications and batch outcomes.
func summarize(reconcileLog []domain.ActionLogEntry, chunks []domain.BatchChunk, applyLog []domain.ActionLogEntry, dryRun bool) Summary {
	s := Summary{TotalRows: len(reconcileLog), TotalBatches: len(chunks), DryRun: dryRun}
	for _, e := range reconcileLog {
		if e.Status.IsSkip() {
			s.Skipped++
		}
		switch e.Status {
		case domain.StatusMatched:
			s.Matched++
		case domain.StatusUnmatchedEmail:
			s.UnmatchedEmail++
		case domain.StatusUnmatchedTag:
			s.UnmatchedTag++
		case domain.StatusAmbiguousTag:
			s.AmbiguousTag++
		}
	}
	for i, e := range applyLog {
		if !e.Status.IsApply() {
			continue
		}
		rows := 0
		if i < len(chunks) {
			rows = len(chunks[i].Rows)
		}
		switch e.Status {
		case domain.StatusApplySuccess:
			s.AppliedBatches++
			s.AppliedRows += rows
		case domain.StatusApplyFailure:
			s.FailedBatches++
			s.FailedRows += rows
		}
	}
	return s
}
