package domain

// Status classifies an action log entry.
type Status string

const (
	StatusMatched        Status = "matched"
	StatusUnmatchedEmail Status = "unmatched_email"
	StatusUnmatchedTag   Status = "unmatched_tag"
	StatusAmbiguousTag   Status = "ambiguous_tag"
	StatusApplySuccess   Status = "apply_success"
	StatusApplyFailure   Status = "apply_failure"
)

// IsSkip reports whether the status excludes a row from the enriched output.
func (s Status) IsSkip() bool {
	switch s {
	case StatusUnmatchedEmail, StatusUnmatchedTag, StatusAmbiguousTag:
		return true
	default:
		return false
	}
}

// IsApply reports whether the status describes a tag-apply batch.
func (s Status) IsApply() bool {
	return s == StatusApplySuccess || s == StatusApplyFailure
}

// ActionLogEntry is one line of a run's append-only action log. Row entries
// carry the uploaded RowIndex; batch entries use NoRow and fill TagID and
// BatchSize.
type ActionLogEntry struct {
	RowIndex  int    `json:"row_index"`
	Status    Status `json:"status"`
	Detail    string `json:"detail,omitempty"`
	TagID     int64  `json:"tag_id,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
}
