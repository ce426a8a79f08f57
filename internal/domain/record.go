package domain

// NoRow is the RowIndex of log entries that describe a batch rather than an
// uploaded row.
const NoRow = -1

// UploadedRecord is one data row of the uploaded CSV, restricted to the two
// mapped columns. Values are kept exactly as read.
type UploadedRecord struct {
	RowIndex int    `json:"row_index"`
	RawEmail string `json:"raw_email"`
	RawTag   string `json:"raw_tag"`
}

// EnrichedRecord is an uploaded row whose email and tag both resolved to
// exactly one vendor identifier. Email and Tag carry the uploaded values.
type EnrichedRecord struct {
	RowIndex       int    `json:"row_index"`
	Email          string `json:"email"`
	Tag            string `json:"tag"`
	EmailAccountID int64  `json:"email_account_id"`
	TagID          int64  `json:"tag_id"`
}

// BatchChunk is one tag-apply write: a tag and at most MaxBatchSize accounts.
type BatchChunk struct {
	TagID      int64   `json:"tag_id"`
	AccountIDs []int64 `json:"account_ids"`
	Rows       []int   `json:"rows"` // uploaded rows covered by this chunk
}

// MaxBatchSize is the vendor's hard limit of account ids per tag-apply call.
const MaxBatchSize = 25
