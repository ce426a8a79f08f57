package tagmap

import (
	"context"
	"fmt"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

// Tagger performs one tag-apply write.
// *smartlead.Client satisfies this interface.
type Tagger interface {
	ApplyTags(ctx context.Context, tagID int64, accountIDs []int64) error
}

// Plan groups records by tag id (first-seen order), de-duplicates account ids
// within each tag (first-seen order) and splits them into chunks of at most
// maxBatchSize. Sizes outside 1..domain.MaxBatchSize mean domain.MaxBatchSize.
func Plan(records []domain.EnrichedRecord, maxBatchSize int) []domain.BatchChunk {
	if maxBatchSize <= 0 || maxBatchSize > domain.MaxBatchSize {
		maxBatchSize = domain.MaxBatchSize
	}

	type group struct {
		accountIDs []int64
		rows       map[int64][]int // account id -> uploaded rows
		seen       map[int64]bool
	}
	var order []int64
	groups := make(map[int64]*group)

	for _, rec := range records {
		g, ok := groups[rec.TagID]
		if !ok {
			g = &group{rows: make(map[int64][]int), seen: make(map[int64]bool)}
			groups[rec.TagID] = g
			order = append(order, rec.TagID)
		}
		if !g.seen[rec.EmailAccountID] {
			g.seen[rec.EmailAccountID] = true
			g.accountIDs = append(g.accountIDs, rec.EmailAccountID)
		}
		g.rows[rec.EmailAccountID] = append(g.rows[rec.EmailAccountID], rec.RowIndex)
	}

	var chunks []domain.BatchChunk
	for _, tagID := range order {
		g := groups[tagID]
		for start := 0; start < len(g.accountIDs); start += maxBatchSize {
			end := start + maxBatchSize
			if end > len(g.accountIDs) {
				end = len(g.accountIDs)
			}
			ids := g.accountIDs[start:end:end]
			var rows []int
			for _, id := range ids {
				rows = append(rows, g.rows[id]...)
			}
			chunks = append(chunks, domain.BatchChunk{TagID: tagID, AccountIDs: ids, Rows: rows})
		}
	}
	return chunks
}

// BatchApplier writes enriched records to the vendor in chunks.
type BatchApplier struct {
	tagger       Tagger
	maxBatchSize int
}

// NewBatchApplier creates an applier. See Plan for how maxBatchSize is bounded.
func NewBatchApplier(tagger Tagger, maxBatchSize int) *BatchApplier {
	return &BatchApplier{tagger: tagger, maxBatchSize: maxBatchSize}
}

// Apply plans the chunks for records and sends them.
func (a *BatchApplier) Apply(ctx context.Context, records []domain.EnrichedRecord) []domain.ActionLogEntry {
	return a.ApplyChunks(ctx, Plan(records, a.maxBatchSize))
}

// ApplyChunks issues one write per chunk, in order, and logs one entry per
// chunk. A failed chunk never stops the remaining ones and nothing is
// retried or rolled back.
func (a *BatchApplier) ApplyChunks(ctx context.Context, chunks []domain.BatchChunk) []domain.ActionLogEntry {
	return a.applyChunks(ctx, chunks, nil)
}

// applyChunks is ApplyChunks with a keepAlive hook called before every write.
// When keepAlive fails, that chunk and every later one is logged as a
// failure without being sent.
func (a *BatchApplier) applyChunks(ctx context.Context, chunks []domain.BatchChunk, keepAlive func(context.Context) error) []domain.ActionLogEntry {
	log := make([]domain.ActionLogEntry, 0, len(chunks))
	for i, chunk := range chunks {
		if keepAlive != nil {
			if err := keepAlive(ctx); err != nil {
				logger.Error("apply lock lost, skipping remaining batches",
					"batch", i+1,
					"batches", len(chunks),
					"skipped", len(chunks)-i,
					"error", err,
				)
				for _, rest := range chunks[i:] {
					log = append(log, domain.ActionLogEntry{
						RowIndex:  domain.NoRow,
						Status:    domain.StatusApplyFailure,
						Detail:    fmt.Sprintf("not sent: %v", err),
						TagID:     rest.TagID,
						BatchSize: len(rest.AccountIDs),
					})
				}
				return log
			}
		}

		err := a.tagger.ApplyTags(ctx, chunk.TagID, chunk.AccountIDs)
		if err != nil {
			logger.Warn("tag batch failed",
				"batch", i+1,
				"batches", len(chunks),
				"tag_id", chunk.TagID,
				"size", len(chunk.AccountIDs),
				"error", err,
			)
			log = append(log, domain.ActionLogEntry{
				RowIndex:  domain.NoRow,
				Status:    domain.StatusApplyFailure,
				Detail:    err.Error(),
				TagID:     chunk.TagID,
				BatchSize: len(chunk.AccountIDs),
			})
			continue
		}

		logger.Info("tag batch applied",
			"batch", i+1,
			"batches", len(chunks),
			"tag_id", chunk.TagID,
			"size", len(chunk.AccountIDs),
		)
		log = append(log, domain.ActionLogEntry{
			RowIndex:  domain.NoRow,
			Status:    domain.StatusApplySuccess,
			Detail:    fmt.Sprintf("applied tag %d to %d accounts", chunk.TagID, len(chunk.AccountIDs)),
			TagID:     chunk.TagID,
			BatchSize: len(chunk.AccountIDs),
		})
	}
	return log
}
