package tagmap

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/ingest"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/distlock"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

var (
	// ErrApplyInProgress is returned when another run holds the apply lock.
	ErrApplyInProgress = errors.New("tagmap: another run is applying tags")
	// ErrNoTagger is returned when a non-dry run has nothing to write with.
	ErrNoTagger = errors.New("tagmap: no tag writer configured")
)

// ArtifactStore keeps exported files of a run and returns their location.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithApplyLock guards the apply step with a lock built per run.
func WithApplyLock(newLock func() distlock.DistLock) Option {
	return func(p *Pipeline) { p.newLock = newLock }
}

// WithArtifactStore uploads the exported CSVs of every run.
func WithArtifactStore(store ArtifactStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// Pipeline runs one upload end to end: ingest, fetch lookups, reconcile,
// apply (unless dry-run) and export. It keeps no state between runs.
type Pipeline struct {
	fetcher      *LookupFetcher
	applier      *BatchApplier
	maxBatchSize int
	newLock      func() distlock.DistLock
	store        ArtifactStore
}

// NewPipeline creates a pipeline. tagger may be nil for dry-run only use.
func NewPipeline(dir Directory, tagger Tagger, maxBatchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:      NewLookupFetcher(dir),
		maxBatchSize: maxBatchSize,
	}
	if tagger != nil {
		p.applier = NewBatchApplier(tagger, maxBatchSize)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunInput is one uploaded file with its column mapping.
type RunInput struct {
	Data    []byte
	Mapping ingest.ColumnMapping
	DryRun  bool
}

// RunResult holds everything a run produced.
type RunResult struct {
	RunID      string                  `json:"run_id"`
	Meta       ingest.Meta             `json:"meta"`
	Enriched   []domain.EnrichedRecord `json:"enriched"`
	Log        []domain.ActionLogEntry `json:"log"`
	Chunks     []domain.BatchChunk     `json:"chunks"`
	Rows       []RowResult             `json:"rows"`
	Summary    Summary                 `json:"summary"`
	Artifacts  []string                `json:"artifacts,omitempty"`
	MappedCSV  []byte                  `json:"-"`
	ResultsCSV []byte                  `json:"-"`
}

// Lookups fetches the account and tag lookups without running an upload.
func (p *Pipeline) Lookups(ctx context.Context) (AccountLookup, TagLookup, error) {
	return p.fetcher.Fetch(ctx)
}

// Run processes in. Ingest and lookup failures abort the run; apply failures
// are recorded per chunk in the log and the run still completes.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	records, meta, err := ingest.Parse(in.Data, in.Mapping)
	if err != nil {
		return nil, err
	}
	logger.Info("upload parsed",
		"run_id", runID,
		"rows", meta.Rows,
		"delimiter", meta.Delimiter,
		"encoding", meta.Encoding,
	)

	accounts, tags, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	enriched, reconcileLog := Reconcile(records, accounts, tags)
	chunks := Plan(enriched, p.maxBatchSize)

	var applyLog []domain.ActionLogEntry
	if !in.DryRun && len(chunks) > 0 {
		applyLog, err = p.apply(ctx, chunks)
		if err != nil {
			return nil, err
		}
	}

	log := make([]domain.ActionLogEntry, 0, len(reconcileLog)+len(applyLog))
	log = append(log, reconcileLog...)
	log = append(log, applyLog...)

	result := &RunResult{
		RunID:    runID,
		Meta:     meta,
		Enriched: enriched,
		Log:      log,
		Chunks:   chunks,
		Rows:     buildRowResults(records, accounts, tags, reconcileLog, chunks, applyLog),
		Summary:  summarize(reconcileLog, chunks, applyLog, in.DryRun),
	}

	if result.MappedCSV, err = Export(enriched); err != nil {
		return nil, fmt.Errorf("exporting mapped records: %w", err)
	}
	if result.ResultsCSV, err = ExportResults(result.Rows); err != nil {
		return nil, fmt.Errorf("exporting row results: %w", err)
	}
	p.storeArtifacts(ctx, result)

	logger.Info("run completed",
		"run_id", runID,
		"rows", result.Summary.TotalRows,
		"matched", result.Summary.Matched,
		"no_account", result.Summary.UnmatchedEmail,
		"no_tag", result.Summary.UnmatchedTag,
		"ambiguous", result.Summary.AmbiguousTag,
		"batches", result.Summary.TotalBatches,
		"failed_batches", result.Summary.FailedBatches,
		"dry_run", in.DryRun,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func (p *Pipeline) apply(ctx context.Context, chunks []domain.BatchChunk) ([]domain.ActionLogEntry, error) {
	if p.applier == nil {
		return nil, ErrNoTagger
	}

	var keepAlive func(context.Context) error
	if p.newLock != nil {
		lock := p.newLock()
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquiring apply lock: %w", err)
		}
		if !ok {
			return nil, ErrApplyInProgress
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("releasing apply lock failed", "error", err)
			}
		}()
		keepAlive = lock.Extend
	}

	return p.applier.applyChunks(ctx, chunks, keepAlive), nil
}

// storeArtifacts uploads both CSVs. Upload failures are logged and leave the
// run result intact.
func (p *Pipeline) storeArtifacts(ctx context.Context, result *RunResult) {
	if p.store == nil {
		return
	}
	files := []struct {
		name string
		body []byte
	}{
		{MappedFilename, result.MappedCSV},
		{ResultsFilename, result.ResultsCSV},
	}
	for _, f := range files {
		location, err := p.store.Put(ctx, path.Join("runs", result.RunID, f.name), f.body, CSVContentType)
		if err != nil {
			logger.Warn("artifact upload failed", "run_id", result.RunID, "file", f.name, "error", err)
			continue
		}
		result.Artifacts = append(result.Artifacts, location)
	}
}
