package tagmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

// Directory lists the vendor's accounts and tags.
// *smartlead.Client satisfies this interface.
type Directory interface {
	FetchAccounts(ctx context.Context) ([]domain.Account, error)
	FetchAccountsFallback(ctx context.Context) ([]domain.Account, error)
	FetchTags(ctx context.Context) ([]domain.Tag, error)
}

// TagFetchError reports that the tag listing could not be loaded. Tags have
// no fallback source, so this is fatal to a run.
type TagFetchError struct {
	Err error
}

func (e *TagFetchError) Error() string {
	return fmt.Sprintf("fetching tags: %v", e.Err)
}

func (e *TagFetchError) Unwrap() error { return e.Err }

// LookupFetcher builds the account and tag lookups for one run. Nothing is
// cached between runs.
type LookupFetcher struct {
	dir Directory
}

// NewLookupFetcher creates a fetcher over dir.
func NewLookupFetcher(dir Directory) *LookupFetcher {
	return &LookupFetcher{dir: dir}
}

// Fetch loads accounts (primary query, then the fallback listing if the
// primary fails) and then tags. Calls run one after another.
func (f *LookupFetcher) Fetch(ctx context.Context) (AccountLookup, TagLookup, error) {
	accounts, err := f.fetchAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}

	tags, err := f.dir.FetchTags(ctx)
	if err != nil {
		return nil, nil, &TagFetchError{Err: err}
	}

	accountLookup := BuildAccountLookup(accounts)
	tagLookup := BuildTagLookup(tags)
	logger.Info("lookups built",
		"accounts", len(accountLookup),
		"tags", len(tagLookup),
		"ambiguous_tags", len(tagLookup.Ambiguous()),
	)
	return accountLookup, tagLookup, nil
}

func (f *LookupFetcher) fetchAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, primaryErr := f.dir.FetchAccounts(ctx)
	if primaryErr == nil {
		return accounts, nil
	}
	logger.Warn("primary account query failed, using fallback listing", "error", primaryErr)

	accounts, fallbackErr := f.dir.FetchAccountsFallback(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("fetching accounts: %w", errors.Join(primaryErr, fallbackErr))
	}
	return accounts, nil
}
