package tagmap

import (
	"context"
	"errors"
	"sync"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
)

type fakeDirectory struct {
	accounts    []domain.Account
	accountsErr error
	fallback    []domain.Account
	fallbackErr error
	tags        []domain.Tag
	tagsErr     error

	fallbackCalls int
}

func (d *fakeDirectory) FetchAccounts(ctx context.Context) ([]domain.Account, error) {
	return d.accounts, d.accountsErr
}

func (d *fakeDirectory) FetchAccountsFallback(ctx context.Context) ([]domain.Account, error) {
	d.fallbackCalls++
	return d.fallback, d.fallbackErr
}

func (d *fakeDirectory) FetchTags(ctx context.Context) ([]domain.Tag, error) {
	return d.tags, d.tagsErr
}

type applyCall struct {
	TagID      int64
	AccountIDs []int64
}

type fakeTagger struct {
	mu    sync.Mutex
	calls []applyCall
	// failTags makes every write for these tag ids fail.
	failTags map[int64]bool
}

func (f *fakeTagger) ApplyTags(ctx context.Context, tagID int64, accountIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, applyCall{TagID: tagID, AccountIDs: append([]int64(nil), accountIDs...)})
	if f.failTags[tagID] {
		return errors.New("vendor rejected batch")
	}
	return nil
}

func ids(from, to int64) []int64 {
	var out []int64
	for id := from; id <= to; id++ {
		out = append(out, id)
	}
	return out
}
