package tagmap

import (
	"sort"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/normalize"
)

// AccountLookup maps a normalized email to its account id.
type AccountLookup map[string]int64

// TagLookup maps a normalized tag name to every distinct tag id sharing it,
// in vendor order. More than one id means the name is ambiguous.
type TagLookup map[string][]int64

// BuildAccountLookup indexes accounts by normalized email. When two accounts
// normalize to the same email the later one wins.
func BuildAccountLookup(accounts []domain.Account) AccountLookup {
	lookup := make(AccountLookup, len(accounts))
	for _, a := range accounts {
		key := normalize.Key(a.Email)
		if key == "" {
			continue
		}
		lookup[key] = a.ID
	}
	return lookup
}

// BuildTagLookup indexes tags by normalized name, keeping every distinct id.
func BuildTagLookup(tags []domain.Tag) TagLookup {
	lookup := make(TagLookup, len(tags))
	for _, t := range tags {
		key := normalize.Key(t.Name)
		if key == "" {
			continue
		}
		if !containsID(lookup[key], t.ID) {
			lookup[key] = append(lookup[key], t.ID)
		}
	}
	return lookup
}

// Ambiguous returns the normalized names that map to more than one tag id,
// sorted.
func (l TagLookup) Ambiguous() []string {
	var names []string
	for name, ids := range l {
		if len(ids) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve returns the single tag id for a normalized name. ok is false when
// the name is unknown or ambiguous.
func (l TagLookup) Resolve(key string) (id int64, ok bool) {
	ids := l[key]
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

func containsID(ids []int64, id int64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
