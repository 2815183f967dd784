package memo

import "github.com/jonwraymond/weakmemo/internal/weakref"

// snapshot is the token delivered when a cached value is collected. It must
// not keep the key objects or the value alive, so pointer keys appear only as
// the weak ids the trie already uses.
type snapshot struct {
	ids   []any
	value weakref.Pointer
}

func newSnapshot(ids []any, value weakref.Pointer) snapshot {
	return snapshot{ids: ids, value: value}
}

// resolve reports whether every pointer key is still alive. When one has been
// collected its subtree is already orphaned and the eviction is dropped.
func (s snapshot) resolve() ([]any, bool) {
	for _, id := range s.ids {
		if p, ok := id.(weakref.Pointer); ok && !p.Alive() {
			return nil, false
		}
	}
	return s.ids, true
}
