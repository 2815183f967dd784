package memo

import (
	"runtime"
	"testing"

	"github.com/jonwraymond/weakmemo/internal/weakref"
)

//go:noinline
func deadKeyID(t *testing.T) any {
	t.Helper()
	ids, err := normalizeKeys([]any{newWidget("gone", "1")})
	if err != nil {
		t.Fatal(err)
	}
	return ids[0]
}

func TestSnapshot_Resolve(t *testing.T) {
	live := newWidget("live", "1")
	ids, err := normalizeKeys([]any{"kind", live, 3})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := newSnapshot(ids, weakref.Pointer{}).resolve()
	if !ok || len(got) != 3 {
		t.Fatalf("resolve() = %v, %v; want all ids", got, ok)
	}
	runtime.KeepAlive(live)
}

func TestSnapshot_ResolveDeadKey(t *testing.T) {
	dead := deadKeyID(t)
	s := newSnapshot([]any{"kind", dead}, weakref.Pointer{})

	waitFor(t, func() bool {
		_, ok := s.resolve()
		return !ok
	})
}

func TestSnapshot_DoesNotRetainValue(t *testing.T) {
	r := New[*widget]()
	calls := 0
	keys := []any{"held", "weakly"}

	func() {
		w := mustRegister(t, r, keys, func() *widget {
			calls++
			return newWidget("v", "1")
		})
		runtime.KeepAlive(w)
	}()

	// The cleanup holds a snapshot; if it kept the value alive the entry
	// would never be evicted.
	waitFor(t, func() bool { return r.Stats().Entries == 0 })
	if calls != 1 {
		t.Errorf("factory called %d times", calls)
	}
}
