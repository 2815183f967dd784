package memo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/weakmemo/internal/weakref"
	"github.com/jonwraymond/weakmemo/observe"
)

// Registry memoizes values by key sequence.
//
// Pointer values are held weakly: once nothing else references a cached
// pointer, the garbage collector reclaims it and the registry drops the entry
// and prunes the trie path that led to it. Other values are held strongly
// and leave only through Unregister.
//
// Registry methods are safe for concurrent use. Eviction triggered by the
// garbage collector runs on a runtime goroutine and takes the same lock.
type Registry[V any] struct {
	mu    sync.Mutex
	root  *node[V]
	group singleflight.Group

	meta observe.RegistryMeta
	mw   *observe.Middleware
}

// Stats describes the current shape of a registry.
type Stats struct {
	// Nodes is the number of trie nodes below the root.
	Nodes int
	// Entries is the number of filled slots, including weak slots whose value
	// was collected but not yet evicted.
	Entries int
	// Live is the number of slots whose value can still be returned.
	Live int
}

// New creates an empty registry.
func New[V any](opts ...Option) *Registry[V] {
	o := buildOptions(opts)
	return &Registry[V]{
		root: newRoot[V](),
		meta: o.meta,
		mw:   o.middleware,
	}
}

// Register returns the value cached for keys, or calls factory once and
// caches its result.
//
// keys must be non-empty; otherwise ErrInvalidKey is returned and factory is
// not called. Pointer keys are compared by identity, other keys by value and
// must be comparable.
//
// factory runs without the registry lock held, so it may register other
// entries. Concurrent misses for the same keys share one factory call. A
// factory must not register its own key sequence. If factory panics, every
// caller sharing the call panics with the same value and nothing is cached.
func (r *Registry[V]) Register(keys []any, factory func() V) (V, error) {
	return r.RegisterContext(context.Background(), keys, factory)
}

// RegisterContext is Register with a context used as the parent of the
// compute span and for telemetry.
func (r *Registry[V]) RegisterContext(ctx context.Context, keys []any, factory func() V) (V, error) {
	defer runtime.KeepAlive(keys)

	var zero V
	ids, err := normalizeKeys(keys)
	if err != nil {
		return zero, err
	}
	if factory == nil {
		return zero, ErrNilFactory
	}

	r.mu.Lock()
	leaf := r.leaf(ids)
	cached, ok := leaf.slot.get()
	r.mu.Unlock()

	r.mw.Lookup(ctx, r.meta, ok)
	if ok {
		return cached, nil
	}

	computed := r.compute(ctx, leaf, ids, factory)

	r.mu.Lock()
	defer r.mu.Unlock()

	// The path may have been pruned while factory ran.
	leaf = r.leaf(ids)
	if cached, ok := leaf.slot.get(); ok {
		return cached, nil
	}
	r.store(leaf, ids, computed)
	return computed, nil
}

// Unregister removes the entry for keys and prunes trie nodes left empty.
//
// keys must be non-empty; otherwise ErrInvalidKey is returned. Removing an
// absent entry is a no-op.
func (r *Registry[V]) Unregister(keys []any) error {
	defer runtime.KeepAlive(keys)

	ids, err := normalizeKeys(keys)
	if errors.Is(err, ErrUncomparableKey) {
		// Such a sequence can never have been registered.
		return nil
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	nodes := traverseExisting(r.root, ids)
	if len(nodes) < len(ids) {
		r.mu.Unlock()
		return nil
	}

	leaf := nodes[len(nodes)-1]
	removed := 0
	if leaf.slot != nil {
		leaf.slot.stop()
		removed = 1
	}
	leaf.slot = nil
	prune(nodes)
	r.mu.Unlock()

	r.mw.Evicted(context.Background(), r.meta, observe.ReasonUnregistered, removed)
	return nil
}

// Stats returns a snapshot of the trie shape.
func (r *Registry[V]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodes, entries, live := r.root.count()
	return Stats{
		Nodes:   nodes - 1,
		Entries: entries,
		Live:    live,
	}
}

// leaf returns the node for ids, creating the path as needed.
// Callers hold r.mu.
func (r *Registry[V]) leaf(ids []any) *node[V] {
	nodes := traverseOrCreate(r.root, ids, r.watchKey)
	return nodes[len(nodes)-1]
}

// compute runs factory through the middleware, collapsing concurrent calls
// for the same leaf. If factory panics, the path created for it is pruned
// and the original panic value is re-raised.
func (r *Registry[V]) compute(ctx context.Context, leaf *node[V], ids []any, factory func() V) V {
	completed := false
	defer func() {
		if completed {
			return
		}
		r.mu.Lock()
		prune(traverseExisting(r.root, ids))
		r.mu.Unlock()
	}()

	fn := r.mw.Wrap(func(context.Context, observe.RegistryMeta, int) (any, bool) {
		v := factory()
		return v, weakref.IsObject(v)
	})

	res, _, _ := r.group.Do(fmt.Sprintf("%p", leaf), func() (res any, err error) {
		// singleflight wraps panics in its own error type; carry the
		// original value out instead.
		defer func() {
			if p := recover(); p != nil {
				res = panicked{value: p}
			}
		}()
		v, _ := fn(ctx, r.meta, len(ids))
		return v, nil
	})
	if p, ok := res.(panicked); ok {
		panic(p.value)
	}
	completed = true

	v, _ := res.(V)
	return v
}

// panicked carries a factory panic out of a shared call so every caller
// re-raises the original value.
type panicked struct {
	value any
}

// store fills leaf with v. Callers hold r.mu.
func (r *Registry[V]) store(leaf *node[V], ids []any, v V) {
	// A dead weak slot may still have a cleanup queued; evict ignores it
	// because the handle no longer matches.
	leaf.slot.stop()

	p, ok := weakref.Make(v)
	if !ok {
		leaf.slot = &slot[V]{value: v, strong: true}
		return
	}

	s := &slot[V]{ref: p}
	s.cleanup, _ = weakref.AddCleanup(v, r.collected, newSnapshot(ids, p))
	leaf.slot = s
}

// watchKey arranges for n to be dropped once its pointer key is collected.
// Callers hold r.mu.
func (r *Registry[V]) watchKey(n *node[V]) {
	p, ok := n.id.(weakref.Pointer)
	if !ok {
		return
	}
	key := p.Value()
	if key == nil {
		return
	}
	parent := n.parent
	n.keyCleanup, _ = weakref.AddCleanup(key, func(id weakref.Pointer) {
		r.dropKey(parent, id)
	}, p)
}

// collected is the finalization callback for cached pointer values.
func (r *Registry[V]) collected(s snapshot) {
	r.evict(s)
}

// evict removes the entry described by s if the leaf still holds the value
// the snapshot was taken for. It reports whether anything was removed.
func (r *Registry[V]) evict(s snapshot) bool {
	ids, ok := s.resolve()
	if !ok {
		return false
	}

	r.mu.Lock()
	nodes := traverseExisting(r.root, ids)
	if len(nodes) < len(ids) {
		r.mu.Unlock()
		return false
	}
	leaf := nodes[len(nodes)-1]
	if leaf.slot == nil || leaf.slot.strong || leaf.slot.ref != s.value {
		r.mu.Unlock()
		return false
	}
	leaf.slot = nil
	prune(nodes)
	r.mu.Unlock()

	r.mw.Evicted(context.Background(), r.meta, observe.ReasonCollected, 1)
	return true
}

// dropKey removes the subtree under a collected pointer key.
func (r *Registry[V]) dropKey(parent *node[V], id weakref.Pointer) {
	r.mu.Lock()
	child := parent.children.get(id)
	if child == nil {
		r.mu.Unlock()
		return
	}
	parent.children.delete(id)
	child.parent = nil
	dropped := child.release()
	prune(parent.path())
	r.mu.Unlock()

	r.mw.Evicted(context.Background(), r.meta, observe.ReasonKeyCollected, dropped)
}
