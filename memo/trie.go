package memo

import (
	"runtime"

	"github.com/jonwraymond/weakmemo/internal/weakref"
)

// node is one position in the key trie. A node is reachable from the root
// through exactly one key sequence, so its slot caches at most one value.
type node[V any] struct {
	children keyMap[V]
	slot     *slot[V]

	// parent is nil for the root and for nodes that have been detached.
	parent *node[V]
	id     any

	// keyCleanup removes this node once its pointer key is collected.
	keyCleanup runtime.Cleanup
}

func newRoot[V any]() *node[V] {
	return &node[V]{}
}

// empty reports whether the node can be pruned.
func (n *node[V]) empty() bool {
	return n.slot == nil && n.children.len() == 0
}

// attached reports whether n is still the child its parent holds under n.id.
func (n *node[V]) attached() bool {
	return n.parent != nil && n.parent.children.get(n.id) == n
}

// path returns the nodes from the first level below the root down to n.
// It stops early at a detached ancestor.
func (n *node[V]) path() []*node[V] {
	var nodes []*node[V]
	for cur := n; cur.parent != nil; cur = cur.parent {
		nodes = append(nodes, cur)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

// release stops every pending cleanup below and including n and returns the
// number of slots dropped.
func (n *node[V]) release() int {
	dropped := 0
	if n.slot != nil {
		n.slot.stop()
		n.slot = nil
		dropped++
	}
	n.keyCleanup.Stop()
	n.children.each(func(_ any, child *node[V]) {
		dropped += child.release()
	})
	return dropped
}

// count returns the number of nodes, filled slots and live slots below and
// including n.
func (n *node[V]) count() (nodes, entries, live int) {
	nodes = 1
	if n.slot != nil {
		entries++
		if _, ok := n.slot.get(); ok {
			live++
		}
	}
	n.children.each(func(_ any, child *node[V]) {
		cn, ce, cl := child.count()
		nodes += cn
		entries += ce
		live += cl
	})
	return nodes, entries, live
}

// slot holds one cached value: a weak handle for pointer values, the value
// itself otherwise.
type slot[V any] struct {
	ref     weakref.Pointer
	cleanup runtime.Cleanup
	value   V
	strong  bool
}

// get returns the cached value if it is still live.
func (s *slot[V]) get() (V, bool) {
	var zero V
	if s == nil {
		return zero, false
	}
	if s.strong {
		return s.value, true
	}
	v := s.ref.Value()
	if v == nil {
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// stop cancels the pending finalization delivery, if any.
func (s *slot[V]) stop() {
	if s != nil && !s.strong {
		s.cleanup.Stop()
	}
}

// traverseOrCreate walks ids from root, creating missing nodes, and returns
// every node visited below the root. onCreate runs for each new node.
func traverseOrCreate[V any](root *node[V], ids []any, onCreate func(*node[V])) []*node[V] {
	nodes := make([]*node[V], 0, len(ids))
	cur := root
	for _, id := range ids {
		next := cur.children.get(id)
		if next == nil {
			next = &node[V]{parent: cur, id: id}
			cur.children.set(id, next)
			if onCreate != nil {
				onCreate(next)
			}
		}
		nodes = append(nodes, next)
		cur = next
	}
	return nodes
}

// traverseExisting walks ids from root without creating anything. The result
// is shorter than ids when the path is incomplete.
func traverseExisting[V any](root *node[V], ids []any) []*node[V] {
	nodes := make([]*node[V], 0, len(ids))
	cur := root
	for _, id := range ids {
		next := cur.children.get(id)
		if next == nil {
			break
		}
		nodes = append(nodes, next)
		cur = next
	}
	return nodes
}

// prune walks nodes from the leaf upward, detaching every node that has no
// slot and no children. It stops at the first node that must stay and
// returns the number of nodes removed.
func prune[V any](nodes []*node[V]) int {
	removed := 0
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !n.empty() || !n.attached() {
			break
		}
		n.parent.children.delete(n.id)
		n.keyCleanup.Stop()
		n.parent = nil
		removed++
	}
	return removed
}
