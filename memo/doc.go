// Package memo provides a multi-key memoization registry whose entries
// disappear when the garbage collector reclaims them.
//
// A Registry maps an ordered sequence of keys to one cached value. Keys are
// stored in a trie: each key selects a child of the previous position, and the
// final position holds the value.
//
// # Keys
//
// Pointer keys are compared by identity and held weakly. When a pointer key is
// collected, every entry registered through it is dropped. All other keys
// (strings, numbers, bools, nil, comparable structs) are compared by value and
// held strongly; they must be comparable. A float or complex NaN key matches
// any other NaN of the same type. Struct and array keys holding a NaN are
// rejected with ErrUncomparableKey.
//
// A value stored strongly keeps alive everything it references. If it refers
// to one of its own pointer keys, that key is never collected and the entry
// stays until Unregister removes it.
//
// A key sequence must be non-empty:
//
//	_, err := reg.Register(nil, factory) // ErrInvalidKey
//
// # Values
//
// Pointer values are held weakly. Once the last outside reference to a cached
// pointer is gone, the registry evicts the entry and prunes trie nodes that
// are left with no value and no children. A later Register for the same keys
// calls the factory again.
//
// Any other value is held strongly and stays until Unregister removes it.
//
// # Usage
//
//	reg := memo.New[*Plan](memo.WithName("plans"))
//
//	plan, err := reg.Register([]any{tenant, "daily", 7}, func() *Plan {
//	    return buildPlan(tenant, "daily", 7)
//	})
//
// # Concurrency
//
// All Registry methods are safe for concurrent use. Factories run without
// the registry lock held, and concurrent misses for the same key sequence
// share a single factory call. A factory may register other key sequences but
// must not register its own.
//
// # Observability
//
// WithMiddleware attaches tracing, metrics and logging from the observe
// package. Lookups, factory calls and evictions are all reported.
package memo
