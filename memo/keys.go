package memo

import (
	"fmt"
	"math"
	"reflect"

	"github.com/jonwraymond/weakmemo/internal/weakref"
)

// ValidateKeys checks that keys can address a trie leaf.
func ValidateKeys(keys []any) error {
	_, err := normalizeKeys(keys)
	return err
}

// normalizeKeys maps each key to the id used in the trie maps. Pointer keys
// become weak handles so the trie never keeps them alive; every other key is
// used as is and must be comparable.
func normalizeKeys(keys []any) ([]any, error) {
	if len(keys) == 0 {
		return nil, ErrInvalidKey
	}

	ids := make([]any, len(keys))
	for i, k := range keys {
		id, err := keyID(k)
		if err != nil {
			return nil, fmt.Errorf("%w: position %d (%T)", err, i, k)
		}
		ids[i] = id
	}
	return ids, nil
}

func keyID(k any) (any, error) {
	if k == nil {
		return nil, nil
	}
	if p, ok := weakref.Make(k); ok {
		return p, nil
	}
	rv := reflect.ValueOf(k)
	if !rv.Comparable() {
		return nil, ErrUncomparableKey
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) {
			return nanKey{typ: rv.Type(), reNaN: true}, nil
		}
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		re, im := real(c), imag(c)
		if math.IsNaN(re) || math.IsNaN(im) {
			id := nanKey{typ: rv.Type(), re: re, im: im}
			if math.IsNaN(re) {
				id.re, id.reNaN = 0, true
			}
			if math.IsNaN(im) {
				id.im, id.imNaN = 0, true
			}
			return id, nil
		}
	case reflect.Struct, reflect.Array, reflect.Interface:
		if containsNaN(rv) {
			return nil, fmt.Errorf("%w: holds NaN", ErrUncomparableKey)
		}
	}
	return k, nil
}

// nanKey stands in for a float or complex key with a NaN part. NaN never
// equals itself, so the raw value could never be found again in a map.
type nanKey struct {
	typ          reflect.Type
	re, im       float64
	reNaN, imNaN bool
}

// containsNaN reports whether a composite key holds a NaN anywhere below it.
// Pointers are compared by address and are not followed.
func containsNaN(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return math.IsNaN(real(c)) || math.IsNaN(imag(c))
	case reflect.Struct:
		for i := range rv.NumField() {
			if containsNaN(rv.Field(i)) {
				return true
			}
		}
	case reflect.Array:
		for i := range rv.Len() {
			if containsNaN(rv.Index(i)) {
				return true
			}
		}
	case reflect.Interface:
		return !rv.IsNil() && containsNaN(rv.Elem())
	}
	return false
}

// keyMap is one trie level: key id -> child node. Primitive ids are held
// strongly; pointer ids are weak handles whose entries are removed by a
// cleanup once the key object is collected (see Registry.dropKey).
type keyMap[V any] struct {
	m map[any]*node[V]
}

func (km *keyMap[V]) get(id any) *node[V] {
	return km.m[id]
}

func (km *keyMap[V]) set(id any, n *node[V]) {
	if km.m == nil {
		km.m = make(map[any]*node[V])
	}
	km.m[id] = n
}

func (km *keyMap[V]) delete(id any) {
	delete(km.m, id)
}

func (km *keyMap[V]) len() int {
	return len(km.m)
}

func (km *keyMap[V]) each(fn func(id any, n *node[V])) {
	for id, n := range km.m {
		fn(id, n)
	}
}
