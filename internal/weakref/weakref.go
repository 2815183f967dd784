// Package weakref provides type-erased weak pointers and cleanup registration
// for values held behind an interface.
//
// The standard weak and runtime cleanup APIs are generic over the pointee
// type, which callers holding an `any` do not know statically. This package
// bridges the gap: any non-nil pointer can be turned into a comparable Pointer
// that does not keep its referent alive, and can have a cleanup attached.
//
// Only values of pointer kind are treated as objects. Everything else (strings,
// numbers, structs, maps, slices, funcs, channels) has no weak form.
package weakref

import (
	"reflect"
	"runtime"
	"unsafe"
	"weak"
)

// Pointer is a weak reference to the object behind a pointer of any type.
//
// Pointers made from the same pointer value compare equal, which makes them
// usable as map keys. A Pointer does not keep its referent reachable.
type Pointer struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

// Make returns a weak Pointer for v. It reports false if v is not a non-nil
// pointer.
func Make(v any) (Pointer, bool) {
	p, ok := address(v)
	if !ok {
		return Pointer{}, false
	}
	return Pointer{
		typ: reflect.TypeOf(v),
		ptr: weak.Make((*byte)(p)),
	}, true
}

// Value returns the referent with its original dynamic type, or nil if it
// has been reclaimed.
func (p Pointer) Value() any {
	if p.typ == nil {
		return nil
	}
	b := p.ptr.Value()
	if b == nil {
		return nil
	}
	return reflect.NewAt(p.typ.Elem(), unsafe.Pointer(b)).Convert(p.typ).Interface()
}

// Alive reports whether the referent is still reachable.
func (p Pointer) Alive() bool {
	return p.typ != nil && p.ptr.Value() != nil
}

// Type returns the pointer type the handle was made from.
func (p Pointer) Type() reflect.Type {
	return p.typ
}

// IsZero reports whether p was never made from a pointer.
func (p Pointer) IsZero() bool {
	return p.typ == nil
}

// IsObject reports whether v would get a weak Pointer from Make.
func IsObject(v any) bool {
	_, ok := address(v)
	return ok
}

// AddCleanup arranges for fn(arg) to run on a runtime goroutine some time
// after the object v points to becomes unreachable. Delivery is at most once
// and may never happen if the process exits first.
//
// fn and arg must not reference v, or v never becomes unreachable.
// It reports false if v is not a non-nil pointer.
func AddCleanup[S any](v any, fn func(S), arg S) (runtime.Cleanup, bool) {
	p, ok := address(v)
	if !ok {
		return runtime.Cleanup{}, false
	}
	return runtime.AddCleanup((*byte)(p), fn, arg), true
}

func address(v any) (unsafe.Pointer, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	return rv.UnsafePointer(), true
}
