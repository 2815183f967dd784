package weakref

import (
	"reflect"
	"runtime"
	"testing"
	"time"
)

type blob struct {
	name    string
	payload []byte
}

type blobPtr *blob

// collect runs GC until cond holds or the deadline passes.
func collect(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met after repeated GC")
}

func TestMake_NonPointers(t *testing.T) {
	var nilBlob *blob
	tests := []struct {
		name string
		v    any
	}{
		{"nil", nil},
		{"typed nil pointer", nilBlob},
		{"string", "id"},
		{"int", 42},
		{"struct", blob{name: "x"}},
		{"slice", []int{1}},
		{"map", map[string]int{}},
		{"func", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Make(tt.v); ok {
				t.Errorf("Make(%T) ok = true, want false", tt.v)
			}
			if IsObject(tt.v) {
				t.Errorf("IsObject(%T) = true, want false", tt.v)
			}
		})
	}
}

func TestMake_ValueRoundTrip(t *testing.T) {
	b := &blob{name: "a"}
	p, ok := Make(b)
	if !ok {
		t.Fatal("Make on pointer should succeed")
	}
	got, ok := p.Value().(*blob)
	if !ok {
		t.Fatalf("Value() type = %T, want *blob", p.Value())
	}
	if got != b {
		t.Error("Value() returned a different pointer")
	}
	if p.Type() != reflect.TypeOf(b) {
		t.Errorf("Type() = %v, want %v", p.Type(), reflect.TypeOf(b))
	}
	if !p.Alive() {
		t.Error("Alive() = false for reachable referent")
	}
	runtime.KeepAlive(b)
}

func TestMake_NamedPointerType(t *testing.T) {
	var b blobPtr = &blob{name: "named"}
	p, ok := Make(b)
	if !ok {
		t.Fatal("Make on named pointer type should succeed")
	}
	if _, ok := p.Value().(blobPtr); !ok {
		t.Errorf("Value() type = %T, want blobPtr", p.Value())
	}
	runtime.KeepAlive(b)
}

func TestMake_Comparable(t *testing.T) {
	a := &blob{name: "a"}
	b := &blob{name: "b"}

	pa1, _ := Make(a)
	pa2, _ := Make(a)
	pb, _ := Make(b)

	if pa1 != pa2 {
		t.Error("handles for the same pointer should be equal")
	}
	if pa1 == pb {
		t.Error("handles for different pointers should differ")
	}

	m := map[any]string{pa1: "a"}
	if m[pa2] != "a" {
		t.Error("handle should work as a map key")
	}
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestZeroPointer(t *testing.T) {
	var p Pointer
	if !p.IsZero() {
		t.Error("zero Pointer should report IsZero")
	}
	if p.Value() != nil {
		t.Error("zero Pointer should have nil Value")
	}
	if p.Alive() {
		t.Error("zero Pointer should not be alive")
	}
}

func newWeakBlob() Pointer {
	p, _ := Make(&blob{name: "transient", payload: make([]byte, 64)})
	return p
}

func TestPointer_Reclaimed(t *testing.T) {
	p := newWeakBlob()
	collect(t, func() bool { return !p.Alive() })
	if p.Value() != nil {
		t.Error("Value() should be nil after collection")
	}
}

func TestAddCleanup_Fires(t *testing.T) {
	done := make(chan string, 1)
	func() {
		b := &blob{name: "watched", payload: make([]byte, 64)}
		if _, ok := AddCleanup(b, func(token string) { done <- token }, "token-1"); !ok {
			t.Fatal("AddCleanup on pointer should succeed")
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		runtime.GC()
		select {
		case got := <-done:
			if got != "token-1" {
				t.Errorf("cleanup token = %q, want %q", got, "token-1")
			}
			return
		case <-deadline:
			t.Fatal("cleanup did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAddCleanup_Stop(t *testing.T) {
	fired := make(chan struct{}, 1)
	func() {
		b := &blob{name: "stopped", payload: make([]byte, 64)}
		c, ok := AddCleanup(b, func(struct{}) { fired <- struct{}{} }, struct{}{})
		if !ok {
			t.Fatal("AddCleanup on pointer should succeed")
		}
		c.Stop()
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-fired:
		t.Error("stopped cleanup should not run")
	default:
	}
}

func TestAddCleanup_NonPointer(t *testing.T) {
	if _, ok := AddCleanup("value", func(int) {}, 0); ok {
		t.Error("AddCleanup on non-pointer should report false")
	}
}
