package arc

import "github.com/blacktop/objcrt/pkg/abi"

// Weak is a zeroing weak reference. It does not keep its object alive and
// must be closed to free its slot.
type Weak[T any] struct {
	rt     abi.Runtime
	slot   abi.Weak
	wrap   func(Object) T
	closed bool
}

// NewWeak makes a weak reference to the object v refers to.
func NewWeak[T any, P Wrapper[T]](v T) *Weak[T] {
	obj := P(&v).object()
	return &Weak[T]{rt: obj.rt, slot: obj.rt.NewWeak(obj.id), wrap: wrap[T, P]}
}

// Upgrade returns an owned handle to the object, or false once it has been
// deallocated.
func (w *Weak[T]) Upgrade() (*R[T], bool) {
	if w.closed {
		return nil, false
	}
	id := w.rt.LoadWeakRetained(w.slot)
	if id == 0 {
		return nil, false
	}
	obj := Object{rt: w.rt, id: id}
	return &R[T]{v: w.wrap(obj), obj: obj}, true
}

// Clone returns an independent weak reference to the same object.
func (w *Weak[T]) Clone() *Weak[T] {
	if w.closed {
		panic(ErrReleased)
	}
	return &Weak[T]{rt: w.rt, slot: w.rt.CopyWeak(w.slot), wrap: w.wrap}
}

// Close frees the weak slot. It is safe to call more than once.
func (w *Weak[T]) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.rt.DestroyWeak(w.slot)
}
