package arc

import (
	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/pool"
)

// AR is an autoreleased handle: valid until the pool that was innermost when
// it was wrapped is drained.
type AR[T any] struct {
	v    T
	obj  Object
	pool *pool.Pool
}

// Autoreleased wraps a +0 autoreleased return value. The handle is bound to
// the innermost pool of s, which must exist.
func Autoreleased[T any, P Wrapper[T]](s *pool.Stack, id abi.ID) (*AR[T], bool) {
	if id == 0 {
		return nil, false
	}
	top := s.Top()
	if top == nil {
		panic(ErrNoPool)
	}
	obj := Object{rt: s.Runtime(), id: id}
	return &AR[T]{v: wrap[T, P](obj), obj: obj, pool: top}, true
}

// Autorelease moves the handle's retain into p, which must be the innermost
// pool of the calling thread. The owned handle is disarmed.
func (r *R[T]) Autorelease(p *pool.Pool) *AR[T] {
	r.check()
	if !p.IsTop() {
		panic(&pool.OrderError{Depth: p.Depth(), Top: p.Stack().Depth(), Msg: "autorelease into a pool that is not on top"})
	}
	r.done = true
	r.obj.rt.Autorelease(r.obj.id)
	return &AR[T]{v: r.v, obj: r.obj, pool: p}
}

// Valid reports whether the handle's pool is still open.
func (a *AR[T]) Valid() bool { return !a.pool.Drained() }

// Pool returns the pool the handle is bound to.
func (a *AR[T]) Pool() *pool.Pool { return a.pool }

func (a *AR[T]) check() {
	if a.pool.Drained() {
		panic(ErrPoolDrained)
	}
}

// Get borrows the object. It panics with ErrPoolDrained once the pool has
// been drained.
func (a *AR[T]) Get() T {
	a.check()
	return a.v
}

// Runtime returns the runtime of the object.
func (a *AR[T]) Runtime() abi.Runtime { return a.obj.rt }

// ID returns the raw object pointer.
func (a *AR[T]) ID() abi.ID {
	a.check()
	return a.obj.id
}

// Retain converts the handle to an owned one that survives the pool.
func (a *AR[T]) Retain() *R[T] {
	a.check()
	a.obj.rt.Retain(a.obj.id)
	return &R[T]{v: a.v, obj: a.obj}
}

// A is a freshly allocated, uninitialized object at +1. The only valid thing
// to do with it is to initialize it.
type A[T any] struct {
	obj  Object
	wrap func(Object) T
	done bool
}

// Allocated takes over the +1 returned by an alloc method.
func Allocated[T any, P Wrapper[T]](rt abi.Runtime, id abi.ID) (*A[T], bool) {
	if id == 0 {
		return nil, false
	}
	return &A[T]{obj: Object{rt: rt, id: id}, wrap: wrap[T, P]}, true
}

// ID returns the raw pointer of the uninitialized object.
func (a *A[T]) ID() abi.ID { return a.obj.id }

// Runtime returns the runtime of the object.
func (a *A[T]) Runtime() abi.Runtime { return a.obj.rt }

// Init sends an initializer to the allocated object and owns its result. The
// allocation is consumed either way; an initializer returning nil has already
// released it.
func (a *A[T]) Init(sel dispatch.Selector, args ...any) (*R[T], bool) {
	if a.done {
		panic(ErrReleased)
	}
	a.done = true
	id := dispatch.Send[abi.ID](dispatch.Raw(a.obj.rt, a.obj.id), sel, args...)
	if id == 0 {
		log.WithField("selector", sel.Name()).Debug("arc: initializer returned nil")
		return nil, false
	}
	obj := Object{rt: a.obj.rt, id: id}
	return &R[T]{v: a.wrap(obj), obj: obj}, true
}

// Discard releases an allocation that will never be initialized.
func (a *A[T]) Discard() {
	if a.done {
		return
	}
	a.done = true
	a.obj.rt.Release(a.obj.id)
}
