// Package arc implements the ownership model for foreign objects.
//
// A typed wrapper is any struct embedding Object. Values of the wrapper type
// itself are borrowed references. Ownership is carried by the handle types:
//
//	R[T]  owns exactly one retain and releases it once
//	AR[T] is autoreleased into the innermost pool of the current thread
//	A[T]  is allocated but not yet initialized
//	Weak[T] is a zeroing weak reference
//
// A nil object pointer never produces a handle; constructors report it as a
// false second result instead.
package arc

import (
	"fmt"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/pkg/errors"
)

var (
	// ErrPoolDrained is raised when an autoreleased handle is used after its
	// pool was drained.
	ErrPoolDrained = errors.New("arc: autoreleased object used after its pool was drained")
	// ErrNoPool is raised when an autoreleased result is wrapped with no
	// pool on the current thread.
	ErrNoPool = errors.New("arc: no autorelease pool in place")
	// ErrReleased is raised when an owned handle is used after Release or Leak.
	ErrReleased = errors.New("arc: owned handle used after release")
)

// Object is an untyped, non-nil reference to a foreign object. It never
// retains or releases.
type Object struct {
	rt abi.Runtime
	id abi.ID
}

// Runtime returns the runtime the object lives in.
func (o Object) Runtime() abi.Runtime { return o.rt }

// ID returns the raw object pointer.
func (o Object) ID() abi.ID { return o.id }

// Class returns the object's dynamic class.
func (o Object) Class() abi.Class { return o.rt.ObjectClass(o.id) }

func (o Object) String() string {
	if o.rt == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("<%s %v>", o.rt.ClassName(o.Class()), o.id)
}

func (o *Object) attach(obj Object) { *o = obj }

func (o *Object) object() Object { return *o }

// Wrapper is satisfied by pointers to structs embedding Object.
type Wrapper[T any] interface {
	*T
	Runtime() abi.Runtime
	ID() abi.ID
	attach(Object)
	object() Object
}

func wrap[T any, P Wrapper[T]](obj Object) T {
	var t T
	P(&t).attach(obj)
	return t
}

// Borrow views id as a T without taking ownership.
func Borrow[T any, P Wrapper[T]](rt abi.Runtime, id abi.ID) (T, bool) {
	if id == 0 {
		var zero T
		return zero, false
	}
	return wrap[T, P](Object{rt: rt, id: id}), true
}

// Own takes over an existing +1 on id. No retain is issued.
func Own[T any, P Wrapper[T]](rt abi.Runtime, id abi.ID) (*R[T], bool) {
	if id == 0 {
		return nil, false
	}
	obj := Object{rt: rt, id: id}
	return &R[T]{v: wrap[T, P](obj), obj: obj}, true
}

// Claim takes ownership of a +0 autoreleased return value by retaining it,
// letting the runtime skip the autorelease when it can.
func Claim[T any, P Wrapper[T]](rt abi.Runtime, id abi.ID) (*R[T], bool) {
	if id == 0 {
		return nil, false
	}
	return Own[T, P](rt, rt.RetainAutoreleased(id))
}

// Retain takes a new +1 on a borrowed object.
func Retain[T any, P Wrapper[T]](v T) *R[T] {
	obj := P(&v).object()
	obj.rt.Retain(obj.id)
	return &R[T]{v: v, obj: obj}
}

// R is an owned handle. It holds exactly one retain, given back by Release.
type R[T any] struct {
	v    T
	obj  Object
	done bool
}

// Get borrows the wrapped object. The result must not outlive the handle.
func (r *R[T]) Get() T {
	r.check()
	return r.v
}

// Runtime returns the runtime of the owned object.
func (r *R[T]) Runtime() abi.Runtime { return r.obj.rt }

// ID returns the raw object pointer.
func (r *R[T]) ID() abi.ID {
	r.check()
	return r.obj.id
}

// Object returns the untyped borrowed view.
func (r *R[T]) Object() Object {
	r.check()
	return r.obj
}

// Released reports whether the handle has given up its retain.
func (r *R[T]) Released() bool { return r.done }

func (r *R[T]) check() {
	if r.done {
		panic(ErrReleased)
	}
}

// Retained issues one retain and returns a second owned handle to the same
// object.
func (r *R[T]) Retained() *R[T] {
	r.check()
	r.obj.rt.Retain(r.obj.id)
	return &R[T]{v: r.v, obj: r.obj}
}

// Release gives back the handle's retain. Calling Release again on the same
// handle does nothing.
func (r *R[T]) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	r.obj.rt.Release(r.obj.id)
}

// Leak disarms the handle and hands its +1 to the caller, typically to return
// an owned object across the boundary.
func (r *R[T]) Leak() abi.ID {
	r.check()
	r.done = true
	return r.obj.id
}

func (r *R[T]) String() string {
	if r.done {
		return "<released>"
	}
	return r.obj.String()
}
