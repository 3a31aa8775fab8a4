// Package cf holds CoreFoundation handles and the toll-free bridge to their
// Objective-C counterparts.
//
// A CF object and its bridged NS object are the same object with a single
// retain count. CFRetain/CFRelease and retain/release move the same count,
// so converting a handle between the two worlds only transfers ownership and
// never issues a retain or release.
package cf

import (
	"fmt"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/pkg/errors"
)

// ErrReleased is raised when an owned CF handle is used after Release.
var ErrReleased = errors.New("cf: owned handle used after release")

// Object is an untyped, non-NULL CoreFoundation reference. It never retains
// or releases.
type Object struct {
	rt  abi.Runtime
	ref abi.CFTypeRef
}

// Runtime returns the runtime the object lives in.
func (o Object) Runtime() abi.Runtime { return o.rt }

// CFRef returns the raw CF pointer.
func (o Object) CFRef() abi.CFTypeRef { return o.ref }

// TypeID returns the CF type id of the object.
func (o Object) TypeID() abi.CFTypeID { return o.rt.CFGetTypeID(o.ref) }

// TypeName returns the name of the object's CF type, e.g. "CFString".
func (o Object) TypeName() string { return o.rt.CFTypeIDDescription(o.TypeID()) }

func (o Object) String() string {
	if o.rt == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("<%s %#x>", o.TypeName(), uintptr(o.ref))
}

func (o *Object) attach(obj Object) { *o = obj }

func (o *Object) object() Object { return *o }

// Wrapper is satisfied by pointers to structs embedding Object.
type Wrapper[T any] interface {
	*T
	attach(Object)
	object() Object
}

func wrap[T any, P Wrapper[T]](obj Object) T {
	var t T
	P(&t).attach(obj)
	return t
}

// Receiver is anything holding a CF reference.
type Receiver interface {
	Runtime() abi.Runtime
	CFRef() abi.CFTypeRef
}

// Borrow views ref as a T without taking ownership.
func Borrow[T any, P Wrapper[T]](rt abi.Runtime, ref abi.CFTypeRef) (T, bool) {
	if ref == 0 {
		var zero T
		return zero, false
	}
	return wrap[T, P](Object{rt: rt, ref: ref}), true
}

// Own takes over a +1 on ref, as returned by a Create or Copy function.
func Own[T any, P Wrapper[T]](rt abi.Runtime, ref abi.CFTypeRef) (*R[T], bool) {
	if ref == 0 {
		return nil, false
	}
	obj := Object{rt: rt, ref: ref}
	return &R[T]{v: wrap[T, P](obj), obj: obj}, true
}

// R is an owned CF handle holding exactly one CFRetain.
type R[T any] struct {
	v    T
	obj  Object
	done bool
}

func (r *R[T]) check() {
	if r.done {
		panic(ErrReleased)
	}
}

// Get borrows the wrapped object.
func (r *R[T]) Get() T {
	r.check()
	return r.v
}

// Runtime returns the runtime of the object.
func (r *R[T]) Runtime() abi.Runtime { return r.obj.rt }

// CFRef returns the raw CF pointer.
func (r *R[T]) CFRef() abi.CFTypeRef {
	r.check()
	return r.obj.ref
}

// Retained issues one CFRetain and returns a second owned handle.
func (r *R[T]) Retained() *R[T] {
	r.check()
	r.obj.rt.CFRetain(r.obj.ref)
	return &R[T]{v: r.v, obj: r.obj}
}

// Release issues the handle's CFRelease. Further calls do nothing.
func (r *R[T]) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	r.obj.rt.CFRelease(r.obj.ref)
}

// Released reports whether the handle has given up its retain.
func (r *R[T]) Released() bool { return r.done }

// Leak disarms the handle and returns its +1 to the caller.
func (r *R[T]) Leak() abi.CFTypeRef {
	r.check()
	r.done = true
	return r.obj.ref
}

// Type is the base wrapper for any CF object.
type Type struct {
	Object
}

// String is a CFStringRef.
type String struct{ Type }

// Number is a CFNumberRef.
type Number struct{ Type }

// Array is a CFArrayRef.
type Array struct{ Type }
