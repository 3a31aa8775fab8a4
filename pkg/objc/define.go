package objc

import (
	"fmt"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/pool"
)

// Def declares that wrapper type T stands for a runtime class and answers a
// set of protocols. Definitions are package-level values; nothing touches a
// runtime until Bind.
type Def[T any, P arc.Wrapper[T]] struct {
	class      *ClassDescriptor
	protocols  []*Protocol
	threadSafe bool

	bindings sync.Map // abi.Runtime -> *Binding[T, P]
}

// Define declares T as the wrapper of className conforming to protocols.
func Define[T any, P arc.Wrapper[T]](className string, protocols ...*Protocol) *Def[T, P] {
	return &Def[T, P]{class: Class(className), protocols: protocols}
}

// ThreadSafe marks T as safe to share between threads.
func (d *Def[T, P]) ThreadSafe() *Def[T, P] {
	d.threadSafe = true
	return d
}

// IsThreadSafe reports whether instances may be handed to another thread.
func (d *Def[T, P]) IsThreadSafe() bool { return d.threadSafe }

// Descriptor returns the class descriptor.
func (d *Def[T, P]) Descriptor() *ClassDescriptor { return d.class }

// Protocols returns the claimed protocols.
func (d *Def[T, P]) Protocols() []*Protocol { return d.protocols }

// Bind resolves the definition against rt. The class must be loaded and
// answer every required selector of the claimed protocols, otherwise Bind
// panics with *ConfigError. Bindings are cached per runtime.
func (d *Def[T, P]) Bind(rt abi.Runtime) *Binding[T, P] {
	if b, ok := d.bindings.Load(rt); ok {
		return b.(*Binding[T, P])
	}
	cls := d.class.Resolve(rt)
	for _, p := range d.protocols {
		if err := p.Check(rt, cls); err != nil {
			log.WithError(err).Error("objc: bad binding")
			panic(err)
		}
	}
	b, _ := d.bindings.LoadOrStore(rt, &Binding[T, P]{def: d, rt: rt, cls: cls})
	log.WithFields(log.Fields{
		"class":     d.class.name,
		"protocols": len(d.protocols),
		"runtime":   rt.Name(),
	}).Debug("objc: bound definition")
	return b.(*Binding[T, P])
}

// Binding is a definition resolved against one runtime.
type Binding[T any, P arc.Wrapper[T]] struct {
	def *Def[T, P]
	rt  abi.Runtime
	cls abi.Class
}

// Runtime returns the bound runtime.
func (b *Binding[T, P]) Runtime() abi.Runtime { return b.rt }

// Class returns the resolved class pointer.
func (b *Binding[T, P]) Class() abi.Class { return b.cls }

// Descriptor returns the class descriptor.
func (b *Binding[T, P]) Descriptor() *ClassDescriptor { return b.def.class }

// Cast checks that obj is an instance of the class and views it as a T.
func (b *Binding[T, P]) Cast(obj dispatch.Receiver) (T, bool) {
	if !b.def.class.Describes(obj) {
		var zero T
		return zero, false
	}
	return arc.Borrow[T, P](b.rt, obj.ID())
}

// MustCast is Cast for objects that are known to be of the class.
func (b *Binding[T, P]) MustCast(obj dispatch.Receiver) T {
	v, ok := b.Cast(obj)
	if !ok {
		panic(fmt.Sprintf("objc: %s is not a %s", b.rt.ClassName(b.rt.ObjectClass(obj.ID())), b.def.class.name))
	}
	return v
}

// Borrow views id as a T without a class check.
func (b *Binding[T, P]) Borrow(id abi.ID) (T, bool) {
	return arc.Borrow[T, P](b.rt, id)
}

// Own takes over a +1 on id.
func (b *Binding[T, P]) Own(id abi.ID) (*arc.R[T], bool) {
	return arc.Own[T, P](b.rt, id)
}

// Claim owns a +0 autoreleased return value by retaining it.
func (b *Binding[T, P]) Claim(id abi.ID) (*arc.R[T], bool) {
	return arc.Claim[T, P](b.rt, id)
}

// Autoreleased wraps a +0 autoreleased return value in the calling thread's
// innermost pool.
func (b *Binding[T, P]) Autoreleased(id abi.ID) (*arc.AR[T], bool) {
	return arc.Autoreleased[T, P](pool.Current(b.rt), id)
}

// Alloc allocates an uninitialized instance.
func (b *Binding[T, P]) Alloc() *arc.A[T] {
	return alloc[T, P](b.rt, b.def.class)
}

// New creates an instance with +new.
func (b *Binding[T, P]) New() *arc.R[T] {
	return newObject[T, P](b.rt, b.def.class)
}

// Init allocates an instance and sends it the initializer sel.
func (b *Binding[T, P]) Init(sel dispatch.Name, args ...any) (*arc.R[T], bool) {
	return b.Alloc().Init(sel.On(b.rt), args...)
}

// SendClass sends a class method that returns an object and hands back the
// raw pointer for Own, Claim or Autoreleased to take.
func (b *Binding[T, P]) SendClass(sel dispatch.Name, args ...any) abi.ID {
	return dispatch.SendClass[abi.ID](b.rt, b.cls, sel.On(b.rt), args...)
}
