package ns

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/cf"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
)

// Array is an NSArray. Elements are returned borrowed; they stay alive as
// long as the array holds them.
type Array struct{ objc.Id }

// MutableArray is an NSMutableArray.
type MutableArray struct{ Array }

var (
	ArrayClass        = objc.Define[Array]("NSArray", objc.NSObjectProtocol, Copying, MutableCopying)
	MutableArrayClass = objc.Define[MutableArray]("NSMutableArray", objc.NSObjectProtocol, Copying, MutableCopying)
	ArrayBridge       = cf.NewBridge[Array, cf.Array]("NSArray", "CFArray")
)

var (
	selArrayWithObject  = dispatch.Name("arrayWithObject:")
	selInitWithCapacity = dispatch.Name("initWithCapacity:")
	selCount            = dispatch.Name("count")
	selObjectAtIndex    = dispatch.Name("objectAtIndex:")
	selFirstObject      = dispatch.Name("firstObject")
	selLastObject       = dispatch.Name("lastObject")
	selContainsObject   = dispatch.Name("containsObject:")
	selAddObject        = dispatch.Name("addObject:")
	selRemoveLastObject = dispatch.Name("removeLastObject")
	selRemoveAllObjects = dispatch.Name("removeAllObjects")
)

// NewArray creates an owned, empty NSArray.
func NewArray(rt abi.Runtime) *arc.R[Array] {
	return ArrayClass.Bind(rt).New()
}

// ArrayWithObject returns an autoreleased one element array.
func ArrayWithObject(rt abi.Runtime, obj dispatch.Receiver) (*arc.AR[Array], bool) {
	b := ArrayClass.Bind(rt)
	return b.Autoreleased(b.SendClass(selArrayWithObject, obj))
}

// Count sends -count.
func (a Array) Count() uint64 {
	return dispatch.Send[uint64](a, selCount.On(a.Runtime()))
}

func (a Array) element(id abi.ID) (objc.Id, bool) {
	return arc.Borrow[objc.Id](a.Runtime(), id)
}

// ObjectAt returns the element at index i. Out of range indexes raise the
// runtime's NSRangeException.
func (a Array) ObjectAt(i uint64) objc.Id {
	id := dispatch.Send[abi.ID](a, selObjectAtIndex.On(a.Runtime()), i)
	obj, _ := a.element(id)
	return obj
}

// First returns the first element, if any.
func (a Array) First() (objc.Id, bool) {
	return a.element(dispatch.Send[abi.ID](a, selFirstObject.On(a.Runtime())))
}

// Last returns the last element, if any.
func (a Array) Last() (objc.Id, bool) {
	return a.element(dispatch.Send[abi.ID](a, selLastObject.On(a.Runtime())))
}

// Contains reports whether an element -isEqual: obj.
func (a Array) Contains(obj dispatch.Receiver) bool {
	return dispatch.Send[bool](a, selContainsObject.On(a.Runtime()), obj)
}

// Copy returns an owned immutable copy.
func (a Array) Copy() *arc.R[Array] {
	return sendOwned[Array](a, selCopy)
}

// MutableCopy returns an owned mutable copy.
func (a Array) MutableCopy() *arc.R[MutableArray] {
	return sendOwned[MutableArray](a, selMutableCopy)
}

// At returns element i of a as a T, checking its class against def.
func At[T any, P arc.Wrapper[T]](a Array, def *objc.Def[T, P], i uint64) (T, bool) {
	return def.Bind(a.Runtime()).Cast(a.ObjectAt(i))
}

// Elements returns every element of a that is a T. Elements of other classes
// are skipped.
func Elements[T any, P arc.Wrapper[T]](a Array, def *objc.Def[T, P]) []T {
	b := def.Bind(a.Runtime())
	n := a.Count()
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		if v, ok := b.Cast(a.ObjectAt(i)); ok {
			out = append(out, v)
		}
	}
	return out
}

// NewMutableArray creates an owned, empty NSMutableArray.
func NewMutableArray(rt abi.Runtime, capacity uint64) *arc.R[MutableArray] {
	h, ok := MutableArrayClass.Bind(rt).Init(selInitWithCapacity, capacity)
	if !ok {
		panic("ns: -[NSMutableArray initWithCapacity:] returned nil")
	}
	return h
}

// Add appends obj. The array takes its own retain.
func (m MutableArray) Add(obj dispatch.Receiver) {
	dispatch.SendVoid(m, selAddObject.On(m.Runtime()), obj)
}

// RemoveLast drops the last element.
func (m MutableArray) RemoveLast() {
	dispatch.SendVoid(m, selRemoveLastObject.On(m.Runtime()))
}

// RemoveAll empties the array.
func (m MutableArray) RemoveAll() {
	dispatch.SendVoid(m, selRemoveAllObjects.On(m.Runtime()))
}

// Immutable views m as its immutable superclass.
func (m MutableArray) Immutable() Array { return m.Array }
