package objc

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/pool"
)

// Id is the base wrapper for any object. Other wrappers embed it to inherit
// the NSObject protocol methods.
type Id struct {
	arc.Object
}

// NSObject is the definition of the root class.
var NSObject = Define[Id]("NSObject", NSObjectProtocol)

var (
	selDescription        = dispatch.Name("description")
	selUTF8String         = dispatch.Name("UTF8String")
	selRespondsTo         = dispatch.Name("respondsToSelector:")
	selIsKindOfClass      = dispatch.Name("isKindOfClass:")
	selIsMemberOfClass    = dispatch.Name("isMemberOfClass:")
	selIsEqual            = dispatch.Name("isEqual:")
	selHash               = dispatch.Name("hash")
	selConformsToProtocol = dispatch.Name("conformsToProtocol:")
)

func (o Id) rt() abi.Runtime { return o.Runtime() }

// Description returns the object's -description.
func (o Id) Description() string {
	rt := o.rt()
	s, _ := pool.With(rt, func(*pool.Pool) (string, error) {
		desc := dispatch.Send[abi.ID](o, selDescription.On(rt))
		if desc == 0 {
			return "", nil
		}
		return dispatch.Send[string](dispatch.Raw(rt, desc), selUTF8String.On(rt)), nil
	})
	return s
}

// RespondsTo reports whether the object answers sel.
func (o Id) RespondsTo(sel dispatch.Selector) bool {
	return dispatch.Send[bool](o, selRespondsTo.On(o.rt()), sel)
}

// IsKindOf reports whether the object is an instance of d or a subclass.
func (o Id) IsKindOf(d *ClassDescriptor) bool {
	rt := o.rt()
	return dispatch.Send[bool](o, selIsKindOfClass.On(rt), d.Resolve(rt))
}

// IsMemberOf reports whether the object is an instance of exactly d.
func (o Id) IsMemberOf(d *ClassDescriptor) bool {
	rt := o.rt()
	return dispatch.Send[bool](o, selIsMemberOfClass.On(rt), d.Resolve(rt))
}

// IsEqual sends -isEqual:.
func (o Id) IsEqual(other dispatch.Receiver) bool {
	return dispatch.Send[bool](o, selIsEqual.On(o.rt()), other)
}

// Hash sends -hash.
func (o Id) Hash() uint64 {
	return dispatch.Send[uint64](o, selHash.On(o.rt()))
}

// ClassName returns the name of the object's dynamic class.
func (o Id) ClassName() string {
	rt := o.rt()
	return rt.ClassName(rt.ObjectClass(o.ID()))
}

// ConformsTo asks the object whether it adopts the protocol.
func (o Id) ConformsTo(p *Protocol) bool {
	rt := o.rt()
	proto := rt.LookUpProtocol(p.Name())
	if proto == 0 {
		return false
	}
	return dispatch.Send[bool](o, selConformsToProtocol.On(rt), abi.ID(proto))
}
