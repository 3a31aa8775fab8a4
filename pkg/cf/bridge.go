package cf

import (
	"fmt"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
)

// BridgeError is raised when an object crossing a bridge is not of the
// declared class or CF type.
type BridgeError struct {
	NSClass string
	CFType  string
	Got     string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("cf: %s is not bridgeable as %s <-> %s", e.Got, e.NSClass, e.CFType)
}

type typeKey struct {
	rt abi.Runtime
	id abi.CFTypeID
}

// Bridge declares that wrapper NS (an Objective-C class) and wrapper C (a CF
// type) are toll-free bridged. Only declared pairs can be converted.
type Bridge[NS any, C any, PN arc.Wrapper[NS], PC Wrapper[C]] struct {
	class  *objc.ClassDescriptor
	cfType string

	types sync.Map // typeKey -> bool
}

// NewBridge declares the NS class nsClass and the CF type cfType (as named by
// CFCopyTypeIDDescription, e.g. "CFString") bridge compatible.
func NewBridge[NS any, C any, PN arc.Wrapper[NS], PC Wrapper[C]](nsClass, cfType string) *Bridge[NS, C, PN, PC] {
	return &Bridge[NS, C, PN, PC]{class: objc.Class(nsClass), cfType: cfType}
}

func (b *Bridge[NS, C, PN, PC]) String() string {
	return b.class.Name() + " <-> " + b.cfType
}

func (b *Bridge[NS, C, PN, PC]) typeMatches(rt abi.Runtime, ref abi.CFTypeRef) (bool, string) {
	id := rt.CFGetTypeID(ref)
	key := typeKey{rt: rt, id: id}
	if ok, hit := b.types.Load(key); hit {
		return ok.(bool), ""
	}
	name := rt.CFTypeIDDescription(id)
	ok := name == b.cfType
	b.types.Store(key, ok)
	return ok, name
}

func (b *Bridge[NS, C, PN, PC]) check(rt abi.Runtime, id abi.ID) {
	if !b.class.Describes(dispatch.Raw(rt, id)) {
		panic(&BridgeError{NSClass: b.class.Name(), CFType: b.cfType, Got: rt.ClassName(rt.ObjectClass(id))})
	}
	if ok, name := b.typeMatches(rt, abi.CFTypeRef(id)); !ok {
		if name == "" {
			name = rt.CFTypeIDDescription(rt.CFGetTypeID(abi.CFTypeRef(id)))
		}
		panic(&BridgeError{NSClass: b.class.Name(), CFType: b.cfType, Got: name})
	}
}

// ToCF moves ownership of r to a CF handle for the same object. r is
// disarmed; no retain or release is issued.
func (b *Bridge[NS, C, PN, PC]) ToCF(r *arc.R[NS]) *R[C] {
	rt := r.Runtime()
	b.check(rt, r.ID())
	id := r.Leak()
	log.WithFields(log.Fields{"bridge": b.String(), "id": id}).Debug("cf: transfer to CF")
	h, _ := Own[C, PC](rt, abi.CFTypeRef(id))
	return h
}

// ToNS moves ownership of r to an Objective-C handle for the same object. r
// is disarmed; no retain or release is issued.
func (b *Bridge[NS, C, PN, PC]) ToNS(r *R[C]) *arc.R[NS] {
	rt := r.Runtime()
	b.check(rt, abi.ID(r.CFRef()))
	ref := r.Leak()
	log.WithFields(log.Fields{"bridge": b.String(), "ref": ref}).Debug("cf: transfer to NS")
	h, _ := arc.Own[NS, PN](rt, abi.ID(ref))
	return h
}

// ViewCF borrows an Objective-C object as its CF type.
func (b *Bridge[NS, C, PN, PC]) ViewCF(v NS) C {
	p := PN(&v)
	b.check(p.Runtime(), p.ID())
	c, _ := Borrow[C, PC](p.Runtime(), abi.CFTypeRef(p.ID()))
	return c
}

// ViewNS borrows a CF object as its Objective-C class.
func (b *Bridge[NS, C, PN, PC]) ViewNS(v C) NS {
	obj := PC(&v).object()
	b.check(obj.rt, abi.ID(obj.ref))
	ns, _ := arc.Borrow[NS, PN](obj.rt, abi.ID(obj.ref))
	return ns
}
