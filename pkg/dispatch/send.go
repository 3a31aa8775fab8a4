package dispatch

import (
	"github.com/blacktop/objcrt/pkg/abi"
)

// Receiver is anything that can be the target of a message: typed wrappers
// and raw objects alike.
type Receiver interface {
	Runtime() abi.Runtime
	ID() abi.ID
}

type raw struct {
	rt abi.Runtime
	id abi.ID
}

func (r raw) Runtime() abi.Runtime { return r.rt }
func (r raw) ID() abi.ID           { return r.id }

// Raw makes a Receiver out of a bare object pointer, which may be nil.
func Raw(rt abi.Runtime, id abi.ID) Receiver { return raw{rt: rt, id: id} }

// Send sends sel to recv and returns the result as a T. T and the dynamic
// types of args must match the method's real signature; objects are returned
// as abi.ID and handed to the arc package for ownership.
func Send[T any](recv Receiver, sel Selector, args ...any) T {
	var ret T
	rt := recv.Runtime()
	For(rt).send(recv.ID(), false, sel, &ret, args)
	return ret
}

// SendVoid sends sel to recv for a method that returns nothing.
func SendVoid(recv Receiver, sel Selector, args ...any) {
	rt := recv.Runtime()
	For(rt).send(recv.ID(), false, sel, nil, args)
}

// SendClass sends the class method sel to cls.
func SendClass[T any](rt abi.Runtime, cls abi.Class, sel Selector, args ...any) T {
	var ret T
	For(rt).send(abi.ID(cls), true, sel, &ret, args)
	return ret
}

// SendClassVoid sends the void class method sel to cls.
func SendClassVoid(rt abi.Runtime, cls abi.Class, sel Selector, args ...any) {
	For(rt).send(abi.ID(cls), true, sel, nil, args)
}

func (r *Registry) send(recv abi.ID, classMethod bool, sel Selector, ret any, args []any) {
	lowered := lower(args)
	if recv != 0 && r.checked.Load() {
		r.verify(recv, classMethod, sel, ret, lowered)
	}
	r.rt.MsgSend(recv, sel.sel, ret, lowered...)
}

// lower replaces receivers and selectors by their raw pointers.
func lower(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case Selector:
			out[i] = v.sel
		case Receiver:
			out[i] = v.ID()
		case interface{ CFRef() abi.CFTypeRef }:
			out[i] = v.CFRef()
		default:
			out[i] = a
		}
	}
	return out
}
