//go:build darwin

package native

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/ebitengine/purego"
)

// maxRegisterStruct is the largest struct returned in registers on amd64.
// Bigger ones go through objc_msgSend_stret.
const maxRegisterStruct = 16

var (
	uintptrType = reflect.TypeOf(uintptr(0))
	argsType    = reflect.TypeOf([]any(nil))
)

// sender owns one registered trampoline per return type. The arguments are
// passed as ...any, so the return type is the only part of the call shape
// purego needs up front.
type sender struct {
	msgSend      uintptr
	msgSendStret uintptr

	fns sync.Map // reflect.Type (nil for void) -> reflect.Value
}

func newSender(libobjc uintptr) (*sender, error) {
	s := &sender{}
	var err error
	if s.msgSend, err = purego.Dlsym(libobjc, "objc_msgSend"); err != nil {
		return nil, &abi.ConfigError{Kind: "symbol", Name: "objc_msgSend", Err: err}
	}
	if runtime.GOARCH == "amd64" {
		if s.msgSendStret, err = purego.Dlsym(libobjc, "objc_msgSend_stret"); err != nil {
			return nil, &abi.ConfigError{Kind: "symbol", Name: "objc_msgSend_stret", Err: err}
		}
	}
	return s, nil
}

func (s *sender) entry(ret reflect.Type) uintptr {
	if s.msgSendStret != 0 && ret != nil && ret.Kind() == reflect.Struct && ret.Size() > maxRegisterStruct {
		return s.msgSendStret
	}
	return s.msgSend
}

func (s *sender) fn(ret reflect.Type) reflect.Value {
	key := any(ret)
	if ret == nil {
		key = struct{}{}
	}
	if fn, ok := s.fns.Load(key); ok {
		return fn.(reflect.Value)
	}
	var outs []reflect.Type
	if ret != nil {
		outs = []reflect.Type{ret}
	}
	ft := reflect.FuncOf([]reflect.Type{uintptrType, uintptrType, argsType}, outs, true)
	ptr := reflect.New(ft)
	purego.RegisterFunc(ptr.Interface(), s.entry(ret))
	log.WithField("shape", ft.String()).Debug("native: registered msgSend trampoline")
	fn, _ := s.fns.LoadOrStore(key, ptr.Elem())
	return fn.(reflect.Value)
}

func (s *sender) call(recv abi.ID, sel abi.SEL, ret any, args []any) {
	var rt reflect.Type
	var slot reflect.Value
	if ret != nil {
		slot = reflect.ValueOf(ret).Elem()
		rt = slot.Type()
	}
	in := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			a = uintptr(0)
		}
		in[i] = a
	}
	out := s.fn(rt).CallSlice([]reflect.Value{
		reflect.ValueOf(uintptr(recv)),
		reflect.ValueOf(uintptr(sel)),
		reflect.ValueOf(in),
	})
	if ret != nil {
		slot.Set(out[0])
	}
}
