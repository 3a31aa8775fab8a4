//go:build darwin && cgo

package objc

// #include <objc/runtime.h>
import "C"
import "unsafe"

type Protocol uintptr

func (p Protocol) cprot() *C.Protocol {
	return (*C.Protocol)(unsafe.Pointer(p))
}

func (p Protocol) Name() string {
	return C.GoString(C.protocol_getName(p.cprot()))
}
