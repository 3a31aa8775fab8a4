//go:build darwin && cgo

package objc

// #include <objc/runtime.h>
import "C"
import "unsafe"

type Method uintptr

func (m Method) cmethod() C.Method {
	return (C.Method)(unsafe.Pointer(m))
}

func (m Method) Name() string {
	return C.GoString(C.sel_getName(C.method_getName(m.cmethod())))
}

func (m Method) TypeEncoding() string {
	if enc := C.method_getTypeEncoding(m.cmethod()); enc != nil {
		return C.GoString(enc)
	}
	return ""
}

func (m Method) Info() MethodInfo {
	return MethodInfo{Name: m.Name(), Types: m.TypeEncoding()}
}
