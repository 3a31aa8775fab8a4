//go:build darwin && cgo

package objc

/*
#include <stdlib.h>
#include <objc/runtime.h>
*/
import "C"

import "unsafe"

type Class uintptr

func GetClass(name string) Class {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	return (Class)(unsafe.Pointer(C.objc_getClass(cname)))
}

func (cls Class) cclass() C.Class {
	return (C.Class)(unsafe.Pointer(cls))
}

func (cls Class) Name() string {
	return C.GoString(C.class_getName(cls.cclass()))
}

func (cls Class) Super() Class {
	return (Class)(unsafe.Pointer(C.class_getSuperclass(cls.cclass())))
}

// Meta returns the metaclass, which holds the class methods.
func (cls Class) Meta() Class {
	return (Class)(unsafe.Pointer(C.object_getClass((C.id)(unsafe.Pointer(cls)))))
}

func (cls Class) InstanceSize() int {
	return int(C.class_getInstanceSize(cls.cclass()))
}

func (cls Class) ImageName() string {
	if name := C.class_getImageName(cls.cclass()); name != nil {
		return C.GoString(name)
	}
	return ""
}

// Methods lists the methods the class itself defines, not inherited ones.
func (cls Class) Methods() []Method {
	var count C.uint
	list := C.class_copyMethodList(cls.cclass(), &count)
	if list == nil {
		return nil
	}
	defer C.free(unsafe.Pointer(list))

	methods := make([]Method, 0, int(count))
	for _, m := range unsafe.Slice(list, int(count)) {
		methods = append(methods, (Method)(unsafe.Pointer(m)))
	}
	return methods
}

// Protocols lists the protocols the class adopts directly.
func (cls Class) Protocols() []Protocol {
	var count C.uint
	list := C.class_copyProtocolList(cls.cclass(), &count)
	if list == nil {
		return nil
	}
	defer C.free(unsafe.Pointer(list))

	protocols := make([]Protocol, 0, int(count))
	for _, p := range unsafe.Slice(list, int(count)) {
		protocols = append(protocols, (Protocol)(unsafe.Pointer(p)))
	}
	return protocols
}
