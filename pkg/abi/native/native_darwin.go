//go:build darwin

package native

import (
	"bytes"
	"sync"
	"unsafe"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
	"github.com/pkg/errors"
)

const kCFStringEncodingUTF8 = 0x08000100

var (
	loadOnce sync.Once
	loaded   *Runtime
	loadErr  error
)

// Runtime is the system Objective-C runtime.
type Runtime struct {
	send *sender

	sel_getName              func(sel uintptr) string
	object_getClass          func(obj uintptr) uintptr
	class_getName            func(cls uintptr) string
	class_respondsToSelector func(cls, sel uintptr) bool
	class_conformsToProtocol func(cls, proto uintptr) bool
	class_getInstanceMethod  func(cls, sel uintptr) uintptr
	method_getTypeEncoding   func(m uintptr) string
	objc_retain              func(obj uintptr) uintptr
	objc_release             func(obj uintptr)
	objc_autorelease         func(obj uintptr) uintptr
	objc_retainAutoreleased  func(obj uintptr) uintptr
	objc_autoreleasePoolPush func() uintptr
	objc_autoreleasePoolPop  func(page uintptr)
	objc_initWeak            func(slot, obj uintptr) uintptr
	objc_loadWeakRetained    func(slot uintptr) uintptr
	objc_copyWeak            func(dst, src uintptr)
	objc_destroyWeak         func(slot uintptr)
	calloc                   func(n, size uintptr) uintptr
	free                     func(ptr uintptr)
	cfRetain                 func(ref uintptr) uintptr
	cfRelease                func(ref uintptr)
	cfGetTypeID              func(ref uintptr) uint
	cfCopyTypeIDDescription  func(id uint) uintptr
	cfStringGetCString       func(str uintptr, buf *byte, size int, encoding uint32) bool

	typeNames sync.Map // abi.CFTypeID -> string
}

func open() (abi.Runtime, error) {
	loadOnce.Do(func() {
		loaded, loadErr = load()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return loaded, nil
}

func dlopen(path string) (uintptr, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, &abi.ConfigError{Kind: "library", Name: path, Err: err}
	}
	return h, nil
}

func load() (*Runtime, error) {
	libobjc, err := dlopen(libobjcPath)
	if err != nil {
		return nil, err
	}
	libSystem, err := dlopen(libSystemPath)
	if err != nil {
		return nil, err
	}
	cf, err := dlopen(coreFoundation)
	if err != nil {
		return nil, err
	}
	// Foundation registers the NS classes the bridge and wrappers expect.
	if _, err := dlopen(foundationPath); err != nil {
		return nil, err
	}

	r := &Runtime{}
	if r.send, err = newSender(libobjc); err != nil {
		return nil, err
	}

	purego.RegisterLibFunc(&r.sel_getName, libobjc, "sel_getName")
	purego.RegisterLibFunc(&r.object_getClass, libobjc, "object_getClass")
	purego.RegisterLibFunc(&r.class_getName, libobjc, "class_getName")
	purego.RegisterLibFunc(&r.class_respondsToSelector, libobjc, "class_respondsToSelector")
	purego.RegisterLibFunc(&r.class_conformsToProtocol, libobjc, "class_conformsToProtocol")
	purego.RegisterLibFunc(&r.class_getInstanceMethod, libobjc, "class_getInstanceMethod")
	purego.RegisterLibFunc(&r.method_getTypeEncoding, libobjc, "method_getTypeEncoding")
	purego.RegisterLibFunc(&r.objc_retain, libobjc, "objc_retain")
	purego.RegisterLibFunc(&r.objc_release, libobjc, "objc_release")
	purego.RegisterLibFunc(&r.objc_autorelease, libobjc, "objc_autorelease")
	purego.RegisterLibFunc(&r.objc_retainAutoreleased, libobjc, "objc_retainAutoreleasedReturnValue")
	purego.RegisterLibFunc(&r.objc_autoreleasePoolPush, libobjc, "objc_autoreleasePoolPush")
	purego.RegisterLibFunc(&r.objc_autoreleasePoolPop, libobjc, "objc_autoreleasePoolPop")
	purego.RegisterLibFunc(&r.objc_initWeak, libobjc, "objc_initWeak")
	purego.RegisterLibFunc(&r.objc_loadWeakRetained, libobjc, "objc_loadWeakRetained")
	purego.RegisterLibFunc(&r.objc_copyWeak, libobjc, "objc_copyWeak")
	purego.RegisterLibFunc(&r.objc_destroyWeak, libobjc, "objc_destroyWeak")
	purego.RegisterLibFunc(&r.calloc, libSystem, "calloc")
	purego.RegisterLibFunc(&r.free, libSystem, "free")
	purego.RegisterLibFunc(&r.cfRetain, cf, "CFRetain")
	purego.RegisterLibFunc(&r.cfRelease, cf, "CFRelease")
	purego.RegisterLibFunc(&r.cfGetTypeID, cf, "CFGetTypeID")
	purego.RegisterLibFunc(&r.cfCopyTypeIDDescription, cf, "CFCopyTypeIDDescription")
	purego.RegisterLibFunc(&r.cfStringGetCString, cf, "CFStringGetCString")

	log.WithField("libobjc", libobjcPath).Debug("native: runtime loaded")
	return r, nil
}

func (r *Runtime) Name() string { return "native" }

func (r *Runtime) RegisterSelector(name string) abi.SEL {
	return abi.SEL(objc.RegisterName(name))
}

func (r *Runtime) SelectorName(sel abi.SEL) string {
	if sel == 0 {
		return ""
	}
	return r.sel_getName(uintptr(sel))
}

func (r *Runtime) LookUpClass(name string) abi.Class {
	return abi.Class(objc.GetClass(name))
}

func (r *Runtime) LookUpProtocol(name string) abi.Protocol {
	return abi.Protocol(uintptr(unsafe.Pointer(objc.GetProtocol(name))))
}

func (r *Runtime) ObjectClass(id abi.ID) abi.Class {
	if id == 0 {
		return 0
	}
	return abi.Class(r.object_getClass(uintptr(id)))
}

func (r *Runtime) ClassName(cls abi.Class) string {
	if cls == 0 {
		return "nil"
	}
	return r.class_getName(uintptr(cls))
}

func (r *Runtime) Superclass(cls abi.Class) abi.Class {
	if cls == 0 {
		return 0
	}
	return abi.Class(objc.Class(cls).SuperClass())
}

func (r *Runtime) RespondsTo(cls abi.Class, sel abi.SEL) bool {
	return cls != 0 && r.class_respondsToSelector(uintptr(cls), uintptr(sel))
}

func (r *Runtime) ConformsTo(cls abi.Class, proto abi.Protocol) bool {
	return cls != 0 && proto != 0 && r.class_conformsToProtocol(uintptr(cls), uintptr(proto))
}

func (r *Runtime) MethodEncoding(cls abi.Class, sel abi.SEL) (string, bool) {
	if cls == 0 {
		return "", false
	}
	m := r.class_getInstanceMethod(uintptr(cls), uintptr(sel))
	if m == 0 {
		return "", false
	}
	return r.method_getTypeEncoding(m), true
}

func (r *Runtime) Retain(id abi.ID) abi.ID {
	return abi.ID(r.objc_retain(uintptr(id)))
}

func (r *Runtime) Release(id abi.ID) {
	r.objc_release(uintptr(id))
}

func (r *Runtime) Autorelease(id abi.ID) abi.ID {
	return abi.ID(r.objc_autorelease(uintptr(id)))
}

func (r *Runtime) RetainAutoreleased(id abi.ID) abi.ID {
	return abi.ID(r.objc_retainAutoreleased(uintptr(id)))
}

func (r *Runtime) PoolPush() abi.Page {
	return abi.Page(r.objc_autoreleasePoolPush())
}

func (r *Runtime) PoolPop(page abi.Page) {
	r.objc_autoreleasePoolPop(uintptr(page))
}

func (r *Runtime) MsgSend(recv abi.ID, sel abi.SEL, ret any, args ...any) {
	r.send.call(recv, sel, ret, args)
}

// Weak slots live in C memory; the runtime keeps a side table entry pointing
// at the slot, so it must never move.
func (r *Runtime) newSlot() uintptr {
	slot := r.calloc(1, unsafe.Sizeof(uintptr(0)))
	if slot == 0 {
		panic(errors.New("native: calloc failed for weak slot"))
	}
	return slot
}

func (r *Runtime) NewWeak(obj abi.ID) abi.Weak {
	slot := r.newSlot()
	r.objc_initWeak(slot, uintptr(obj))
	return abi.Weak(slot)
}

func (r *Runtime) LoadWeakRetained(w abi.Weak) abi.ID {
	return abi.ID(r.objc_loadWeakRetained(uintptr(w)))
}

func (r *Runtime) CopyWeak(w abi.Weak) abi.Weak {
	slot := r.newSlot()
	r.objc_copyWeak(slot, uintptr(w))
	return abi.Weak(slot)
}

func (r *Runtime) DestroyWeak(w abi.Weak) {
	r.objc_destroyWeak(uintptr(w))
	r.free(uintptr(w))
}

func (r *Runtime) CFRetain(ref abi.CFTypeRef) abi.CFTypeRef {
	return abi.CFTypeRef(r.cfRetain(uintptr(ref)))
}

func (r *Runtime) CFRelease(ref abi.CFTypeRef) {
	r.cfRelease(uintptr(ref))
}

func (r *Runtime) CFGetTypeID(ref abi.CFTypeRef) abi.CFTypeID {
	return abi.CFTypeID(r.cfGetTypeID(uintptr(ref)))
}

func (r *Runtime) CFTypeIDDescription(id abi.CFTypeID) string {
	if name, ok := r.typeNames.Load(id); ok {
		return name.(string)
	}
	desc := r.cfCopyTypeIDDescription(uint(id))
	if desc == 0 {
		return ""
	}
	defer r.cfRelease(desc)
	buf := make([]byte, typeNameCapacity)
	if !r.cfStringGetCString(desc, &buf[0], len(buf), kCFStringEncodingUTF8) {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	name := string(buf)
	r.typeNames.Store(id, name)
	return name
}
