package sim

import (
	"errors"
	"runtime"
	"testing"

	"github.com/blacktop/objcrt/pkg/abi"
)

func expectException(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected %s, got no panic", name)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic %v is not an error", r)
		}
		var exc *Exception
		if !errors.As(err, &exc) {
			t.Fatalf("panic %T is not an *Exception", r)
		}
		if exc.Name != name {
			t.Fatalf("exception = %s, want %s", exc.Name, name)
		}
	}()
	fn()
}

func TestRetainRelease(t *testing.T) {
	r := New()
	obj := r.Alloc(r.LookUpClass("NSObject"))
	if got := r.RetainCount(obj); got != 1 {
		t.Fatalf("RetainCount = %d, want 1", got)
	}
	r.Retain(obj)
	r.Release(obj)
	if !r.IsAlive(obj) {
		t.Fatal("object died early")
	}
	r.Release(obj)
	if r.IsAlive(obj) {
		t.Fatal("object still alive after final release")
	}
	if got := r.Deallocated(); len(got) != 1 || got[0] != obj {
		t.Errorf("Deallocated = %v, want [%v]", got, obj)
	}
	expectException(t, "NSInternalInconsistencyException", func() { r.Release(obj) })
}

func TestSelectorsAreInterned(t *testing.T) {
	r := New()
	a := r.RegisterSelector("length")
	b := r.RegisterSelector("length")
	if a != b {
		t.Fatalf("selectors differ: %v != %v", a, b)
	}
	if got := r.SelectorName(a); got != "length" {
		t.Errorf("SelectorName = %q", got)
	}
	if got := r.Registrations("length"); got != 2 {
		t.Errorf("Registrations = %d, want 2", got)
	}
}

func TestMsgSend(t *testing.T) {
	r := New()
	cls := abi.ID(r.LookUpClass("NSString"))

	var str abi.ID
	r.MsgSend(cls, r.RegisterSelector("alloc"), &str)
	r.MsgSend(str, r.RegisterSelector("initWithUTF8String:"), &str, "héllo")
	defer r.Release(str)

	var n uint64
	r.MsgSend(str, r.RegisterSelector("length"), &n)
	if n != 5 {
		t.Errorf("length = %d, want 5", n)
	}
	var s string
	r.MsgSend(str, r.RegisterSelector("UTF8String"), &s)
	if s != "héllo" {
		t.Errorf("UTF8String = %q", s)
	}
	var yes bool
	r.MsgSend(str, r.RegisterSelector("isKindOfClass:"), &yes, r.LookUpClass("NSObject"))
	if !yes {
		t.Error("NSString is not kind of NSObject")
	}

	// messages to nil return zero
	n = 42
	r.MsgSend(0, r.RegisterSelector("length"), &n)
	if n != 0 {
		t.Errorf("nil length = %d, want 0", n)
	}

	expectException(t, "NSInvalidArgumentException", func() {
		r.MsgSend(str, r.RegisterSelector("frobnicate"), nil)
	})
}

func TestClassMethodsAndMetaclass(t *testing.T) {
	r := New()
	cls := r.LookUpClass("NSNumber")
	meta := r.ObjectClass(abi.ID(cls))
	if meta == 0 || meta == cls {
		t.Fatalf("metaclass = %v", meta)
	}
	if !r.RespondsTo(meta, r.RegisterSelector("numberWithInt:")) {
		t.Error("metaclass does not respond to numberWithInt:")
	}
	if r.RespondsTo(cls, r.RegisterSelector("numberWithInt:")) {
		t.Error("class responds to class method as instance method")
	}
	enc, ok := r.MethodEncoding(cls, r.RegisterSelector("intValue"))
	if !ok || enc != "i16@0:8" {
		t.Errorf("MethodEncoding = %q, %v", enc, ok)
	}
}

func TestPoolPop(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := New()
	outer := r.PoolPush()
	o := r.Autorelease(r.NewString("outer"))
	inner := r.PoolPush()
	o2 := r.Autorelease(r.NewString("inner"))

	r.PoolPop(inner)
	if r.IsAlive(o2) || !r.IsAlive(o) {
		t.Fatal("inner pop released the wrong objects")
	}
	r.PoolPop(outer)
	if r.IsAlive(o) {
		t.Fatal("outer object survived its pool")
	}
	got := r.Deallocated()
	if len(got) != 2 || got[0] != o2 || got[1] != o {
		t.Errorf("dealloc order = %v, want [%v %v]", got, o2, o)
	}
	if r.PoolDepth() != 0 {
		t.Errorf("PoolDepth = %d", r.PoolDepth())
	}
	expectException(t, "NSInternalInconsistencyException", func() { r.PoolPop(outer) })
}

func TestAutoreleaseWithoutPoolLeaks(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := New()
	obj := r.Autorelease(r.NewString("leak"))
	if r.RetainCount(obj) != 1 {
		t.Errorf("RetainCount = %d, want 1", r.RetainCount(obj))
	}
	if r.Stats().Autoreleases != 0 {
		t.Error("autorelease without a pool was counted")
	}
}

func TestWeakZeroing(t *testing.T) {
	r := New()
	obj := r.NewString("weak")
	w := r.NewWeak(obj)
	c := r.CopyWeak(w)

	got := r.LoadWeakRetained(w)
	if got != obj {
		t.Fatalf("LoadWeakRetained = %v, want %v", got, obj)
	}
	r.Release(got)
	r.Release(obj)

	if got := r.LoadWeakRetained(w); got != 0 {
		t.Errorf("weak slot not zeroed: %v", got)
	}
	if got := r.LoadWeakRetained(c); got != 0 {
		t.Errorf("copied weak slot not zeroed: %v", got)
	}
	r.DestroyWeak(w)
	r.DestroyWeak(c)
}

func TestArrayOwnsElements(t *testing.T) {
	r := New()
	arr := r.Alloc(r.LookUpClass("NSMutableArray"))
	r.MsgSend(arr, r.RegisterSelector("init"), &arr)
	elem := r.NewString("x")
	r.MsgSend(arr, r.RegisterSelector("addObject:"), nil, elem)
	r.Release(elem)
	if !r.IsAlive(elem) {
		t.Fatal("array did not retain its element")
	}
	expectException(t, "NSRangeException", func() {
		var out abi.ID
		r.MsgSend(arr, r.RegisterSelector("objectAtIndex:"), &out, uint64(3))
	})
	r.Release(arr)
	if r.IsAlive(elem) {
		t.Error("element outlived its array")
	}
}

func TestCFTypeID(t *testing.T) {
	r := New()
	str := r.NewString("cf")
	defer r.Release(str)
	id := r.CFGetTypeID(abi.CFTypeRef(str))
	if got := r.CFTypeIDDescription(id); got != "CFString" {
		t.Errorf("CFTypeIDDescription = %q, want CFString", got)
	}
	if r.CFTypeIDFor("CFString") != id {
		t.Error("CFTypeIDFor disagrees with CFGetTypeID")
	}
	r.CFRetain(abi.CFTypeRef(str))
	if r.RetainCount(str) != 2 {
		t.Errorf("CFRetain did not share the count: %d", r.RetainCount(str))
	}
	r.CFRelease(abi.CFTypeRef(str))
}
