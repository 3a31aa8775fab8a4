//go:build darwin

package native

import (
	"testing"

	"github.com/blacktop/objcrt/pkg/abi"
)

func openT(t *testing.T) abi.Runtime {
	t.Helper()
	rt, err := Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return rt
}

func TestOpenTwice(t *testing.T) {
	if openT(t) != openT(t) {
		t.Error("Open returned two runtimes")
	}
}

func TestClassesAndSelectors(t *testing.T) {
	rt := openT(t)
	cls := rt.LookUpClass("NSString")
	if cls == 0 {
		t.Fatal("NSString is not loaded")
	}
	if got := rt.ClassName(cls); got != "NSString" {
		t.Errorf("ClassName = %q", got)
	}
	if rt.LookUpClass("NSDefinitelyNotAClass") != 0 {
		t.Error("found a class that does not exist")
	}
	sel := rt.RegisterSelector("length")
	if sel != rt.RegisterSelector("length") {
		t.Error("selectors are not interned")
	}
	if got := rt.SelectorName(sel); got != "length" {
		t.Errorf("SelectorName = %q", got)
	}
	if !rt.RespondsTo(cls, sel) {
		t.Error("NSString does not respond to -length")
	}
	if enc, ok := rt.MethodEncoding(cls, sel); !ok || enc == "" {
		t.Errorf("MethodEncoding = %q, %v", enc, ok)
	}
}

func TestSendAndOwnership(t *testing.T) {
	rt := openT(t)
	page := rt.PoolPush()
	defer rt.PoolPop(page)

	cls := rt.LookUpClass("NSString")
	var s abi.ID
	rt.MsgSend(abi.ID(cls), rt.RegisterSelector("stringWithUTF8String:"), &s, "native")
	if s == 0 {
		t.Fatal("stringWithUTF8String: returned nil")
	}
	var n uint64
	rt.MsgSend(s, rt.RegisterSelector("length"), &n)
	if n != 6 {
		t.Errorf("length = %d, want 6", n)
	}
	var utf8 string
	rt.MsgSend(s, rt.RegisterSelector("UTF8String"), &utf8)
	if utf8 != "native" {
		t.Errorf("UTF8String = %q", utf8)
	}

	if got := rt.CFTypeIDDescription(rt.CFGetTypeID(abi.CFTypeRef(s))); got != "CFString" {
		t.Errorf("CF type = %q, want CFString", got)
	}

	owned := rt.RetainAutoreleased(s)
	w := rt.NewWeak(owned)
	if got := rt.LoadWeakRetained(w); got != owned {
		t.Errorf("weak load = %v, want %v", got, owned)
	} else {
		rt.Release(got)
	}
	rt.DestroyWeak(w)
	rt.Release(owned)
}
