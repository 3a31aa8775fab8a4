package objc

import (
	"errors"
	"reflect"
	"testing"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/abi/sim"
	"github.com/blacktop/objcrt/pkg/dispatch"
)

type testString struct{ Id }

func (s testString) Length() uint64 {
	return dispatch.Send[uint64](s, dispatch.Name("length").On(s.Runtime()))
}

var (
	lengthProtocol = NewProtocol("TestLength", []string{"length"}, nil)
	countProtocol  = NewProtocol("TestCount", []string{"count", "objectAtIndex:"}, []string{"firstObject"})

	testStringDef = Define[testString]("NSString", NSObjectProtocol, lengthProtocol)
)

func configError(t *testing.T, fn func()) *ConfigError {
	t.Helper()
	var cfgErr *ConfigError
	func() {
		defer func() {
			err, _ := recover().(error)
			if !errors.As(err, &cfgErr) {
				t.Fatalf("panic = %v, want *ConfigError", err)
			}
		}()
		fn()
	}()
	return cfgErr
}

func TestClassDescriptor(t *testing.T) {
	rt := sim.New()
	d := Class("NSString")
	if Class("NSString") != d {
		t.Fatal("descriptors are not interned")
	}
	if got := d.Resolve(rt); got != rt.LookUpClass("NSString") {
		t.Errorf("Resolve = %v", got)
	}

	missing := Class("NSDefinitelyMissing")
	if _, ok := missing.Lookup(rt); ok {
		t.Error("Lookup found a missing class")
	}
	err := configError(t, func() { missing.Resolve(rt) })
	if err.Class != "NSDefinitelyMissing" {
		t.Errorf("ConfigError.Class = %q", err.Class)
	}
}

func TestDescribes(t *testing.T) {
	rt := sim.New()
	arr := rt.Alloc(rt.LookUpClass("NSMutableArray"))
	defer rt.Release(arr)
	recv := dispatch.Raw(rt, arr)

	tests := []struct {
		class string
		want  bool
	}{
		{"NSMutableArray", true},
		{"NSArray", true},
		{"NSObject", true},
		{"NSString", false},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			d := Class(tt.class)
			for i := 0; i < 2; i++ { // second pass is served from the cache
				if got := d.Describes(recv); got != tt.want {
					t.Errorf("pass %d: Describes = %v, want %v", i, got, tt.want)
				}
			}
		})
	}
	if Class("NSObject").Describes(dispatch.Raw(rt, 0)) {
		t.Error("nil is described by NSObject")
	}
}

func TestBind(t *testing.T) {
	rt := sim.New()
	b := testStringDef.Bind(rt)
	if testStringDef.Bind(rt) != b {
		t.Error("bindings are not cached")
	}
	if b.Class() != rt.LookUpClass("NSString") {
		t.Errorf("Class = %v", b.Class())
	}

	bad := Define[testString]("NSString", countProtocol)
	err := configError(t, func() { bad.Bind(rt) })
	if err.Protocol != "TestCount" || !reflect.DeepEqual(err.Missing, []string{"count", "objectAtIndex:"}) {
		t.Errorf("ConfigError = %+v", err)
	}

	unknown := Define[testString]("NSNotHere")
	configError(t, func() { unknown.Bind(rt) })
}

func TestBindingHandles(t *testing.T) {
	rt := sim.New()
	b := testStringDef.Bind(rt)

	h, ok := b.Init("initWithUTF8String:", "bound")
	if !ok {
		t.Fatal("Init returned nil")
	}
	defer h.Release()
	if n := h.Get().Length(); n != 5 {
		t.Errorf("Length = %d, want 5", n)
	}

	empty := b.New()
	if n := empty.Get().Length(); n != 0 {
		t.Errorf("new string length = %d", n)
	}
	empty.Release()

	s, ok := b.Cast(h.Get())
	if !ok || s.ID() != h.ID() {
		t.Error("Cast rejected an NSString")
	}
	num := rt.Alloc(rt.LookUpClass("NSNumber"))
	defer rt.Release(num)
	if _, ok := b.Cast(dispatch.Raw(rt, num)); ok {
		t.Error("Cast accepted an NSNumber")
	}
	if _, ok := b.Own(0); ok {
		t.Error("Own(nil) returned a handle")
	}
}

func TestId(t *testing.T) {
	rt := sim.New()
	h, _ := testStringDef.Bind(rt).Init("initWithUTF8String:", "hello")
	defer h.Release()
	o := h.Get()

	if got := o.Description(); got != "hello" {
		t.Errorf("Description = %q", got)
	}
	if got := o.ClassName(); got != "NSString" {
		t.Errorf("ClassName = %q", got)
	}
	if !o.IsKindOf(Class("NSObject")) || o.IsMemberOf(Class("NSObject")) || !o.IsMemberOf(Class("NSString")) {
		t.Error("IsKindOf / IsMemberOf disagree with the class hierarchy")
	}
	if !o.RespondsTo(dispatch.Name("length").On(rt)) || o.RespondsTo(dispatch.Name("count").On(rt)) {
		t.Error("RespondsTo is wrong")
	}

	other, _ := testStringDef.Bind(rt).Init("initWithUTF8String:", "hello")
	defer other.Release()
	if !o.IsEqual(other.Get()) || o.Hash() != other.Get().Hash() {
		t.Error("equal strings are not equal")
	}
	if !o.ConformsTo(NSObjectProtocol) {
		t.Error("NSString does not conform to NSObject")
	}
	if o.ConformsTo(countProtocol) {
		t.Error("NSString conforms to an undeclared protocol")
	}
	// answering the selectors is not formal adoption
	if lengthProtocol.ConformsTo(rt, rt.LookUpClass("NSString")) {
		t.Error("runtime reports adoption of a protocol it never saw")
	}

	plain := NSObject.Bind(rt).New()
	defer plain.Release()
	if d := plain.Get().Description(); d == "" || d[0] != '<' {
		t.Errorf("NSObject description = %q", d)
	}
}

func TestDescriptorAllocNew(t *testing.T) {
	rt := sim.New()
	d := Class("NSMutableArray")
	r := d.New(rt)
	defer r.Release()
	if !d.Describes(r) {
		t.Error("+new returned an object of another class")
	}
	a := d.Alloc(rt)
	id := a.ID()
	a.Discard()
	if rt.IsAlive(id) {
		t.Error("discarded allocation is alive")
	}
	if rt.ObjectClass(abi.ID(0)) != 0 {
		t.Error("nil has a class")
	}
}

func TestNSObjectCastsSubclass(t *testing.T) {
	rt := sim.New()
	s := rt.NewString("hi")
	defer rt.Release(s)

	b := NSObject.Bind(rt)
	o, ok := b.Cast(dispatch.Raw(rt, s))
	if !ok || o.ID() != s {
		t.Fatalf("Cast = %v, %v", o, ok)
	}
	if got := b.MustCast(dispatch.Raw(rt, s)).ClassName(); got != "NSString" {
		t.Errorf("ClassName = %q", got)
	}
	if !NSObject.Descriptor().Describes(dispatch.Raw(rt, s)) {
		t.Error("NSObject does not describe an NSString")
	}
}

type countingRuntime struct {
	*sim.Runtime
	lookups map[string]int
}

func (r *countingRuntime) LookUpClass(name string) abi.Class {
	r.lookups[name]++
	return r.Runtime.LookUpClass(name)
}

func TestMissingClassNotRetried(t *testing.T) {
	rt := &countingRuntime{Runtime: sim.New(), lookups: map[string]int{}}
	d := Class("NSNeverLoaded")
	for i := 0; i < 3; i++ {
		if _, ok := d.Lookup(rt); ok {
			t.Fatal("Lookup found a missing class")
		}
	}
	configError(t, func() { d.Resolve(rt) })
	if n := rt.lookups["NSNeverLoaded"]; n != 1 {
		t.Errorf("LookUpClass called %d times, want 1", n)
	}
}
