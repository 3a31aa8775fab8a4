package arc

import (
	"errors"
	"runtime"
	"testing"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/abi/sim"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/pool"
)

type str struct{ Object }

func (s str) value() string {
	return dispatch.Send[string](s, dispatch.Name("UTF8String").On(s.Runtime()))
}

func panics(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, _ := r.(error)
		if !errors.Is(err, want) {
			t.Fatalf("panic = %v, want %v", r, want)
		}
	}()
	fn()
}

func TestOwnRelease(t *testing.T) {
	rt := sim.New()
	id := rt.NewString("owned")
	before := rt.Stats()

	h, ok := Own[str](rt, id)
	if !ok {
		t.Fatal("Own returned no handle")
	}
	h.Release()
	h.Release() // no-op

	after := rt.Stats()
	if got := after.Retains - before.Retains; got != 0 {
		t.Errorf("Own issued %d retains, want 0", got)
	}
	if got := after.Releases - before.Releases; got != 1 {
		t.Errorf("Release issued %d releases, want 1", got)
	}
	if rt.IsAlive(id) {
		t.Error("object outlived its only owner")
	}
	panics(t, ErrReleased, func() { h.Get() })
}

func TestRetainedHandles(t *testing.T) {
	rt := sim.New()
	h, _ := Own[str](rt, rt.NewString("shared"))
	defer h.Release()

	before := rt.Stats()
	second := h.Retained()
	if second.ID() != h.ID() {
		t.Fatal("Retained returned a different object")
	}
	if rt.RetainCount(h.ID()) != 2 {
		t.Errorf("retain count = %d, want 2", rt.RetainCount(h.ID()))
	}
	second.Release()
	after := rt.Stats()
	if after.Retains-before.Retains != 1 || after.Releases-before.Releases != 1 {
		t.Errorf("retains %d releases %d, want 1 and 1", after.Retains-before.Retains, after.Releases-before.Releases)
	}

	third := Retain[str](h.Get())
	third.Release()
	if got := h.Get().value(); got != "shared" {
		t.Errorf("value = %q", got)
	}
}

func TestNilNeverYieldsHandle(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	if h, ok := Own[str](rt, 0); ok || h != nil {
		t.Error("Own(nil) returned a handle")
	}
	if _, ok := Borrow[str](rt, 0); ok {
		t.Error("Borrow(nil) returned a value")
	}
	if h, ok := Claim[str](rt, 0); ok || h != nil {
		t.Error("Claim(nil) returned a handle")
	}
	if a, ok := Allocated[str](rt, 0); ok || a != nil {
		t.Error("Allocated(nil) returned a handle")
	}
	_ = pool.Scope(rt, func(p *pool.Pool) error {
		if h, ok := Autoreleased[str](p.Stack(), 0); ok || h != nil {
			t.Error("Autoreleased(nil) returned a handle")
		}
		return nil
	})
}

func TestAutoreleasedLifetime(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := pool.Current(rt)
	p := s.Push()

	id := rt.Autorelease(rt.NewString("scoped"))
	ar, ok := Autoreleased[str](s, id)
	if !ok || !ar.Valid() {
		t.Fatal("autoreleased handle not valid inside its pool")
	}
	kept := ar.Retain()
	if got := ar.Get().value(); got != "scoped" {
		t.Errorf("value = %q", got)
	}

	p.Drain()
	if ar.Valid() {
		t.Error("autoreleased handle still valid after drain")
	}
	panics(t, ErrPoolDrained, func() { ar.Get() })
	if !rt.IsAlive(id) || kept.Get().value() != "scoped" {
		t.Fatal("retained handle did not survive the pool")
	}
	kept.Release()
	if rt.IsAlive(id) {
		t.Error("object leaked")
	}

	panics(t, ErrNoPool, func() { Autoreleased[str](s, rt.NewString("orphan")) })
}

func TestAutoreleaseOwned(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := pool.Current(rt)
	outer := s.Push()
	inner := s.Push()

	h, _ := Own[str](rt, rt.NewString("moved"))
	var orderErr *pool.OrderError
	func() {
		defer func() {
			err, _ := recover().(error)
			if !errors.As(err, &orderErr) {
				t.Errorf("autorelease into outer pool: %v", err)
			}
		}()
		h.Autorelease(outer)
	}()

	ar := h.Autorelease(inner)
	if !h.Released() {
		t.Error("Autorelease did not disarm the owned handle")
	}
	id := ar.ID()
	inner.Drain()
	if rt.IsAlive(id) {
		t.Error("pool did not release the moved object")
	}
	outer.Drain()
}

func TestLeak(t *testing.T) {
	rt := sim.New()
	h, _ := Own[str](rt, rt.NewString("leaked"))
	id := h.Leak()
	h.Release()
	if !rt.IsAlive(id) || rt.RetainCount(id) != 1 {
		t.Fatal("Leak did not hand over the retain")
	}
	rt.Release(id)
}

func TestClaim(t *testing.T) {
	rt := sim.New()
	id := rt.NewString("claimed")
	h, ok := Claim[str](rt, id)
	if !ok || rt.RetainCount(id) != 2 {
		t.Fatalf("Claim: ok=%v count=%d", ok, rt.RetainCount(id))
	}
	h.Release()
	rt.Release(id)
}

func TestAllocInit(t *testing.T) {
	rt := sim.New()
	cls := rt.LookUpClass("NSString")
	id := dispatch.SendClass[abi.ID](rt, cls, dispatch.Name("alloc").On(rt))

	a, ok := Allocated[str](rt, id)
	if !ok {
		t.Fatal("Allocated returned no handle")
	}
	h, ok := a.Init(dispatch.Name("initWithUTF8String:").On(rt), "initialized")
	if !ok {
		t.Fatal("Init returned nil")
	}
	defer h.Release()
	if got := h.Get().value(); got != "initialized" {
		t.Errorf("value = %q", got)
	}
	panics(t, ErrReleased, func() { a.Init(dispatch.Name("init").On(rt)) })

	b, _ := Allocated[str](rt, rt.Alloc(cls))
	bid := b.ID()
	b.Discard()
	if rt.IsAlive(bid) {
		t.Error("Discard did not release the allocation")
	}
}

func TestWeak(t *testing.T) {
	rt := sim.New()
	h, _ := Own[str](rt, rt.NewString("weak"))
	w := NewWeak[str](h.Get())
	defer w.Close()
	c := w.Clone()
	defer c.Close()

	up, ok := w.Upgrade()
	if !ok || up.Get().value() != "weak" {
		t.Fatal("Upgrade failed while the object is alive")
	}
	up.Release()
	h.Release()

	if _, ok := w.Upgrade(); ok {
		t.Error("Upgrade succeeded after deallocation")
	}
	if _, ok := c.Upgrade(); ok {
		t.Error("cloned weak reference was not zeroed")
	}
}
