package pool

import (
	"errors"
	"math/rand"
	"runtime"
	"testing"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/abi/sim"
)

func catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
			if err == nil {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

func TestMatchedPushDrainRestoresDepth(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := Current(rt)
	base := s.Depth()

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		var open []*Pool
		for step := 0; step < 20; step++ {
			if len(open) == 0 || rng.Intn(2) == 0 {
				open = append(open, s.Push())
			} else {
				open[len(open)-1].Drain()
				open = open[:len(open)-1]
			}
			if got := s.Depth(); got != base+len(open) {
				t.Fatalf("round %d step %d: depth = %d, want %d", round, step, got, base+len(open))
			}
			if got := rt.PoolDepth(); got != s.Depth() {
				t.Fatalf("runtime depth %d disagrees with stack depth %d", got, s.Depth())
			}
		}
		for i := len(open) - 1; i >= 0; i-- {
			open[i].Drain()
		}
		if got := s.Depth(); got != base {
			t.Fatalf("round %d: depth = %d after matched drains, want %d", round, got, base)
		}
	}
}

func TestOutOfOrderDrain(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := Current(rt)
	p1 := s.Push()
	p2 := s.Push()

	err := catch(p1.Drain)
	var orderErr *OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("draining a non-top pool: got %v, want *OrderError", err)
	}
	if orderErr.Depth != 1 || orderErr.Top != 2 {
		t.Errorf("OrderError = %+v", orderErr)
	}
	if s.Depth() != 2 || s.Top() != p2 || p1.Drained() {
		t.Fatal("rejected drain modified the stack")
	}

	p2.Drain()
	p1.Drain()
	if s.Depth() != 0 {
		t.Errorf("depth = %d, want 0", s.Depth())
	}
	if err := catch(p1.Drain); !errors.As(err, &orderErr) {
		t.Errorf("second drain: got %v, want *OrderError", err)
	}
}

func TestNestedPoolScenario(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := Current(rt)

	p1 := s.Push()
	o := rt.Autorelease(rt.NewString("O"))
	p2 := s.Push()
	o2 := rt.Autorelease(rt.NewString("O2"))

	p2.Drain()
	if rt.IsAlive(o2) {
		t.Fatal("O2 survived P2")
	}
	if !rt.IsAlive(o) || rt.RetainCount(o) != 1 {
		t.Fatal("draining P2 touched O")
	}
	p1.Drain()
	if rt.IsAlive(o) {
		t.Fatal("O survived P1")
	}
	got := rt.Deallocated()
	want := []abi.ID{o2, o}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("dealloc order = %v, want %v", got, want)
	}
}

func TestScope(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := Current(rt)
	errBoom := errors.New("boom")

	var obj abi.ID
	err := Scope(rt, func(p *Pool) error {
		if !p.IsTop() || s.Depth() != 1 {
			t.Errorf("scope pool is not on top")
		}
		obj = rt.Autorelease(rt.NewString("scoped"))
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Scope returned %v", err)
	}
	if rt.IsAlive(obj) || s.Depth() != 0 {
		t.Error("early return did not drain the scope")
	}

	// inline: a subtest runs on another thread with its own stack
	var inner, outer abi.ID
	func() {
		defer func() { recover() }()
		_ = Scope(rt, func(p *Pool) error {
			outer = rt.Autorelease(rt.NewString("outer"))
			s.Push() // never drained
			inner = rt.Autorelease(rt.NewString("inner"))
			panic("call failed")
		})
	}()
	if s.Depth() != 0 {
		t.Fatalf("depth = %d after panicking scope", s.Depth())
	}
	if rt.IsAlive(inner) || rt.IsAlive(outer) {
		t.Error("panicking scope leaked autoreleased objects")
	}
}

func TestScopeReturnsWithInnerPoolOpen(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	s := Current(rt)

	var inner abi.ID
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err, _ = r.(error)
			}
		}()
		return Scope(rt, func(p *Pool) error {
			p.Stack().Push() // left open
			inner = rt.Autorelease(rt.NewString("inner"))
			return nil
		})
	}()

	var orderErr *OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("got %v, want *OrderError", err)
	}
	if orderErr.Depth != 1 || orderErr.Top != 2 {
		t.Errorf("OrderError = %+v", orderErr)
	}
	if s.Depth() != 0 {
		t.Errorf("depth = %d after scope", s.Depth())
	}
	if rt.IsAlive(inner) {
		t.Error("inner pool was not drained")
	}
}

func TestWith(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rt := sim.New()
	n, err := With(rt, func(p *Pool) (int, error) {
		return p.Depth(), nil
	})
	if err != nil || n != 1 {
		t.Errorf("With = %d, %v", n, err)
	}
	if Current(rt).Depth() != 0 {
		t.Error("With left a pool open")
	}
}
