// Package pool manages autorelease pool scopes.
//
// Every OS thread has its own strictly nested stack of pools. A goroutine
// that pushes a pool is locked to its OS thread until the pool is drained, so
// the runtime's thread-local pool stack and the Stack seen from Go always
// agree.
package pool

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/thread"
	"github.com/blacktop/objcrt/pkg/abi"
)

// OrderError is raised when a pool is drained out of LIFO order, twice, or
// from a thread that does not own it.
type OrderError struct {
	Depth int // depth of the pool being drained
	Top   int // depth of the stack's current top
	Msg   string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("pool: cannot drain pool at depth %d (top is %d): %s", e.Depth, e.Top, e.Msg)
}

// Stack is the pool stack of one OS thread for one runtime.
type Stack struct {
	rt  abi.Runtime
	tid uint64

	mu    sync.Mutex
	pools []*Pool
}

// Pool is an open autorelease pool. Only the top pool of a stack can be
// drained.
type Pool struct {
	stack   *Stack
	page    abi.Page
	depth   int
	drained bool
}

type stackKey struct {
	rt  abi.Runtime
	tid uint64
}

var stacks sync.Map // stackKey -> *Stack

// Current returns the calling thread's pool stack for rt.
func Current(rt abi.Runtime) *Stack {
	return stackFor(rt, thread.ID())
}

func stackFor(rt abi.Runtime, tid uint64) *Stack {
	key := stackKey{rt: rt, tid: tid}
	if s, ok := stacks.Load(key); ok {
		return s.(*Stack)
	}
	s, _ := stacks.LoadOrStore(key, &Stack{rt: rt, tid: tid})
	return s.(*Stack)
}

// Runtime returns the runtime the stack belongs to.
func (s *Stack) Runtime() abi.Runtime { return s.rt }

// Push opens a new pool on top of the calling thread's stack and locks the
// calling goroutine to its thread until the pool is drained. If the
// goroutine is not on the stack's thread the pool goes on the stack of the
// thread it is actually running on.
func (s *Stack) Push() *Pool {
	runtime.LockOSThread()
	if tid := thread.ID(); tid != s.tid {
		s = stackFor(s.rt, tid)
	}
	page := s.rt.PoolPush()

	s.mu.Lock()
	p := &Pool{stack: s, page: page, depth: len(s.pools) + 1}
	s.pools = append(s.pools, p)
	s.mu.Unlock()

	log.WithFields(log.Fields{"depth": p.depth, "thread": s.tid}).Debug("pool: push")
	return p
}

// Depth returns the number of open pools.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pools)
}

// Top returns the innermost open pool, or nil.
func (s *Stack) Top() *Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pools) == 0 {
		return nil
	}
	return s.pools[len(s.pools)-1]
}

// Stack returns the stack the pool lives on.
func (p *Pool) Stack() *Stack { return p.stack }

// Depth returns the 1-based position of the pool in its stack.
func (p *Pool) Depth() int { return p.depth }

// Drained reports whether the pool has been drained.
func (p *Pool) Drained() bool {
	p.stack.mu.Lock()
	defer p.stack.mu.Unlock()
	return p.drained
}

// IsTop reports whether p is its stack's innermost open pool.
func (p *Pool) IsTop() bool {
	return p.stack.Top() == p
}

// Drain releases every object autoreleased into the pool and removes it from
// the stack. Draining a pool that is not on top panics with *OrderError and
// leaves the stack untouched.
func (p *Pool) Drain() {
	s := p.stack
	s.mu.Lock()
	if err := p.checkLocked(); err != nil {
		s.mu.Unlock()
		panic(err)
	}
	if top := len(s.pools); top != p.depth {
		s.mu.Unlock()
		panic(&OrderError{Depth: p.depth, Top: top, Msg: "pool is not on top"})
	}
	s.pools = s.pools[:len(s.pools)-1]
	p.drained = true
	s.mu.Unlock()

	s.rt.PoolPop(p.page)
	runtime.UnlockOSThread()
	log.WithFields(log.Fields{"depth": p.depth, "thread": s.tid}).Debug("pool: drain")
}

func (p *Pool) checkLocked() *OrderError {
	s := p.stack
	if p.drained {
		return &OrderError{Depth: p.depth, Top: len(s.pools), Msg: "pool already drained"}
	}
	if tid := thread.ID(); tid != s.tid {
		return &OrderError{Depth: p.depth, Top: len(s.pools), Msg: fmt.Sprintf("pool belongs to thread %d, not %d", s.tid, tid)}
	}
	return nil
}

// unwind drains p together with every pool pushed after it. It is used when
// a scope exits abnormally and inner pools were abandoned.
func (p *Pool) unwind() {
	s := p.stack
	s.mu.Lock()
	if err := p.checkLocked(); err != nil {
		s.mu.Unlock()
		panic(err)
	}
	abandoned := s.pools[p.depth-1:]
	s.pools = s.pools[:p.depth-1]
	for _, q := range abandoned {
		q.drained = true
	}
	s.mu.Unlock()

	// popping a page pops every page above it
	s.rt.PoolPop(p.page)
	for range abandoned {
		runtime.UnlockOSThread()
	}
	if len(abandoned) > 1 {
		log.WithFields(log.Fields{"depth": p.depth, "abandoned": len(abandoned) - 1}).Warn("pool: drained abandoned inner pools")
	}
}

// Scope pushes a pool, runs fn and drains the pool however fn exits. Pools
// fn left open are drained along with it. If fn returns normally with pools
// still open, Scope panics with *OrderError after draining them.
func Scope(rt abi.Runtime, fn func(p *Pool) error) error {
	p := Current(rt).Push()
	done := false
	defer func() {
		switch top := p.stack.Depth(); {
		case !done:
			p.unwind()
		case top != p.depth:
			p.unwind()
			panic(&OrderError{Depth: p.depth, Top: top, Msg: "scope returned with inner pools open"})
		default:
			p.Drain()
		}
	}()
	err := fn(p)
	done = true
	return err
}

// With is Scope for functions that produce a value.
func With[T any](rt abi.Runtime, fn func(p *Pool) (T, error)) (T, error) {
	var out T
	err := Scope(rt, func(p *Pool) error {
		var err error
		out, err = fn(p)
		return err
	})
	return out, err
}
