// Package dispatch resolves selectors and sends messages.
//
// Selectors are interned once per distinct name and runtime. Sends are
// synchronous foreign calls whose ABI shape is taken from the Go types at the
// call site; the optional checked mode verifies that shape against the
// method's type encoding before calling.
package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultVerifyCacheSize is the number of verified call shapes kept by a
// registry in checked mode.
const DefaultVerifyCacheSize = 1024

// Selector is a resolved selector. Selectors resolved from the same name on
// the same runtime compare equal.
type Selector struct {
	sel  abi.SEL
	name string
}

// SEL returns the raw runtime selector.
func (s Selector) SEL() abi.SEL { return s.sel }

// Name returns the selector's name.
func (s Selector) Name() string { return s.name }

// IsZero reports whether s was never resolved.
func (s Selector) IsZero() bool { return s.sel == 0 }

func (s Selector) String() string { return s.name }

// Stats reports the selector cache activity of a registry.
type Stats struct {
	Hits          uint64
	Registrations uint64
	Cached        int
}

// Registry is the selector cache and dispatch configuration of one runtime.
type Registry struct {
	rt abi.Runtime

	sels  sync.Map // string -> Selector
	group singleflight.Group

	resolves      atomic.Uint64
	registrations atomic.Uint64
	cached        atomic.Int64

	checked  atomic.Bool
	mu       sync.Mutex
	verified *lru.Cache[shapeKey, struct{}]
}

var registries sync.Map // abi.Runtime -> *Registry

// For returns the registry of rt, creating it on first use.
func For(rt abi.Runtime) *Registry {
	if r, ok := registries.Load(rt); ok {
		return r.(*Registry)
	}
	r, _ := registries.LoadOrStore(rt, &Registry{rt: rt})
	return r.(*Registry)
}

// Runtime returns the runtime the registry belongs to.
func (r *Registry) Runtime() abi.Runtime { return r.rt }

// Resolve returns the selector for name, registering it with the runtime the
// first time the name is seen.
func (r *Registry) Resolve(name string) Selector {
	r.resolves.Add(1)
	if s, ok := r.sels.Load(name); ok {
		return s.(Selector)
	}
	v, _, _ := r.group.Do(name, func() (any, error) {
		if s, ok := r.sels.Load(name); ok {
			return s, nil
		}
		s := Selector{sel: r.rt.RegisterSelector(name), name: name}
		r.registrations.Add(1)
		r.cached.Add(1)
		r.sels.Store(name, s)
		log.WithFields(log.Fields{
			"runtime":  r.rt.Name(),
			"selector": name,
			"sel":      s.sel,
		}).Debug("dispatch: registered selector")
		return s, nil
	})
	return v.(Selector)
}

// Stats returns a snapshot of the cache counters.
func (r *Registry) Stats() Stats {
	regs := r.registrations.Load()
	return Stats{
		Hits:          r.resolves.Load() - regs,
		Registrations: regs,
		Cached:        int(r.cached.Load()),
	}
}

// SetChecked turns signature verification on or off for every send through
// this registry.
func (r *Registry) SetChecked(on bool) {
	r.checked.Store(on)
	log.WithFields(log.Fields{"runtime": r.rt.Name(), "checked": on}).Debug("dispatch: checked mode")
}

// Checked reports whether signature verification is on.
func (r *Registry) Checked() bool { return r.checked.Load() }

// SetVerifyCacheSize bounds the number of verified call shapes remembered in
// checked mode.
func (r *Registry) SetVerifyCacheSize(size int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verified == nil {
		c, err := lru.New[shapeKey, struct{}](size)
		if err != nil {
			return err
		}
		r.verified = c
		return nil
	}
	r.verified.Resize(size)
	return nil
}

func (r *Registry) verifyCache() *lru.Cache[shapeKey, struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verified == nil {
		r.verified, _ = lru.New[shapeKey, struct{}](DefaultVerifyCacheSize)
	}
	return r.verified
}

// Name is a selector name resolved lazily per runtime. Wrapper packages
// declare their selectors as package-level Names.
type Name string

// On resolves the name against rt.
func (n Name) On(rt abi.Runtime) Selector {
	return For(rt).Resolve(string(n))
}
