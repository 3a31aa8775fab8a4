// Package objc binds statically typed Go wrappers to Objective-C classes and
// protocols.
//
// A wrapper is a struct embedding Id (or another wrapper). Define ties it to
// a runtime class name and the protocols it claims; Bind resolves both
// against a runtime once and hands out typed handles.
package objc

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/dispatch"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultDescribeCacheSize is the default number of (class, descriptor)
// results each descriptor remembers.
const DefaultDescribeCacheSize = 256

// Zero means DefaultDescribeCacheSize. Package-level Defs create descriptors
// during variable initialization, before any init func could set it.
var describeCacheSize atomic.Int64

// SetDescribeCacheSize sets the Describes cache size for descriptors whose
// cache has not been built yet.
func SetDescribeCacheSize(n int) {
	if n > 0 {
		describeCacheSize.Store(int64(n))
	}
}

// ConfigError reports a binding that does not match the loaded frameworks.
// It is raised at first use and never retried.
type ConfigError struct {
	Class    string
	Protocol string
	Missing  []string // required selectors the class does not answer
}

func (e *ConfigError) Error() string {
	if e.Protocol != "" {
		return fmt.Sprintf("objc: class %s does not answer %s's required selectors: %s",
			e.Class, e.Protocol, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("objc: class %s is not loaded", e.Class)
}

type describeKey struct {
	rt  abi.Runtime
	cls abi.Class
}

// ClassDescriptor is a runtime class looked up by name, resolved lazily
// once per runtime.
type ClassDescriptor struct {
	name string

	resolved sync.Map // abi.Runtime -> abi.Class, 0 when not loaded
	group    singleflight.Group

	cacheOnce sync.Once
	cache     *lru.Cache[describeKey, bool]
}

var descriptors sync.Map // string -> *ClassDescriptor

// Class returns the descriptor for the class called name. Descriptors are
// interned: every call with the same name returns the same value.
func Class(name string) *ClassDescriptor {
	if d, ok := descriptors.Load(name); ok {
		return d.(*ClassDescriptor)
	}
	d, _ := descriptors.LoadOrStore(name, &ClassDescriptor{name: name})
	return d.(*ClassDescriptor)
}

func (d *ClassDescriptor) describeCache() *lru.Cache[describeKey, bool] {
	d.cacheOnce.Do(func() {
		size := int(describeCacheSize.Load())
		if size == 0 {
			size = DefaultDescribeCacheSize
		}
		cache, err := lru.New[describeKey, bool](size)
		if err != nil {
			log.WithError(err).WithField("size", size).Warn("objc: bad describe cache size, using default")
			cache, _ = lru.New[describeKey, bool](DefaultDescribeCacheSize)
		}
		d.cache = cache
	})
	return d.cache
}

// Name returns the class name.
func (d *ClassDescriptor) Name() string { return d.name }

func (d *ClassDescriptor) String() string { return d.name }

// Lookup resolves the class, reporting false when it is not loaded. The
// answer, found or not, is remembered per runtime.
func (d *ClassDescriptor) Lookup(rt abi.Runtime) (abi.Class, bool) {
	if c, ok := d.resolved.Load(rt); ok {
		cls := c.(abi.Class)
		return cls, cls != 0
	}
	v, _, _ := d.group.Do(rt.Name()+"\x00"+fmt.Sprintf("%p", rt), func() (any, error) {
		cls := rt.LookUpClass(d.name)
		d.resolved.Store(rt, cls)
		if cls != 0 {
			log.WithFields(log.Fields{"class": d.name, "ptr": cls, "runtime": rt.Name()}).Debug("objc: resolved class")
		} else {
			log.WithFields(log.Fields{"class": d.name, "runtime": rt.Name()}).Debug("objc: class not loaded")
		}
		return cls, nil
	})
	cls := v.(abi.Class)
	return cls, cls != 0
}

// Resolve returns the class pointer. An unknown class panics with
// *ConfigError.
func (d *ClassDescriptor) Resolve(rt abi.Runtime) abi.Class {
	cls, ok := d.Lookup(rt)
	if !ok {
		panic(&ConfigError{Class: d.name})
	}
	return cls
}

// Describes reports whether obj is an instance of the class or one of its
// subclasses. A nil object is described by nothing.
func (d *ClassDescriptor) Describes(obj dispatch.Receiver) bool {
	id := obj.ID()
	if id == 0 {
		return false
	}
	rt := obj.Runtime()
	want := d.Resolve(rt)
	cls := rt.ObjectClass(id)
	key := describeKey{rt: rt, cls: cls}
	cache := d.describeCache()
	if ok, hit := cache.Get(key); hit {
		return ok
	}
	ok := false
	for c := cls; c != 0; c = rt.Superclass(c) {
		if c == want {
			ok = true
			break
		}
	}
	cache.Add(key, ok)
	return ok
}

var (
	selAlloc = dispatch.Name("alloc")
	selNew   = dispatch.Name("new")
)

// Alloc sends +alloc to the class.
func (d *ClassDescriptor) Alloc(rt abi.Runtime) *arc.A[Id] {
	return alloc[Id](rt, d)
}

// New sends +new to the class and owns the result.
func (d *ClassDescriptor) New(rt abi.Runtime) *arc.R[Id] {
	return newObject[Id](rt, d)
}

func alloc[T any, P arc.Wrapper[T]](rt abi.Runtime, d *ClassDescriptor) *arc.A[T] {
	id := dispatch.SendClass[abi.ID](rt, d.Resolve(rt), selAlloc.On(rt))
	a, ok := arc.Allocated[T, P](rt, id)
	if !ok {
		panic(fmt.Sprintf("objc: +[%s alloc] returned nil", d.name))
	}
	return a
}

func newObject[T any, P arc.Wrapper[T]](rt abi.Runtime, d *ClassDescriptor) *arc.R[T] {
	id := dispatch.SendClass[abi.ID](rt, d.Resolve(rt), selNew.On(rt))
	r, ok := arc.Own[T, P](rt, id)
	if !ok {
		panic(fmt.Sprintf("objc: +[%s new] returned nil", d.name))
	}
	return r
}
