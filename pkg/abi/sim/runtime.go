// Package sim is an in-process, instrumented implementation of abi.Runtime.
//
// Objects are plain Go values with an explicit retain count. Every retain,
// release, autorelease, selector registration and deallocation is counted so
// the ownership rules of the layers above can be verified without a real
// Objective-C runtime. A small Foundation fixture (NSObject, NSString,
// NSNumber, NSArray, NSMutableArray) is installed by New.
package sim

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/internal/thread"
	"github.com/blacktop/objcrt/pkg/abi"
)

// Imp implements a method. args are the explicit arguments exactly as the
// caller passed them to MsgSend.
type Imp func(r *Runtime, self abi.ID, args []any) any

// Exception is raised (as a Go panic) wherever the real runtime would throw.
type Exception struct {
	Name   string
	Reason string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Op is the kind of an Event.
type Op string

const (
	OpAlloc       Op = "alloc"
	OpRetain      Op = "retain"
	OpRelease     Op = "release"
	OpAutorelease Op = "autorelease"
	OpDealloc     Op = "dealloc"
	OpPush        Op = "push"
	OpPop         Op = "pop"
)

// Event is one entry of the runtime's ownership log.
type Event struct {
	Op    Op
	ID    abi.ID
	Class string
	Count int // retain count after the operation
}

// Stats are cumulative counters.
type Stats struct {
	Allocs        int
	Retains       int
	Releases      int
	Autoreleases  int
	Deallocs      int
	Registrations int
	Sends         int
}

type object struct {
	id      abi.ID
	cls     *class
	rc      int
	dead    bool
	payload any
	weak    map[abi.Weak]struct{}
}

type page struct {
	token   abi.Page
	entries []abi.ID
}

// Runtime is a simulated foreign runtime. The zero value is not usable; call
// New or NewEmpty.
type Runtime struct {
	mu sync.Mutex

	next uintptr

	selectors map[string]abi.SEL
	selNames  map[abi.SEL]string
	selCount  map[string]int

	classes    map[string]*class
	classByPtr map[abi.Class]*class
	protocols  map[string]*protocol
	protoByPtr map[abi.Protocol]*protocol

	objects map[abi.ID]*object
	weak    map[abi.Weak]abi.ID

	pools map[uint64][]*page

	cfTypes   map[abi.CFTypeID]string
	nextCFTyp abi.CFTypeID

	stats  Stats
	events []Event
}

// NewEmpty returns a runtime with only the root NSObject class.
func NewEmpty() *Runtime {
	r := &Runtime{
		next:       0x1000,
		selectors:  make(map[string]abi.SEL),
		selNames:   make(map[abi.SEL]string),
		selCount:   make(map[string]int),
		classes:    make(map[string]*class),
		classByPtr: make(map[abi.Class]*class),
		protocols:  make(map[string]*protocol),
		protoByPtr: make(map[abi.Protocol]*protocol),
		objects:    make(map[abi.ID]*object),
		weak:       make(map[abi.Weak]abi.ID),
		pools:      make(map[uint64][]*page),
		cfTypes:    map[abi.CFTypeID]string{1: "CFType"},
		nextCFTyp:  2,
	}
	installRoot(r)
	return r
}

// New returns a runtime with the Foundation fixture installed.
func New() *Runtime {
	r := NewEmpty()
	installFoundation(r)
	return r
}

func (r *Runtime) Name() string { return "sim" }

func (r *Runtime) addr() uintptr {
	a := r.next
	r.next += 0x10
	return a
}

/* selectors */

func (r *Runtime) RegisterSelector(name string) abi.SEL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(name, true)
}

func (r *Runtime) registerLocked(name string, count bool) abi.SEL {
	if count {
		r.selCount[name]++
		r.stats.Registrations++
	}
	if sel, ok := r.selectors[name]; ok {
		return sel
	}
	sel := abi.SEL(r.addr())
	r.selectors[name] = sel
	r.selNames[sel] = name
	return sel
}

func (r *Runtime) SelectorName(sel abi.SEL) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selNames[sel]
}

// Registrations returns how many times name was passed to RegisterSelector.
func (r *Runtime) Registrations(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selCount[name]
}

/* classes and protocols */

func (r *Runtime) LookUpClass(name string) abi.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classes[name]; ok {
		return c.ptr
	}
	return 0
}

func (r *Runtime) LookUpProtocol(name string) abi.Protocol {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.protocols[name]; ok {
		return p.ptr
	}
	return 0
}

func (r *Runtime) ObjectClass(id abi.ID) abi.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.objects[id]; ok {
		return o.cls.ptr
	}
	if c, ok := r.classByPtr[abi.Class(id)]; ok && c.meta != nil {
		return c.meta.ptr
	}
	return 0
}

func (r *Runtime) ClassName(cls abi.Class) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classByPtr[cls]; ok {
		return c.name
	}
	return ""
}

func (r *Runtime) Superclass(cls abi.Class) abi.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classByPtr[cls]; ok && c.super != nil {
		return c.super.ptr
	}
	return 0
}

func (r *Runtime) RespondsTo(cls abi.Class, sel abi.SEL) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classByPtr[cls]
	if !ok {
		return false
	}
	return c.lookup(sel) != nil
}

func (r *Runtime) ConformsTo(cls abi.Class, proto abi.Protocol) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.protoByPtr[proto]
	if !ok {
		return false
	}
	for c := r.classByPtr[cls]; c != nil; c = c.super {
		for _, cp := range c.protocols {
			if cp.conformsTo(p) {
				return true
			}
		}
	}
	return false
}

func (r *Runtime) MethodEncoding(cls abi.Class, sel abi.SEL) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classByPtr[cls]
	if !ok {
		return "", false
	}
	m := c.lookup(sel)
	if m == nil {
		return "", false
	}
	return m.enc, true
}

/* objects */

func (r *Runtime) allocLocked(c *class) *object {
	o := &object{id: abi.ID(r.addr()), cls: c, rc: 1}
	r.objects[o.id] = o
	r.stats.Allocs++
	r.record(OpAlloc, o)
	return o
}

// Alloc creates an uninitialized instance of cls at +1, as +alloc does.
func (r *Runtime) Alloc(cls abi.Class) abi.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classByPtr[cls]
	if !ok || c.isMeta {
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("cannot allocate %v", cls)})
	}
	return r.allocLocked(c).id
}

// Payload returns the Go value stored in the object by its class.
func (r *Runtime) Payload(id abi.ID) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.objects[id]; ok {
		return o.payload
	}
	return nil
}

// SetPayload stores v as the object's instance data.
func (r *Runtime) SetPayload(id abi.ID, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.objects[id]; ok {
		o.payload = v
	}
}

// RetainCount returns the object's current retain count. Deallocated and
// unknown objects report 0.
func (r *Runtime) RetainCount(id abi.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.objects[id]; ok && !o.dead {
		return o.rc
	}
	return 0
}

// IsAlive reports whether id names a live object.
func (r *Runtime) IsAlive(id abi.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.objects[id]
	return ok && !o.dead
}

func (r *Runtime) liveLocked(id abi.ID, op string) *object {
	o, ok := r.objects[id]
	if !ok {
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("%s of unknown object %v", op, id)})
	}
	if o.dead {
		panic(&Exception{Name: "NSInternalInconsistencyException", Reason: fmt.Sprintf("%s of deallocated %s %v", op, o.cls.name, id)})
	}
	return o
}

func (r *Runtime) Retain(id abi.ID) abi.ID {
	if id == 0 {
		return 0
	}
	if _, ok := r.classByPtrSafe(abi.Class(id)); ok {
		return id // classes are immortal
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.liveLocked(id, "retain")
	o.rc++
	r.stats.Retains++
	r.record(OpRetain, o)
	return id
}

func (r *Runtime) Release(id abi.ID) {
	if id == 0 {
		return
	}
	if _, ok := r.classByPtrSafe(abi.Class(id)); ok {
		return
	}
	if o, last := r.decrement(id); last {
		r.dealloc(o)
	}
}

func (r *Runtime) decrement(id abi.ID) (*object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.liveLocked(id, "release")
	o.rc--
	r.stats.Releases++
	r.record(OpRelease, o)
	return o, o.rc == 0
}

func (r *Runtime) dealloc(o *object) {
	for c := o.cls; c != nil; c = c.super {
		if c.dealloc != nil {
			c.dealloc(r, o.id)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o.dead = true
	for w := range o.weak {
		r.weak[w] = 0
	}
	o.weak = nil
	r.stats.Deallocs++
	r.record(OpDealloc, o)
	log.WithFields(log.Fields{"class": o.cls.name, "id": o.id}).Debug("sim: dealloc")
}

func (r *Runtime) Autorelease(id abi.ID) abi.ID {
	if id == 0 {
		return 0
	}
	tid := thread.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.liveLocked(id, "autorelease")
	stack := r.pools[tid]
	if len(stack) == 0 {
		log.WithField("id", id).Warnf("sim: %s autoreleased with no pool in place - just leaking", o.cls.name)
		return id
	}
	top := stack[len(stack)-1]
	top.entries = append(top.entries, id)
	r.stats.Autoreleases++
	r.record(OpAutorelease, o)
	return id
}

func (r *Runtime) RetainAutoreleased(id abi.ID) abi.ID {
	return r.Retain(id)
}

func (r *Runtime) classByPtrSafe(cls abi.Class) (*class, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classByPtr[cls]
	return c, ok
}

/* autorelease pools */

func (r *Runtime) PoolPush() abi.Page {
	tid := thread.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &page{token: abi.Page(r.addr())}
	r.pools[tid] = append(r.pools[tid], p)
	r.events = append(r.events, Event{Op: OpPush, ID: abi.ID(p.token)})
	return p.token
}

func (r *Runtime) PoolPop(token abi.Page) {
	tid := thread.ID()
	r.mu.Lock()
	stack := r.pools[tid]
	idx := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		panic(&Exception{Name: "NSInternalInconsistencyException", Reason: fmt.Sprintf("pool page %#x is not on this thread's stack", uintptr(token))})
	}
	popped := stack[idx:]
	r.pools[tid] = stack[:idx]
	r.events = append(r.events, Event{Op: OpPop, ID: abi.ID(token)})
	r.mu.Unlock()

	// innermost page first, most recent registration first
	for i := len(popped) - 1; i >= 0; i-- {
		entries := popped[i].entries
		for j := len(entries) - 1; j >= 0; j-- {
			r.Release(entries[j])
		}
	}
}

// PoolDepth returns the number of pages pushed on the calling thread.
func (r *Runtime) PoolDepth() int {
	tid := thread.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools[tid])
}

/* weak references */

func (r *Runtime) NewWeak(obj abi.ID) abi.Weak {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := abi.Weak(r.addr())
	r.storeWeakLocked(w, obj)
	return w
}

func (r *Runtime) storeWeakLocked(w abi.Weak, obj abi.ID) {
	if old, ok := r.weak[w]; ok && old != 0 {
		if o, ok := r.objects[old]; ok {
			delete(o.weak, w)
		}
	}
	if o, ok := r.objects[obj]; ok && !o.dead {
		if o.weak == nil {
			o.weak = make(map[abi.Weak]struct{})
		}
		o.weak[w] = struct{}{}
		r.weak[w] = obj
		return
	}
	r.weak[w] = 0
}

func (r *Runtime) LoadWeakRetained(w abi.Weak) abi.ID {
	r.mu.Lock()
	id := r.weak[w]
	r.mu.Unlock()
	if id == 0 {
		return 0
	}
	return r.Retain(id)
}

func (r *Runtime) CopyWeak(w abi.Weak) abi.Weak {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst := abi.Weak(r.addr())
	r.storeWeakLocked(dst, r.weak[w])
	return dst
}

func (r *Runtime) DestroyWeak(w abi.Weak) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeWeakLocked(w, 0)
	delete(r.weak, w)
}

/* CoreFoundation */

func (r *Runtime) CFRetain(ref abi.CFTypeRef) abi.CFTypeRef {
	if ref == 0 {
		panic(&Exception{Name: "CFRetain", Reason: "NULL argument"})
	}
	return abi.CFTypeRef(r.Retain(abi.ID(ref)))
}

func (r *Runtime) CFRelease(ref abi.CFTypeRef) {
	if ref == 0 {
		panic(&Exception{Name: "CFRelease", Reason: "NULL argument"})
	}
	r.Release(abi.ID(ref))
}

func (r *Runtime) CFGetTypeID(ref abi.CFTypeRef) abi.CFTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.liveLocked(abi.ID(ref), "CFGetTypeID")
	for c := o.cls; c != nil; c = c.super {
		if c.cfType != 0 {
			return c.cfType
		}
	}
	return 1
}

func (r *Runtime) CFTypeIDDescription(id abi.CFTypeID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfTypes[id]
}

// CFTypeIDFor returns the type id registered for a CF type name, or 0.
func (r *Runtime) CFTypeIDFor(name string) abi.CFTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.cfTypes {
		if n == name {
			return id
		}
	}
	return 0
}

/* messaging */

func (r *Runtime) MsgSend(recv abi.ID, sel abi.SEL, ret any, args ...any) {
	if recv == 0 {
		// messages to nil return zero
		if ret != nil {
			rv := reflect.ValueOf(ret).Elem()
			rv.Set(reflect.Zero(rv.Type()))
		}
		return
	}
	r.mu.Lock()
	var (
		c       *class
		isClass bool
	)
	if o, ok := r.objects[recv]; ok {
		if o.dead {
			r.mu.Unlock()
			panic(&Exception{
				Name:   "NSInvalidArgumentException",
				Reason: fmt.Sprintf("-[%s %s]: message sent to deallocated instance %v", o.cls.name, r.selNames[sel], recv),
			})
		}
		c = o.cls
	} else if cls, ok := r.classByPtr[abi.Class(recv)]; ok && cls.meta != nil {
		c = cls.meta
		isClass = true
	} else {
		r.mu.Unlock()
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("message sent to unknown receiver %v", recv)})
	}
	m := c.lookup(sel)
	name := r.selNames[sel]
	r.stats.Sends++
	r.mu.Unlock()

	if m == nil {
		prefix, cname := "-", c.name
		if isClass {
			prefix, cname = "+", c.instance.name
		}
		panic(&Exception{
			Name:   "NSInvalidArgumentException",
			Reason: fmt.Sprintf("%s[%s %s]: unrecognized selector sent to %v", prefix, cname, name, recv),
		})
	}
	res := m.imp(r, recv, args)
	if ret != nil {
		assign(ret, res)
	}
}

func assign(ret any, res any) {
	rv := reflect.ValueOf(ret)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		panic(fmt.Sprintf("sim: return slot must be a non-nil pointer, got %T", ret))
	}
	dst := rv.Elem()
	if res == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return
	}
	v := reflect.ValueOf(res)
	if !v.Type().ConvertibleTo(dst.Type()) {
		panic(fmt.Sprintf("sim: cannot return %T as %s", res, dst.Type()))
	}
	dst.Set(v.Convert(dst.Type()))
}

/* instrumentation */

func (r *Runtime) record(op Op, o *object) {
	r.events = append(r.events, Event{Op: op, ID: o.id, Class: o.cls.name, Count: o.rc})
}

// Stats returns a snapshot of the cumulative counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Events returns a copy of the ownership log.
func (r *Runtime) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// EventsFor returns the log entries for id.
func (r *Runtime) EventsFor(id abi.ID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// Deallocated returns deallocated object ids in deallocation order.
func (r *Runtime) Deallocated() []abi.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []abi.ID
	for _, e := range r.events {
		if e.Op == OpDealloc {
			out = append(out, e.ID)
		}
	}
	return out
}

// ResetEvents clears the log but keeps the counters.
func (r *Runtime) ResetEvents() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
