package sim

import (
	"fmt"

	"github.com/blacktop/objcrt/pkg/abi"
)

type method struct {
	enc string
	imp Imp
}

type class struct {
	name      string
	ptr       abi.Class
	super     *class
	meta      *class // nil for metaclasses
	instance  *class // set on metaclasses
	isMeta    bool
	methods   map[abi.SEL]*method
	protocols []*protocol
	dealloc   func(r *Runtime, self abi.ID)
	cfType    abi.CFTypeID
}

func (c *class) lookup(sel abi.SEL) *method {
	for ; c != nil; c = c.super {
		if m, ok := c.methods[sel]; ok {
			return m
		}
	}
	return nil
}

type protocol struct {
	name    string
	ptr     abi.Protocol
	inherit []*protocol
}

func (p *protocol) conformsTo(other *protocol) bool {
	if p == other {
		return true
	}
	for _, i := range p.inherit {
		if i.conformsTo(other) {
			return true
		}
	}
	return false
}

// ClassBuilder adds methods to a simulated class.
type ClassBuilder struct {
	r *Runtime
	c *class
}

// DefineClass creates a class named name inheriting from super (empty for a
// root class). Defining an existing name panics.
func (r *Runtime) DefineClass(name, super string) *ClassBuilder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.classes[name]; dup {
		panic(fmt.Sprintf("sim: class %s already defined", name))
	}
	var sc *class
	if super != "" {
		var ok bool
		if sc, ok = r.classes[super]; !ok {
			panic(fmt.Sprintf("sim: superclass %s of %s not defined", super, name))
		}
	}
	c := &class{name: name, ptr: abi.Class(r.addr()), super: sc, methods: make(map[abi.SEL]*method)}
	m := &class{name: name, ptr: abi.Class(r.addr()), isMeta: true, instance: c, methods: make(map[abi.SEL]*method)}
	if sc != nil {
		m.super = sc.meta
	} else {
		// the root metaclass inherits from the root class
		m.super = c
	}
	c.meta = m
	r.classes[name] = c
	r.classByPtr[c.ptr] = c
	r.classByPtr[m.ptr] = m
	return &ClassBuilder{r: r, c: c}
}

// Method adds an instance method.
func (b *ClassBuilder) Method(sel, enc string, imp Imp) *ClassBuilder {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	b.c.methods[b.r.registerLocked(sel, false)] = &method{enc: enc, imp: imp}
	return b
}

// ClassMethod adds a class method.
func (b *ClassBuilder) ClassMethod(sel, enc string, imp Imp) *ClassBuilder {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	b.c.meta.methods[b.r.registerLocked(sel, false)] = &method{enc: enc, imp: imp}
	return b
}

// Conforms declares protocol conformance. Unknown protocols are created.
func (b *ClassBuilder) Conforms(protos ...string) *ClassBuilder {
	for _, name := range protos {
		p := b.r.DefineProtocol(name)
		b.r.mu.Lock()
		b.c.protocols = append(b.c.protocols, b.r.protoByPtr[p])
		b.r.mu.Unlock()
	}
	return b
}

// Bridged gives instances of the class (and subclasses) the CF type cfName.
func (b *ClassBuilder) Bridged(cfName string) *ClassBuilder {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	id := b.r.nextCFTyp
	b.r.nextCFTyp++
	b.r.cfTypes[id] = cfName
	b.c.cfType = id
	return b
}

// OnDealloc installs a hook run when an instance is deallocated. Hooks of
// subclasses run before those of their superclasses.
func (b *ClassBuilder) OnDealloc(fn func(r *Runtime, self abi.ID)) *ClassBuilder {
	b.c.dealloc = fn
	return b
}

// Class returns the class pointer.
func (b *ClassBuilder) Class() abi.Class { return b.c.ptr }

// DefineProtocol registers a protocol (idempotent) inheriting from parents.
func (r *Runtime) DefineProtocol(name string, parents ...string) abi.Protocol {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.protocols[name]; ok {
		return p.ptr
	}
	p := &protocol{name: name, ptr: abi.Protocol(r.addr())}
	for _, parent := range parents {
		if pp, ok := r.protocols[parent]; ok {
			p.inherit = append(p.inherit, pp)
		}
	}
	r.protocols[name] = p
	r.protoByPtr[p.ptr] = p
	return p.ptr
}

// sel registers name without counting it as a client registration.
func (r *Runtime) sel(name string) abi.SEL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(name, false)
}
