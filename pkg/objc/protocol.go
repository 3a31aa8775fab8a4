package objc

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/dispatch"
)

// Protocol is the set of selectors a wrapper claims its class answers.
// Conformance is asserted by the binding author; only the required
// selectors are checked, once, when a definition is bound.
type Protocol struct {
	name     string
	required []string
	optional []string
	inherits []*Protocol
}

// NewProtocol declares a protocol with its required and optional selectors.
func NewProtocol(name string, required, optional []string, inherits ...*Protocol) *Protocol {
	return &Protocol{name: name, required: required, optional: optional, inherits: inherits}
}

// Name returns the protocol name.
func (p *Protocol) Name() string { return p.name }

// Required returns the required selectors, including inherited ones.
func (p *Protocol) Required() []string {
	var out []string
	for _, parent := range p.inherits {
		out = append(out, parent.Required()...)
	}
	return append(out, p.required...)
}

// Optional returns the optional selectors.
func (p *Protocol) Optional() []string { return p.optional }

// Check verifies that instances of cls answer every required selector.
func (p *Protocol) Check(rt abi.Runtime, cls abi.Class) error {
	reg := dispatch.For(rt)
	var missing []string
	for _, name := range p.Required() {
		if !rt.RespondsTo(cls, reg.Resolve(name).SEL()) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Class: rt.ClassName(cls), Protocol: p.name, Missing: missing}
	}
	return nil
}

// ConformsTo asks the runtime whether cls formally adopts the protocol. It
// is a diagnostic; bindings never depend on it.
func (p *Protocol) ConformsTo(rt abi.Runtime, cls abi.Class) bool {
	proto := rt.LookUpProtocol(p.name)
	if proto == 0 {
		return false
	}
	for c := cls; c != 0; c = rt.Superclass(c) {
		if rt.ConformsTo(c, proto) {
			return true
		}
	}
	return false
}

// NSObjectProtocol is the root protocol every object answers.
var NSObjectProtocol = NewProtocol("NSObject",
	[]string{"class", "isEqual:", "hash", "isKindOfClass:", "isMemberOfClass:", "respondsToSelector:", "description"},
	[]string{"debugDescription"},
)
