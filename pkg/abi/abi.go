// Package abi describes the boundary between Go and the foreign object runtimes.
//
// Everything that crosses into the Objective-C runtime or CoreFoundation goes
// through a Runtime. The package only deals in raw, untyped pointers; ownership
// and typing live in the arc, objc and cf packages built on top of it.
package abi

import "fmt"

// ID is an Objective-C object pointer (id). The zero value is nil.
type ID uintptr

// SEL is a registered selector.
type SEL uintptr

// Class is a runtime class pointer. A Class is also a valid ID.
type Class uintptr

// Protocol is a runtime protocol pointer.
type Protocol uintptr

// CFTypeRef is a CoreFoundation object pointer.
type CFTypeRef uintptr

// CFTypeID identifies a CoreFoundation type.
type CFTypeID uint

// Weak is a zeroing weak reference slot owned by the runtime.
type Weak uintptr

// Page is the opaque token returned by an autorelease pool push.
type Page uintptr

// IsNil reports whether id is the nil object.
func (id ID) IsNil() bool { return id == 0 }

func (id ID) String() string { return fmt.Sprintf("id(%#x)", uintptr(id)) }

func (s SEL) String() string { return fmt.Sprintf("sel(%#x)", uintptr(s)) }

func (c Class) String() string { return fmt.Sprintf("class(%#x)", uintptr(c)) }

// Runtime is the foreign runtime ABI. Implementations must be safe for
// concurrent use; individual objects need not be.
type Runtime interface {
	// Name identifies the backend ("native", "sim").
	Name() string

	RegisterSelector(name string) SEL
	SelectorName(sel SEL) string

	// LookUpClass returns 0 when no class with name is loaded.
	LookUpClass(name string) Class
	// LookUpProtocol returns 0 when no protocol with name is known.
	LookUpProtocol(name string) Protocol
	ObjectClass(id ID) Class
	ClassName(cls Class) string
	Superclass(cls Class) Class
	RespondsTo(cls Class, sel SEL) bool
	ConformsTo(cls Class, proto Protocol) bool
	// MethodEncoding returns the type encoding of the instance method sel
	// on cls. Pass a metaclass to look up class methods.
	MethodEncoding(cls Class, sel SEL) (string, bool)

	Retain(id ID) ID
	Release(id ID)
	Autorelease(id ID) ID
	// RetainAutoreleased claims a +0 autoreleased return value at +1.
	RetainAutoreleased(id ID) ID

	PoolPush() Page
	PoolPop(page Page)

	// MsgSend sends sel to recv. ret is nil for void methods, otherwise a
	// pointer to the return slot. The call shape is defined by the Go types
	// of ret and args and must match the method's real signature.
	MsgSend(recv ID, sel SEL, ret any, args ...any)

	// NewWeak allocates a zeroing weak slot in foreign memory holding obj.
	NewWeak(obj ID) Weak
	// LoadWeakRetained returns the slot's object at +1, or nil once the
	// object has been deallocated.
	LoadWeakRetained(w Weak) ID
	CopyWeak(w Weak) Weak
	// DestroyWeak clears and frees the slot.
	DestroyWeak(w Weak)

	CFRetain(ref CFTypeRef) CFTypeRef
	CFRelease(ref CFTypeRef)
	CFGetTypeID(ref CFTypeRef) CFTypeID
	CFTypeIDDescription(id CFTypeID) string
}

// ConfigError reports a binding that does not match the loaded runtime: a
// missing class, protocol or library. It is fatal and never retried.
type ConfigError struct {
	Kind string
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("abi: %s %q unavailable: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("abi: %s %q unavailable", e.Kind, e.Name)
}

func (e *ConfigError) Unwrap() error { return e.Err }
