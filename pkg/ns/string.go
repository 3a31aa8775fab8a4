// Package ns wraps a handful of Foundation classes on top of the objc, arc
// and cf packages.
package ns

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/cf"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
)

var (
	// Copying is NSCopying.
	Copying = objc.NewProtocol("NSCopying", []string{"copyWithZone:"}, nil)
	// MutableCopying is NSMutableCopying.
	MutableCopying = objc.NewProtocol("NSMutableCopying", []string{"mutableCopyWithZone:"}, nil)
)

var (
	selCopy        = dispatch.Name("copy")
	selMutableCopy = dispatch.Name("mutableCopy")
)

// String is an NSString.
type String struct{ objc.Id }

var (
	StringClass  = objc.Define[String]("NSString", objc.NSObjectProtocol, Copying, MutableCopying).ThreadSafe()
	StringBridge = cf.NewBridge[String, cf.String]("NSString", "CFString")
)

var (
	selStringWithUTF8String = dispatch.Name("stringWithUTF8String:")
	selInitWithUTF8String   = dispatch.Name("initWithUTF8String:")
	selUTF8String           = dispatch.Name("UTF8String")
	selLength               = dispatch.Name("length")
	selLowercaseString      = dispatch.Name("lowercaseString")
	selUppercaseString      = dispatch.Name("uppercaseString")
	selAppendingString      = dispatch.Name("stringByAppendingString:")
	selHasPrefix            = dispatch.Name("hasPrefix:")
	selIsEqualToString      = dispatch.Name("isEqualToString:")
)

// NewString creates an owned NSString holding s.
func NewString(rt abi.Runtime, s string) *arc.R[String] {
	h, ok := StringClass.Bind(rt).Init(selInitWithUTF8String, s)
	if !ok {
		panic("ns: -[NSString initWithUTF8String:] returned nil")
	}
	return h
}

// StringWithUTF8 creates an autoreleased NSString in the current pool.
func StringWithUTF8(rt abi.Runtime, s string) (*arc.AR[String], bool) {
	b := StringClass.Bind(rt)
	return b.Autoreleased(b.SendClass(selStringWithUTF8String, s))
}

// String returns the contents as a Go string.
func (s String) String() string {
	return dispatch.Send[string](s, selUTF8String.On(s.Runtime()))
}

// Length returns the number of UTF-16 code units.
func (s String) Length() uint64 {
	return dispatch.Send[uint64](s, selLength.On(s.Runtime()))
}

func (s String) autoreleased(sel dispatch.Name, args ...any) *arc.AR[String] {
	rt := s.Runtime()
	id := dispatch.Send[abi.ID](s, sel.On(rt), args...)
	h, _ := StringClass.Bind(rt).Autoreleased(id)
	return h
}

// Lower returns an autoreleased lowercase copy.
func (s String) Lower() *arc.AR[String] { return s.autoreleased(selLowercaseString) }

// Upper returns an autoreleased uppercase copy.
func (s String) Upper() *arc.AR[String] { return s.autoreleased(selUppercaseString) }

// Append returns an autoreleased concatenation of s and other.
func (s String) Append(other String) *arc.AR[String] {
	return s.autoreleased(selAppendingString, other)
}

// HasPrefix reports whether s starts with prefix.
func (s String) HasPrefix(prefix String) bool {
	return dispatch.Send[bool](s, selHasPrefix.On(s.Runtime()), prefix)
}

// IsEqualToString compares contents.
func (s String) IsEqualToString(other String) bool {
	return dispatch.Send[bool](s, selIsEqualToString.On(s.Runtime()), other)
}

// Copy returns an owned immutable copy.
func (s String) Copy() *arc.R[String] {
	return sendOwned[String](s, selCopy)
}

// sendOwned sends a method that returns a +1 object (copy, mutableCopy,
// new...) and owns the result.
func sendOwned[T any, P arc.Wrapper[T]](recv dispatch.Receiver, sel dispatch.Name, args ...any) *arc.R[T] {
	rt := recv.Runtime()
	id := dispatch.Send[abi.ID](recv, sel.On(rt), args...)
	h, ok := arc.Own[T, P](rt, id)
	if !ok {
		panic("ns: -" + string(sel) + " returned nil")
	}
	return h
}
