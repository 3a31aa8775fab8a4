package ns

import (
	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/blacktop/objcrt/pkg/arc"
	"github.com/blacktop/objcrt/pkg/cf"
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
)

// Number is an NSNumber.
type Number struct{ objc.Id }

var (
	NumberClass  = objc.Define[Number]("NSNumber", objc.NSObjectProtocol, Copying).ThreadSafe()
	NumberBridge = cf.NewBridge[Number, cf.Number]("NSNumber", "CFNumber")
)

var (
	selNumberWithInt      = dispatch.Name("numberWithInt:")
	selNumberWithLongLong = dispatch.Name("numberWithLongLong:")
	selNumberWithDouble   = dispatch.Name("numberWithDouble:")
	selNumberWithBool     = dispatch.Name("numberWithBool:")
	selInitWithLongLong   = dispatch.Name("initWithLongLong:")
	selInitWithDouble     = dispatch.Name("initWithDouble:")
	selIntValue           = dispatch.Name("intValue")
	selLongLongValue      = dispatch.Name("longLongValue")
	selDoubleValue        = dispatch.Name("doubleValue")
	selBoolValue          = dispatch.Name("boolValue")
	selStringValue        = dispatch.Name("stringValue")
	selIsEqualToNumber    = dispatch.Name("isEqualToNumber:")
)

// NewInt creates an owned NSNumber holding v.
func NewInt(rt abi.Runtime, v int64) *arc.R[Number] {
	h, ok := NumberClass.Bind(rt).Init(selInitWithLongLong, v)
	if !ok {
		panic("ns: -[NSNumber initWithLongLong:] returned nil")
	}
	return h
}

// NewFloat creates an owned NSNumber holding v.
func NewFloat(rt abi.Runtime, v float64) *arc.R[Number] {
	h, ok := NumberClass.Bind(rt).Init(selInitWithDouble, v)
	if !ok {
		panic("ns: -[NSNumber initWithDouble:] returned nil")
	}
	return h
}

func numberFactory(rt abi.Runtime, sel dispatch.Name, v any) (*arc.AR[Number], bool) {
	b := NumberClass.Bind(rt)
	return b.Autoreleased(b.SendClass(sel, v))
}

// NumberWithInt32 returns an autoreleased NSNumber in the current pool.
func NumberWithInt32(rt abi.Runtime, v int32) (*arc.AR[Number], bool) {
	return numberFactory(rt, selNumberWithInt, v)
}

// NumberWithInt64 returns an autoreleased NSNumber in the current pool.
func NumberWithInt64(rt abi.Runtime, v int64) (*arc.AR[Number], bool) {
	return numberFactory(rt, selNumberWithLongLong, v)
}

// NumberWithFloat64 returns an autoreleased NSNumber in the current pool.
func NumberWithFloat64(rt abi.Runtime, v float64) (*arc.AR[Number], bool) {
	return numberFactory(rt, selNumberWithDouble, v)
}

// NumberWithBool returns an autoreleased NSNumber in the current pool.
func NumberWithBool(rt abi.Runtime, v bool) (*arc.AR[Number], bool) {
	return numberFactory(rt, selNumberWithBool, v)
}

// Int32 sends -intValue.
func (n Number) Int32() int32 {
	return dispatch.Send[int32](n, selIntValue.On(n.Runtime()))
}

// Int64 sends -longLongValue.
func (n Number) Int64() int64 {
	return dispatch.Send[int64](n, selLongLongValue.On(n.Runtime()))
}

// Float64 sends -doubleValue.
func (n Number) Float64() float64 {
	return dispatch.Send[float64](n, selDoubleValue.On(n.Runtime()))
}

// Bool sends -boolValue.
func (n Number) Bool() bool {
	return dispatch.Send[bool](n, selBoolValue.On(n.Runtime()))
}

// StringValue returns the autoreleased -stringValue.
func (n Number) StringValue() *arc.AR[String] {
	rt := n.Runtime()
	id := dispatch.Send[abi.ID](n, selStringValue.On(rt))
	h, _ := StringClass.Bind(rt).Autoreleased(id)
	return h
}

// IsEqualToNumber compares values.
func (n Number) IsEqualToNumber(other Number) bool {
	return dispatch.Send[bool](n, selIsEqualToNumber.On(n.Runtime()), other)
}

// Copy returns an owned copy. Numbers are immutable, so this is usually the
// same object with one more retain.
func (n Number) Copy() *arc.R[Number] {
	return sendOwned[Number](n, selCopy)
}
