package ns

import (
	"github.com/blacktop/objcrt/pkg/dispatch"
	"github.com/blacktop/objcrt/pkg/objc"
)

// Binding lists what a wrapper in this package needs from its class.
type Binding struct {
	Class     *objc.ClassDescriptor
	Protocols []*objc.Protocol
	// Instance selectors the wrapper sends.
	Methods []dispatch.Name
	// Class selectors, e.g. factories.
	ClassMethods []dispatch.Name
}

// Selectors returns every selector the binding needs, protocol requirements
// included. Class selectors carry a leading "+".
func (b Binding) Selectors() []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, p := range b.Protocols {
		for _, s := range p.Required() {
			add(s)
		}
	}
	for _, s := range b.Methods {
		add(string(s))
	}
	for _, s := range b.ClassMethods {
		add("+" + string(s))
	}
	return out
}

// Manifest describes every wrapper class of the package.
var Manifest = []Binding{
	{
		Class:     StringClass.Descriptor(),
		Protocols: StringClass.Protocols(),
		Methods: []dispatch.Name{
			selInitWithUTF8String, selUTF8String, selLength, selLowercaseString,
			selUppercaseString, selAppendingString, selHasPrefix, selIsEqualToString,
			selCopy, selMutableCopy,
		},
		ClassMethods: []dispatch.Name{selStringWithUTF8String},
	},
	{
		Class:     NumberClass.Descriptor(),
		Protocols: NumberClass.Protocols(),
		Methods: []dispatch.Name{
			selInitWithLongLong, selInitWithDouble, selIntValue, selLongLongValue,
			selDoubleValue, selBoolValue, selStringValue, selIsEqualToNumber, selCopy,
		},
		ClassMethods: []dispatch.Name{selNumberWithInt, selNumberWithLongLong, selNumberWithDouble, selNumberWithBool},
	},
	{
		Class:     ArrayClass.Descriptor(),
		Protocols: ArrayClass.Protocols(),
		Methods: []dispatch.Name{
			selCount, selObjectAtIndex, selFirstObject, selLastObject, selContainsObject,
			selCopy, selMutableCopy,
		},
		ClassMethods: []dispatch.Name{selArrayWithObject},
	},
	{
		Class:     MutableArrayClass.Descriptor(),
		Protocols: MutableArrayClass.Protocols(),
		Methods:   []dispatch.Name{selInitWithCapacity, selAddObject, selRemoveLastObject, selRemoveAllObjects},
	},
}
