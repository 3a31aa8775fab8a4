package sim

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/blacktop/objcrt/pkg/abi"
	"github.com/twmb/murmur3"
)

type number struct {
	i       int64
	f       float64
	isFloat bool
}

func (n number) String() string {
	if n.isFloat {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}

type elements struct {
	ids []abi.ID
}

func installRoot(r *Runtime) {
	r.DefineProtocol("NSObject")
	r.DefineClass("NSObject", "").
		Conforms("NSObject").
		ClassMethod("alloc", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Alloc(abi.Class(self))
		}).
		ClassMethod("new", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			obj := r.Alloc(abi.Class(self))
			var out abi.ID
			r.MsgSend(obj, r.sel("init"), &out)
			return out
		}).
		Method("init", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return self
		}).
		Method("class", "#16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.ObjectClass(self)
		}).
		Method("description", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			name := r.ClassName(r.ObjectClass(self))
			return r.Autorelease(r.NewString(fmt.Sprintf("<%s: %#x>", name, uintptr(self))))
		}).
		Method("respondsToSelector:", "B24@0:8:16", func(r *Runtime, self abi.ID, args []any) any {
			return r.RespondsTo(r.ObjectClass(self), argSEL(args, 0))
		}).
		Method("conformsToProtocol:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			return r.ConformsTo(r.ObjectClass(self), abi.Protocol(argID(args, 0)))
		}).
		Method("isKindOfClass:", "B24@0:8#16", func(r *Runtime, self abi.ID, args []any) any {
			want := argClass(args, 0)
			for c := r.ObjectClass(self); c != 0; c = r.Superclass(c) {
				if c == want {
					return true
				}
			}
			return false
		}).
		Method("isMemberOfClass:", "B24@0:8#16", func(r *Runtime, self abi.ID, args []any) any {
			return r.ObjectClass(self) == argClass(args, 0)
		}).
		Method("isEqual:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			return self == argID(args, 0)
		}).
		Method("hash", "Q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return uint64(self)
		}).
		Method("copy", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			var out abi.ID
			r.MsgSend(self, r.sel("copyWithZone:"), &out, uintptr(0))
			return out
		}).
		Method("mutableCopy", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			var out abi.ID
			r.MsgSend(self, r.sel("mutableCopyWithZone:"), &out, uintptr(0))
			return out
		})
}

func installFoundation(r *Runtime) {
	r.DefineProtocol("NSCopying")
	r.DefineProtocol("NSMutableCopying")

	r.DefineClass("NSString", "NSObject").
		Conforms("NSCopying", "NSMutableCopying").
		Bridged("CFString").
		ClassMethod("string", "@16@0:8", func(r *Runtime, _ abi.ID, _ []any) any {
			return r.Autorelease(r.NewString(""))
		}).
		ClassMethod("stringWithUTF8String:", "@24@0:8r*16", func(r *Runtime, _ abi.ID, args []any) any {
			return r.Autorelease(r.NewString(argString(args, 0)))
		}).
		Method("initWithUTF8String:", "@24@0:8r*16", func(r *Runtime, self abi.ID, args []any) any {
			r.SetPayload(self, argString(args, 0))
			return self
		}).
		Method("init", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			r.SetPayload(self, "")
			return self
		}).
		Method("UTF8String", "r*16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.str(self)
		}).
		Method("length", "Q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return uint64(len(utf16.Encode([]rune(r.str(self)))))
		}).
		Method("description", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return self
		}).
		Method("lowercaseString", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.NewString(strings.ToLower(r.str(self))))
		}).
		Method("uppercaseString", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.NewString(strings.ToUpper(r.str(self))))
		}).
		Method("stringByAppendingString:", "@24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			other := argID(args, 0)
			if other == 0 {
				panic(&Exception{Name: "NSInvalidArgumentException", Reason: "-[NSString stringByAppendingString:]: nil argument"})
			}
			return r.Autorelease(r.NewString(r.str(self) + r.str(other)))
		}).
		Method("hasPrefix:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			return strings.HasPrefix(r.str(self), r.str(argID(args, 0)))
		}).
		Method("isEqualToString:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			other := argID(args, 0)
			return other != 0 && r.str(self) == r.str(other)
		}).
		Method("isEqual:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			other := argID(args, 0)
			if other == 0 {
				return false
			}
			if _, ok := r.Payload(other).(string); !ok {
				return false
			}
			return r.str(self) == r.str(other)
		}).
		Method("hash", "Q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return murmur3.StringSum64(r.str(self))
		}).
		Method("copyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Retain(self)
		}).
		Method("mutableCopyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.NewString(r.str(self))
		})

	r.DefineClass("NSNumber", "NSObject").
		Conforms("NSCopying").
		Bridged("CFNumber").
		ClassMethod("numberWithInt:", "@20@0:8i16", func(r *Runtime, _ abi.ID, args []any) any {
			return r.Autorelease(r.newNumber(number{i: argInt(args, 0)}))
		}).
		ClassMethod("numberWithLongLong:", "@24@0:8q16", func(r *Runtime, _ abi.ID, args []any) any {
			return r.Autorelease(r.newNumber(number{i: argInt(args, 0)}))
		}).
		ClassMethod("numberWithDouble:", "@24@0:8d16", func(r *Runtime, _ abi.ID, args []any) any {
			return r.Autorelease(r.newNumber(number{f: argFloat(args, 0), isFloat: true}))
		}).
		ClassMethod("numberWithBool:", "@20@0:8B16", func(r *Runtime, _ abi.ID, args []any) any {
			var n number
			if argBool(args, 0) {
				n.i = 1
			}
			return r.Autorelease(r.newNumber(n))
		}).
		Method("initWithLongLong:", "@24@0:8q16", func(r *Runtime, self abi.ID, args []any) any {
			r.SetPayload(self, number{i: argInt(args, 0)})
			return self
		}).
		Method("initWithDouble:", "@24@0:8d16", func(r *Runtime, self abi.ID, args []any) any {
			r.SetPayload(self, number{f: argFloat(args, 0), isFloat: true})
			return self
		}).
		Method("intValue", "i16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return int32(r.num(self).asInt())
		}).
		Method("longLongValue", "q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.num(self).asInt()
		}).
		Method("doubleValue", "d16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.num(self).asFloat()
		}).
		Method("boolValue", "B16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.num(self).asInt() != 0
		}).
		Method("stringValue", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.NewString(r.num(self).String()))
		}).
		Method("description", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.NewString(r.num(self).String()))
		}).
		Method("isEqualToNumber:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			other := argID(args, 0)
			return other != 0 && r.num(self).asFloat() == r.num(other).asFloat()
		}).
		Method("isEqual:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			other := argID(args, 0)
			if other == 0 {
				return false
			}
			if _, ok := r.Payload(other).(number); !ok {
				return false
			}
			return r.num(self).asFloat() == r.num(other).asFloat()
		}).
		Method("hash", "Q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return uint64(r.num(self).asInt())
		}).
		Method("copyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Retain(self)
		})

	r.DefineClass("NSArray", "NSObject").
		Conforms("NSCopying", "NSMutableCopying").
		Bridged("CFArray").
		OnDealloc(func(r *Runtime, self abi.ID) {
			if els, ok := r.Payload(self).(*elements); ok {
				for _, id := range els.ids {
					r.Release(id)
				}
				els.ids = nil
			}
		}).
		ClassMethod("array", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.newArray(abi.Class(self)))
		}).
		ClassMethod("arrayWithObject:", "@24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			obj := argID(args, 0)
			if obj == 0 {
				panic(&Exception{Name: "NSInvalidArgumentException", Reason: "+[NSArray arrayWithObject:]: attempt to insert nil object"})
			}
			arr := r.newArray(abi.Class(self), r.Retain(obj))
			return r.Autorelease(arr)
		}).
		Method("init", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			r.SetPayload(self, &elements{})
			return self
		}).
		Method("count", "Q16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			return uint64(len(r.els(self).ids))
		}).
		Method("objectAtIndex:", "@24@0:8Q16", func(r *Runtime, self abi.ID, args []any) any {
			ids := r.els(self).ids
			i := argInt(args, 0)
			if i < 0 || i >= int64(len(ids)) {
				panic(&Exception{
					Name:   "NSRangeException",
					Reason: fmt.Sprintf("-[NSArray objectAtIndex:]: index %d beyond bounds [0 .. %d]", i, len(ids)-1),
				})
			}
			return ids[i]
		}).
		Method("firstObject", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			if ids := r.els(self).ids; len(ids) > 0 {
				return ids[0]
			}
			return abi.ID(0)
		}).
		Method("lastObject", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			if ids := r.els(self).ids; len(ids) > 0 {
				return ids[len(ids)-1]
			}
			return abi.ID(0)
		}).
		Method("containsObject:", "B24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			want := argID(args, 0)
			isEqual := r.sel("isEqual:")
			for _, id := range r.els(self).ids {
				var eq bool
				r.MsgSend(id, isEqual, &eq, want)
				if eq {
					return true
				}
			}
			return false
		}).
		Method("description", "@16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			desc := r.sel("description")
			var parts []string
			for _, id := range r.els(self).ids {
				var d abi.ID
				r.MsgSend(id, desc, &d)
				parts = append(parts, r.str(d))
			}
			return r.Autorelease(r.NewString("(" + strings.Join(parts, ", ") + ")"))
		}).
		Method("copyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Retain(self)
		}).
		Method("mutableCopyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.copyArray(self, "NSMutableArray")
		})

	r.DefineClass("NSMutableArray", "NSArray").
		ClassMethod("arrayWithCapacity:", "@24@0:8Q16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.Autorelease(r.newArray(abi.Class(self)))
		}).
		Method("initWithCapacity:", "@24@0:8Q16", func(r *Runtime, self abi.ID, args []any) any {
			r.SetPayload(self, &elements{ids: make([]abi.ID, 0, argInt(args, 0))})
			return self
		}).
		Method("addObject:", "v24@0:8@16", func(r *Runtime, self abi.ID, args []any) any {
			obj := argID(args, 0)
			if obj == 0 {
				panic(&Exception{Name: "NSInvalidArgumentException", Reason: "-[NSMutableArray addObject:]: object cannot be nil"})
			}
			els := r.els(self)
			els.ids = append(els.ids, r.Retain(obj))
			return nil
		}).
		Method("removeLastObject", "v16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			els := r.els(self)
			if len(els.ids) == 0 {
				panic(&Exception{Name: "NSRangeException", Reason: "-[NSMutableArray removeLastObject]: cannot remove object from empty array"})
			}
			last := els.ids[len(els.ids)-1]
			els.ids = els.ids[:len(els.ids)-1]
			r.Release(last)
			return nil
		}).
		Method("removeAllObjects", "v16@0:8", func(r *Runtime, self abi.ID, _ []any) any {
			els := r.els(self)
			ids := els.ids
			els.ids = nil
			for _, id := range ids {
				r.Release(id)
			}
			return nil
		}).
		Method("copyWithZone:", "@24@0:8^{_NSZone=}16", func(r *Runtime, self abi.ID, _ []any) any {
			return r.copyArray(self, "NSArray")
		})
}

/* fixture helpers */

// NewString creates an NSString at +1.
func (r *Runtime) NewString(s string) abi.ID {
	id := r.Alloc(r.LookUpClass("NSString"))
	r.SetPayload(id, s)
	return id
}

func (r *Runtime) newNumber(n number) abi.ID {
	id := r.Alloc(r.LookUpClass("NSNumber"))
	r.SetPayload(id, n)
	return id
}

// newArray takes ownership of the +1 ids.
func (r *Runtime) newArray(cls abi.Class, ids ...abi.ID) abi.ID {
	id := r.Alloc(cls)
	r.SetPayload(id, &elements{ids: ids})
	return id
}

func (r *Runtime) copyArray(src abi.ID, className string) abi.ID {
	var ids []abi.ID
	for _, id := range r.els(src).ids {
		ids = append(ids, r.Retain(id))
	}
	return r.newArray(r.LookUpClass(className), ids...)
}

// StringValue returns the contents of an NSString object.
func (r *Runtime) StringValue(id abi.ID) string { return r.str(id) }

func (r *Runtime) str(id abi.ID) string {
	s, ok := r.Payload(id).(string)
	if !ok {
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("%v is not a string", id)})
	}
	return s
}

func (r *Runtime) num(id abi.ID) number {
	n, ok := r.Payload(id).(number)
	if !ok {
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("%v is not a number", id)})
	}
	return n
}

func (n number) asInt() int64 {
	if n.isFloat {
		return int64(n.f)
	}
	return n.i
}

func (n number) asFloat() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (r *Runtime) els(id abi.ID) *elements {
	els, ok := r.Payload(id).(*elements)
	if !ok {
		// allocated but never initialized
		els = &elements{}
		r.SetPayload(id, els)
	}
	return els
}

/* argument decoding */

func arg(args []any, i int) any {
	if i >= len(args) {
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("missing argument %d", i)})
	}
	return args[i]
}

func argID(args []any, i int) abi.ID {
	switch v := arg(args, i).(type) {
	case abi.ID:
		return v
	case abi.Class:
		return abi.ID(v)
	case abi.CFTypeRef:
		return abi.ID(v)
	case abi.Protocol:
		return abi.ID(v)
	case uintptr:
		return abi.ID(v)
	case nil:
		return 0
	default:
		panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("argument %d: %T is not an object", i, v)})
	}
}

func argClass(args []any, i int) abi.Class {
	return abi.Class(argID(args, i))
}

func argSEL(args []any, i int) abi.SEL {
	if sel, ok := arg(args, i).(abi.SEL); ok {
		return sel
	}
	panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("argument %d is not a selector", i)})
}

func argString(args []any, i int) string {
	if s, ok := arg(args, i).(string); ok {
		return s
	}
	panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("argument %d is not a C string", i)})
}

func argBool(args []any, i int) bool {
	if b, ok := arg(args, i).(bool); ok {
		return b
	}
	return argInt(args, i) != 0
}

func argInt(args []any, i int) int64 {
	v := reflect.ValueOf(arg(args, i))
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint())
	}
	panic(&Exception{Name: "NSInvalidArgumentException", Reason: fmt.Sprintf("argument %d: %s is not an integer", i, v.Type())})
}

func argFloat(args []any, i int) float64 {
	v := reflect.ValueOf(arg(args, i))
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return float64(argInt(args, i))
}
