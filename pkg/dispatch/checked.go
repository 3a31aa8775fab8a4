package dispatch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/objcrt/pkg/abi"
)

// SignatureError is raised in checked mode when a call site's Go types do
// not match the method's type encoding.
type SignatureError struct {
	Class    string
	Selector string
	Encoding string
	Index    int // argument index, -1 for the return value
	Want     string
	Got      string
	Err      error
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch: [%s %s]: %v", e.Class, e.Selector, e.Err)
	}
	what := "return value"
	if e.Index >= 0 {
		what = fmt.Sprintf("argument %d", e.Index)
	}
	return fmt.Sprintf("dispatch: [%s %s] %q: %s is %s, call site passes %s", e.Class, e.Selector, e.Encoding, what, e.Want, e.Got)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// UnrecognizedSelectorError is raised in checked mode when the receiver's
// class has no method for the selector.
type UnrecognizedSelectorError struct {
	Class       string
	Selector    string
	ClassMethod bool
}

func (e *UnrecognizedSelectorError) Error() string {
	prefix := "-"
	if e.ClassMethod {
		prefix = "+"
	}
	return fmt.Sprintf("dispatch: %s[%s %s]: unrecognized selector", prefix, e.Class, e.Selector)
}

type shapeKey struct {
	cls   abi.Class
	sel   abi.SEL
	shape string
}

var (
	typeID    = reflect.TypeOf(abi.ID(0))
	typeSEL   = reflect.TypeOf(abi.SEL(0))
	typeClass = reflect.TypeOf(abi.Class(0))
)

func shapeOf(ret any, args []any) (reflect.Type, []reflect.Type, string) {
	var rt reflect.Type
	if ret != nil {
		rt = reflect.TypeOf(ret).Elem()
	}
	ats := make([]reflect.Type, len(args))
	var sb strings.Builder
	sb.WriteString(typeName(rt))
	sb.WriteByte('(')
	for i, a := range args {
		ats[i] = reflect.TypeOf(a)
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(typeName(ats[i]))
	}
	sb.WriteByte(')')
	return rt, ats, sb.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}

func (r *Registry) verify(recv abi.ID, classMethod bool, sel Selector, ret any, args []any) {
	cls := r.rt.ObjectClass(recv)
	retType, argTypes, shape := shapeOf(ret, args)
	key := shapeKey{cls: cls, sel: sel.sel, shape: shape}
	cache := r.verifyCache()
	if _, ok := cache.Get(key); ok {
		return
	}

	name := r.rt.ClassName(cls)
	enc, ok := r.rt.MethodEncoding(cls, sel.sel)
	if !ok {
		err := &UnrecognizedSelectorError{Class: name, Selector: sel.name, ClassMethod: classMethod}
		log.WithError(err).Debug("dispatch: checked send rejected")
		panic(err)
	}
	sig, err := abi.ParseSignature(enc)
	if err != nil {
		panic(&SignatureError{Class: name, Selector: sel.name, Encoding: enc, Err: err})
	}
	if err := match(sig, retType, argTypes); err != nil {
		err.Class, err.Selector, err.Encoding = name, sel.name, enc
		log.WithError(err).Debug("dispatch: checked send rejected")
		panic(err)
	}
	cache.Add(key, struct{}{})
}

func match(sig *abi.Signature, ret reflect.Type, args []reflect.Type) *SignatureError {
	if !compatible(sig.Return, ret) {
		return &SignatureError{Index: -1, Want: sig.Return.String(), Got: typeName(ret)}
	}
	want := sig.Explicit()
	if len(want) != len(args) {
		return &SignatureError{
			Index: len(args),
			Want:  fmt.Sprintf("%d arguments", len(want)),
			Got:   fmt.Sprintf("%d", len(args)),
		}
	}
	for i, t := range want {
		if !compatible(t, args[i]) {
			return &SignatureError{Index: i, Want: t.String(), Got: typeName(args[i])}
		}
	}
	return nil
}

func isPointerLike(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uintptr, reflect.UnsafePointer, reflect.Pointer:
		return true
	}
	return false
}

// compatible reports whether a value of Go type gt can carry t across the
// call boundary. A nil gt is the untyped nil argument or a void return.
func compatible(t abi.Type, gt reflect.Type) bool {
	if t.Kind == abi.Void {
		return gt == nil
	}
	if gt == nil {
		switch t.Kind {
		case abi.Object, abi.ClassObject, abi.Block, abi.Pointer, abi.CString, abi.Selector:
			return true // nil argument
		}
		return false
	}
	switch t.Kind {
	case abi.Char, abi.UChar:
		// BOOL is a signed char on x86_64
		switch gt.Kind() {
		case reflect.Int8, reflect.Uint8, reflect.Bool:
			return true
		}
	case abi.Short:
		return gt.Kind() == reflect.Int16
	case abi.UShort:
		return gt.Kind() == reflect.Uint16
	case abi.Int, abi.Long:
		return gt.Kind() == reflect.Int32
	case abi.UInt, abi.ULong:
		return gt.Kind() == reflect.Uint32
	case abi.LongLong:
		return gt.Kind() == reflect.Int64 || gt.Kind() == reflect.Int
	case abi.ULongLong:
		switch gt.Kind() {
		case reflect.Uint64, reflect.Uint, reflect.Uintptr:
			return gt != typeID && gt != typeSEL && gt != typeClass
		}
	case abi.Float:
		return gt.Kind() == reflect.Float32
	case abi.Double:
		return gt.Kind() == reflect.Float64
	case abi.Bool:
		return gt.Kind() == reflect.Bool
	case abi.CString:
		return gt.Kind() == reflect.String || isPointerLike(gt)
	case abi.Selector:
		return gt == typeSEL
	case abi.ClassObject:
		return gt == typeClass || gt == typeID
	case abi.Object, abi.Block:
		return isPointerLike(gt) && gt != typeSEL
	case abi.Pointer, abi.Unknown:
		return isPointerLike(gt) && gt != typeSEL
	case abi.Struct, abi.Union, abi.Array:
		size := t.Size()
		if gt.Kind() != reflect.Struct && gt.Kind() != reflect.Array {
			return false
		}
		return size >= 0 && int(gt.Size()) == size
	}
	return false
}
