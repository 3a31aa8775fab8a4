package abi

import (
	"fmt"
	"strings"
)

// Kind classifies an Objective-C type encoding.
type Kind uint8

const (
	Unknown Kind = iota
	Void
	Char
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	Bool
	CString
	Object
	ClassObject
	Selector
	Block
	Array
	Struct
	Union
	Bitfield
	Pointer
)

var kindNames = [...]string{
	Unknown:     "unknown",
	Void:        "void",
	Char:        "char",
	UChar:       "unsigned char",
	Short:       "short",
	UShort:      "unsigned short",
	Int:         "int",
	UInt:        "unsigned int",
	Long:        "long",
	ULong:       "unsigned long",
	LongLong:    "long long",
	ULongLong:   "unsigned long long",
	Float:       "float",
	Double:      "double",
	Bool:        "BOOL",
	CString:     "char *",
	Object:      "id",
	ClassObject: "Class",
	Selector:    "SEL",
	Block:       "block",
	Array:       "array",
	Struct:      "struct",
	Union:       "union",
	Bitfield:    "bitfield",
	Pointer:     "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

var scalarKinds = map[byte]Kind{
	'v': Void,
	'c': Char,
	'C': UChar,
	's': Short,
	'S': UShort,
	'i': Int,
	'I': UInt,
	'l': Long,
	'L': ULong,
	'q': LongLong,
	'Q': ULongLong,
	'f': Float,
	'd': Double,
	'B': Bool,
	'*': CString,
	'#': ClassObject,
	':': Selector,
	'?': Unknown,
}

// Type is one decoded element of a type encoding.
type Type struct {
	Kind   Kind
	Name   string // struct/union tag or object class hint
	Fields []Type // struct/union members
	Elem   *Type  // pointee or array element
	Len    int    // array length or bitfield width
}

// Size returns the LP64 size in bytes of the type, or -1 when it cannot be
// known from the encoding alone (opaque structs, bitfields, unknown).
func (t Type) Size() int {
	size, _ := t.layout()
	return size
}

func (t Type) layout() (size, align int) {
	switch t.Kind {
	case Void:
		return 0, 1
	case Char, UChar, Bool:
		return 1, 1
	case Short, UShort:
		return 2, 2
	case Int, UInt, Long, ULong, Float:
		return 4, 4
	case LongLong, ULongLong, Double:
		return 8, 8
	case CString, Object, ClassObject, Selector, Block, Pointer:
		return 8, 8
	case Array:
		if t.Elem == nil {
			return -1, 1
		}
		es, ea := t.Elem.layout()
		if es < 0 {
			return -1, 1
		}
		return es * t.Len, ea
	case Struct, Union:
		if len(t.Fields) == 0 {
			return -1, 1
		}
		maxAlign := 1
		off := 0
		for _, f := range t.Fields {
			fs, fa := f.layout()
			if fs < 0 {
				return -1, 1
			}
			if fa > maxAlign {
				maxAlign = fa
			}
			if t.Kind == Union {
				if fs > off {
					off = fs
				}
				continue
			}
			off = alignUp(off, fa) + fs
		}
		return alignUp(off, maxAlign), maxAlign
	}
	return -1, 1
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

func (t Type) String() string {
	switch t.Kind {
	case Struct, Union:
		var fs []string
		for _, f := range t.Fields {
			fs = append(fs, f.String())
		}
		name := t.Name
		if name == "" {
			name = "?"
		}
		return fmt.Sprintf("%s %s {%s}", t.Kind, name, strings.Join(fs, "; "))
	case Pointer:
		if t.Elem != nil {
			return t.Elem.String() + " *"
		}
		return "void *"
	case Array:
		if t.Elem != nil {
			return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
		}
	case Object:
		if t.Name != "" {
			return t.Name + " *"
		}
	case Bitfield:
		return fmt.Sprintf("bitfield(%d)", t.Len)
	}
	return t.Kind.String()
}

// Signature is a decoded method type encoding. Args includes the implicit
// self and _cmd arguments.
type Signature struct {
	Raw    string
	Return Type
	Args   []Type
}

// Explicit returns the arguments after self and _cmd.
func (s *Signature) Explicit() []Type {
	if len(s.Args) < 2 {
		return nil
	}
	return s.Args[2:]
}

func (s *Signature) String() string {
	var args []string
	for _, a := range s.Explicit() {
		args = append(args, a.String())
	}
	return fmt.Sprintf("(%s)(%s)", s.Return, strings.Join(args, ", "))
}

// EncodingError reports a malformed type encoding.
type EncodingError struct {
	Encoding string
	Offset   int
	Msg      string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("abi: bad type encoding %q at %d: %s", e.Encoding, e.Offset, e.Msg)
}

// ParseSignature decodes a method type encoding such as "v24@0:8@16".
func ParseSignature(enc string) (*Signature, error) {
	p := &encParser{src: enc}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipDigits()
	sig := &Signature{Raw: enc, Return: ret}
	for !p.done() {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		p.skipDigits()
		sig.Args = append(sig.Args, t)
	}
	return sig, nil
}

// ParseType decodes a single type encoding such as "{CGPoint=dd}".
func ParseType(enc string) (Type, error) {
	p := &encParser{src: enc}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	if !p.done() {
		return Type{}, p.errorf("trailing data")
	}
	return t, nil
}

type encParser struct {
	src string
	pos int
}

func (p *encParser) done() bool { return p.pos >= len(p.src) }

func (p *encParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *encParser) errorf(format string, args ...any) error {
	return &EncodingError{Encoding: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *encParser) skipDigits() {
	for !p.done() && (p.peek() >= '0' && p.peek() <= '9' || p.peek() == '-') {
		p.pos++
	}
}

func (p *encParser) number() int {
	n := 0
	for !p.done() && p.peek() >= '0' && p.peek() <= '9' {
		n = n*10 + int(p.peek()-'0')
		p.pos++
	}
	return n
}

func (p *encParser) parseType() (Type, error) {
	// type qualifiers: const, in, inout, out, bycopy, byref, oneway, atomic
	for strings.IndexByte("rnNoORVA", p.peek()) >= 0 && !p.done() {
		p.pos++
	}
	if p.done() {
		return Type{}, p.errorf("unexpected end")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '@':
		if p.peek() == '?' {
			p.pos++
			if p.peek() == '<' {
				if err := p.skipBalanced('<', '>'); err != nil {
					return Type{}, err
				}
			}
			return Type{Kind: Block}, nil
		}
		t := Type{Kind: Object}
		if p.peek() == '"' {
			end := strings.IndexByte(p.src[p.pos+1:], '"')
			if end < 0 {
				return Type{}, p.errorf("unterminated class name")
			}
			t.Name = p.src[p.pos+1 : p.pos+1+end]
			p.pos += end + 2
		}
		return t, nil
	case '^':
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Pointer, Elem: &elem}, nil
	case '[':
		n := p.number()
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if p.peek() != ']' {
			return Type{}, p.errorf("expected ']'")
		}
		p.pos++
		return Type{Kind: Array, Len: n, Elem: &elem}, nil
	case '{':
		return p.parseAggregate(Struct, '}')
	case '(':
		return p.parseAggregate(Union, ')')
	case 'b':
		return Type{Kind: Bitfield, Len: p.number()}, nil
	}
	if k, ok := scalarKinds[c]; ok {
		return Type{Kind: k}, nil
	}
	p.pos--
	return Type{}, p.errorf("unknown type code %q", c)
}

func (p *encParser) parseAggregate(kind Kind, closer byte) (Type, error) {
	t := Type{Kind: kind}
	start := p.pos
	for !p.done() && p.peek() != '=' && p.peek() != closer {
		p.pos++
	}
	if p.done() {
		return Type{}, p.errorf("unterminated %s", kind)
	}
	t.Name = p.src[start:p.pos]
	if p.peek() == '=' {
		p.pos++
		for !p.done() && p.peek() != closer {
			if p.peek() == '"' { // field name
				end := strings.IndexByte(p.src[p.pos+1:], '"')
				if end < 0 {
					return Type{}, p.errorf("unterminated field name")
				}
				p.pos += end + 2
				continue
			}
			f, err := p.parseType()
			if err != nil {
				return Type{}, err
			}
			t.Fields = append(t.Fields, f)
		}
	}
	if p.done() {
		return Type{}, p.errorf("unterminated %s", kind)
	}
	p.pos++
	return t, nil
}

func (p *encParser) skipBalanced(open, close byte) error {
	depth := 0
	for !p.done() {
		switch p.peek() {
		case open:
			depth++
		case close:
			depth--
		}
		p.pos++
		if depth == 0 {
			return nil
		}
	}
	return p.errorf("unbalanced %q", open)
}
