// Package value implements Idio's tagged value representation: immediates
// packed into a word-sized sum type, and heap values reached through a
// pointer whose type identity is carried by a vtable rather than by stolen
// pointer bits (see spec §9 "Tagged pointers" design note: a managed
// language should model values as a sum of Immediate|HeapRef rather than
// replicate the source's bit-stealing).
package value

import "fmt"

// Kind identifies which of the four disjoint immediate spaces (or the heap)
// a Value belongs to.
type Kind uint8

const (
	// KindHeap marks a Value that is a pointer to a *Heap.
	KindHeap Kind = iota
	// KindFixnum is a signed integer immediate.
	KindFixnum
	// KindUnicode is a Unicode scalar value immediate.
	KindUnicode
	// KindConstant is an enumerated "idio" constant (nil/true/false/void/undef/eof/NaN).
	KindConstant
	// KindToken is a reader-token constant (./ ( / ) / { / } / EOL / ;).
	KindToken
	// KindOpcode is an intermediate-code opcode atom.
	KindOpcode
	// KindMarker is a VM stack marker.
	KindMarker
)

// Constant enumerates the "idio" singleton constants. nil/true/false/void/
// undef/eof are singletons: equal?/eqv?/eq? all agree trivially because
// Value equality for immediates is Go struct equality (word equality).
type Constant uint8

const (
	ConstNil Constant = iota
	ConstTrue
	ConstFalse
	ConstVoid
	ConstUndef
	ConstEOF
	ConstNaN
)

func (c Constant) String() string {
	switch c {
	case ConstNil:
		return "nil"
	case ConstTrue:
		return "true"
	case ConstFalse:
		return "false"
	case ConstVoid:
		return "void"
	case ConstUndef:
		return "undef"
	case ConstEOF:
		return "eof"
	case ConstNaN:
		return "NaN"
	default:
		return fmt.Sprintf("constant(%d)", uint8(c))
	}
}

// Token enumerates reader-token constants.
type Token uint8

const (
	TokenDot Token = iota
	TokenOpenParen
	TokenCloseParen
	TokenOpenBrace
	TokenCloseBrace
	TokenEOL
	TokenSemicolon
)

// Marker enumerates VM stack markers.
type Marker uint8

const (
	MarkerTrap Marker = iota
	MarkerDynamic
	MarkerEnviron
	MarkerEscaper
	MarkerAbort
	MarkerFrame
)

// Value is any Idio value: an immediate packed directly into the struct, or
// a pointer to a heap-allocated variant. The zero Value is not the fixnum 0:
// its Kind is KindHeap and its heap pointer is nil, so it is not a valid
// Idio value and serves as an "unset" marker.
//
// Equality of two immediate Values is Go (==) struct equality, matching
// spec §3's "equality of two immediates is word equality" invariant --
// excepting Heap, which is compared by pointer identity for eq? (see
// package equal).
type Value struct {
	kind Kind
	i    int64  // KindFixnum, KindUnicode (as rune), or the ordinal for the other immediate kinds
	h    *Heap  // KindHeap
}

// Kind reports which immediate space (or heap) v belongs to.
func (v Value) Kind() Kind { return v.kind }

// Fixnum constructs a fixnum immediate.
func Fixnum(n int64) Value { return Value{kind: KindFixnum, i: n} }

// IsFixnum reports whether v is a fixnum, returning its value.
func (v Value) IsFixnum() (int64, bool) {
	if v.kind != KindFixnum {
		return 0, false
	}
	return v.i, true
}

// Unicode constructs a Unicode code point immediate. It does not validate
// that r is a valid scalar value; callers that read from untrusted byte
// streams should use handle's UTF-8 decoder, which does.
func Unicode(r rune) Value { return Value{kind: KindUnicode, i: int64(r)} }

// IsUnicode reports whether v is a Unicode code point, returning its rune.
func (v Value) IsUnicode() (rune, bool) {
	if v.kind != KindUnicode {
		return 0, false
	}
	return rune(v.i), true
}

func constant(c Constant) Value { return Value{kind: KindConstant, i: int64(c)} }

// Singleton constant values. nil/true/false/void/undef/eof are singletons
// per spec §3: every call to e.g. Nil() returns a Value that compares equal
// (==) to every other call.
var (
	nilValue   = constant(ConstNil)
	trueValue  = constant(ConstTrue)
	falseValue = constant(ConstFalse)
	voidValue  = constant(ConstVoid)
	undefValue = constant(ConstUndef)
	eofValue   = constant(ConstEOF)
	nanValue   = constant(ConstNaN)
)

func Nil() Value   { return nilValue }
func True() Value  { return trueValue }
func False() Value { return falseValue }
func Void() Value  { return voidValue }
func Undef() Value { return undefValue }
func EOF() Value   { return eofValue }
func NaN() Value   { return nanValue }

// Bool converts a Go bool to the True/False singleton.
func Bool(b bool) Value {
	if b {
		return trueValue
	}
	return falseValue
}

// IsConstant reports whether v is one of the idio constants, returning it.
func (v Value) IsConstant() (Constant, bool) {
	if v.kind != KindConstant {
		return 0, false
	}
	return Constant(v.i), true
}

// IsNil, IsTrue, IsFalse, IsVoid, IsUndef, IsEOF report whether v is exactly
// that singleton.
func (v Value) IsNil() bool   { return v == nilValue }
func (v Value) IsTrue() bool  { return v == trueValue }
func (v Value) IsFalse() bool { return v == falseValue }
func (v Value) IsVoid() bool  { return v == voidValue }
func (v Value) IsUndef() bool { return v == undefValue }
func (v Value) IsEOF() bool   { return v == eofValue }

// Truthy reports whether v counts as true in a conditional: every value is
// truthy except the False singleton (Idio, like most Lisps, treats '() as
// true -- only #f is false).
func (v Value) Truthy() bool { return v != falseValue }

// TokenValue constructs a reader-token immediate.
func TokenValue(t Token) Value { return Value{kind: KindToken, i: int64(t)} }

// IsToken reports whether v is a reader token, returning it.
func (v Value) IsToken() (Token, bool) {
	if v.kind != KindToken {
		return 0, false
	}
	return Token(v.i), true
}

// OpcodeValue constructs an intermediate-code opcode atom immediate. The
// opcode space is defined by package codegen; stored here as a plain int64
// so that value does not depend on codegen (avoiding an import cycle).
func OpcodeValue(op int) Value { return Value{kind: KindOpcode, i: int64(op)} }

// IsOpcode reports whether v is an opcode atom, returning its numeric code.
func (v Value) IsOpcode() (int, bool) {
	if v.kind != KindOpcode {
		return 0, false
	}
	return int(v.i), true
}

// MarkerValue constructs a VM stack marker immediate.
func MarkerValue(m Marker) Value { return Value{kind: KindMarker, i: int64(m)} }

// IsMarker reports whether v is a stack marker, returning it.
func (v Value) IsMarker() (Marker, bool) {
	if v.kind != KindMarker {
		return 0, false
	}
	return Marker(v.i), true
}

// Heap wraps a heap-allocated Variant with its vtable pointer and GC flags,
// matching spec §3: "every heap value carries a pointer to its vtable and a
// small set of GC flags (free, const, seen-for-print)."
type Heap struct {
	VTable VTableRef
	Flags  GCFlags
	Gen    uint64 // type's vtable generation at allocation time, informational only
	V      Variant
}

// VTableRef is satisfied by *vtable.VTable; declared here (rather than
// imported) to avoid a value<->vtable import cycle, since vtable method
// implementations operate on value.Value.
type VTableRef interface {
	TypeName() string
}

// GCFlags are the small set of mark bits every heap value carries.
type GCFlags uint8

const (
	FlagFree GCFlags = 1 << iota
	FlagConst
	FlagSeenForPrint
)

func (f GCFlags) Has(bit GCFlags) bool { return f&bit != 0 }

// Variant is implemented by every heap value payload (string, pair, array,
// hash, closure, ...). Roots enumerates the Values this variant strongly
// owns, for the ownership contract spec §3 describes the GC as walking; this
// package never runs a collector, it only exposes the contract.
type Variant interface {
	TypeName() string
	Roots() []Value
}

// HeapValue constructs a Value wrapping h.
func HeapValue(h *Heap) Value { return Value{kind: KindHeap, h: h} }

// IsHeap reports whether v is a heap pointer, returning it.
func (v Value) IsHeap() (*Heap, bool) {
	if v.kind != KindHeap {
		return nil, false
	}
	return v.h, true
}

// TypeName returns the symbolic type name of v: the immediate kind's name,
// or the heap variant's vtable-reported type name.
func (v Value) TypeName() string {
	switch v.kind {
	case KindHeap:
		if v.h == nil {
			return "heap<nil>"
		}
		return v.h.V.TypeName()
	case KindFixnum:
		return "fixnum"
	case KindUnicode:
		return "unicode"
	case KindConstant:
		return "constant"
	case KindToken:
		return "token"
	case KindOpcode:
		return "opcode"
	case KindMarker:
		return "marker"
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindHeap:
		return fmt.Sprintf("#<%s@%p>", v.TypeName(), v.h)
	case KindFixnum:
		return fmt.Sprintf("%d", v.i)
	case KindUnicode:
		return fmt.Sprintf("%U", rune(v.i))
	case KindConstant:
		return Constant(v.i).String()
	default:
		return fmt.Sprintf("%s(%d)", v.TypeName(), v.i)
	}
}
