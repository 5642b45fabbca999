package value

// StringRole distinguishes the mutually-exclusive roles a String or
// Substring may play (spec §3).
type StringRole uint8

const (
	RoleOrdinary StringRole = iota
	RoleOctet
	RolePathname
	RoleFDPathname
	RoleFIFOPathname
)

// Width is the number of bytes used per code point in a String's buffer.
type Width uint8

const (
	Width1 Width = 1
	Width2 Width = 2
	Width4 Width = 4
)

// String is the ordinary/octet/pathname-flavored string heap variant.
type String struct {
	Length int
	Buf    []byte
	W      Width
	Role   StringRole
}

func (*String) TypeName() string { return "string" }
func (*String) Roots() []Value   { return nil }

// Substring shares its parent String's backing buffer; the Parent link is a
// strong (owning) reference per spec §3, not a weak one.
type Substring struct {
	Length int
	Offset int
	Parent Value // holds a *Heap wrapping a *String
}

func (*Substring) TypeName() string { return "substring" }
func (s *Substring) Roots() []Value { return []Value{s.Parent} }

// Symbol is interned uniquely per byte sequence by the owning intern table
// (see package runtime); this struct is the payload referenced by every
// Value sharing that name.
type Symbol struct {
	Name string
}

func (*Symbol) TypeName() string { return "symbol" }
func (*Symbol) Roots() []Value   { return nil }

// Keyword is interned in a namespace distinct from Symbol.
type Keyword struct {
	Name string
}

func (*Keyword) TypeName() string { return "keyword" }
func (*Keyword) Roots() []Value   { return nil }

// Pair is the classic cons cell.
type Pair struct {
	Head Value
	Tail Value
}

func (*Pair) TypeName() string { return "pair" }
func (p *Pair) Roots() []Value { return []Value{p.Head, p.Tail} }

// Array is a flat, resizable vector with a default fill value.
type Array struct {
	Used    int
	Alloc   int
	Default Value
	Data    []Value
}

func (*Array) TypeName() string { return "array" }
func (a *Array) Roots() []Value {
	roots := make([]Value, 0, len(a.Data)+1)
	roots = append(roots, a.Default)
	roots = append(roots, a.Data[:a.Used]...)
	return roots
}

// HashEqualFunc and HashHashFunc may be native Go functions or wrap a guest
// closure Value (spec §3: "may be native C pointers or guest closures").
type HashEqualFunc func(a, b Value) bool
type HashHashFunc func(v Value) uint64

// Hash is an open-hashing table; Buckets are chained singly-linked via
// HashEntry.Next so growth can be amortized like the teacher's paged memory
// growth strategy.
type Hash struct {
	Buckets []*HashEntry
	Count   int
	Mask    uint64
	Equal   HashEqualFunc
	HashFn  HashHashFunc
	// EqualClosure/HashClosure hold the guest closure Value when Equal/HashFn
	// wrap a guest-defined predicate rather than a native Go function.
	EqualClosure Value
	HashClosure  Value
}

// HashEntry is one bucket-chain link.
type HashEntry struct {
	Key, Val Value
	Next     *HashEntry
}

func (*Hash) TypeName() string { return "hash" }
func (h *Hash) Roots() []Value {
	var roots []Value
	if h.EqualClosure != (Value{}) {
		roots = append(roots, h.EqualClosure)
	}
	if h.HashClosure != (Value{}) {
		roots = append(roots, h.HashClosure)
	}
	for _, b := range h.Buckets {
		for e := b; e != nil; e = e.Next {
			roots = append(roots, e.Key, e.Val)
		}
	}
	return roots
}

// Closure is a compiled user-defined procedure.
type Closure struct {
	CodePC        uint // entry PC in the shared code array
	Frame         Value
	Module        Value
	SignatureIdx  int // index into the constants table, or -1
	DocstringIdx  int // index into the constants table, or -1
}

func (*Closure) TypeName() string { return "closure" }
func (c *Closure) Roots() []Value { return []Value{c.Frame, c.Module} }

// PrimitiveFunc is a native callable backing a Primitive.
type PrimitiveFunc func(args []Value) (Value, error)

// Primitive is a native callable with fixed or variadic arity.
type Primitive struct {
	Name      string
	MinArity  int
	Variadic  bool
	Fn        PrimitiveFunc
}

func (*Primitive) TypeName() string { return "primitive" }
func (*Primitive) Roots() []Value   { return nil }

// Bignum is an arbitrary-precision integer: sign, exponent, and a
// little-endian vector of significand digits (base chosen by the numeric
// tower, out of scope here -- we only specify the storage shape).
type Bignum struct {
	Sign     int // -1, 0, or 1
	Exponent int
	Digits   []uint32
}

func (*Bignum) TypeName() string { return "bignum" }
func (*Bignum) Roots() []Value   { return nil }

// Module is a named namespace with an export list, imported modules, and a
// symbol table (symbol name -> bound Value).
type Module struct {
	Name    string
	Exports []string
	Imports []Value // each a *Heap wrapping a *Module
	Symbols map[string]Value
}

func (*Module) TypeName() string { return "module" }
func (m *Module) Roots() []Value {
	roots := make([]Value, 0, len(m.Imports)+len(m.Symbols))
	roots = append(roots, m.Imports...)
	for _, v := range m.Symbols {
		roots = append(roots, v)
	}
	return roots
}

// Frame is one activation record: a parent link, a vector of named argument
// slots, and an optional tail-rest slot for nary closures.
type Frame struct {
	Parent  Value
	Args    []Value
	HasRest bool
	Rest    Value
}

func (*Frame) TypeName() string { return "frame" }
func (f *Frame) Roots() []Value {
	roots := make([]Value, 0, len(f.Args)+2)
	roots = append(roots, f.Parent)
	roots = append(roots, f.Args...)
	if f.HasRest {
		roots = append(roots, f.Rest)
	}
	return roots
}

// StructType describes a guest struct type: its field names (Members) and
// an optional parent type for inheritance of fields.
type StructType struct {
	Name    string
	Members []string
	Parent  Value // *Heap wrapping a *StructType, or the Nil value
}

func (*StructType) TypeName() string { return "struct-type" }
func (st *StructType) Roots() []Value {
	if st.Parent.IsNil() {
		return nil
	}
	return []Value{st.Parent}
}

// StructInstance is an instance of a StructType.
type StructInstance struct {
	Type   Value // *Heap wrapping a *StructType
	Fields []Value
}

func (*StructInstance) TypeName() string { return "struct-instance" }
func (si *StructInstance) Roots() []Value {
	roots := make([]Value, 0, len(si.Fields)+1)
	roots = append(roots, si.Type)
	roots = append(roots, si.Fields...)
	return roots
}

// Bitset is a packed bit vector.
type Bitset struct {
	Length int
	Words  []uint64
}

func (*Bitset) TypeName() string { return "bitset" }
func (*Bitset) Roots() []Value   { return nil }

// CScalarKind enumerates the native C scalar kinds a CScalar may wrap.
type CScalarKind uint8

const (
	CChar CScalarKind = iota
	CSChar
	CUChar
	CShort
	CUShort
	CInt
	CUInt
	CLong
	CULong
	CLongLong
	CULongLong
	CFloat
	CDouble
	CLongDouble
	CPointer
)

// CScalar wraps one native scalar value. Equality on CLongDouble is
// deliberately unsupported (spec §4.5) and callers must check Kind before
// comparing.
type CScalar struct {
	Kind  CScalarKind
	Bits  uint64  // integer/pointer kinds, raw bit pattern
	Float float64 // CFloat/CDouble
}

func (*CScalar) TypeName() string { return "C/scalar" }
func (*CScalar) Roots() []Value   { return nil }
