// Package print implements the structural printing subsystem (->string and
// ->display-string) described in spec §4.4 and §9: uniform dispatch across
// every value variant through the vtable, with an explicit "seen" list so
// cyclic guest graphs render as #<^{T@p}> instead of looping forever.
package print

import (
	"fmt"
	"strconv"

	"github.com/jcorbin/idio/internal/panicerr"
	"github.com/jcorbin/idio/value"
	"github.com/jcorbin/idio/vtable"
)

// DefaultMaxDepth bounds the seen-list scan depth when no explicit option is
// given. The original C implementation gets a depth cutoff for free from its
// native call stack; a Go reimplementation has no such cutoff as cheaply, so
// this is made an explicit, supplemented feature (see SPEC_FULL.md).
const DefaultMaxDepth = 10000

// VTableOf resolves the vtable the printer consults for a heap value; it is
// supplied by the caller of New. Immediates are rendered directly and are
// never passed to it.
type VTableOf func(value.Value) *vtable.VTable

// Printer renders values to their ->string / ->display-string form.
type Printer struct {
	VTableOf VTableOf
	MaxDepth int

	seen []*value.Heap
}

// Option configures a Printer.
type Option func(*Printer)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option { return func(p *Printer) { p.MaxDepth = n } }

// New constructs a Printer.
func New(vtableOf VTableOf, opts ...Option) *Printer {
	p := &Printer{VTableOf: vtableOf, MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) alreadySeen(h *value.Heap) bool {
	for _, s := range p.seen {
		if s == h {
			return true
		}
	}
	return false
}

// ToString renders v's ->string form.
func (p *Printer) ToString(v value.Value) (string, error) {
	return p.render(v, false, 0)
}

// ToDisplayString renders v's ->display-string form, falling back to
// ->string when no display-specific method is installed (spec §4.4): the
// fallback result, if a valid string, is cached as the display method so
// subsequent calls skip the fallback.
func (p *Printer) ToDisplayString(v value.Value) (string, error) {
	return p.render(v, true, 0)
}

func (p *Printer) render(v value.Value, display bool, depth int) (string, error) {
	if depth > p.MaxDepth {
		return "...", nil
	}

	h, isHeap := v.IsHeap()
	if !isHeap {
		return renderImmediate(v), nil
	}

	if p.alreadySeen(h) {
		return fmt.Sprintf("#<^{%s@%p}>", h.V.TypeName(), h), nil
	}

	vt := p.VTableOf(v)
	if vt != nil {
		name := vtable.MethodToString
		if display {
			name = vtable.MethodToDisplayString
		}
		if m, ok := vt.Lookup(name); ok {
			p.seen = append(p.seen, h)
			defer func() { p.seen = p.seen[:len(p.seen)-1] }()

			result, err := callPrintMethod(h, string(name), m, v)
			if err != nil {
				return "", err
			}
			s, ok := stringOf(result)
			if !ok {
				return "", fmt.Errorf("parameter-value-error: ->string printer for %s did not return a string", h.V.TypeName())
			}
			if display && name == vtable.MethodToDisplayString {
				// already the right method, nothing to cache
			} else if display {
				vt.Install(vtable.MethodToDisplayString, vtable.Method{
					Fn: func(value.Value, []value.Value) (value.Value, error) { return stringValue(s), nil },
				})
			}
			return s, nil
		}
		if display {
			// fall back to ->string, caching the good result as above.
			if m, ok := vt.Lookup(vtable.MethodToString); ok {
				p.seen = append(p.seen, h)
				result, err := callPrintMethod(h, string(vtable.MethodToString), m, v)
				p.seen = p.seen[:len(p.seen)-1]
				if err != nil {
					return "", err
				}
				s, ok := stringOf(result)
				if !ok {
					return "", fmt.Errorf("parameter-value-error: ->string printer for %s did not return a string", h.V.TypeName())
				}
				vt.Install(vtable.MethodToDisplayString, vtable.Method{
					Fn: func(value.Value, []value.Value) (value.Value, error) { return stringValue(s), nil },
				})
				return s, nil
			}
		}
	}

	p.seen = append(p.seen, h)
	defer func() { p.seen = p.seen[:len(p.seen)-1] }()
	return p.renderStructural(h, display, depth)
}

// callPrintMethod invokes a user-installed ->string/->display-string method
// under panicerr.Recover, so a panicking printer method surfaces as an error
// rather than unwinding through the caller's stack (spec §4.4/§9: guest code
// reached via the vtable must not be able to crash the host printer).
func callPrintMethod(h *value.Heap, methodName string, m vtable.Method, v value.Value) (value.Value, error) {
	var result value.Value
	err := panicerr.Recover(h.V.TypeName()+"."+methodName, func() error {
		var ferr error
		result, ferr = m.Fn(v, nil)
		return ferr
	})
	return result, err
}

func (p *Printer) renderStructural(h *value.Heap, display bool, depth int) (string, error) {
	switch val := h.V.(type) {
	case *value.String:
		if display {
			return string(val.Buf), nil
		}
		return strconv.Quote(string(val.Buf)), nil
	case *value.Substring:
		parent, _ := val.Parent.IsHeap()
		var s string
		if ps, ok := parent.V.(*value.String); ok {
			end := val.Offset + val.Length
			if end > len(ps.Buf) {
				end = len(ps.Buf)
			}
			s = string(ps.Buf[val.Offset:end])
		}
		if display {
			return s, nil
		}
		return strconv.Quote(s), nil
	case *value.Symbol:
		return val.Name, nil
	case *value.Keyword:
		return ":" + val.Name, nil
	case *value.Pair:
		return p.renderPair(val, display, depth)
	case *value.Array:
		return p.renderArray(val, display, depth)
	case *value.Hash:
		return p.renderHash(val, display, depth)
	case *value.Closure:
		return fmt.Sprintf("#<CLOS @%d>", val.CodePC), nil
	case *value.Primitive:
		return fmt.Sprintf("#<PRIM %s>", val.Name), nil
	case *value.Bignum:
		return fmt.Sprintf("#<BIGNUM sign=%d exp=%d>", val.Sign, val.Exponent), nil
	case *value.Module:
		return fmt.Sprintf("#<MODULE %s>", val.Name), nil
	case *value.Frame:
		return fmt.Sprintf("#<FRAME %d args>", len(val.Args)), nil
	case *value.StructType:
		return fmt.Sprintf("#<STRUCT-TYPE %s>", val.Name), nil
	case *value.StructInstance:
		return p.renderStructInstance(val, display, depth)
	case *value.Bitset:
		return fmt.Sprintf("#<BITSET %d bits>", val.Length), nil
	case *value.CScalar:
		return fmt.Sprintf("#<C/%d>", val.Kind), nil
	default:
		return fmt.Sprintf("#<%s@%p>", h.V.TypeName(), h), nil
	}
}

func (p *Printer) renderPair(pr *value.Pair, display bool, depth int) (string, error) {
	out := "("
	first := true
	node := pr
	for {
		if !first {
			out += " "
		}
		first = false
		s, err := p.render(node.Head, display, depth+1)
		if err != nil {
			return "", err
		}
		out += s

		tail := node.Tail
		if tail.IsNil() {
			break
		}
		h, isHeap := tail.IsHeap()
		if !isHeap {
			s, err := p.render(tail, display, depth+1)
			if err != nil {
				return "", err
			}
			out += " . " + s
			break
		}
		if p.alreadySeen(h) {
			out += fmt.Sprintf(" . #<^{pair@%p}>", h)
			break
		}
		next, ok := h.V.(*value.Pair)
		if !ok {
			s, err := p.render(tail, display, depth+1)
			if err != nil {
				return "", err
			}
			out += " . " + s
			break
		}
		node = next
	}
	return out + ")", nil
}

func (p *Printer) renderArray(a *value.Array, display bool, depth int) (string, error) {
	out := "#["
	for i := 0; i < a.Used; i++ {
		if i > 0 {
			out += " "
		}
		s, err := p.render(a.Data[i], display, depth+1)
		if err != nil {
			return "", err
		}
		out += s
	}
	return out + "]", nil
}

func (p *Printer) renderHash(h *value.Hash, display bool, depth int) (string, error) {
	out := "#{"
	first := true
	for _, bucket := range h.Buckets {
		for e := bucket; e != nil; e = e.Next {
			if !first {
				out += " "
			}
			first = false
			ks, err := p.render(e.Key, display, depth+1)
			if err != nil {
				return "", err
			}
			vs, err := p.render(e.Val, display, depth+1)
			if err != nil {
				return "", err
			}
			out += "(" + ks + " & " + vs + ")"
		}
	}
	return out + "}", nil
}

func (p *Printer) renderStructInstance(si *value.StructInstance, display bool, depth int) (string, error) {
	th, _ := si.Type.IsHeap()
	name := "struct"
	if th != nil {
		if st, ok := th.V.(*value.StructType); ok {
			name = st.Name
		}
	}
	out := "#" + name + "{"
	for i, f := range si.Fields {
		if i > 0 {
			out += " "
		}
		s, err := p.render(f, display, depth+1)
		if err != nil {
			return "", err
		}
		out += s
	}
	return out + "}", nil
}

func renderImmediate(v value.Value) string {
	switch v.Kind() {
	case value.KindConstant:
		c, _ := v.IsConstant()
		switch c {
		case value.ConstNil:
			return "#n"
		case value.ConstTrue:
			return "#t"
		case value.ConstFalse:
			return "#f"
		case value.ConstVoid:
			return "#<void>"
		case value.ConstUndef:
			return "#<undef>"
		case value.ConstEOF:
			return "#<eof>"
		case value.ConstNaN:
			return "#<NaN>"
		}
	}
	return v.String()
}

func stringOf(v value.Value) (string, bool) {
	h, ok := v.IsHeap()
	if !ok {
		return "", false
	}
	s, ok := h.V.(*value.String)
	if !ok {
		return "", false
	}
	return string(s.Buf), true
}

func stringValue(s string) value.Value {
	return value.HeapValue(&value.Heap{V: &value.String{Buf: []byte(s), Length: len(s)}})
}
