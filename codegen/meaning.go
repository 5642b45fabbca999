package codegen

import (
	"github.com/jcorbin/idio/cond"
	"github.com/jcorbin/idio/value"
)

// Meaning constructors build the tagged-pair intermediate representation
// spec.md §4.3 describes as codegen's input: a pair whose head is an
// opcode atom and whose tail holds operands.
//
// NewMeaning(op, a, b, c) builds (op a b c) as a proper list.
func NewMeaning(op Op, operands ...value.Value) value.Value {
	head := value.OpcodeValue(int(op))
	tail := value.Nil()
	for i := len(operands) - 1; i >= 0; i-- {
		tail = value.HeapValue(&value.Heap{V: &value.Pair{Head: operands[i], Tail: tail}})
	}
	return value.HeapValue(&value.Heap{V: &value.Pair{Head: head, Tail: tail}})
}

// NewSequence builds a sequence meaning: a pair whose head is itself a pair
// (not an opcode atom), so Emit treats it as "emit each sub-meaning in
// order" per spec.md §4.3's first policy bullet.
func NewSequence(meanings ...value.Value) value.Value {
	tail := value.Nil()
	for i := len(meanings) - 1; i >= 0; i-- {
		tail = value.HeapValue(&value.Heap{V: &value.Pair{Head: meanings[i], Tail: tail}})
	}
	return tail
}

func asPair(v value.Value) (*value.Pair, bool) {
	h, ok := v.IsHeap()
	if !ok {
		return nil, false
	}
	p, ok := h.V.(*value.Pair)
	return p, ok
}

// operands walks a proper list into a slice, per the tail of a meaning pair.
func operands(tail value.Value) ([]value.Value, error) {
	var out []value.Value
	for {
		if tail.IsNil() {
			return out, nil
		}
		p, ok := asPair(tail)
		if !ok {
			return nil, cond.Codingf("codegen: malformed operand list")
		}
		out = append(out, p.Head)
		tail = p.Tail
	}
}

// isSequence reports whether m's head is itself a pair (spec.md §4.3's
// sequence test), as opposed to an opcode atom.
func isSequence(m value.Value) bool {
	p, ok := asPair(m)
	if !ok {
		return false
	}
	_, headIsPair := asPair(p.Head)
	return headIsPair
}

// Emit walks m, dispatching leaf opcode forms directly and recursing into
// a sequence's sub-meanings in order. Compound constructs (alternative,
// and/or, closures, calls, dynamic/environ/trap/escaper/abort bindings) are
// emitted through their dedicated EmitXxx methods, which callers invoke
// directly with the evaluator-supplied sub-emission callbacks -- Emit
// itself only covers the leaf forms a sequence is built from.
func (e *Emitter) Emit(m value.Value) error {
	if m.IsNil() {
		return nil
	}
	if isSequence(m) {
		p, _ := asPair(m)
		if err := e.Emit(p.Head); err != nil {
			return err
		}
		return e.Emit(p.Tail)
	}

	p, ok := asPair(m)
	if !ok {
		return cond.Codingf("codegen: meaning is neither an opcode pair nor a sequence")
	}

	op, ok := p.Head.IsOpcode()
	if !ok {
		return cond.Codingf("codegen: meaning head is not an opcode atom")
	}
	args, err := operands(p.Tail)
	if err != nil {
		return err
	}

	return e.emitLeaf(Op(op), args)
}

func (e *Emitter) emitLeaf(op Op, args []value.Value) error {
	switch op {
	case OpFinish:
		// Attempting to emit the internal finish opcode from user code is a
		// panic, per spec.md §4.3's last policy bullet.
		cond.Panicf("codegen: user code attempted to emit the internal finish opcode")
		return nil

	case OpShallowArgumentRef:
		slot, err := wantFixnum(args, 0)
		if err != nil {
			return err
		}
		return e.EmitArgumentRef(int(slot))

	case OpShallowArgumentSet:
		slot, err := wantFixnum(args, 0)
		if err != nil {
			return err
		}
		return e.EmitArgumentSet(int(slot))

	case OpDeepArgumentRef:
		depth, err := wantFixnum(args, 0)
		if err != nil {
			return err
		}
		slot, err := wantFixnum(args, 1)
		if err != nil {
			return err
		}
		return e.EmitDeepArgumentRef(int(depth), int(slot))

	case OpDeepArgumentSet:
		depth, err := wantFixnum(args, 0)
		if err != nil {
			return err
		}
		slot, err := wantFixnum(args, 1)
		if err != nil {
			return err
		}
		return e.EmitDeepArgumentSet(int(depth), int(slot))

	case OpConstant:
		if len(args) != 1 {
			return cond.Codingf("codegen: constant takes exactly one operand")
		}
		e.EmitConstantRef(args[0])
		return nil

	case OpPredefined:
		if len(args) != 1 {
			return cond.Codingf("codegen: predefined takes exactly one operand")
		}
		return e.EmitPredefined(args[0])

	case OpNot:
		if len(args) != 0 {
			return cond.Codingf("codegen: not takes no operands")
		}
		e.op(OpNot)
		return nil

	default:
		return cond.Codingf("codegen: %v is not a leaf form (use its dedicated EmitXxx method)", op)
	}
}

func wantFixnum(args []value.Value, i int) (int64, error) {
	if i >= len(args) {
		return 0, cond.Codingf("codegen: missing operand %d", i)
	}
	n, ok := args[i].IsFixnum()
	if !ok {
		return 0, cond.Codingf("codegen: operand %d is not a fixnum", i)
	}
	return n, nil
}
