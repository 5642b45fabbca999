package codegen

import "github.com/jcorbin/idio/iabuf"

// shortJumpMax is the largest displacement that fits the short (1-byte)
// jump/goto forms, per spec.md §4.3: "short (1-byte offset <= 240) or long
// (varuint offset)".
const shortJumpMax = 240

// emitDisplacement appends a jump/goto opcode pair (short or long form)
// sized to disp, choosing the short opcode when disp fits in one byte.
func (e *Emitter) emitDisplacement(short, long Op, disp int) {
	if disp <= shortJumpMax {
		e.op(short)
		e.byte(byte(disp))
		return
	}
	e.op(long)
	e.varuint(uint64(disp))
}

// dispWidth returns the number of bytes emitDisplacement(short, long, disp)
// would append for an opcode+operand pair of this shape, without writing
// anything -- used by the two-pass sizing technique below.
func dispWidth(disp int) int {
	if disp <= shortJumpMax {
		return 2 // one opcode byte + one literal byte
	}
	tmp := iabuf.New(8)
	tmp.Append(byte(0))
	e := &Emitter{Buf: tmp}
	e.varuint(uint64(disp))
	return tmp.Len()
}

// EmitAlternative implements spec.md §4.3's conditional construct: emit m1,
// then a jump-false skipping over m2+trailing-goto, then m2, a goto
// skipping m3, then m3. m1/m2/m3 are callbacks that each emit one
// sub-meaning into the Emitter passed to them; this lets the caller reuse
// whatever representation it already walks its meaning tree with.
//
// The two displacements are computed by first emitting m2 and m3 into
// throwaway buffers (the "two-pass" technique): with their exact sizes
// known, the generator picks the short or long jump/goto form without
// having to over-allocate or patch back into already-written bytes.
func (e *Emitter) EmitAlternative(emitTest, emitConsequent, emitAlternate func(*Emitter) error) error {
	// The test is wrapped in suppress-rcse/pop-rcse (spec.md §8 testable
	// property #5) so the VM doesn't raise a command-status error on its
	// discarded result, mirroring EmitAndOr's non-final-clause wrapping.
	e.op(OpSuppressRCSE)
	if err := emitTest(e); err != nil {
		return err
	}
	e.op(OpPopRCSE)

	m2 := New(iabuf.New(16), e.Consts)
	if err := emitConsequent(m2); err != nil {
		return err
	}
	m3 := New(iabuf.New(16), e.Consts)
	if err := emitAlternate(m3); err != nil {
		return err
	}

	// The goto after m2 must skip exactly m3's bytes.
	gotoWidth := dispWidth(m3.Len())
	// The jump-false before m2 must skip m2's bytes plus that trailing goto.
	jumpFalseDisp := m2.Len() + gotoWidth
	e.emitDisplacement(OpShortJumpFalse, OpLongJumpFalse, jumpFalseDisp)

	e.Buf.AppendBuffer(m2.Buf)
	e.emitDisplacement(OpShortGoto, OpLongGoto, m3.Len())
	e.Buf.AppendBuffer(m3.Buf)
	return nil
}

// EmitAndOr implements spec.md §4.3's short-circuit and/or: each clause is
// emitted into its own buffer; working right-to-left, every clause but the
// last is wrapped in suppress-rcse/pop-rcse so the VM doesn't raise a
// command-status error on its discarded result, and followed by a jump-false
// (and) or jump-true (or) whose displacement is the running total of
// remaining clause bytes. The final clause, in tail position, is emitted
// bare.
func (e *Emitter) EmitAndOr(isAnd bool, clauses []func(*Emitter) error) error {
	if len(clauses) == 0 {
		return nil
	}

	bufs := make([]*iabuf.Buffer, len(clauses))
	for i, emit := range clauses {
		b := New(iabuf.New(16), e.Consts)
		if err := emit(b); err != nil {
			return err
		}
		bufs[i] = b.Buf
	}

	short, long := OpShortJumpFalse, OpLongJumpFalse
	if !isAnd {
		short, long = OpShortJumpTrue, OpLongJumpTrue
	}

	// Build each non-final clause's wrapped form (suppress-rcse clause
	// pop-rcse jump-{false,true} <running total>), right to left, so each
	// clause's own displacement already accounts for every clause after it.
	var tail *iabuf.Buffer
	running := 0
	for i := len(bufs) - 1; i >= 0; i-- {
		if i == len(bufs)-1 {
			tail = bufs[i]
			running = tail.Len()
			continue
		}

		wrapped := iabuf.New(bufs[i].Len() + running + 8)
		wrapped.Push(byte(OpSuppressRCSE))
		wrapped.AppendBuffer(bufs[i])
		wrapped.Push(byte(OpPopRCSE))

		we := &Emitter{Buf: wrapped}
		we.emitDisplacement(short, long, running)
		wrapped.AppendBuffer(tail)

		tail = wrapped
		running = tail.Len()
	}

	e.Buf.AppendBuffer(tail)
	return nil
}
