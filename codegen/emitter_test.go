package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/codegen"
	"github.com/jcorbin/idio/constants"
	"github.com/jcorbin/idio/iabuf"
	"github.com/jcorbin/idio/value"
)

func newEmitter() *codegen.Emitter {
	return codegen.New(iabuf.New(0), constants.New(nil))
}

func TestArgumentRefSpecializesSmallSlots(t *testing.T) {
	e := newEmitter()
	require.NoError(t, e.EmitArgumentRef(2))
	assert.Equal(t, []byte{byte(codegen.OpShallowArgumentRef2)}, e.Buf.Bytes())
}

func TestArgumentRefFallsBackForLargeSlots(t *testing.T) {
	e := newEmitter()
	require.NoError(t, e.EmitArgumentRef(9))
	bs := e.Buf.Bytes()
	require.Len(t, bs, 2)
	assert.Equal(t, byte(codegen.OpShallowArgumentRef), bs[0])
	assert.Equal(t, byte(9), bs[1])
}

func TestArgumentRefRejectsNegative(t *testing.T) {
	e := newEmitter()
	err := e.EmitArgumentRef(-1)
	assert.Error(t, err)
}

func TestConstantRefSpecializesFixnumZeroThroughFour(t *testing.T) {
	e := newEmitter()
	e.EmitConstantRef(value.Fixnum(0))
	e.EmitConstantRef(value.Fixnum(1))
	e.EmitConstantRef(value.Fixnum(2))
	e.EmitConstantRef(value.Fixnum(3))
	e.EmitConstantRef(value.Fixnum(4))
	bs := e.Buf.Bytes()
	assert.Equal(t, []byte{
		byte(codegen.OpConstant0),
		byte(codegen.OpConstant1),
		byte(codegen.OpConstant2),
		byte(codegen.OpConstant3),
		byte(codegen.OpConstant4),
	}, bs)
	assert.Equal(t, 1, e.Consts.Len(), "fixnum specialization must never touch the constants table beyond its pre-seeded nil entry")
}

func TestConstantRefFallsBackToFixnumOpcodeForLargeValues(t *testing.T) {
	e := newEmitter()
	e.EmitConstantRef(value.Fixnum(7))
	bs := e.Buf.Bytes()
	require.Len(t, bs, 2)
	assert.Equal(t, byte(codegen.OpFixnum), bs[0])
	assert.Equal(t, byte(7), bs[1])
	assert.Equal(t, 1, e.Consts.Len())
}

func TestConstantRefUsesNegFixnumForNegativeValues(t *testing.T) {
	e := newEmitter()
	e.EmitConstantRef(value.Fixnum(-3))
	bs := e.Buf.Bytes()
	require.Len(t, bs, 2)
	assert.Equal(t, byte(codegen.OpNegFixnum), bs[0])
	assert.Equal(t, byte(3), bs[1])
	assert.Equal(t, 1, e.Consts.Len())
}

func TestConstantRefSpecializesUnicode(t *testing.T) {
	e := newEmitter()
	e.EmitConstantRef(value.Unicode('A'))
	bs := e.Buf.Bytes()
	require.Len(t, bs, 2)
	assert.Equal(t, byte(codegen.OpUnicode), bs[0])
	assert.Equal(t, byte('A'), bs[1])
	assert.Equal(t, 1, e.Consts.Len())
}

func TestConstantRefSpecializesBooleanAndNilWithoutInterning(t *testing.T) {
	e := newEmitter()
	e.EmitConstantRef(value.Bool(true))
	e.EmitConstantRef(value.Bool(false))
	e.EmitConstantRef(value.Nil())
	assert.Equal(t, 1, e.Consts.Len(), "#t/#f/nil must never be interned into the constants table")
}

func TestConstantRefInternsGenuineHeapValues(t *testing.T) {
	e := newEmitter()
	sym := value.HeapValue(&value.Heap{V: &value.Symbol{Name: "foo"}})
	e.EmitConstantRef(sym)
	bs := e.Buf.Bytes()
	require.Len(t, bs, 1+codegen.ReferenceWidth)
	assert.Equal(t, byte(codegen.OpConstantSymRef), bs[0])
	assert.Equal(t, 2, e.Consts.Len())
}

func TestConstantRefIsStableAcrossRepeats(t *testing.T) {
	e := newEmitter()
	sym := value.HeapValue(&value.Heap{V: &value.Symbol{Name: "bar"}})
	e.EmitConstantRef(sym)
	first := append([]byte(nil), e.Buf.Bytes()...)

	e2 := codegen.New(iabuf.New(0), e.Consts)
	e2.EmitConstantRef(sym)
	assert.Equal(t, first, e2.Buf.Bytes(), "repeated interning of an equal constant yields the same reference")
}

func TestWritePrologueReturnsStablePCs(t *testing.T) {
	e := newEmitter()
	pcs, err := e.WritePrologue(true)
	require.NoError(t, err)
	assert.Equal(t, codegen.PCNonContErr, pcs.NonContErr)
	assert.Equal(t, codegen.PCFinish, pcs.Finish)
	assert.Equal(t, codegen.PCTrapReturn, pcs.TrapReturn)
	assert.Equal(t, codegen.PCApplyReturn, pcs.ApplyReturn)
	assert.Equal(t, codegen.PCInterruptReturn, pcs.InterruptReturn)
	assert.GreaterOrEqual(t, e.Len(), codegen.PCInterruptReturn)
}

// TestEmitAlternativeMatchesCodegenRoundTripSketch checks spec.md §8
// testable property #5's exact byte sequence: the test is wrapped in
// suppress-rcse/pop-rcse, the jump-false skips the consequent plus its
// trailing short-goto, and the goto skips the alternate.
func TestEmitAlternativeMatchesCodegenRoundTripSketch(t *testing.T) {
	e := newEmitter()
	err := e.EmitAlternative(
		func(e *codegen.Emitter) error { e.EmitConstantRef(value.Fixnum(1)); return nil },
		func(e *codegen.Emitter) error { e.EmitConstantRef(value.Fixnum(2)); return nil },
		func(e *codegen.Emitter) error { e.EmitConstantRef(value.Fixnum(3)); return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(codegen.OpSuppressRCSE),
		byte(codegen.OpConstant1),
		byte(codegen.OpPopRCSE),
		byte(codegen.OpShortJumpFalse), 3,
		byte(codegen.OpConstant2),
		byte(codegen.OpShortGoto), 1,
		byte(codegen.OpConstant3),
	}, e.Buf.Bytes())
}

func TestEmitAndOrWrapsNonFinalClauses(t *testing.T) {
	e := newEmitter()
	err := e.EmitAndOr(true, []func(*codegen.Emitter) error{
		func(e *codegen.Emitter) error { e.EmitConstantRef(value.Fixnum(1)); return nil },
		func(e *codegen.Emitter) error { e.EmitConstantRef(value.Fixnum(2)); return nil },
	})
	require.NoError(t, err)
	bs := e.Buf.Bytes()
	assert.Equal(t, byte(codegen.OpSuppressRCSE), bs[0])
}

func TestEmitFixClosureEmitsFiveFieldHeader(t *testing.T) {
	e := newEmitter()
	err := e.EmitFixClosure(codegen.ClosureInfo{
		Arity:          2,
		Signature:      value.HeapValue(&value.Heap{V: &value.Symbol{Name: "formals"}}),
		Docstring:      value.HeapValue(&value.Heap{V: &value.Symbol{Name: "doc"}}),
		SourceLocation: value.HeapValue(&value.Heap{V: &value.Symbol{Name: "srcloc"}}),
		FormalsIndex:   0,
	}, func(e *codegen.Emitter) error {
		e.EmitConstantRef(value.Fixnum(1))
		return nil
	})
	require.NoError(t, err)
	bs := e.Buf.Bytes()
	require.NotEmpty(t, bs)
	assert.Equal(t, byte(codegen.OpCreateClosure), bs[0])
	assert.Equal(t, 4, e.Consts.Len(), "signature/docstring/source-location must each be interned")
}

// TestEmitFixClosureHeaderSurvivesLargeConstantIndices guards against the
// five-field header being encoded with the fixed-width reference slot:
// ReferenceWidth is 2 bytes (max 65535), but the header fields are varuint
// per spec.md §8 testable property #7 / original_source/src/codegen.c's
// IDIO_IA_PUSH_VARUINT(fci/dsci/slci), so indices beyond 65535 must still
// round-trip.
func TestEmitFixClosureHeaderSurvivesLargeConstantIndices(t *testing.T) {
	e := newEmitter()
	const beyondReferenceWidth = 70000 // > 65535, the max a 2-byte fixed-width slot can hold
	for i := 0; i < beyondReferenceWidth; i++ {
		e.Consts.Extend(value.Fixnum(int64(i)))
	}
	large := value.HeapValue(&value.Heap{V: &value.Symbol{Name: "late-bound"}})
	err := e.EmitFixClosure(codegen.ClosureInfo{
		Arity:          1,
		Signature:      large,
		Docstring:      value.Nil(),
		SourceLocation: value.Nil(),
	}, func(e *codegen.Emitter) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, byte(codegen.OpCreateClosure), e.Buf.Bytes()[0])
}

func TestEmitPushEscaperLengthPrefixesBody(t *testing.T) {
	e := newEmitter()
	err := e.EmitPushEscaper(value.Nil(), nil, func(e *codegen.Emitter) error {
		e.EmitConstantRef(value.Fixnum(1))
		return nil
	})
	require.NoError(t, err)
	bs := e.Buf.Bytes()
	assert.Equal(t, byte(codegen.OpPushEscaper), bs[0])
}

func TestEmittingFinishOpcodeFromUserCodePanics(t *testing.T) {
	e := newEmitter()
	m := codegen.NewMeaning(codegen.OpFinish)
	assert.Panics(t, func() { _ = e.Emit(m) })
}

func TestEmitSequenceEmitsEachSubMeaningInOrder(t *testing.T) {
	e := newEmitter()
	seq := codegen.NewSequence(
		codegen.NewMeaning(codegen.OpNot),
		codegen.NewMeaning(codegen.OpNot),
	)
	require.NoError(t, e.Emit(seq))
	assert.Equal(t, []byte{byte(codegen.OpNot), byte(codegen.OpNot)}, e.Buf.Bytes())
}

func TestEmitMalformedMeaningIsCodingError(t *testing.T) {
	e := newEmitter()
	err := e.Emit(value.Fixnum(5))
	assert.Error(t, err)
}
