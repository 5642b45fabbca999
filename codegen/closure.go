package codegen

import (
	"github.com/jcorbin/idio/iabuf"
	"github.com/jcorbin/idio/value"
)

// ClosureInfo carries the three values interned into the constants table
// (signature, docstring, source location), plus the raw arity and the
// link-frame formals index, that fix-closure/nary-closure need for their
// five-varuint-field header and body.
type ClosureInfo struct {
	Arity          int // fixed arity (fix-closure), or minimum arity (nary-closure)
	Signature      value.Value // interned via lookup-or-extend
	Docstring      value.Value
	SourceLocation value.Value
	FormalsIndex   int // link-frame's formals-index operand
}

// EmitFixClosure implements spec.md §4.3's fix-closure construct: the
// creation opcode plus five varuint fields (skip-length, code-length,
// signature-index, docstring-index, source-location-index), a goto past the
// body, then the body itself (arity check, link-frame, compiled body,
// return).
func (e *Emitter) EmitFixClosure(info ClosureInfo, emitBody func(*Emitter) error) error {
	return e.emitClosure(info, false, emitBody)
}

// EmitNaryClosure implements the variadic counterpart: the body's arity
// check always uses arityGEp instead of the fixed arity{1..4}p forms, and
// a pack-frame instruction gathers the tail arguments before link-frame.
func (e *Emitter) EmitNaryClosure(info ClosureInfo, emitBody func(*Emitter) error) error {
	return e.emitClosure(info, true, emitBody)
}

func (e *Emitter) emitClosure(info ClosureInfo, nary bool, emitBody func(*Emitter) error) error {
	sigIdx := e.internConstant(info.Signature)
	docIdx := e.internConstant(info.Docstring)
	srcIdx := e.internConstant(info.SourceLocation)

	body := New(iabuf.New(32), e.Consts)
	if nary {
		body.emitArityCheck(info.Arity, true)
		body.op(OpPackFrame)
		body.varuint(uint64(info.Arity))
	} else {
		body.emitArityCheck(info.Arity, false)
	}
	body.op(OpLinkFrame)
	body.varuint(uint64(info.FormalsIndex))
	if err := emitBody(body); err != nil {
		return err
	}
	body.op(OpReturn)

	// codeLength is the body's own length; skipLength is the width of the
	// goto that follows the header, so the closure's code starts skipLength
	// bytes after the last header field.
	codeLength := body.Len()
	gotoW := dispWidth(codeLength)
	skipLength := gotoW

	e.op(OpCreateClosure)
	e.varuint(uint64(skipLength))
	e.varuint(uint64(codeLength))
	e.varuint(uint64(sigIdx))
	e.varuint(uint64(docIdx))
	e.varuint(uint64(srcIdx))

	e.emitDisplacement(OpShortGoto, OpLongGoto, codeLength)
	e.Buf.AppendBuffer(body.Buf)
	return nil
}

// emitArityCheck specializes the fixed 1..4 arity checks into their
// dedicated opcodes, falling back to arityeqp/arityGEp otherwise.
func (e *Emitter) emitArityCheck(arity int, atLeast bool) {
	if atLeast {
		e.op(OpArityGEP)
		e.varuint(uint64(arity))
		return
	}
	switch arity {
	case 1:
		e.op(OpArity1P)
	case 2:
		e.op(OpArity2P)
	case 3:
		e.op(OpArity3P)
	case 4:
		e.op(OpArity4P)
	default:
		e.op(OpArityEqP)
		e.varuint(uint64(arity))
	}
}
