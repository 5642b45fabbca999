package codegen

import "github.com/jcorbin/idio/value"

// EmitPushDynamic/EmitPushEnviron/EmitPushTrap share the same shape: an
// initializer, then the opcode plus the constants reference (spec.md
// §4.3's "Dynamic/environment bindings" bullet). The corresponding pops
// take no operand -- see PopDynamic/PopEnviron/PopTrap below.
func (e *Emitter) EmitPushDynamic(v value.Value, emitInit func(*Emitter) error) error {
	return e.emitPushBinding(OpPushDynamic, v, emitInit)
}

func (e *Emitter) EmitPushEnviron(v value.Value, emitInit func(*Emitter) error) error {
	return e.emitPushBinding(OpPushEnviron, v, emitInit)
}

func (e *Emitter) EmitPushTrap(v value.Value, emitInit func(*Emitter) error) error {
	return e.emitPushBinding(OpPushTrap, v, emitInit)
}

func (e *Emitter) emitPushBinding(op Op, v value.Value, emitInit func(*Emitter) error) error {
	if emitInit != nil {
		if err := emitInit(e); err != nil {
			return err
		}
	}
	idx := e.internConstant(v)
	e.op(op)
	e.reference(idx)
	return nil
}

func (e *Emitter) PopDynamic() { e.op(OpPopDynamic) }
func (e *Emitter) PopEnviron() { e.op(OpPopEnviron) }
func (e *Emitter) PopTrap()    { e.op(OpPopTrap) }

// EmitPushEscaper implements spec.md §4.3's escaper construct: the
// initializer, the opcode plus constants reference, then a varuint length
// of the protected body and the body bytes themselves -- escape targets are
// absolute PCs, so the VM needs to know the body's extent at creation time.
func (e *Emitter) EmitPushEscaper(label value.Value, emitInit, emitBody func(*Emitter) error) error {
	if emitInit != nil {
		if err := emitInit(e); err != nil {
			return err
		}
	}
	idx := e.internConstant(label)
	e.op(OpPushEscaper)
	e.reference(idx)
	return e.emitLengthPrefixedBody(emitBody)
}

func (e *Emitter) PopEscaper() { e.op(OpPopEscaper) }

// EmitPushAbort implements spec.md §4.3's special-abort construct:
// symmetric to push-escaper but without a constants reference.
func (e *Emitter) EmitPushAbort(emitBody func(*Emitter) error) error {
	e.op(OpPushAbort)
	return e.emitLengthPrefixedBody(emitBody)
}

func (e *Emitter) PopAbort() { e.op(OpPopAbort) }

func (e *Emitter) emitLengthPrefixedBody(emitBody func(*Emitter) error) error {
	body := New(nil, e.Consts)
	if emitBody != nil {
		if err := emitBody(body); err != nil {
			return err
		}
	}
	e.varuint(uint64(body.Len()))
	e.Buf.AppendBuffer(body.Buf)
	return nil
}
