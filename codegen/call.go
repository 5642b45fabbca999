package codegen

import "github.com/jcorbin/idio/value"

// EmitCall implements spec.md §4.3's call construct. Non-tail calls emit
// argument-frame code, push-value, argument assembly, a src-expr carrying
// the call's own source-expression constant, then
// pop-function/preserve-state/function-invoke/restore-state. Tail calls
// drop preserve-state/restore-state and substitute function-goto for
// function-invoke.
//
// emitFrame and emitArgs are caller-supplied callbacks emitting the
// argument-frame allocation and the argument-assembly instructions
// respectively (their exact shape is evaluator-owned and out of this
// package's scope); emitFunction emits the code that leaves the function
// value on the stack before pop-function consumes it.
func (e *Emitter) EmitCall(tail bool, srcExpr value.Value, emitFrame, emitArgs, emitFunction func(*Emitter) error) error {
	if emitFrame != nil {
		if err := emitFrame(e); err != nil {
			return err
		}
	}
	e.op(OpPushValue)
	if emitArgs != nil {
		if err := emitArgs(e); err != nil {
			return err
		}
	}
	if emitFunction != nil {
		if err := emitFunction(e); err != nil {
			return err
		}
	}

	srcIdx := e.internCallSource(srcExpr)
	e.op(OpSrcExpr)
	e.reference(srcIdx)

	e.op(OpPopFunction)
	if tail {
		e.op(OpFunctionGoto)
		return nil
	}
	e.op(OpPreserveState)
	e.op(OpFunctionInvoke)
	e.op(OpRestoreState)
	return nil
}
