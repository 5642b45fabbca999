package codegen

// The five stable prologue PCs spec.md §4.3 requires be written once, when
// the shared code array is first initialized.
const (
	PCNonContErr      = 0
	PCFinish          = 1
	PCTrapReturn      = 2
	PCApplyReturn     = 5
	PCInterruptReturn = 7
)

// ProloguePCs names the five stable PCs WritePrologue returns.
type ProloguePCs struct {
	NonContErr, Finish, TrapReturn, ApplyReturn, InterruptReturn int
}

// WritePrologue writes the five fixed sequences at PCs 0, 1, 2, 5 and 7 onto
// a freshly created, still-empty code buffer, returning the stable PCs for
// the caller (typically runtime.State, at startup) to record. hasDynamic
// selects whether the interrupt-return sequence (PC 7) is prefixed with a
// trap-pop, per spec.md §4.3: "(with an optional trap-pop prefix on
// configurations without dynamic registers)".
func (e *Emitter) WritePrologue(hasDynamic bool) (pcs ProloguePCs, err error) {
	if e.Len() != 0 {
		panic("codegen: WritePrologue called on a non-empty code buffer")
	}

	// PC 0: non-cont-err, the non-continuable-error landing pad.
	e.op(OpNonContErr)

	// PC 1: finish, the terminal halt.
	e.op(OpFinish)

	// PC 2: restore-trap / restore-state / return.
	e.op(OpRestoreTrap)
	e.op(OpRestoreState)
	e.op(OpReturn)

	// Pad up to PC 5 with nops if the above sequence ran short, matching
	// the original's fixed PC layout.
	for e.Len() < PCApplyReturn {
		e.op(OpNop)
	}

	// PC 5: restore-state / return.
	e.op(OpRestoreState)
	e.op(OpReturn)

	for e.Len() < PCInterruptReturn {
		e.op(OpNop)
	}

	// PC 7: restore-all-state / return, optionally prefixed by a trap-pop
	// when the configuration lacks dynamic registers.
	if !hasDynamic {
		e.op(OpPopTrap)
	}
	e.op(OpRestoreAllState)
	e.op(OpReturn)

	return ProloguePCs{
		NonContErr:      PCNonContErr,
		Finish:          PCFinish,
		TrapReturn:      PCTrapReturn,
		ApplyReturn:     PCApplyReturn,
		InterruptReturn: PCInterruptReturn,
	}, nil
}
