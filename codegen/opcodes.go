// Package codegen implements the code generator of spec.md §4.3: it walks
// an intermediate meaning (a tagged pair whose head is an opcode atom) and
// appends bytes to an iabuf.Buffer, interning operands into a shared
// constants.Table along the way. Opcode names below are carried over
// verbatim from the original implementation's codegen.c (IDIO_A_* / IDIO_I_*
// constants) so that a disassembly reads the way the teacher's own
// assembly-level tracing does.
package codegen

// Op is one opcode byte emitted onto the instruction buffer.
type Op byte

const (
	OpShallowArgumentRef Op = iota
	OpShallowArgumentRef0
	OpShallowArgumentRef1
	OpShallowArgumentRef2
	OpShallowArgumentRef3
	OpDeepArgumentRef

	OpShallowArgumentSet
	OpShallowArgumentSet0
	OpShallowArgumentSet1
	OpShallowArgumentSet2
	OpShallowArgumentSet3
	OpDeepArgumentSet

	OpGlobalSymRef
	OpCheckedGlobalSymRef
	OpGlobalFunctionSymRef
	OpCheckedGlobalFunctionSymRef
	OpConstantSymRef
	OpComputedSymRef

	OpGlobalSymDef
	OpGlobalSymSet
	OpComputedSymSet
	OpComputedSymDef

	OpPredefined
	OpConstant
	OpConstant0
	OpConstant1
	OpConstant2
	OpConstant3
	OpConstant4
	OpNegConstant
	OpFixnum
	OpNegFixnum
	OpUnicode

	OpAlternative
	OpShortJumpFalse
	OpLongJumpFalse
	OpShortJumpTrue
	OpLongJumpTrue
	OpShortGoto
	OpLongGoto

	OpAnd
	OpOr
	OpSuppressRCSE
	OpPopRCSE

	OpCreateClosure
	OpArity1P
	OpArity2P
	OpArity3P
	OpArity4P
	OpArityEqP
	OpArityGEP
	OpPackFrame
	OpLinkFrame
	OpUnlinkFrame
	OpAllocateFrame
	OpAllocateDottedFrame
	OpExtendFrame
	OpReuseFrame
	OpPopFrame
	OpStoreArgument
	OpListArgument
	OpPopListFrame

	OpPushValue
	OpPopFunction
	OpSrcExpr
	OpPreserveState
	OpFunctionInvoke
	OpFunctionGoto
	OpRestoreState
	OpRestoreAllState
	OpRestoreTrap

	OpPushDynamic
	OpPopDynamic
	OpDynamicSymRef
	OpDynamicFunctionSymRef

	OpPushEnviron
	OpPopEnviron
	OpEnvironSymRef

	OpPushTrap
	OpPopTrap
	OpPushEscaper
	OpPopEscaper
	OpEscaperLabelRef

	OpPushAbort
	OpPopAbort

	OpNot
	OpReturn
	OpNonContErr
	OpFinish
	OpNop
)

var opNames = map[Op]string{
	OpShallowArgumentRef:          "shallow-argument-ref",
	OpShallowArgumentRef0:         "shallow-argument-ref0",
	OpShallowArgumentRef1:         "shallow-argument-ref1",
	OpShallowArgumentRef2:         "shallow-argument-ref2",
	OpShallowArgumentRef3:         "shallow-argument-ref3",
	OpDeepArgumentRef:             "deep-argument-ref",
	OpShallowArgumentSet:          "shallow-argument-set",
	OpShallowArgumentSet0:         "shallow-argument-set0",
	OpShallowArgumentSet1:         "shallow-argument-set1",
	OpShallowArgumentSet2:         "shallow-argument-set2",
	OpShallowArgumentSet3:         "shallow-argument-set3",
	OpDeepArgumentSet:             "deep-argument-set",
	OpGlobalSymRef:                "global-sym-ref",
	OpCheckedGlobalSymRef:         "checked-global-sym-ref",
	OpGlobalFunctionSymRef:        "global-function-sym-ref",
	OpCheckedGlobalFunctionSymRef: "checked-global-function-sym-ref",
	OpConstantSymRef:              "constant-sym-ref",
	OpComputedSymRef:              "computed-sym-ref",
	OpGlobalSymDef:                "global-sym-def",
	OpGlobalSymSet:                "global-sym-set",
	OpComputedSymSet:              "computed-sym-set",
	OpComputedSymDef:              "computed-sym-def",
	OpPredefined:                  "predefined",
	OpConstant:                    "constant",
	OpConstant0:                   "constant-0",
	OpConstant1:                   "constant-1",
	OpConstant2:                   "constant-2",
	OpConstant3:                   "constant-3",
	OpConstant4:                   "constant-4",
	OpNegConstant:                 "neg-constant",
	OpFixnum:                      "fixnum",
	OpNegFixnum:                   "neg-fixnum",
	OpUnicode:                     "unicode",
	OpAlternative:                 "alternative",
	OpShortJumpFalse:              "short-jump-false",
	OpLongJumpFalse:               "long-jump-false",
	OpShortJumpTrue:               "short-jump-true",
	OpLongJumpTrue:                "long-jump-true",
	OpShortGoto:                   "short-goto",
	OpLongGoto:                    "long-goto",
	OpAnd:                         "and",
	OpOr:                          "or",
	OpSuppressRCSE:                "suppress-rcse",
	OpPopRCSE:                     "pop-rcse",
	OpCreateClosure:               "create-closure",
	OpArity1P:                     "arity1p",
	OpArity2P:                     "arity2p",
	OpArity3P:                     "arity3p",
	OpArity4P:                     "arity4p",
	OpArityEqP:                    "arityeqp",
	OpArityGEP:                    "arityGEp",
	OpPackFrame:                   "pack-frame",
	OpLinkFrame:                   "link-frame",
	OpUnlinkFrame:                 "unlink-frame",
	OpAllocateFrame:               "allocate-frame",
	OpAllocateDottedFrame:         "allocate-dotted-frame",
	OpExtendFrame:                 "extend-frame",
	OpReuseFrame:                  "reuse-frame",
	OpPopFrame:                    "pop-frame",
	OpStoreArgument:               "store-argument",
	OpListArgument:                "list-argument",
	OpPopListFrame:                "pop-list-frame",
	OpPushValue:                   "push-value",
	OpPopFunction:                 "pop-function",
	OpSrcExpr:                     "src-expr",
	OpPreserveState:               "preserve-state",
	OpFunctionInvoke:              "function-invoke",
	OpFunctionGoto:                "function-goto",
	OpRestoreState:                "restore-state",
	OpRestoreAllState:             "restore-all-state",
	OpRestoreTrap:                 "restore-trap",
	OpPushDynamic:                 "push-dynamic",
	OpPopDynamic:                  "pop-dynamic",
	OpDynamicSymRef:               "dynamic-sym-ref",
	OpDynamicFunctionSymRef:       "dynamic-function-sym-ref",
	OpPushEnviron:                 "push-environ",
	OpPopEnviron:                  "pop-environ",
	OpEnvironSymRef:               "environ-sym-ref",
	OpPushTrap:                    "push-trap",
	OpPopTrap:                     "pop-trap",
	OpPushEscaper:                 "push-escaper",
	OpPopEscaper:                  "pop-escaper",
	OpEscaperLabelRef:             "escaper-label-ref",
	OpPushAbort:                   "push-abort",
	OpPopAbort:                    "pop-abort",
	OpNot:                         "not",
	OpReturn:                      "return",
	OpNonContErr:                  "non-cont-err",
	OpFinish:                      "finish",
	OpNop:                         "nop",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "unknown-op"
}

// Kind enumerates the small set of dynamic/environ/computed binding flavors
// named in spec.md §4.3's operand-type validation bullet.
type Kind byte

const (
	KindPredef Kind = iota
	KindToplevel
	KindDynamic
	KindEnviron
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindPredef:
		return "predef"
	case KindToplevel:
		return "toplevel"
	case KindDynamic:
		return "dynamic"
	case KindEnviron:
		return "environ"
	case KindComputed:
		return "computed"
	default:
		return "unknown-kind"
	}
}
