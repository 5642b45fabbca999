// Package cond implements the two error channels of spec §7: recoverable
// Conditions surfaced through the (external) VM's trap mechanism, and
// unrecoverable coding errors / panics raised when an invariant of this core
// is violated. cond itself does not recover panics: package print wraps each
// user-installed printer method call in the teacher repo's goroutine-isolation
// helper (internal/panicerr), so a panic there comes back as an error exactly
// once instead of escaping past the traversal that invoked it (spec §7:
// "Inside a printer or equality traversal, user-visible errors propagate
// exactly once").
package cond

import (
	"fmt"

	"github.com/jcorbin/idio/value"
)

// Kind names one of the condition types enumerated in spec §7.
type Kind string

const (
	ParameterType         Kind = "parameter-type"
	ParameterValue        Kind = "parameter-value"
	SystemError           Kind = "system-error"
	IOReadError           Kind = "io-read-error"
	IOWriteError          Kind = "io-write-error"
	IOClosedError         Kind = "io-closed-error"
	IOFilenameError       Kind = "io-filename-error"
	IOMalformedFilename   Kind = "io-malformed-filename-error"
	IOFileProtection      Kind = "io-file-protection-error"
	IOFileAlreadyExists   Kind = "io-file-already-exists-error"
	IONoSuchFile          Kind = "io-no-such-file-error"
	RTLoadError           Kind = "rt-load-error"
	RTGlobError           Kind = "rt-glob-error"
	RTCommandError        Kind = "rt-command-error"
	RTCommandArgvType     Kind = "rt-command-argv-type-error"
	RTCommandEnvType      Kind = "rt-command-env-type-error"
	RTCommandFormatError  Kind = "rt-command-format-error"
	RTCommandExecError    Kind = "rt-command-exec-error"
	MethodUnbound         Kind = "method-unbound"
	FilenameModeError     Kind = "filename-mode-error"
	ModeFormatError       Kind = "mode-format-error"
	DynamicLoadError      Kind = "dynamic-load-error"
	AlreadyClosedError    Kind = "already-closed"
	CodingError           Kind = "coding-error"
)

// Condition is a recoverable error value: message, location, optional
// detail, and the offending value(s), per spec §7.
type Condition struct {
	K         Kind
	Message   string
	Location  string
	Detail    string
	Irritants []value.Value
}

func (c *Condition) Error() string {
	if c.Location != "" {
		return fmt.Sprintf("%s: %s: %s", c.K, c.Location, c.Message)
	}
	return fmt.Sprintf("%s: %s", c.K, c.Message)
}

// Is reports two Conditions equal by Kind, so a package-level Condition can
// serve as an errors.Is sentinel even after WithLocation/WithDetail copy it.
func (c *Condition) Is(target error) bool {
	oc, ok := target.(*Condition)
	if !ok {
		return false
	}
	return c.K == oc.K
}

// New constructs a Condition.
func New(k Kind, message string, irritants ...value.Value) *Condition {
	return &Condition{K: k, Message: message, Irritants: irritants}
}

// WithLocation returns a copy of c with Location set.
func (c *Condition) WithLocation(loc string) *Condition {
	c2 := *c
	c2.Location = loc
	return &c2
}

// WithDetail returns a copy of c with Detail set.
func (c *Condition) WithDetail(detail string) *Condition {
	c2 := *c
	c2.Detail = detail
	return &c2
}

// CodingErr is an unrecoverable coding-error: a violated invariant of an
// intermediate meaning (malformed shape, bad opcode arity, wrong operand
// type). It aborts the current computation but not the process.
type CodingErr struct {
	Message string
}

func (e CodingErr) Error() string { return fmt.Sprintf("coding-error: %s", e.Message) }

// Codingf constructs a CodingErr with a formatted message.
func Codingf(format string, args ...interface{}) CodingErr {
	return CodingErr{Message: fmt.Sprintf(format, args...)}
}

// PanicErr is an unrecoverable internal-invariant violation (a reserved
// opcode emitted by user code, a negative constants reference, an unexpected
// tag). Unlike CodingErr, a PanicErr is expected to abort the process --
// codegen.Emitter raises one through Panicf, and internal/panicerr can turn
// a raw panic value back into an error at a goroutine boundary.
type PanicErr struct {
	Message string
}

func (e PanicErr) Error() string { return fmt.Sprintf("panic: %s", e.Message) }

// Panicf panics with a PanicErr built from a formatted message.
func Panicf(format string, args ...interface{}) {
	panic(PanicErr{Message: fmt.Sprintf(format, args...)})
}
