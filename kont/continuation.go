// Package kont implements continuation capture per spec §4.7: a snapshot of
// the external VM's thread state, taken in one of two variants (full for
// call/cc, delimited for call/dc). Invoking a captured continuation is the
// external VM's responsibility; this package only captures and stores.
package kont

import "github.com/jcorbin/idio/value"

// HoleEntry is one entry of the thread's hole list -- a placeholder for a
// not-yet-filled tail position, captured so continuation replay can restore
// the exact pending-completion state it was captured in.
type HoleEntry struct {
	Kind  string
	Value value.Value
}

// Clone returns an independent copy of h (spec §4.7: "a deep copy of the
// hole list").
func (h HoleEntry) Clone() HoleEntry { return h }

// HandleTriple optionally snapshots the thread's current input/output/error
// handles at capture time (spec §4.7: "(optionally) the current input/
// output/error handles").
type HandleTriple struct {
	Input, Output, Error value.Value
}

// ThreadState is the minimal view of the external VM's thread that capture
// needs; the VM satisfies this by construction, passing itself (or a facade)
// in to Capture/CaptureDelimited.
type ThreadState struct {
	PC             int64
	ExtensionIndex int
	Stack          []value.Value // full operand stack, top last
	StackMark      int           // index of the delimited boundary
	Frame          value.Value   // *value.Frame
	Env            value.Value   // *value.Module
	Handles        *HandleTriple // nil if the capturer chose not to snapshot handles
	Holes          []HoleEntry
}

// Variant distinguishes a full (undelimited) continuation from a delimited
// one, per spec §4.7.
type Variant int

const (
	Full Variant = iota
	Delimited
)

// JumpTarget stands in for the opaque jmp-buf spec §4.7 describes; the
// external VM supplies the actual non-local-exit mechanism. This package
// never invokes it -- Continuation only carries it for the VM to use later.
type JumpTarget func()

// Continuation is the captured snapshot. Stack is a shallow copy for Full,
// and nil (StackMark is authoritative instead) for Delimited.
type Continuation struct {
	Variant        Variant
	PC             int64
	ExtensionIndex int
	Stack          []value.Value
	StackMark      int
	Frame          value.Value
	Env            value.Value
	Jump           JumpTarget
	Handles        *HandleTriple
	Holes          []HoleEntry
}

// TypeName satisfies value.Variant so a Continuation can be boxed into a
// *value.Heap like any other heap-allocated Idio value.
func (c *Continuation) TypeName() string { return "continuation" }

// Roots reports the live value.Value references a GC must trace through a
// Continuation: the frame, the environment, every stacked value (Full
// only), and every hole entry's payload.
func (c *Continuation) Roots() []value.Value {
	roots := make([]value.Value, 0, len(c.Stack)+len(c.Holes)+4)
	roots = append(roots, c.Frame, c.Env)
	if c.Handles != nil {
		roots = append(roots, c.Handles.Input, c.Handles.Output, c.Handles.Error)
	}
	roots = append(roots, c.Stack...)
	for _, h := range c.Holes {
		roots = append(roots, h.Value)
	}
	return roots
}

// Capture takes a full continuation: PC, extension index, a shallow stack
// copy, frame, environment, a deep hole-list copy, and (if th.Handles is
// non-nil) the current handle triple.
func Capture(th *ThreadState, jump JumpTarget) *Continuation {
	return capture(th, jump, Full)
}

// CaptureDelimited takes a delimited continuation: the stack is represented
// by th.StackMark (a fixnum stack-top index) rather than copied.
func CaptureDelimited(th *ThreadState, jump JumpTarget) *Continuation {
	return capture(th, jump, Delimited)
}

func capture(th *ThreadState, jump JumpTarget, variant Variant) *Continuation {
	c := &Continuation{
		Variant:        variant,
		PC:             th.PC,
		ExtensionIndex: th.ExtensionIndex,
		Frame:          th.Frame,
		Env:            th.Env,
		Jump:           jump,
		StackMark:      th.StackMark,
	}

	if variant == Full {
		c.Stack = append([]value.Value(nil), th.Stack...)
	}

	if th.Handles != nil {
		ht := *th.Handles
		c.Handles = &ht
	}

	if len(th.Holes) > 0 {
		c.Holes = make([]HoleEntry, len(th.Holes))
		for i, h := range th.Holes {
			c.Holes[i] = h.Clone()
		}
	}

	return c
}

// IsFull and IsDelimited report the continuation's captured variant.
func (c *Continuation) IsFull() bool      { return c.Variant == Full }
func (c *Continuation) IsDelimited() bool { return c.Variant == Delimited }
