// Package runtime owns the process-wide mutable state that spec.md §9
// recommends be threaded through an explicit value rather than scattered
// across package globals (the teacher repo's own vmCodeTable/vmCodeNames
// pattern is exactly what that note flags as needing a typed
// reimplementation). State bundles the constants table, symbol/keyword
// intern pools, the modules registry, the shared code array that codegen
// appends to, the features list, and the standard-handle singletons.
package runtime

import (
	"fmt"
	"sync"

	"github.com/jcorbin/idio/constants"
	"github.com/jcorbin/idio/handle"
	"github.com/jcorbin/idio/iabuf"
	"github.com/jcorbin/idio/internal/logio"
	"github.com/jcorbin/idio/value"
)

// State is the single mutable object that holds this process-wide state
// instead of package-level globals. Other packages do not take a *State;
// each takes only the piece it works on (codegen.New, for example, takes an
// *iabuf.Buffer and a *constants.Table).
type State struct {
	mu sync.Mutex

	Constants *constants.Table
	Code      *iabuf.Buffer

	symbols  map[string]value.Value // interned Symbol heap values, by name
	keywords map[string]value.Value // interned Keyword heap values, by name

	modules  map[string]value.Value // module name -> *value.Module
	features []string

	Stdin, Stdout, Stderr handle.Handle

	SearchPath []string // IDIOLIB
	Arch       string   // <ARCH> path segment for the extension loader

	log *logio.Logger

	markWidth int
}

// Option configures a State at construction, mirroring the teacher's
// functional-options api.go/options.go shape.
type Option func(*State)

// WithLog installs a logio.Logger as the logging sink; nil (the default)
// disables logging. logio.Logger is the same leveled-logging facility the
// teacher repo's own CLI front end wires up around stderr.
func WithLog(log *logio.Logger) Option {
	return func(s *State) { s.log = log }
}

// WithSearchPath sets IDIOLIB's parsed directory list.
func WithSearchPath(dirs []string) Option {
	return func(s *State) { s.SearchPath = dirs }
}

// WithArch sets the extension loader's <ARCH> path segment.
func WithArch(arch string) Option {
	return func(s *State) { s.Arch = arch }
}

// WithStdHandles installs the three standard handle singletons.
func WithStdHandles(in, out, err handle.Handle) Option {
	return func(s *State) { s.Stdin, s.Stdout, s.Stderr = in, out, err }
}

// New constructs a State with its constants table and code array freshly
// initialized.
func New(opts ...Option) *State {
	s := &State{
		Constants: constants.New(nil),
		Code:      iabuf.New(0),
		symbols:   make(map[string]value.Value),
		keywords:  make(map[string]value.Value),
		modules:   make(map[string]value.Value),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logf emits a log line through the installed logio.Logger, column-aligning
// the mark the way the teacher's core.go logging helper does, then
// delegating the actual formatting/output-stream bookkeeping (buffering,
// ExitCode() tracking, Wrap/Unwrap piping) to logio.Logger.Printf.
func (s *State) Logf(mark, mess string, args ...interface{}) {
	if s.log == nil {
		return
	}
	if n := s.markWidth - len(mark); n > 0 {
		pad := mark
		for len(pad) < n+len(mark) {
			pad = " " + pad
		}
		mark = pad
	} else if n < 0 {
		s.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	s.log.Printf("", "%v %v", mark, mess)
}

// Log returns the installed logio.Logger, or nil if none was configured.
func (s *State) Log() *logio.Logger { return s.log }

// Symbolicate interns name as a Symbol, returning the same heap value for
// repeated calls with an equal name (spec.md §3: symbols are interned).
func (s *State) Symbolicate(name string) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.symbols[name]; ok {
		return v
	}
	v := value.HeapValue(&value.Heap{V: &value.Symbol{Name: name}})
	s.symbols[name] = v
	return v
}

// Keywordicate interns name as a Keyword the same way Symbolicate does for
// symbols.
func (s *State) Keywordicate(name string) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.keywords[name]; ok {
		return v
	}
	v := value.HeapValue(&value.Heap{V: &value.Keyword{Name: name}})
	s.keywords[name] = v
	return v
}

// RegisterModule installs a named module, overwriting any prior entry
// (spec.md's module system proper is out of scope; this is the minimal
// registry the extension loader and codegen prologue need).
func (s *State) RegisterModule(name string, mod value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = mod
}

// Module looks up a previously registered module by name.
func (s *State) Module(name string) (value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.modules[name]
	return v, ok
}

// AddFeature appends a feature name to the *features* list read by
// cond-expand-style reader logic (external; this just tracks the list).
func (s *State) AddFeature(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.features {
		if f == name {
			return
		}
	}
	s.features = append(s.features, name)
}

// Features returns a snapshot of the installed feature names.
func (s *State) Features() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.features...)
}
