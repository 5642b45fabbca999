// Package vtable implements the per-type method table described in spec
// §4.4: typename/->string/->display-string/value-index/set-value-index!/
// members dispatch, with inheritance through a parent pointer and a
// generation counter that invalidates cached lookups.
package vtable

import (
	"github.com/jcorbin/idio/cond"
	"github.com/jcorbin/idio/value"
)

// MethodName is one of the standard dispatch method names.
type MethodName string

const (
	MethodTypeName             MethodName = "typename"
	MethodToString             MethodName = "->string"
	MethodToDisplayString      MethodName = "->display-string"
	MethodStructInstanceString MethodName = "struct-instance->string"
	MethodValueIndex           MethodName = "value-index"
	MethodSetValueIndex        MethodName = "set-value-index!"
	MethodMembers              MethodName = "members"
)

// Method carries a native Go implementation plus optional user data (a
// guest closure, a symbol, or a tuple) the way spec §4.4 describes.
type Method struct {
	Fn       func(recv value.Value, args []value.Value) (value.Value, error)
	UserData interface{}
}

// unboundCondition builds the *method-unbound* Condition raised when a
// mandatory method lookup misses on every ancestor (spec §4.4/§7).
func unboundCondition(typeName string, method MethodName) *cond.Condition {
	return cond.New(cond.MethodUnbound, typeName+" has no "+string(method)+" method").
		WithDetail(string(method)).
		WithLocation(typeName)
}

// VTable is a per-type method table. Each type has exactly one VTable,
// shared by every Heap value of that type.
type VTable struct {
	Name   string
	Parent *VTable

	methods map[MethodName]Method
	// inherited caches entries resolved from an ancestor, invalidated
	// whenever Parent's generation (or this table's own) changes.
	inherited     map[MethodName]inheritedEntry
	generation    uint64
	parentGenSeen uint64
}

type inheritedEntry struct {
	method Method
	found  bool
}

// New creates a fresh, empty VTable for a type named name, optionally
// inheriting from parent.
func New(name string, parent *VTable) *VTable {
	return &VTable{Name: name, Parent: parent}
}

// TypeName implements value.VTableRef.
func (vt *VTable) TypeName() string { return vt.Name }

// Generation returns the table's current generation counter.
func (vt *VTable) Generation() uint64 { return vt.generation }

// Install writes (or overwrites) a method directly into vt's local table,
// bumping the generation counter so that any cached inherited lookups in
// descendant tables are invalidated.
func (vt *VTable) Install(name MethodName, m Method) {
	if vt.methods == nil {
		vt.methods = make(map[MethodName]Method)
	}
	vt.methods[name] = m
	vt.generation++
}

// Lookup resolves name on vt, walking to ancestors on a local miss and
// caching the result as an inherited entry. ok is false if no ancestor
// defines the method.
func (vt *VTable) Lookup(name MethodName) (m Method, ok bool) {
	if vt == nil {
		return Method{}, false
	}
	if m, ok := vt.methods[name]; ok {
		return m, true
	}

	vt.invalidateIfStale()
	if vt.inherited != nil {
		if entry, cached := vt.inherited[name]; cached {
			return entry.method, entry.found
		}
	}

	m, ok = vt.Parent.Lookup(name)
	if vt.inherited == nil {
		vt.inherited = make(map[MethodName]inheritedEntry)
	}
	vt.inherited[name] = inheritedEntry{m, ok}
	if vt.Parent != nil {
		vt.parentGenSeen = vt.Parent.effectiveGeneration()
	}
	return m, ok
}

// effectiveGeneration is this table's generation folded with its ancestry,
// so that a change anywhere up the chain invalidates caches below it.
func (vt *VTable) effectiveGeneration() uint64 {
	if vt == nil {
		return 0
	}
	g := vt.generation
	if vt.Parent != nil {
		g += vt.Parent.effectiveGeneration()
	}
	return g
}

func (vt *VTable) invalidateIfStale() {
	if vt.Parent == nil {
		return
	}
	if vt.Parent.effectiveGeneration() != vt.parentGenSeen {
		vt.inherited = nil
	}
}

// MustLookup resolves a mandatory method, returning a *method-unbound*
// Condition if absent anywhere in the ancestry (spec §4.4).
func (vt *VTable) MustLookup(name MethodName) (Method, error) {
	m, ok := vt.Lookup(name)
	if !ok {
		return Method{}, unboundCondition(vt.Name, name)
	}
	return m, nil
}

// TypeNameOf dispatches the `typename` method, defaulting to the vtable's
// own Name if no method was ever installed (the common case: native types
// need no explicit typename method since the table already carries it).
func TypeNameOf(vt *VTable) value.Value {
	if m, ok := vt.Lookup(MethodTypeName); ok {
		if v, err := m.Fn(value.Value{}, nil); err == nil {
			return v
		}
	}
	sym := &value.Symbol{Name: vt.Name}
	return value.HeapValue(&value.Heap{V: sym})
}

// AddAsString installs a user ->string printer for vt. Per spec §4.4, the
// printer must return a string Value; callers are expected to validate that
// and raise *parameter-value-error* otherwise -- that validation lives in
// the print package since only it knows how to call the printer closure.
func (vt *VTable) AddAsString(printer Method) {
	vt.Install(MethodToString, printer)
}

// Members dispatches the `members` method, returning (nil, false) if
// unbound -- not every type carries field names.
func (vt *VTable) Members(recv value.Value) ([]value.Value, bool) {
	m, ok := vt.Lookup(MethodMembers)
	if !ok {
		return nil, false
	}
	result, err := m.Fn(recv, nil)
	if err != nil {
		return nil, false
	}
	// members returns a list; flatten a *value.Pair chain into a slice.
	var out []value.Value
	cur := result
	for {
		h, ok := cur.IsHeap()
		if !ok {
			break
		}
		p, ok := h.V.(*value.Pair)
		if !ok {
			break
		}
		out = append(out, p.Head)
		cur = p.Tail
	}
	return out, true
}
