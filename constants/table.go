// Package constants implements the constants table (spec §3, §4.3, §8): the
// (array, hash) pair interning every quoted datum, symbol, signature tuple
// and source-location record referenced by compiled code. nil occupies
// index 0 by convention.
package constants

import (
	"github.com/jcorbin/idio/equal"
	"github.com/jcorbin/idio/value"
)

// Table is the shared constants table. The zero Table is not ready to use;
// call New.
type Table struct {
	array []value.Value
	// hash maps a structural fingerprint to candidate indices; pairs are
	// excluded from the fingerprint hash (spec §4.3: "key's own hash is
	// structural-only (pairs), in which case the array is scanned with
	// value equality") and always fall through to the linear scan.
	hash   map[fingerprint][]int
	numEq  equal.NumEq
}

// New constructs a Table with nil pre-interned at index 0, per spec §3.
func New(numEq equal.NumEq) *Table {
	t := &Table{numEq: numEq, hash: make(map[fingerprint][]int)}
	t.array = append(t.array, value.Nil())
	return t
}

// Len returns the number of interned entries.
func (t *Table) Len() int { return len(t.array) }

// At returns the value previously interned at idx.
func (t *Table) At(idx int) (value.Value, bool) {
	if idx < 0 || idx >= len(t.array) {
		return value.Value{}, false
	}
	return t.array[idx], true
}

// fingerprint is a coarse structural key used to bucket candidates for the
// hash-based fast path; it is not itself a proof of equality, only a
// pre-filter -- Lookup still calls equal.Equal to confirm.
type fingerprint struct {
	kind value.Kind
	i    int64
}

func fingerprintOf(v value.Value) (fingerprint, bool) {
	if h, ok := v.IsHeap(); ok {
		if _, isPair := h.V.(*value.Pair); isPair {
			return fingerprint{}, false // pairs: always scan
		}
		return fingerprint{kind: value.KindHeap, i: int64(len(h.V.TypeName()))}, true
	}
	return fingerprint{kind: v.Kind()}, true
}

// Lookup returns the index previously assigned to v by Extend, or false if
// v is not present.
func (t *Table) Lookup(v value.Value) (int, bool) {
	fp, hashable := fingerprintOf(v)
	if hashable {
		for _, idx := range t.hash[fp] {
			if equal.Equal(t.array[idx], v, t.numEq) {
				return idx, true
			}
		}
		return 0, false
	}
	for idx, candidate := range t.array {
		if equal.Equal(candidate, v, t.numEq) {
			return idx, true
		}
	}
	return 0, false
}

// Extend appends v unconditionally, returning its new index. Used for call-
// source expressions, which spec §4.3 says are "extended unconditionally"
// even when textually identical.
func (t *Table) Extend(v value.Value) int {
	idx := len(t.array)
	t.array = append(t.array, v)
	if fp, hashable := fingerprintOf(v); hashable {
		t.hash[fp] = append(t.hash[fp], idx)
	}
	return idx
}

// LookupOrExtend returns v's existing index if present, else interns and
// returns a fresh one. Idempotent for every v that is not a pair; pairs are
// compared by the linear scan fallback, which is also stable (a second call
// with a structurally-equal but distinct pair still finds the first one, so
// long as equal.Equal treats them as equal -- which it does).
func (t *Table) LookupOrExtend(v value.Value) int {
	if idx, ok := t.Lookup(v); ok {
		return idx
	}
	return t.Extend(v)
}
