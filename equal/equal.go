// Package equal implements the three nested equality relations described in
// spec §4.5: eq? (identity), eqv? (structural on atomic types), and equal?
// (full recursive structural equality), each built strictly atop the
// weaker ones below it.
package equal

import (
	"math"

	"github.com/jcorbin/idio/value"
)

// NumEq is supplied by the (out-of-scope) numeric tower to compare a fixnum
// against a bignum, or two bignums, by value. Package equal never implements
// numeric comparison itself -- spec §4.5 explicitly defers fixnum<->bignum
// comparison to "the numeric `=` operator from the external numeric module."
type NumEq func(a, b value.Value) bool

// Seen tracks values currently being compared, so that cyclic guest graphs
// (circular pairs, mutually referential modules) terminate: re-entry for a
// pair already in progress is treated as equal, per spec §9.
type Seen struct {
	stack []seenPair
}

type seenPair struct{ a, b *value.Heap }

func (s *Seen) push(a, b *value.Heap) (wasSeen bool) {
	for _, p := range s.stack {
		if p.a == a && p.b == b {
			return true
		}
	}
	s.stack = append(s.stack, seenPair{a, b})
	return false
}

func (s *Seen) pop() { s.stack = s.stack[:len(s.stack)-1] }

// Eq implements eq?: identity for heap pointers, word equality (Go ==) for
// immediates.
func Eq(a, b value.Value) bool {
	ha, aIsHeap := a.IsHeap()
	hb, bIsHeap := b.IsHeap()
	if aIsHeap || bIsHeap {
		return aIsHeap && bIsHeap && ha == hb
	}
	return a == b
}

// Eqv implements eqv?: eq? plus structural comparison of atomic types
// (strings/substrings by content+role, numbers including cross-type
// fixnum<->bignum via numEq, C scalars, bitsets, and handles by shared
// underlying stream).
func Eqv(a, b value.Value, numEq NumEq) bool {
	if Eq(a, b) {
		return true
	}

	if an, aFix := a.IsFixnum(); aFix {
		if bn, bFix := b.IsFixnum(); bFix {
			return an == bn
		}
		if numEq != nil {
			if hb, ok := b.IsHeap(); ok {
				if _, isBig := hb.V.(*value.Bignum); isBig {
					return numEq(a, b)
				}
			}
		}
		return false
	}

	ha, aIsHeap := a.IsHeap()
	hb, bIsHeap := b.IsHeap()
	if !aIsHeap || !bIsHeap {
		return false
	}

	if _, aBig := ha.V.(*value.Bignum); aBig {
		if _, bBig := hb.V.(*value.Bignum); bBig && numEq != nil {
			return numEq(a, b)
		}
		if _, bFix := b.IsFixnum(); bFix && numEq != nil {
			return numEq(a, b)
		}
	}

	as, aIsStr := flatString(ha.V)
	bs, bIsStr := flatString(hb.V)
	if aIsStr && bIsStr {
		return stringRolesCompatible(ha.V, hb.V) && string(as) == string(bs)
	}

	if ac, aCScalar := ha.V.(*value.CScalar); aCScalar {
		bc, bCScalar := hb.V.(*value.CScalar)
		if !bCScalar || ac.Kind != bc.Kind {
			return false
		}
		if ac.Kind == value.CLongDouble {
			// spec §4.5: long double equality is explicitly unsupported.
			return false
		}
		if ac.Kind == value.CFloat || ac.Kind == value.CDouble {
			return ac.Float == bc.Float
		}
		return ac.Bits == bc.Bits
	}

	if ab, aBitset := ha.V.(*value.Bitset); aBitset {
		bb, bBitset := hb.V.(*value.Bitset)
		return bBitset && ab.Length == bb.Length && sameWords(ab.Words, bb.Words)
	}

	if ah, aHandle := ha.V.(HandleStream); aHandle {
		if bh, bHandle := hb.V.(HandleStream); bHandle {
			return ah.Stream() == bh.Stream()
		}
	}

	return false
}

// HandleStream is implemented by package handle's concrete Handle variants
// to expose the underlying stream identity eqv? compares by.
type HandleStream interface {
	Stream() interface{}
}

func sameWords(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func flatString(v value.Variant) ([]byte, bool) {
	switch s := v.(type) {
	case *value.String:
		return s.Buf, true
	case *value.Substring:
		parent, ok := s.Parent.IsHeap()
		if !ok {
			return nil, false
		}
		ps, ok := parent.V.(*value.String)
		if !ok {
			return nil, false
		}
		end := s.Offset + s.Length
		if end > len(ps.Buf) {
			end = len(ps.Buf)
		}
		if s.Offset > end {
			return nil, false
		}
		return ps.Buf[s.Offset:end], true
	default:
		return nil, false
	}
}

func roleOf(v value.Variant) value.StringRole {
	switch s := v.(type) {
	case *value.String:
		return s.Role
	case *value.Substring:
		if parent, ok := s.Parent.IsHeap(); ok {
			if ps, ok := parent.V.(*value.String); ok {
				return ps.Role
			}
		}
	}
	return value.RoleOrdinary
}

func stringRolesCompatible(a, b value.Variant) bool {
	return roleOf(a) == roleOf(b)
}

// Equal implements equal?: full recursive structural equality.
func Equal(a, b value.Value, numEq NumEq) bool {
	return equalSeen(a, b, numEq, &Seen{})
}

func equalSeen(a, b value.Value, numEq NumEq, seen *Seen) bool {
	if Eqv(a, b, numEq) {
		return true
	}

	ha, aIsHeap := a.IsHeap()
	hb, bIsHeap := b.IsHeap()
	if !aIsHeap || !bIsHeap {
		return false
	}

	if wasSeen := seen.push(ha, hb); wasSeen {
		return true
	}
	defer seen.pop()

	switch av := ha.V.(type) {
	case *value.Pair:
		bv, ok := hb.V.(*value.Pair)
		if !ok {
			return false
		}
		return equalSeen(av.Head, bv.Head, numEq, seen) && equalSeen(av.Tail, bv.Tail, numEq, seen)

	case *value.Array:
		bv, ok := hb.V.(*value.Array)
		if !ok || av.Used != bv.Used {
			return false
		}
		for i := 0; i < av.Used; i++ {
			if !equalSeen(av.Data[i], bv.Data[i], numEq, seen) {
				return false
			}
		}
		return true

	case *value.Hash:
		bv, ok := hb.V.(*value.Hash)
		if !ok || av.Count != bv.Count {
			return false
		}
		return hashesEqual(av, bv, numEq, seen)

	case *value.StructInstance:
		bv, ok := hb.V.(*value.StructInstance)
		if !ok || !equalSeen(av.Type, bv.Type, numEq, seen) || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if !equalSeen(av.Fields[i], bv.Fields[i], numEq, seen) {
				return false
			}
		}
		return true

	case *value.Bignum:
		bv, ok := hb.V.(*value.Bignum)
		if !ok {
			return false
		}
		if numEq != nil {
			return numEq(a, b)
		}
		return av.Sign == bv.Sign && av.Exponent == bv.Exponent && sameDigits(av.Digits, bv.Digits)

	default:
		return false
	}
}

func sameDigits(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hashesEqual requires, per spec §4.5, that every key from each side exists
// in the other with an equal-comparing value. The key set is materialized
// to a slice up front (mirroring the "GC-protected during traversal"
// requirement -- holding a live Go slice keeps every key/value reachable
// for the duration of the traversal, which is the Go equivalent of pinning
// them as GC roots).
func hashesEqual(a, b *value.Hash, numEq NumEq, seen *Seen) bool {
	type kv struct{ k, v value.Value }
	var akeys []kv
	for _, bucket := range a.Buckets {
		for e := bucket; e != nil; e = e.Next {
			akeys = append(akeys, kv{e.Key, e.Val})
		}
	}
	for _, pair := range akeys {
		bv, found := hashLookup(b, pair.k, numEq)
		if !found || !equalSeen(pair.v, bv, numEq, seen) {
			return false
		}
	}
	return true
}

func hashLookup(h *value.Hash, key value.Value, numEq NumEq) (value.Value, bool) {
	for _, bucket := range h.Buckets {
		for e := bucket; e != nil; e = e.Next {
			if Equal(e.Key, key, numEq) {
				return e.Val, true
			}
		}
	}
	return value.Value{}, false
}

// FloatEqual is a small helper for the numeric tower's fixnum<->bignum
// comparator implementations: IEEE-754 aware equality that treats NaN as
// never equal to itself, matching ordinary float semantics.
func FloatEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a == b
}
