package constants_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/constants"
	"github.com/jcorbin/idio/value"
)

func TestNilAtIndexZero(t *testing.T) {
	tab := constants.New(nil)
	v, ok := tab.At(0)
	require.True(t, ok)
	assert.True(t, v.IsNil())
}

func TestExtendThenLookup(t *testing.T) {
	tab := constants.New(nil)
	idx := tab.Extend(value.Fixnum(7))
	assert.Equal(t, tab.Len()-1, idx)

	got, ok := tab.Lookup(value.Fixnum(7))
	require.True(t, ok)
	assert.Equal(t, idx, got)
}

func TestLookupOrExtendIdempotentForNonPairs(t *testing.T) {
	tab := constants.New(nil)
	i1 := tab.LookupOrExtend(value.Fixnum(99))
	i2 := tab.LookupOrExtend(value.Fixnum(99))
	assert.Equal(t, i1, i2)
	assert.Equal(t, 2, tab.Len(), "a second lookup-or-extend of the same value must not grow the table")
}

func TestPairsScanFallbackStillStable(t *testing.T) {
	tab := constants.New(nil)
	mkPair := func() value.Value {
		return value.HeapValue(&value.Heap{V: &value.Pair{Head: value.Fixnum(1), Tail: value.Fixnum(2)}})
	}
	i1 := tab.LookupOrExtend(mkPair())
	i2 := tab.LookupOrExtend(mkPair()) // distinct allocation, structurally equal
	assert.Equal(t, i1, i2, "structurally-equal pairs should resolve to the same stable index via the scan fallback")
}

func TestLookupMissing(t *testing.T) {
	tab := constants.New(nil)
	_, ok := tab.Lookup(value.Fixnum(123))
	assert.False(t, ok)
}

func TestExtendUnconditional(t *testing.T) {
	tab := constants.New(nil)
	i1 := tab.Extend(value.Fixnum(5))
	i2 := tab.Extend(value.Fixnum(5))
	assert.NotEqual(t, i1, i2, "Extend must always intern a fresh entry, even for a duplicate value")
}

func TestTableSnapshotDiff(t *testing.T) {
	a := constants.New(nil)
	a.Extend(value.Fixnum(1))
	b := constants.New(nil)
	b.Extend(value.Fixnum(2))

	av, _ := a.At(1)
	bv, _ := b.At(1)
	an, _ := av.IsFixnum()
	bn, _ := bv.IsFixnum()
	if diff := cmp.Diff(an, bn); diff == "" {
		t.Fatal("expected a difference between the two tables' interned fixnums")
	}
}
