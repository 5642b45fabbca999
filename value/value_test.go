package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/idio/value"
)

func TestSingletonsAreIdentical(t *testing.T) {
	assert.Equal(t, value.Nil(), value.Nil())
	assert.Equal(t, value.True(), value.True())
	assert.Equal(t, value.False(), value.False())
	assert.NotEqual(t, value.True(), value.False())
	assert.NotEqual(t, value.Nil(), value.Void())
}

func TestFixnumRoundTrip(t *testing.T) {
	v := value.Fixnum(-7)
	n, ok := v.IsFixnum()
	assert.True(t, ok)
	assert.Equal(t, int64(-7), n)

	_, ok = value.Nil().IsFixnum()
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.True(t, value.Nil().Truthy(), "nil is truthy, only #f is false")
	assert.True(t, value.Fixnum(0).Truthy())
	assert.False(t, value.False().Truthy())
	assert.True(t, value.True().Truthy())
}

func TestHeapValueTypeName(t *testing.T) {
	h := &value.Heap{V: &value.Pair{Head: value.Fixnum(1), Tail: value.Nil()}}
	v := value.HeapValue(h)
	assert.Equal(t, "pair", v.TypeName())

	got, ok := v.IsHeap()
	assert.True(t, ok)
	assert.Same(t, h, got)
}

func TestPairRoots(t *testing.T) {
	p := &value.Pair{Head: value.Fixnum(1), Tail: value.Fixnum(2)}
	assert.Equal(t, []value.Value{value.Fixnum(1), value.Fixnum(2)}, p.Roots())
}

func TestBoolHelper(t *testing.T) {
	assert.Equal(t, value.True(), value.Bool(true))
	assert.Equal(t, value.False(), value.Bool(false))
}
