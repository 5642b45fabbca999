package vtable_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/cond"
	"github.com/jcorbin/idio/value"
	"github.com/jcorbin/idio/vtable"
)

func strVal(s string) value.Value {
	return value.HeapValue(&value.Heap{V: &value.String{Buf: []byte(s), Length: len(s)}})
}

func TestLocalMethodWins(t *testing.T) {
	parent := vtable.New("number", nil)
	parent.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) { return strVal("a number"), nil },
	})

	child := vtable.New("fixnum", parent)
	child.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) { return strVal("a fixnum"), nil },
	})

	m, ok := child.Lookup(vtable.MethodToString)
	require.True(t, ok)
	v, err := m.Fn(value.Value{}, nil)
	require.NoError(t, err)
	h, ok := v.IsHeap()
	require.True(t, ok)
	assert.Equal(t, "a fixnum", string(h.V.(*value.String).Buf))
}

func TestInheritedLookup(t *testing.T) {
	parent := vtable.New("number", nil)
	parent.Install(vtable.MethodMembers, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) { return value.Nil(), nil },
	})
	child := vtable.New("fixnum", parent)

	_, ok := child.Lookup(vtable.MethodMembers)
	assert.True(t, ok, "child should inherit parent's method")
}

func TestMissingMandatoryMethod(t *testing.T) {
	vt := vtable.New("opaque", nil)
	_, err := vt.MustLookup(vtable.MethodToString)
	require.Error(t, err)
	var c *cond.Condition
	require.True(t, errors.As(err, &c))
	assert.Equal(t, cond.MethodUnbound, c.K)
	assert.Equal(t, "opaque", c.Location)
}

func TestGenerationInvalidatesInheritedCache(t *testing.T) {
	parent := vtable.New("number", nil)
	child := vtable.New("fixnum", parent)

	_, ok := child.Lookup(vtable.MethodToString)
	assert.False(t, ok, "nothing installed yet")

	parent.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) { return strVal("late"), nil },
	})

	m, ok := child.Lookup(vtable.MethodToString)
	require.True(t, ok, "installing on parent after a failed lookup must invalidate the cached miss")
	v, err := m.Fn(value.Value{}, nil)
	require.NoError(t, err)
	s, isStr := v.IsHeap()
	require.True(t, isStr)
	assert.Equal(t, "late", string(s.V.(*value.String).Buf))
}
