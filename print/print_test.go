package print_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/print"
	"github.com/jcorbin/idio/value"
	"github.com/jcorbin/idio/vtable"
)

func noVTables(value.Value) *vtable.VTable { return nil }

func TestPrintImmediates(t *testing.T) {
	p := print.New(noVTables)
	s, err := p.ToString(value.Fixnum(42))
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = p.ToString(value.True())
	require.NoError(t, err)
	assert.Equal(t, "#t", s)

	s, err = p.ToString(value.Nil())
	require.NoError(t, err)
	assert.Equal(t, "#n", s)
}

func TestPrintString(t *testing.T) {
	p := print.New(noVTables)
	v := value.HeapValue(&value.Heap{V: &value.String{Buf: []byte("hi")}})
	s, err := p.ToString(v)
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, s)

	d, err := p.ToDisplayString(v)
	require.NoError(t, err)
	assert.Equal(t, "hi", d)
}

func TestPrintPair(t *testing.T) {
	p := print.New(noVTables)
	v := value.HeapValue(&value.Heap{V: &value.Pair{
		Head: value.Fixnum(1),
		Tail: value.HeapValue(&value.Heap{V: &value.Pair{Head: value.Fixnum(2), Tail: value.Nil()}}),
	}})
	s, err := p.ToString(v)
	require.NoError(t, err)
	assert.Equal(t, "(1 2)", s)
}

func TestPrintCyclicPairDoesNotLoop(t *testing.T) {
	h := &value.Heap{}
	h.V = &value.Pair{Head: value.Fixnum(1), Tail: value.HeapValue(h)}

	p := print.New(noVTables)
	done := make(chan string, 1)
	go func() {
		s, _ := p.ToString(value.HeapValue(h))
		done <- s
	}()
	select {
	case s := <-done:
		assert.Contains(t, s, "#<^{pair@")
	case <-closedAfter():
		t.Fatal("printing a cyclic pair did not terminate")
	}
}

func closedAfter() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Second)
		close(ch)
	}()
	return ch
}

func TestUserInstalledPrinter(t *testing.T) {
	vt := vtable.New("widget", nil)
	vt.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) {
			return value.HeapValue(&value.Heap{V: &value.String{Buf: []byte("a widget")}}), nil
		},
	})
	p := print.New(func(value.Value) *vtable.VTable { return vt })
	v := value.HeapValue(&value.Heap{V: &value.StructInstance{}})
	s, err := p.ToString(v)
	require.NoError(t, err)
	assert.Equal(t, "a widget", s)
}

func TestPanickingPrinterMethodIsRecoveredAsError(t *testing.T) {
	vt := vtable.New("widget", nil)
	vt.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) {
			panic("boom")
		},
	})
	p := print.New(func(value.Value) *vtable.VTable { return vt })
	v := value.HeapValue(&value.Heap{V: &value.StructInstance{}})

	_, err := p.ToString(v)
	require.Error(t, err, "a panicking ->string method must surface as an error, not crash the caller")
	assert.Contains(t, err.Error(), "boom")
}

func TestPanickingPrinterMethodDuringDisplayFallbackIsRecovered(t *testing.T) {
	vt := vtable.New("widget", nil)
	vt.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) {
			panic("boom")
		},
	})
	p := print.New(func(value.Value) *vtable.VTable { return vt })
	v := value.HeapValue(&value.Heap{V: &value.StructInstance{}})

	_, err := p.ToDisplayString(v)
	require.Error(t, err, "a panicking ->string method reached via display fallback must also be recovered")
	assert.Contains(t, err.Error(), "boom")
}

func TestDisplayFallsBackToToStringAndCaches(t *testing.T) {
	vt := vtable.New("widget", nil)
	calls := 0
	vt.Install(vtable.MethodToString, vtable.Method{
		Fn: func(value.Value, []value.Value) (value.Value, error) {
			calls++
			return value.HeapValue(&value.Heap{V: &value.String{Buf: []byte("w")}}), nil
		},
	})
	p := print.New(func(value.Value) *vtable.VTable { return vt })
	v := value.HeapValue(&value.Heap{V: &value.StructInstance{}})

	d1, err := p.ToDisplayString(v)
	require.NoError(t, err)
	assert.Equal(t, "w", d1)

	_, ok := vt.Lookup(vtable.MethodToDisplayString)
	assert.True(t, ok, "a good fallback result should be cached as the display method")
}
