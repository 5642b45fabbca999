package cond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/cond"
	"github.com/jcorbin/idio/internal/panicerr"
	"github.com/jcorbin/idio/value"
)

func TestConditionErrorIncludesLocationWhenSet(t *testing.T) {
	c := cond.New(cond.IONoSuchFile, "no such file", value.Fixnum(1)).WithLocation("open-file")
	assert.Equal(t, "io-no-such-file-error: open-file: no such file", c.Error())
}

func TestConditionErrorOmitsLocationWhenUnset(t *testing.T) {
	c := cond.New(cond.ParameterType, "expected a string")
	assert.Equal(t, "parameter-type: expected a string", c.Error())
}

func TestWithDetailCopiesRatherThanMutates(t *testing.T) {
	base := cond.New(cond.CodingError, "bad shape")
	detailed := base.WithDetail("saw a pair where an atom was expected")
	assert.Empty(t, base.Detail)
	assert.NotEmpty(t, detailed.Detail)
}

func TestCodingfFormatsMessage(t *testing.T) {
	err := cond.Codingf("codegen: %v is not a leaf form", "alternative")
	assert.EqualError(t, err, "coding-error: codegen: alternative is not a leaf form")
}

func TestPanicfIsRecoveredAcrossGoroutineBoundary(t *testing.T) {
	err := panicerr.Recover("test", func() error {
		cond.Panicf("codegen: user code attempted to emit the internal finish opcode")
		return nil
	})
	require.Error(t, err)
	assert.True(t, panicerr.IsPanic(err))
	var pe cond.PanicErr
	assert.ErrorAs(t, unwrapPanic(err), &pe)
}

// unwrapPanic pulls the original panic value back out of panicerr's wrapper,
// the way an API boundary recovering a codegen.Emitter panic would.
func unwrapPanic(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return inner
		}
	}
	return err
}
