package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(InvalidConfig, "bad population size")
	assert.EqualError(t, err, "bad population size")

	var coded *Error
	assert.True(t, stderrors.As(err, &coded))
	assert.Equal(t, InvalidConfig, coded.Code())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, EvaluationFailed, "no-op"))

	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, LLMGenerationFailed, "reflection call failed")
	assert.EqualError(t, err, "reflection call failed: connection reset")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(EvaluationFailed, "candidate scoring failed"), Fields{"candidate": "abc"})

	var coded *Error
	assert.True(t, stderrors.As(err, &coded))
	assert.Equal(t, EvaluationFailed, coded.Code())
	assert.Equal(t, "abc", coded.Fields()["candidate"])
	assert.Contains(t, err.Error(), "candidate=abc")
}

func TestWithFieldsOnForeignError(t *testing.T) {
	err := WithFields(fmt.Errorf("plain"), Fields{"k": 1})

	var coded *Error
	assert.True(t, stderrors.As(err, &coded))
	assert.Equal(t, Unknown, coded.Code())
}

func TestIsMatchesOnCode(t *testing.T) {
	err := New(ReflectionFailed, "one")
	assert.True(t, stderrors.Is(err, New(ReflectionFailed, "other")))
	assert.False(t, stderrors.Is(err, New(EngineFailure, "other")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, InvalidConfig, CodeOf(New(InvalidConfig, "x")))
	assert.Equal(t, Unknown, CodeOf(fmt.Errorf("plain")))
}

func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, CheckContext(ctx, "evaluation"))

	cancel()
	err := CheckContext(ctx, "evaluation")
	assert.Error(t, err)
	assert.Equal(t, Canceled, CodeOf(err))
}
