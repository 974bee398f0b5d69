package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsey(t *testing.T) {
	assert.True(t, NilValue.IsFalsey())
	assert.True(t, BoolValue(false).IsFalsey())
	assert.False(t, BoolValue(true).IsFalsey())
	assert.False(t, NumberValue(0).IsFalsey())
	assert.False(t, NumberValue(0.0).IsFalsey())
	assert.False(t, ObjectValue(NewString("")).IsFalsey())
}

func TestEqual_SameVariantAndPayload(t *testing.T) {
	assert.True(t, Equal(NilValue, NilValue))
	assert.True(t, Equal(BoolValue(true), BoolValue(true)))
	assert.False(t, Equal(BoolValue(true), BoolValue(false)))
	assert.True(t, Equal(NumberValue(3), NumberValue(3)))
	assert.False(t, Equal(NumberValue(3), NumberValue(4)))
	assert.False(t, Equal(NumberValue(3), NilValue))
}

func TestEqual_ObjectsByReferenceIdentity(t *testing.T) {
	a := ObjectValue(NewString("foo"))
	b := ObjectValue(NewString("foo")) // distinct allocation, same bytes
	assert.False(t, Equal(a, b), "uninterned strings with equal bytes are distinct references")

	same := a
	assert.True(t, Equal(a, same))
}

func TestString_RendersEachVariant(t *testing.T) {
	assert.Equal(t, "nil", NilValue.String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "false", BoolValue(false).String())
	assert.Equal(t, "3", NumberValue(3).String())
	assert.Equal(t, "3.5", NumberValue(3.5).String())
	assert.Equal(t, "hi", ObjectValue(NewString("hi")).String())
}

func TestFNV1a_MatchesSpecConstants(t *testing.T) {
	// Empty input reduces to the bare seed.
	assert.Equal(t, uint32(2166136261), FNV1a(""))
}

func TestAsBool_PanicsOnWrongVariant(t *testing.T) {
	assert.Panics(t, func() { NumberValue(1).AsBool() })
}
