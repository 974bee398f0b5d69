package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kristofer/clockwork/pkg/chunk"
)

func TestNewFunction_AnonymousScriptRendersAsScript(t *testing.T) {
	fn := NewFunction(nil, 0, chunk.New())
	assert.Equal(t, "<script>", fn.String())
}

func TestNewFunction_NamedRendersWithName(t *testing.T) {
	name := NewString("add")
	fn := NewFunction(name, 2, chunk.New())
	assert.Equal(t, "<fn add>", fn.String())
	assert.Equal(t, 2, fn.Arity)
}

func TestNewClosure_DelegatesStringToFunction(t *testing.T) {
	fn := NewFunction(NewString("f"), 0, chunk.New())
	cl := NewClosure(fn)
	assert.Equal(t, "<fn f>", cl.String())
	assert.True(t, cl.IsClosure())
}

func TestNewNative_RendersAsNativeFn(t *testing.T) {
	native := NewNative(func(args []Value) (Value, error) {
		return NumberValue(0), nil
	})
	assert.Equal(t, "<native fn>", native.String())
	assert.True(t, native.IsNative())
}

func TestObjectList_LinksInAllocationOrder(t *testing.T) {
	var head *Object
	alloc := func(o *Object) { o.SetNext(head); head = o }

	a := NewString("a")
	b := NewString("b")
	alloc(a)
	alloc(b)

	assert.Same(t, b, head)
	assert.Same(t, a, head.Next())
	assert.Nil(t, a.Next())
}

func TestAsString_PanicsOnNonStringObject(t *testing.T) {
	fn := ObjectValue(NewFunction(nil, 0, chunk.New()))
	assert.Panics(t, func() { fn.AsString() })
}

func TestAsString_ProjectsStringBytes(t *testing.T) {
	v := ObjectValue(NewString("hi"))
	assert.Equal(t, "hi", v.AsString())
	assert.True(t, v.ObjIsString())
}
