package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/clockwork/pkg/chunk"
	"github.com/kristofer/clockwork/pkg/value"
)

func newObjects() Objects {
	var head *value.Object
	return Objects{
		Alloc:   func(o *value.Object) { o.SetNext(head); head = o },
		Strings: value.NewStrings(),
	}
}

func compileOK(t *testing.T, src string) *value.Object {
	t.Helper()
	fn, errs := Compile(src, newObjects())
	require.Nil(t, errs, "unexpected compile errors: %v", errs)
	require.NotNil(t, fn)
	return fn
}

func TestCompile_NumberLiteralEmitsConstant(t *testing.T) {
	fn := compileOK(t, "1 + 2;")
	code := fn.Chunk.Code

	require.GreaterOrEqual(t, len(code), 5)
	assert.Equal(t, chunk.OpConstant, chunk.Op(code[0]))
	assert.Equal(t, chunk.OpConstant, chunk.Op(code[2]))
	assert.Equal(t, chunk.OpAdd, chunk.Op(code[4]))
	assert.Equal(t, value.NumberValue(1), fn.Chunk.Constants[0])
	assert.Equal(t, value.NumberValue(2), fn.Chunk.Constants[1])
}

func TestCompile_PrintStatement(t *testing.T) {
	fn := compileOK(t, `print 1 + 2 * 3;`)
	code := fn.Chunk.Code
	// CONSTANT 1, CONSTANT 2, CONSTANT 3, MULTIPLY, ADD, PRINT, (NIL, RETURN trailer)
	ops := opsOf(code)
	assert.Equal(t, []chunk.Op{
		chunk.OpConstant, chunk.OpConstant, chunk.OpConstant,
		chunk.OpMultiply, chunk.OpAdd, chunk.OpPrint,
		chunk.OpNil, chunk.OpReturn,
	}, ops)
}

func opsOf(code []byte) []chunk.Op {
	var ops []chunk.Op
	for i := 0; i < len(code); {
		op := chunk.Op(code[i])
		ops = append(ops, op)
		switch op {
		case chunk.OpConstant, chunk.OpGetLocal, chunk.OpSetLocal,
			chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal,
			chunk.OpCall, chunk.OpClosure:
			i += 2
		case chunk.OpJump, chunk.OpJumpIfFalse, chunk.OpLoop:
			i += 3
		default:
			i++
		}
	}
	return ops
}

func TestCompile_StringLiteralStripsQuotesAndInterns(t *testing.T) {
	fn := compileOK(t, `"hello";`)
	require.Len(t, fn.Chunk.Constants, 1)
	v := fn.Chunk.Constants[0].(value.Value)
	assert.Equal(t, "hello", v.AsString())
}

func TestCompile_GlobalVarDeclarationAndRead(t *testing.T) {
	fn := compileOK(t, `var a = 1; print a;`)
	ops := opsOf(fn.Chunk.Code)
	assert.Equal(t, []chunk.Op{
		chunk.OpConstant, chunk.OpDefineGlobal,
		chunk.OpGetGlobal, chunk.OpPrint,
		chunk.OpNil, chunk.OpReturn,
	}, ops)
}

func TestCompile_LocalVarUsesSlotOpsNotGlobalOps(t *testing.T) {
	fn := compileOK(t, `{ var a = 1; print a; }`)
	ops := opsOf(fn.Chunk.Code)
	assert.Contains(t, ops, chunk.OpGetLocal)
	assert.NotContains(t, ops, chunk.OpGetGlobal)
	assert.NotContains(t, ops, chunk.OpDefineGlobal)
}

func TestCompile_IfElseEmitsJumps(t *testing.T) {
	fn := compileOK(t, `if (true) { print 1; } else { print 2; }`)
	ops := opsOf(fn.Chunk.Code)
	assert.Contains(t, ops, chunk.OpJumpIfFalse)
	assert.Contains(t, ops, chunk.OpJump)
}

func TestCompile_WhileEmitsLoop(t *testing.T) {
	fn := compileOK(t, `while (false) { print 1; }`)
	ops := opsOf(fn.Chunk.Code)
	assert.Contains(t, ops, chunk.OpLoop)
	assert.Contains(t, ops, chunk.OpJumpIfFalse)
}

func TestCompile_FunctionDeclarationEmitsClosure(t *testing.T) {
	fn := compileOK(t, `fun add(a, b) { return a + b; } print add(1, 2);`)
	ops := opsOf(fn.Chunk.Code)
	assert.Contains(t, ops, chunk.OpClosure)
	assert.Contains(t, ops, chunk.OpCall)

	var inner *value.Object
	for _, c := range fn.Chunk.Constants {
		if v, ok := c.(value.Value); ok && v.IsObject() && v.AsObject().IsFunction() {
			inner = v.AsObject()
		}
	}
	require.NotNil(t, inner)
	assert.Equal(t, 2, inner.Arity)
}

func TestCompile_ReturnAtTopLevelIsError(t *testing.T) {
	_, errs := Compile(`return 1;`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Cannot return from top-level code.")
}

func TestCompile_SelfReferenceInInitializerIsError(t *testing.T) {
	_, errs := Compile(`{ var a = a; }`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "own initializer")
}

func TestCompile_RedeclarationInSameScopeIsError(t *testing.T) {
	_, errs := Compile(`{ var a = 1; var a = 2; }`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "already declared in this scope")
}

func TestCompile_InvalidAssignmentTarget(t *testing.T) {
	_, errs := Compile(`1 + 2 = 3;`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Invalid assignment target")
}

func TestCompile_ClassDeclarationReservedAsError(t *testing.T) {
	_, errs := Compile(`class Foo {}`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "class declarations not supported")
}

func TestCompile_UnterminatedStringSurfacesAsCompileError(t *testing.T) {
	_, errs := Compile(`"oops`, newObjects())
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Unterminated string.")
}

func TestCompile_PanicModeSuppressesCascadeButResyncs(t *testing.T) {
	// The first error (missing ';') triggers panic mode; synchronize()
	// resumes at the next statement boundary so the second print
	// statement compiles cleanly and contributes no further error.
	_, errs := Compile(`print 1 print 2;`, newObjects())
	require.NotEmpty(t, errs)
	assert.Len(t, errs, 1)
}

func TestCompile_SameGlobalNameInternsToOneString(t *testing.T) {
	fn := compileOK(t, `var a = 1; a = 2; print a;`)
	// "a" used three times (define, set, get) but interned once.
	count := 0
	var ref *value.Object
	for _, c := range fn.Chunk.Constants {
		v, ok := c.(value.Value)
		if !ok || !v.IsObject() || !v.AsObject().IsString() {
			continue
		}
		if v.AsString() == "a" {
			count++
			if ref == nil {
				ref = v.AsObject()
			} else {
				assert.Same(t, ref, v.AsObject())
			}
		}
	}
	assert.Equal(t, 3, count)
}
