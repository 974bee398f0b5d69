// Package vm implements Clockwork's bytecode virtual machine: the
// stack-based interpreter that executes a compiled Chunk.
//
// The VM is a stack machine with the following components:
//
//  1. Operand stack: holds intermediate Values during computation.
//  2. Call-frame stack: one frame per active Closure invocation.
//  3. Globals table: name -> Value, populated by DEFINE_GLOBAL.
//  4. String intern table: the single source of truth for string
//     identity, shared by the compiler and the VM.
//  5. Object list: every heap allocation the VM has ever made, linked
//     at construction, so every Object the VM ever touched is reachable
//     from one root for as long as the VM itself is.
//
// Execution model: the VM executes instructions sequentially using an
// instruction pointer local to the active call frame. Each instruction
// manipulates the stack, a variable slot, or the frame stack itself
// (CALL / RETURN). There is no tracing garbage collector (§1
// Non-goals) — Free drops the VM's own references (object list head,
// globals, intern table) and lets Go's GC reclaim whatever becomes
// unreachable; there is no per-node teardown to walk.
//
// This generalizes the teacher's vm.Run(bytecode) dispatch loop
// (kristofer-smog/pkg/vm/vm.go) from its dynamic message-send model
// down to Clockwork's much narrower instruction set: arithmetic,
// comparison, globals/locals, control flow, and calls — no classes,
// no message dispatch, no host-primitive grab-bag.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/clockwork/internal/clockworkerr"
	"github.com/kristofer/clockwork/pkg/chunk"
	"github.com/kristofer/clockwork/pkg/compiler"
	"github.com/kristofer/clockwork/pkg/value"
)

// FramesMax bounds the call-frame stack (§4.6).
const FramesMax = 64

// StackMax is the operand stack's capacity: FRAMES_MAX * 256, one
// function's worth of locals per possible nesting level (§4.6).
const StackMax = FramesMax * 256

// VM is Clockwork's interpreter. One VM may run many successive
// interpret() calls (e.g. one per REPL line); globals, the intern
// table, and the object list persist across calls, while the operand
// stack and frame stack are reset at the start of each Run.
type VM struct {
	stack []value.Value
	sp    int

	frames  []frame
	objHead *value.Object
	globals *value.Table
	strings *value.Strings
	stdout  io.Writer
}

// frame is a call frame: the active closure, its instruction pointer,
// and the base slot into the operand stack (§3 "Call frame").
type frame struct {
	closure *value.Object // an ObjClosure
	ip      int
	base    int
}

// New creates a VM with empty stacks and tables, ready for Interpret.
// Natives are not pre-registered here; callers that want `clock()`
// available call DefineStandardNatives (or DefineNative) themselves
// (cmd/clockwork's runner calls DefineStandardNatives immediately
// after New, matching the Host ABI's init()+define_native()
// sequencing from spec.md §6).
func New() *VM {
	return &VM{
		stack:   make([]value.Value, 0, StackMax),
		frames:  make([]frame, 0, FramesMax),
		globals: value.NewTable(),
		strings: value.NewStrings(),
		stdout:  os.Stdout,
	}
}

// SetStdout redirects PRINT output; tests use this to capture stdout
// without touching the process-wide os.Stdout.
func (vm *VM) SetStdout(w io.Writer) { vm.stdout = w }

// alloc links obj into the VM's intrusive object list (§5 "every heap
// allocation ... links itself into the VM object list at construction").
func (vm *VM) alloc(obj *value.Object) {
	obj.SetNext(vm.objHead)
	vm.objHead = obj
}

// Free releases every object the VM has ever allocated. It is the
// VM's only reclamation point (§1 Non-goals: no tracing GC) — callers
// invoke it once, at teardown.
func (vm *VM) Free() {
	vm.objHead = nil
	vm.globals = value.NewTable()
	vm.strings = value.NewStrings()
}

// DefineNative registers a host function as a global, per the Host
// ABI's define_native(vm, name, fn) (§6).
func (vm *VM) DefineNative(name string, fn value.NativeFn) {
	nameObj := vm.strings.CopyString(name, vm.alloc)
	native := value.NewNative(fn)
	vm.alloc(native)
	vm.globals.Set(nameObj, value.ObjectValue(native))
}

// Push and Pop expose the Host ABI's push(vm, v) / pop(vm) -> v (§6).
func (vm *VM) Push(v value.Value) {
	if vm.sp < len(vm.stack) {
		vm.stack[vm.sp] = v
	} else {
		vm.stack = append(vm.stack, v)
	}
	vm.sp++
}

func (vm *VM) Pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStacks() {
	vm.stack = vm.stack[:0]
	vm.sp = 0
	vm.frames = vm.frames[:0]
}

// Interpret compiles and runs source against this VM, per the Host
// ABI's interpret(vm, source) -> {Ok, CompileError, RuntimeError}
// (§6). Run resets the stacks before executing, and a runtime error
// resets them again before returning; a compile error returns before
// Run, leaving the stacks as they were.
func (vm *VM) Interpret(source string) error {
	objs := compiler.Objects{Alloc: vm.alloc, Strings: vm.strings}
	fn, diagnostics := compiler.Compile(source, objs)
	if diagnostics != nil {
		return clockworkerr.NewCompileError(diagnostics)
	}
	return vm.Run(fn)
}

// Objects exposes this VM's allocation hook and string interner so a
// caller outside the vm/compiler packages — cmd/clockwork's bytecode
// loader — can intern constants read back from a .ckb file the same
// way the compiler would (§4.3).
func (vm *VM) Objects() compiler.Objects {
	return compiler.Objects{Alloc: vm.alloc, Strings: vm.strings}
}

// Run executes an already-compiled script function, skipping the
// compile step Interpret performs. cmd/clockwork's bytecode runner
// uses this to execute a .ckb file loaded via pkg/persist without
// re-parsing source that no longer exists on disk.
func (vm *VM) Run(fn *value.Object) error {
	vm.resetStacks()

	closure := value.NewClosure(fn)
	vm.alloc(closure)
	vm.Push(value.ObjectValue(closure))
	vm.callValue(value.ObjectValue(closure), 0)

	return vm.run()
}

// run is the fetch-decode-execute loop (§4.6 "Dispatch").
func (vm *VM) run() error {
	for {
		fr := &vm.frames[len(vm.frames)-1]
		code := fr.closure.Fn.Chunk.Code

		op := chunk.Op(code[fr.ip])
		fr.ip++

		switch op {
		case chunk.OpConstant:
			idx := code[fr.ip]
			fr.ip++
			vm.Push(vm.readConstant(fr, idx))

		case chunk.OpNil:
			vm.Push(value.NilValue)
		case chunk.OpTrue:
			vm.Push(value.BoolValue(true))
		case chunk.OpFalse:
			vm.Push(value.BoolValue(false))
		case chunk.OpPop:
			vm.Pop()

		case chunk.OpGetLocal:
			slot := code[fr.ip]
			fr.ip++
			vm.Push(vm.stack[fr.base+int(slot)])
		case chunk.OpSetLocal:
			slot := code[fr.ip]
			fr.ip++
			vm.stack[fr.base+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			idx := code[fr.ip]
			fr.ip++
			name := vm.readConstant(fr, idx).AsObject()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(fr, "Undefined variable '%s'.", name.Chars)
			}
			vm.Push(v)

		case chunk.OpDefineGlobal:
			idx := code[fr.ip]
			fr.ip++
			name := vm.readConstant(fr, idx).AsObject()
			vm.globals.Set(name, vm.peek(0))
			vm.Pop()

		case chunk.OpSetGlobal:
			idx := code[fr.ip]
			fr.ip++
			name := vm.readConstant(fr, idx).AsObject()
			if vm.globals.Set(name, vm.peek(0)) {
				// Set reported a brand-new key: the name was absent.
				// §4.4/§9: delete it again (leaving a harmless
				// tombstone) and report the same undefined-variable
				// error GET_GLOBAL would.
				vm.globals.Delete(name)
				return vm.runtimeError(fr, "Undefined variable '%s'.", name.Chars)
			}

		case chunk.OpEqual:
			b := vm.Pop()
			a := vm.Pop()
			vm.Push(value.BoolValue(value.Equal(a, b)))

		case chunk.OpGreater:
			if err := vm.numericBinary(fr, func(a, b float64) value.Value { return value.BoolValue(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.numericBinary(fr, func(a, b float64) value.Value { return value.BoolValue(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.add(fr); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.numericBinary(fr, func(a, b float64) value.Value { return value.NumberValue(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.numericBinary(fr, func(a, b float64) value.Value { return value.NumberValue(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.numericBinary(fr, func(a, b float64) value.Value { return value.NumberValue(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			vm.Push(value.BoolValue(vm.Pop().IsFalsey()))

		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(fr, "Operand must be a number.")
			}
			vm.Push(value.NumberValue(-vm.Pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.Pop().String())

		case chunk.OpJump:
			offset := chunk.ReadU16(code, fr.ip)
			fr.ip += 2 + offset

		case chunk.OpJumpIfFalse:
			offset := chunk.ReadU16(code, fr.ip)
			fr.ip += 2
			if vm.peek(0).IsFalsey() {
				fr.ip += offset
			}

		case chunk.OpLoop:
			offset := chunk.ReadU16(code, fr.ip)
			fr.ip += 2 - offset

		case chunk.OpCall:
			argc := int(code[fr.ip])
			fr.ip++
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}

		case chunk.OpClosure:
			idx := code[fr.ip]
			fr.ip++
			fnVal := vm.readConstant(fr, idx)
			closure := value.NewClosure(fnVal.AsObject())
			vm.alloc(closure)
			vm.Push(value.ObjectValue(closure))

		case chunk.OpReturn:
			result := vm.Pop()
			finishedBase := fr.base
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return nil
			}
			vm.stack = vm.stack[:finishedBase]
			vm.sp = finishedBase
			vm.Push(result)

		default:
			return vm.runtimeError(fr, "Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) readConstant(fr *frame, idx byte) value.Value {
	return fr.closure.Fn.Chunk.Constants[idx].(value.Value)
}

func (vm *VM) numericBinary(fr *frame, op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(fr, "Operands must be numbers.")
	}
	b := vm.Pop().AsNumber()
	a := vm.Pop().AsNumber()
	vm.Push(op(a, b))
	return nil
}

// add implements the overloaded ADD opcode: number+number or
// string+string; anything else is a type error (§4.4 ADD).
func (vm *VM) add(fr *frame) error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.Pop()
		vm.Pop()
		vm.Push(value.NumberValue(a.AsNumber() + b.AsNumber()))
		return nil
	case a.ObjIsString() && b.ObjIsString():
		vm.Pop()
		vm.Pop()
		concatenated := a.AsString() + b.AsString()
		str := vm.strings.TakeString(concatenated, vm.alloc)
		vm.Push(value.ObjectValue(str))
		return nil
	default:
		return vm.runtimeError(fr, "Operands must be two numbers or two strings.")
	}
}

// callValue dispatches a CALL instruction on the callee's object type
// (§4.6 "Calls").
func (vm *VM) callValue(callee value.Value, argc int) error {
	if !callee.IsObject() {
		return vm.runtimeErrorNoFrame("Can only call functions and classes.")
	}

	switch {
	case callee.AsObject().IsClosure():
		return vm.call(callee.AsObject(), argc)
	case callee.AsObject().IsNative():
		native := callee.AsObject().Native
		args := vm.stack[vm.sp-argc : vm.sp]
		result, err := native(args)
		if err != nil {
			return vm.runtimeErrorNoFrame(err.Error())
		}
		vm.stack = vm.stack[:vm.sp-argc-1]
		vm.sp -= argc + 1
		vm.Push(result)
		return nil
	default:
		return vm.runtimeErrorNoFrame("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *value.Object, argc int) error {
	fn := closure.Fn
	if argc != fn.Arity {
		return vm.runtimeErrorNoFrame("Expected %d arguments but got %d.", fn.Arity, argc)
	}
	if len(vm.frames) == FramesMax {
		return vm.runtimeErrorNoFrame("Stack overflow.")
	}

	vm.frames = append(vm.frames, frame{
		closure: closure,
		ip:      0,
		base:    vm.sp - argc - 1,
	})
	return nil
}

// runtimeError builds the single-line message plus a frame-by-frame
// trace (§4.6 "Runtime errors"), using fr's current line for the top
// frame — the other frames' lines come from their own chunk's line
// array at their saved ip.
func (vm *VM) runtimeError(fr *frame, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := vm.captureTrace()
	vm.resetStacks()
	return clockworkerr.NewRuntimeError(msg, trace)
}

// runtimeErrorNoFrame is used from callValue/call, which run before a
// new frame is pushed, so the trace is captured from whatever frames
// already exist on vm.frames (the caller's).
func (vm *VM) runtimeErrorNoFrame(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := vm.captureTrace()
	vm.resetStacks()
	return clockworkerr.NewRuntimeError(msg, trace)
}

func (vm *VM) captureTrace() []clockworkerr.Frame {
	// Outermost frame first: RuntimeError.Error renders the slice from
	// its end, so the innermost frame prints first.
	trace := make([]clockworkerr.Frame, 0, len(vm.frames))
	for i := 0; i < len(vm.frames); i++ {
		fr := vm.frames[i]
		fn := fr.closure.Fn
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		line := 0
		ip := fr.ip - 1
		if ip >= 0 && ip < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[ip]
		}
		trace = append(trace, clockworkerr.Frame{FuncName: name, Line: line})
	}
	return trace
}
