package value

import (
	"fmt"

	"github.com/kristofer/clockwork/pkg/chunk"
)

// ObjKind discriminates the heap Object variants (§3).
type ObjKind int

const (
	ObjString ObjKind = iota
	ObjFunction
	ObjClosure
	ObjNative
)

// NativeFn is a host-supplied callable: it receives the argument slice
// and returns a result Value, or an error to surface as a runtime
// error. clock() never fails, but the signature leaves room for
// natives added later (DESIGN.md "Native function error type").
type NativeFn func(args []Value) (Value, error)

// Object is the heap-allocated record every VM-owned heap value is
// made of. Only the fields matching Kind are meaningful;
// this is the nested sum type spec.md §9 calls for ("Object variants
// are a nested sum: String, Function, Closure, Native").
//
// next links the object into the VM's intrusive allocation list so
// teardown can walk and release every object exactly once, per §5's
// lifetime discipline — there is no tracing collector.
type Object struct {
	Kind ObjKind
	next *Object

	// ObjString
	Chars string
	Hash  uint32

	// ObjFunction
	Arity int
	Name  *Object // an ObjString, or nil for the top-level script
	Chunk *chunk.Chunk

	// ObjClosure
	Fn *Object // the wrapped ObjFunction

	// ObjNative
	Native NativeFn
}

// Next returns the next object in the VM's intrusive allocation list.
func (o *Object) Next() *Object { return o.next }

// SetNext links o ahead of rest in the VM's allocation list. Only the
// VM's allocator calls this, at construction time.
func (o *Object) SetNext(rest *Object) { o.next = rest }

// NewString builds an uninterned ObjString object. Callers that want
// interning semantics go through a VM-owned intern table (pkg/vm);
// this constructor only computes the hash and stores the bytes.
func NewString(s string) *Object {
	return &Object{Kind: ObjString, Chars: s, Hash: FNV1a(s)}
}

// NewFunction builds an ObjFunction wrapping a freshly compiled chunk.
// name is nil for the implicit top-level script function.
func NewFunction(name *Object, arity int, c *chunk.Chunk) *Object {
	return &Object{Kind: ObjFunction, Name: name, Arity: arity, Chunk: c}
}

// NewClosure wraps fn (an ObjFunction) in a Closure. Clockwork's
// closures carry no captured environment yet (§3, §9 "reserved but
// unimplemented" upvalues) — this is purely a call-target wrapper so
// the VM always calls through one uniform callable shape.
func NewClosure(fn *Object) *Object {
	return &Object{Kind: ObjClosure, Fn: fn}
}

// NewNative wraps a host Go function as a callable Clockwork value.
func NewNative(fn NativeFn) *Object {
	return &Object{Kind: ObjNative, Native: fn}
}

// IsString, IsFunction, IsClosure, IsNative report an Object's variant.
func (o *Object) IsString() bool   { return o.Kind == ObjString }
func (o *Object) IsFunction() bool { return o.Kind == ObjFunction }
func (o *Object) IsClosure() bool  { return o.Kind == ObjClosure }
func (o *Object) IsNative() bool   { return o.Kind == ObjNative }

// String renders an Object the way PRINT and the disassembler want it.
func (o *Object) String() string {
	switch o.Kind {
	case ObjString:
		return o.Chars
	case ObjFunction:
		if o.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", o.Name.Chars)
	case ObjClosure:
		return o.Fn.String()
	case ObjNative:
		return "<native fn>"
	default:
		return fmt.Sprintf("<object kind %d>", o.Kind)
	}
}

// TypeName names an Object's variant for diagnostics.
func (o *Object) TypeName() string {
	switch o.Kind {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjNative:
		return "native fn"
	default:
		return "object"
	}
}

// ObjIsString reports whether v holds a String object.
func (v Value) ObjIsString() bool { return v.Kind == Obj && v.o.IsString() }

// AsString projects v's payload as Go string bytes; panics if v is not
// a String object, mirroring AsBool/AsNumber's checked-by-caller
// contract.
func (v Value) AsString() string {
	if v.Kind != Obj || !v.o.IsString() {
		panic("value: AsString on non-string Value")
	}
	return v.o.Chars
}

// FNV1a hashes s with the 32-bit FNV-1a constants spec.md §4.2 pins
// exactly (seed 2166136261, prime 16777619) — this is a testable
// interning invariant, not an implementation detail, so it is
// hand-rolled here rather than delegated to hash/fnv (see DESIGN.md
// and SPEC_FULL.md §3 for why the stdlib package is deliberately not
// used: its Sum32 return path doesn't let us pin the exact seed/prime
// as a unit-testable constant pair the way this one-liner does).
func FNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
