// Package chunk implements Clockwork's compiled code unit: a flat byte
// stream of opcodes and inline operands, a parallel per-byte line
// array for error reporting, and a constant pool.
//
// Chunk intentionally does not import pkg/value: spec.md's Function
// object (pkg/value) owns a *Chunk, so a Chunk owning a []value.Value
// constant pool would close an import cycle. The teacher's own
// bytecode.Bytecode hits the identical problem and solves it the same
// way — Constants is declared []interface{} (see
// kristofer-smog/pkg/bytecode/bytecode.go) — so constants here are
// stored as interface{} and the compiler/VM, which import both
// packages, are the only code that type-asserts them back to
// value.Value.
package chunk

import "fmt"

// Op is a single bytecode instruction opcode (§4.4).
type Op byte

const (
	OpConstant Op = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpClosure
	OpReturn
)

var opNames = map[Op]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpClosure:      "OP_CLOSURE",
	OpReturn:       "OP_RETURN",
}

// String renders an Op for disassembly and diagnostics.
func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(o))
}

// MaxConstants is the constant-pool cap imposed by the 1-byte operand
// that CONSTANT/DEFINE_GLOBAL/etc. use to index it (§4.4).
const MaxConstants = 256

// MaxJump is the largest forward/backward distance a 2-byte jump
// operand can encode (§4.4).
const MaxJump = 1<<16 - 1

// Chunk is a compiled unit: bytecode, one line number per byte, and a
// constant pool. One Chunk belongs to exactly one Function.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []interface{}
}

// New returns an empty Chunk ready to receive bytes.
func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte with its source line.
func (c *Chunk) WriteOp(op Op, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index, or
// -1 if the pool is already at MaxConstants (the caller — the
// compiler — turns that into the "Too many constants in one chunk."
// compile error; Chunk itself has no notion of compile errors).
func (c *Chunk) AddConstant(v interface{}) int {
	if len(c.Constants) >= MaxConstants {
		return -1
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len reports how many bytes have been emitted so far — the offset the
// next byte will occupy.
func (c *Chunk) Len() int { return len(c.Code) }

// PatchJump overwrites the 2-byte big-endian operand at offset (which
// must point at the first operand byte of a JUMP or JUMP_IF_FALSE
// emitted with a placeholder) with the distance from just after the
// operand to the chunk's current end. Returns false if that distance
// exceeds MaxJump.
func (c *Chunk) PatchJump(offset int) bool {
	jump := c.Len() - offset - 2
	if jump > MaxJump {
		return false
	}
	c.Code[offset] = byte(jump >> 8)
	c.Code[offset+1] = byte(jump & 0xff)
	return true
}

// ReadU16 reads a big-endian 2-byte operand at offset.
func ReadU16(code []byte, offset int) int {
	return int(code[offset])<<8 | int(code[offset+1])
}
