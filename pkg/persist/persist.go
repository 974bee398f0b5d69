// Package persist implements Clockwork's supplemented bytecode
// persistence feature (SPEC_FULL.md §5): saving a compiled script to a
// .ckb file and loading it back without recompiling.
//
// The format is a small binary encoding in the same spirit as the
// teacher's .sg format (kristofer-smog/pkg/bytecode/format.go): a
// magic number and version header, followed by a recursively encoded
// function — a function's chunk constant pool can itself hold nested
// functions (one per `fun` declaration compiled inside it), exactly
// the way the teacher's Bytecode constant pool can hold a nested
// *Bytecode for a block or method.
//
// encoding/gob is not a fit here: value.Value and value.Object carry
// unexported fields and a func-typed Native slot by design (§3's
// tagged-union discipline), so gob has nothing to reflect over. A
// small explicit writer/reader, matching the teacher's own format.go,
// both sidesteps that and keeps the on-disk layout stable and
// documented rather than an opaque gob stream.
package persist

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kristofer/clockwork/pkg/chunk"
	"github.com/kristofer/clockwork/pkg/compiler"
	"github.com/kristofer/clockwork/pkg/value"
)

// Magic identifies a Clockwork bytecode file: "CLKW".
const Magic uint32 = 0x434C4B57

// Version is the current on-disk format version.
const Version uint32 = 1

const (
	constNil byte = iota
	constBool
	constNumber
	constString
	constFunction
)

// Encode writes fn — the implicit top-level script function Compile
// returns — to w in Clockwork's .ckb binary format.
func Encode(fn *value.Object, w io.Writer) error {
	if err := writeU32(w, Magic); err != nil {
		return err
	}
	if err := writeU32(w, Version); err != nil {
		return err
	}
	return writeFunction(w, fn)
}

// Decode reads a .ckb file back into a function, interning every
// string constant through objs so that identity matches what a fresh
// Compile against the same VM would have produced (§4.3 invariant:
// the intern table is the single source of truth for string identity).
func Decode(r io.Reader, objs compiler.Objects) (*value.Object, error) {
	magic, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("not a Clockwork bytecode file: bad magic 0x%08X", magic)
	}
	version, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading format version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("unsupported bytecode version %d (expected %d)", version, Version)
	}
	return readFunction(r, objs)
}

func writeFunction(w io.Writer, fn *value.Object) error {
	hasName := fn.Name != nil
	if err := writeBool(w, hasName); err != nil {
		return err
	}
	if hasName {
		if err := writeString(w, fn.Name.Chars); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(fn.Arity)); err != nil {
		return err
	}
	return writeChunk(w, fn.Chunk)
}

func readFunction(r io.Reader, objs compiler.Objects) (*value.Object, error) {
	hasName, err := readBool(r)
	if err != nil {
		return nil, err
	}
	var name *value.Object
	if hasName {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		name = objs.Strings.CopyString(s, objs.Alloc)
	}
	arity32, err := readU32(r)
	if err != nil {
		return nil, err
	}
	c, err := readChunk(r, objs)
	if err != nil {
		return nil, err
	}
	fn := value.NewFunction(name, int(arity32), c)
	objs.Alloc(fn)
	return fn, nil
}

func writeChunk(w io.Writer, c *chunk.Chunk) error {
	if err := writeU32(w, uint32(len(c.Code))); err != nil {
		return err
	}
	if _, err := w.Write(c.Code); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(c.Lines))); err != nil {
		return err
	}
	for _, line := range c.Lines {
		if err := writeU32(w, uint32(line)); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(c.Constants))); err != nil {
		return err
	}
	for i, entry := range c.Constants {
		if err := writeConstant(w, entry.(value.Value)); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

func readChunk(r io.Reader, objs compiler.Objects) (*chunk.Chunk, error) {
	codeLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}

	lineCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	lines := make([]int, lineCount)
	for i := range lines {
		v, err := readU32(r)
		if err != nil {
			return nil, err
		}
		lines[i] = int(v)
	}

	constCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	c := chunk.New()
	c.Code = code
	c.Lines = lines
	for i := uint32(0); i < constCount; i++ {
		v, err := readConstant(r, objs)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		c.AddConstant(v)
	}
	return c, nil
}

func writeConstant(w io.Writer, v value.Value) error {
	switch {
	case v.IsNil():
		return writeByte(w, constNil)
	case v.IsBool():
		if err := writeByte(w, constBool); err != nil {
			return err
		}
		return writeBool(w, v.AsBool())
	case v.IsNumber():
		if err := writeByte(w, constNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v.AsNumber())
	case v.ObjIsString():
		if err := writeByte(w, constString); err != nil {
			return err
		}
		return writeString(w, v.AsString())
	case v.IsObject() && v.AsObject().IsFunction():
		if err := writeByte(w, constFunction); err != nil {
			return err
		}
		return writeFunction(w, v.AsObject())
	default:
		return fmt.Errorf("unsupported constant type %s", v.TypeName())
	}
}

func readConstant(r io.Reader, objs compiler.Objects) (value.Value, error) {
	tag, err := readByte(r)
	if err != nil {
		return value.NilValue, err
	}
	switch tag {
	case constNil:
		return value.NilValue, nil
	case constBool:
		b, err := readBool(r)
		if err != nil {
			return value.NilValue, err
		}
		return value.BoolValue(b), nil
	case constNumber:
		var n float64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return value.NilValue, err
		}
		return value.NumberValue(n), nil
	case constString:
		s, err := readString(r)
		if err != nil {
			return value.NilValue, err
		}
		obj := objs.Strings.CopyString(s, objs.Alloc)
		return value.ObjectValue(obj), nil
	case constFunction:
		fn, err := readFunction(r, objs)
		if err != nil {
			return value.NilValue, err
		}
		return value.ObjectValue(fn), nil
	default:
		return value.NilValue, fmt.Errorf("unknown constant tag 0x%02X", tag)
	}
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func writeBool(w io.Writer, b bool) error {
	if b {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	return b != 0, err
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
