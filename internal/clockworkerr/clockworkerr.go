// Package clockworkerr defines the three result categories
// interpret() can return (spec.md §7): a compile-time failure, a
// runtime failure with a stack trace, and a host failure (I/O).
//
// The teacher's RuntimeError (kristofer-smog/pkg/vm/errors.go) is the
// template for the shape here — a message plus an ordered trace of
// frames rendered with Error() — generalized from one category to
// three, and from the teacher's Selector/SourceCol-flavored
// StackFrame down to the leaner (function name, source line) pair
// spec.md §4.6 actually asks the trace to carry.
package clockworkerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Frame is one entry of a runtime-error stack trace: the enclosing
// function's name ("script" for the implicit top-level function) and
// the source line active when the error was raised (§4.6 "for each
// active frame (top-down) print [line L] in <fn-name | script>").
type Frame struct {
	FuncName string
	Line     int
}

// CompileError reports every diagnostic accumulated by one compile
// pass (panic-mode recovery means there can be more than one, §4.5).
type CompileError struct {
	Diagnostics []string
}

func (e *CompileError) Error() string {
	return strings.Join(e.Diagnostics, "\n")
}

// NewCompileError wraps a non-empty diagnostic list. Callers should
// only construct one when the compiler reported at least one error.
func NewCompileError(diagnostics []string) *CompileError {
	return &CompileError{Diagnostics: diagnostics}
}

// RuntimeError reports a single runtime failure message and the
// frame-by-frame trace active when it was raised (§4.6).
type RuntimeError struct {
	Message string
	Trace   []Frame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.Trace) - 1; i >= 0; i-- {
		f := e.Trace[i]
		name := f.FuncName
		if name == "" {
			name = "script"
		}
		fmt.Fprintf(&b, "\n[line %d] in %s", f.Line, name)
	}
	return b.String()
}

// NewRuntimeError builds a RuntimeError. msg is already the exact
// user-visible text spec.md §7 pins, so it is stored as-is — no
// wrapping needed here, unlike HostError below, which wraps an
// underlying os error and so has a causal chain worth attaching a
// stack to.
func NewRuntimeError(msg string, trace []Frame) *RuntimeError {
	return &RuntimeError{Message: msg, Trace: trace}
}

// HostError reports an I/O failure opening or reading a script — the
// host's responsibility per §6/§7, not the VM's. cmd/clockwork
// constructs one at every file-open/read/create/write failure site
// and prints Error(), which renders cause's stack (captured by
// errors.WithStack at the point of the original os error) so a
// confusing I/O failure -- e.g. a permissions error several layers
// below os.ReadFile -- can be traced back to exactly where the host
// driver observed it.
type HostError struct {
	cause error
}

func NewHostError(cause error) *HostError {
	return &HostError{cause: errors.WithStack(cause)}
}

// Error renders the full "%+v" form: the underlying message followed
// by the stack frame errors.WithStack captured at NewHostError's call
// site.
func (e *HostError) Error() string { return fmt.Sprintf("%+v", e.cause) }
func (e *HostError) Unwrap() error { return e.cause }
