package clockworkerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kristofer/clockwork/internal/clockworkerr"
)

func TestCompileError_JoinsDiagnostics(t *testing.T) {
	err := clockworkerr.NewCompileError([]string{"[line 1] Error: a", "[line 2] Error: b"})
	assert.Equal(t, "[line 1] Error: a\n[line 2] Error: b", err.Error())
}

func TestRuntimeError_RendersTraceTopDown(t *testing.T) {
	err := clockworkerr.NewRuntimeError("Undefined variable 'x'.", []clockworkerr.Frame{
		{FuncName: "", Line: 3},
		{FuncName: "helper", Line: 7},
	})
	assert.Equal(t, "Undefined variable 'x'.\n[line 7] in helper\n[line 3] in script", err.Error())
}

func TestHostError_SurfacesCauseAndStack(t *testing.T) {
	cause := errors.New("open foo.ck: no such file or directory")
	err := clockworkerr.NewHostError(cause)

	assert.Contains(t, err.Error(), "open foo.ck: no such file or directory")
	// errors.WithStack's %+v form appends a frame trace after the message.
	assert.Contains(t, err.Error(), "clockworkerr_test.go")
	// Unwrap once to the errors.WithStack wrapper, once more to the
	// original cause.
	assert.Same(t, cause, errors.Unwrap(errors.Unwrap(err)))
}
