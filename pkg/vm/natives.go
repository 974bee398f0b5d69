package vm

import (
	"time"

	"github.com/kristofer/clockwork/pkg/value"
)

// processStart anchors clock()'s return value: elapsed wall-clock time
// since this package was loaded, in seconds. The original measures
// CPU time via clock()/CLOCKS_PER_SEC; Go has no portable per-process
// CPU-time clock in the standard library without platform-specific
// syscalls, so elapsed wall-clock time is the idiomatic substitute —
// the single property spec.md's native actually needs (a monotonically
// increasing Number a script can diff across two calls) holds either
// way.
var processStart = time.Now()

// DefineStandardNatives registers every native the core itself
// defines (§4.7: "One built-in is defined by the core: clock()").
func (vm *VM) DefineStandardNatives() {
	vm.DefineNative("clock", nativeClock)
}

func nativeClock(args []value.Value) (value.Value, error) {
	return value.NumberValue(time.Since(processStart).Seconds()), nil
}
