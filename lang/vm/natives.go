package vm

import (
	"time"

	"github.com/mna/wisp/lang/value"
)

// defineNative installs a native function under name in the globals
// table, bypassing OP_DEFINE_GLOBAL since this happens before any user
// bytecode runs.
func (vm *VM) defineNative(name string, fn value.NativeFn) {
	native := &value.Native{Name: name, Fn: fn}
	vm.track(native)
	vm.globals.Set(vm.internString(name), native)
}

// processStart is taken once, when the package is initialized; every VM
// passes it to nativeClock as its epoch.
var processStart = time.Now()

// nativeClock returns wall-clock seconds elapsed since start, which is
// processStart, so clock() counts from the start of the process.
// The reference implementation this language is modeled on reports CPU
// time instead; wall-clock time is used here since Go has no portable
// equivalent of C's clock() and this preserves the native's only
// real purpose in test programs, measuring elapsed time.
func nativeClock(start time.Time) value.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		return value.Number(time.Since(start).Seconds()), nil
	}
}
