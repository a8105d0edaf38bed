// Package driver implements the two collaborators the core interpreter
// explicitly leaves external: a REPL and a file driver, each wiring a
// lang/vm.VM to process I/O and mapping its result to a process exit
// code.
package driver

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mna/wisp/internal/config"
	"github.com/mna/wisp/lang/vm"
)

// Exit codes for the file driver, matching the reference implementation:
// 0 success, 65 compile error, 70 runtime error, 74 I/O error reading the
// source file.
const (
	ExitOK           = 0
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

func newVM(stdout, stderr io.Writer, cfg config.Config, stressGC bool) *vm.VM {
	machine := vm.New()
	machine.Stdout = stdout
	machine.Stderr = stderr
	machine.StressGC = stressGC || cfg.StressGC
	machine.SetInitialHeapBytes(cfg.InitialHeapBytes)
	return machine
}

// RunFile compiles and runs the source at path through a fresh VM,
// returning the process exit code the caller should use.
func RunFile(path string, stdout, stderr io.Writer, cfg config.Config, stressGC bool) int {
	machine := newVM(stdout, stderr, cfg, stressGC)
	result, err := machine.InterpretFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "wisp: %s\n", err)
		return ExitIOError
	}

	switch result {
	case vm.InterpretCompileError:
		return ExitCompileError
	case vm.InterpretRuntimeError:
		return ExitRuntimeError
	default:
		return ExitOK
	}
}

// REPL runs an interactive read-eval-print loop over in, sharing one VM
// across lines so top-level declarations persist between inputs, exactly
// as the reference implementation's REPL does.
func REPL(in io.Reader, stdout, stderr io.Writer, cfg config.Config, stressGC bool) {
	machine := newVM(stdout, stderr, cfg, stressGC)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		machine.Interpret(line)
	}
}
