package vm_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/lang/vm"
)

func run(t *testing.T, src string, stressGC bool) (string, string, vm.InterpretResult) {
	t.Helper()
	var out, errOut bytes.Buffer
	machine := vm.New()
	machine.Stdout = &out
	machine.Stderr = &errOut
	machine.StressGC = stressGC
	result := machine.Interpret(src)
	return out.String(), errOut.String(), result
}

var scenarios = []struct {
	name string
	src  string
	want string
}{
	{"arithmetic precedence", `print 1 + 2 * 3;`, "7\n"},
	{"string concatenation", `var a = "hi"; var b = " there"; print a + b;`, "hi there\n"},
	{"closure over parameter", `fun make(x){fun get(){return x;} return get;} var g = make(42); print g();`, "42\n"},
	{"closure mutates shared upvalue", `fun outer(){var x = 1; fun inner(){x = x + 1; return x;} return inner;} var c = outer(); print c(); print c(); print c();`, "2\n3\n4\n"},
	{"super call chains to subclass method", `class A{greet(){print "A";}} class B < A{greet(){super.greet(); print "B";}} B().greet();`, "A\nB\n"},
	{"initializer sets field, method reads it", `class C{init(n){this.n=n;} sq(){return this.n*this.n;}} print C(6).sq();`, "36\n"},
}

func TestConcreteScenarios(t *testing.T) {
	for _, tc := range scenarios {
		t.Run(tc.name, func(t *testing.T) {
			out, errOut, result := run(t, tc.src, false)
			require.Equal(t, vm.InterpretOK, result, "stderr: %s", errOut)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestConcreteScenariosUnderStressGC(t *testing.T) {
	for _, tc := range scenarios {
		t.Run(tc.name, func(t *testing.T) {
			out, errOut, result := run(t, tc.src, true)
			require.Equal(t, vm.InterpretOK, result, "stderr: %s", errOut)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestRuntimeErrorAddingStringAndNumber(t *testing.T) {
	_, errOut, result := run(t, `print "a" + 1;`, false)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut, "Operands must be two numbers or two strings.")
	require.Equal(t, 1, strings.Count(errOut, "[line"), "expected a one-frame trace")
}

func TestRuntimeErrorArityMismatch(t *testing.T) {
	_, errOut, result := run(t, `fun f(){return 1;} f(1);`, false)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut, "Expected 0 arguments but got 1.")
}

func TestUndefinedGlobalGetErrors(t *testing.T) {
	_, errOut, result := run(t, `print nope;`, false)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut, "Undefined variable 'nope'.")
}

func TestUndefinedGlobalSetDeletesTransientEntry(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := vm.New()
	machine.Stdout = &out
	machine.Stderr = &errOut

	result := machine.Interpret(`nope = 1;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut.String(), "Undefined variable 'nope'.")

	// sharing one VM (as the REPL does): the failed SET_GLOBAL above must
	// not have left "nope" behind as a defined global
	errOut.Reset()
	result = machine.Interpret(`print nope;`)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut.String(), "Undefined variable 'nope'.")
}

func TestAssignmentExpressionLeavesValueOnStack(t *testing.T) {
	out, errOut, result := run(t, `var a; print a = 5;`, false)
	require.Equal(t, vm.InterpretOK, result, "stderr: %s", errOut)
	require.Equal(t, "5\n", out)
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	_, errOut, result := run(t, `fun f(){return f();} f();`, false)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Contains(t, errOut, "Stack overflow.")
}

func TestCompileErrorDoesNotRun(t *testing.T) {
	out, _, result := run(t, `print ;`, false)
	require.Equal(t, vm.InterpretCompileError, result)
	require.Empty(t, out)
}

func TestClockNativeReturnsNumber(t *testing.T) {
	out, errOut, result := run(t, `print clock() >= 0;`, false)
	require.Equal(t, vm.InterpretOK, result, "stderr: %s", errOut)
	require.Equal(t, "true\n", out)
}

func TestInterpretFileCachesCompiledFunction(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/script.wisp"
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + 1;`), 0o600))

	var out bytes.Buffer
	machine := vm.New()
	machine.Stdout = &out

	res, err := machine.InterpretFile(path)
	require.NoError(t, err)
	require.Equal(t, vm.InterpretOK, res)

	res, err = machine.InterpretFile(path)
	require.NoError(t, err)
	require.Equal(t, vm.InterpretOK, res)

	require.Equal(t, "2\n2\n", out.String())
}
