// Package vm implements the stack-based bytecode interpreter: a call-frame
// stack layered over one shared value stack, globals and string-intern
// tables, the open-upvalue list, and the heap the garbage collector
// traces.
package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dolthub/swiss"

	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/gc"
	"github.com/mna/wisp/lang/table"
	"github.com/mna/wisp/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// InterpretResult is the coarse outcome of Interpret, matching the exit
// codes a file driver maps to (0/65/70).
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CallFrame is one activation record: the closure being executed, the
// index of the next instruction in its chunk, and the base slot this
// frame owns in the shared value stack. Slot 0 is the callee itself (or
// the receiver, for methods).
type CallFrame struct {
	closure   *value.Closure
	ip        int
	slotsBase int
}

// VM is one interpreter instance. Nothing here is package-level or
// shared: multiple VMs can run independently in the same process.
type VM struct {
	// Stdout and Stderr receive, respectively, the output of "print"
	// statements and runtime error/stack-trace text. Both default to the
	// OS standard streams if left nil.
	Stdout io.Writer
	Stderr io.Writer

	// StressGC, when true, forces a full collection before every
	// allocation the VM makes while running bytecode; allocations made by
	// the compiler are not preceded by a collection in this mode. It
	// exists for test use: the interpreter must survive the
	// entire language test corpus in this mode with no dangling
	// references.
	StressGC bool

	stack      [stackMax]value.Value
	stackTop   int
	frames     [framesMax]CallFrame
	frameCount int

	globals      *table.Table
	strings      *table.Table
	initString   *value.String
	openUpvalues *value.Upvalue

	heap      *gc.Heap
	start     time.Time
	readyOnce bool

	// fileFunctions caches the compiled top-level function for each
	// absolute path this VM has run through InterpretFile, so a file
	// driver invoking the same path more than once in this VM's lifetime
	// (e.g. a REPL "load" convenience, or repeated test runs against one
	// VM) skips recompilation entirely.
	fileFunctions *swiss.Map[string, *value.Function]
}

// New returns a ready-to-use VM. Stdout/Stderr may be set on the returned
// value before the first call to Interpret.
func New() *VM {
	vm := &VM{
		globals:       table.New(),
		strings:       table.New(),
		heap:          gc.NewHeap(),
		start:         processStart,
		fileFunctions: swiss.NewMap[string, *value.Function](4),
	}
	return vm
}

func (vm *VM) ready() {
	if vm.readyOnce {
		return
	}
	vm.readyOnce = true
	if vm.Stdout == nil {
		vm.Stdout = os.Stdout
	}
	if vm.Stderr == nil {
		vm.Stderr = os.Stderr
	}
	vm.initString = vm.internString("init")
	vm.defineNative("clock", nativeClock(vm.start))
}

// GCRoots implements gc.RootProvider: the value stack, every active
// frame's closure, the open-upvalue list, every global, and the intern
// string for "init".
func (vm *VM) GCRoots(mark func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		mark(uv)
	}
	vm.globals.ForEach(func(key *value.String, v value.Value) bool {
		mark(key)
		mark(v)
		return true
	})
	if vm.initString != nil {
		mark(vm.initString)
	}
}

func (vm *VM) internString(s string) *value.String {
	hash := value.HashString(s)
	if found := vm.strings.FindString(s, hash); found != nil {
		return found
	}
	str := value.NewString(s)
	vm.track(str)
	vm.strings.Set(str, value.Bool(true))
	return str
}

// track registers a freshly created heap object with the collector and
// runs a collection first if the stress flag or threshold demands it.
// Called only for objects the VM itself allocates at runtime (the
// compiler tracks its own allocations through the same Heap instance).
func (vm *VM) track(obj value.Object) {
	if vm.StressGC || vm.heap.ShouldCollect() {
		vm.collect()
	}
	vm.heap.Track(obj)
}

func (vm *VM) collect() {
	vm.heap.Collect(vm, vm.strings)
}

// SetInitialHeapBytes overrides the byte threshold that triggers the VM's
// first collection; must be called before the first Interpret call.
func (vm *VM) SetInitialHeapBytes(n int64) {
	vm.heap.SetInitialThreshold(n)
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret compiles and runs source to completion, writing "print"
// output to vm.Stdout and any runtime error (with its stack trace) to
// vm.Stderr.
func (vm *VM) Interpret(source string) InterpretResult {
	vm.ready()

	res := compiler.Compile(source, vm.strings, vm.heap)
	if !res.Ok() {
		for _, e := range res.Errors {
			fmt.Fprintln(vm.Stderr, e)
		}
		return InterpretCompileError
	}
	return vm.run0(res.Function)
}

// InterpretFile compiles and runs the source at path, caching the
// compiled top-level function by absolute path so a later call for the
// same path in this VM's lifetime skips recompilation.
func (vm *VM) InterpretFile(path string) (InterpretResult, error) {
	vm.ready()

	abs, err := filepath.Abs(path)
	if err != nil {
		return InterpretCompileError, err
	}

	fn, ok := vm.fileFunctions.Get(abs)
	if !ok {
		src, err := os.ReadFile(path)
		if err != nil {
			return InterpretCompileError, err
		}
		res := compiler.Compile(string(src), vm.strings, vm.heap)
		if !res.Ok() {
			for _, e := range res.Errors {
				fmt.Fprintln(vm.Stderr, e)
			}
			return InterpretCompileError, nil
		}
		fn = res.Function
		vm.fileFunctions.Put(abs, fn)
	}

	return vm.run0(fn), nil
}

// run0 wraps fn in a fresh closure and runs it to completion, the shared
// tail of both Interpret and InterpretFile.
func (vm *VM) run0(fn *value.Function) InterpretResult {
	closure := value.NewClosure(fn)
	vm.track(closure)
	vm.push(closure)
	if err := vm.callValue(closure, 0); err != nil {
		fmt.Fprintln(vm.Stderr, err.Error())
		vm.resetStack()
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		fmt.Fprintln(vm.Stderr, err.Error())
		vm.resetStack()
		return InterpretRuntimeError
	}
	return InterpretOK
}

// run is the bytecode dispatch loop. It returns a non-nil error exactly
// when a runtime error occurred; OP_RETURN from the outermost frame ends
// the loop normally by returning nil.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() *value.String {
		return readConstant().(*value.String)
	}

	for {
		op := bytecode.Op(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())

		case bytecode.OpNil:
			vm.push(value.None)
		case bytecode.OpTrue:
			vm.push(value.Bool(true))
		case bytecode.OpFalse:
			vm.push(value.Bool(false))

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			vm.push(vm.stack[frame.slotsBase+int(readByte())])
		case bytecode.OpSetLocal:
			vm.stack[frame.slotsBase+int(readByte())] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.pop())
		case bytecode.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpGetUpvalue:
			vm.push(*frame.closure.Upvalues[readByte()].Location)
		case bytecode.OpSetUpvalue:
			*frame.closure.Upvalues[readByte()].Location = vm.peek(0)

		case bytecode.OpGetProperty:
			inst, ok := vm.peek(0).(*value.Instance)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			name := readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if !vm.bindMethod(inst.Class, name) {
				return vm.runtimeError("Undefined property '%s'.", name.Chars)
			}

		case bytecode.OpSetProperty:
			inst, ok := vm.peek(1).(*value.Instance)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			name := readString()
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.OpGetSuper:
			name := readString()
			super := vm.pop().(*value.Class)
			if !vm.bindMethod(super, name) {
				return vm.runtimeError("Undefined property '%s'.", name.Chars)
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case bytecode.OpGreater:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(value.Bool(!value.Truthy(vm.pop())))
		case bytecode.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(value.Number(-n))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case bytecode.OpJump:
			offset := readShort()
			frame.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if !value.Truthy(vm.peek(0)) {
				frame.ip += offset
			}
		case bytecode.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case bytecode.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpInvoke:
			name := readString()
			argCount := int(readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			super := vm.pop().(*value.Class)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := readConstant().(*value.Function)
			closure := value.NewClosure(fn)
			vm.track(closure)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(closure)

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slotsBase
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClass:
			name := readString()
			class := &value.Class{Name: name, Methods: table.New()}
			vm.track(class)
			vm.push(class)

		case bytecode.OpInherit:
			superVal := vm.peek(1)
			super, ok := superVal.(*value.Class)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			sub := vm.peek(0).(*value.Class)
			tableOf(sub.Methods).AddAll(tableOf(super.Methods))
			vm.pop() // drop the subclass; the superclass stays as the "super" local

		case bytecode.OpMethod:
			name := readString()
			vm.defineMethod(name)

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

// tableOf narrows the value.Table interface back to the concrete
// *table.Table the vm and compiler both actually construct, which is the
// only implementation AddAll needs to merge two method tables.
func tableOf(t value.Table) *table.Table {
	concrete, _ := t.(*table.Table)
	return concrete
}
