package vm

import (
	"unsafe"

	"github.com/mna/wisp/lang/table"
	"github.com/mna/wisp/lang/value"
)

// callValue dispatches a call by the runtime type of callee, implementing
// the "tagged callee" call protocol: closures get a new frame, classes
// construct an instance (and run "init" if present), bound methods
// rebind slot 0 to their receiver before calling through, and natives run
// synchronously.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.Closure:
		return vm.call(c, argCount)

	case *value.Class:
		inst := &value.Instance{Class: c, Fields: table.New()}
		vm.track(inst)
		vm.stack[vm.stackTop-argCount-1] = inst

		if init, ok := c.Methods.Get(vm.initString); ok {
			return vm.call(init.(*value.Closure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil

	case *value.BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = c.Receiver
		return vm.call(c.Method, argCount)

	case *value.Native:
		args := make([]value.Value, argCount)
		copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return nil

	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *value.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.ip = 0
	frame.slotsBase = vm.stackTop - argCount - 1
	vm.frameCount++
	return nil
}

// invoke implements the OP_INVOKE fast path: receiver.name(args) without
// materializing a BoundMethod when name resolves to a method. A field
// holding a callable value still works, falling back to a generic call.
func (vm *VM) invoke(name *value.String, argCount int) error {
	receiver := vm.peek(argCount)
	inst, ok := receiver.(*value.Instance)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}

	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = v
		return vm.callValue(v, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.Class, name *value.String, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.(*value.Closure), argCount)
}

// bindMethod looks up name on class and, if found, replaces the instance
// on top of the stack with a BoundMethod pairing it with the closure.
func (vm *VM) bindMethod(class *value.Class, name *value.String) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	bound := &value.BoundMethod{Receiver: vm.peek(0), Method: method.(*value.Closure)}
	vm.track(bound)
	vm.pop()
	vm.push(bound)
	return true
}

func (vm *VM) defineMethod(name *value.String) {
	method := vm.peek(0)
	class := vm.peek(1).(*value.Class)
	class.Methods.Set(name, method)
	vm.pop()
}

// captureUpvalue returns the open upvalue observing stack slot index,
// creating one and inserting it into the descending-by-address open list
// if none exists yet, so multiple closures over the same variable share
// one Upvalue object.
func (vm *VM) captureUpvalue(index int) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && addrIndex(vm, cur.Location) > index {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && addrIndex(vm, cur.Location) == index {
		return cur
	}

	created := value.NewOpenUpvalue(&vm.stack[index])
	vm.track(created)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// addrIndex recovers the stack slot index a still-open upvalue's Location
// points into, for ordering comparisons in the open list. Only ever
// called with a Location still inside vm.stack (closed upvalues are
// already unlinked from the open list before their Location is
// retargeted), so the pointer difference is always a valid slot index.
func addrIndex(vm *VM, loc *value.Value) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	cur := uintptr(unsafe.Pointer(loc))
	return int((cur - base) / unsafe.Sizeof(vm.stack[0]))
}

// closeUpvalues closes every open upvalue observing slot from or higher,
// copying its value out of the stack and retargeting it at its own
// storage, then removing it from the open list.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && addrIndex(vm, vm.openUpvalues.Location) >= from {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}
