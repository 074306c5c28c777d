package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var errValueStackOverflow = errors.New("value stack overflow")

// Maximum call stack depth. Exceeding it is a deterministic runtime
// "stack overflow" error rather than unbounded growth.
const MaxFrameCount = 64

// Maximum operand stack size
const StackMax = MaxFrameCount * MaxLocals

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closure *ObjClosure
	ip      int // instruction pointer within this frame's chunk
	base    int // where this frame's slots start in the value stack
}

// VM is the virtual machine that executes bytecode. It exclusively
// owns its value stack and call-frame stack; execution is strictly
// synchronous.
type VM struct {
	stack []Value
	sp    int // points to the next free slot

	frames     []CallFrame
	frameCount int
	frame      *CallFrame // current frame, for convenience

	// Globals are bound by interned name; last write wins.
	globals *Table

	// Shared with the compiler so runtime-built strings unify with
	// compile-time literals.
	interner *Interner

	// Linked list of open upvalues, sorted by stack slot (highest
	// first).
	openUpvalues *ObjUpvalue

	// Output writer for the print instruction (defaults to os.Stdout)
	out io.Writer

	// Trace logs every instruction before executing it
	trace bool
}

// New creates a VM sharing the given interner with its compiler
func New(interner *Interner) *VM {
	return &VM{
		stack:    make([]Value, StackMax),
		frames:   make([]CallFrame, MaxFrameCount),
		globals:  NewTable(),
		interner: interner,
		out:      os.Stdout,
	}
}

// SetOutput sets the writer the print instruction goes through
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetTrace enables per-instruction execution logging
func (vm *VM) SetTrace(enabled bool) {
	vm.trace = enabled
}

// Run executes a compiled top-level function to completion. On
// failure the returned error is a *RuntimeError and the VM's stacks
// are reset, so the instance stays usable (globals survive, which the
// REPL relies on).
func (vm *VM) Run(fn *CompiledFunction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, errValueStackOverflow) {
				err = vm.runtimeError("stack overflow")
				return
			}
			panic(r)
		}
	}()

	vm.resetStack()

	closure := &ObjClosure{Function: fn}
	vm.push(ObjVal(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
	vm.openUpvalues = nil
}

/* Stack primitives */

func (vm *VM) push(v Value) {
	if vm.sp == len(vm.stack) {
		panic(errValueStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

/* Calls */

func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.IsObj() {
		if closure, ok := callee.Obj.(*ObjClosure); ok {
			return vm.callClosure(closure, argCount)
		}
	}
	return vm.runtimeError("can only call functions")
}

func (vm *VM) callClosure(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d",
			closure.Function.Arity, argCount)
	}
	if vm.frameCount == MaxFrameCount {
		return vm.runtimeError("stack overflow")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	// The frame's slot 0 is the closure itself, below the arguments.
	frame.base = vm.sp - argCount - 1
	vm.frame = frame
	return nil
}

/* Upvalues */

// captureUpvalue creates or reuses an open upvalue for a stack slot.
// Reuse is what makes two closures over the same variable share one
// cell.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	upvalue := vm.openUpvalues

	// The list is sorted by slot (highest first).
	for upvalue != nil && upvalue.slot > slot {
		prev = upvalue
		upvalue = upvalue.next
	}

	if upvalue != nil && upvalue.slot == slot {
		return upvalue
	}

	created := &ObjUpvalue{slot: slot, next: upvalue}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above lastSlot,
// detaching captured variables before their stack region is torn
// down.
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= lastSlot {
		upvalue := vm.openUpvalues
		upvalue.Close(vm.stack)
		vm.openUpvalues = upvalue.next
	}
}

/* Errors */

// runtimeError builds the RuntimeError for the current execution
// point, records the call trace innermost first, and resets the
// stacks so the VM is never left in an inconsistent state.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	rerr := &RuntimeError{Message: fmt.Sprintf(format, args...)}

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		name := fn.Name
		if name == "" {
			name = "script"
		}
		line := 0
		if frame.ip > 0 && frame.ip <= len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[frame.ip-1]
		}
		rerr.Trace = append(rerr.Trace, TraceFrame{Function: name, Line: line})
	}
	if len(rerr.Trace) > 0 {
		rerr.Line = rerr.Trace[0].Line
	}

	vm.resetStack()
	return rerr
}
