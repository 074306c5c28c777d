package vm

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// run is the fetch-decode-execute loop. It drives the current frame's
// instruction pointer until the top-level frame returns or a runtime
// error aborts execution.
func (vm *VM) run() error {
	for {
		if vm.trace {
			vm.traceInstruction()
		}

		op := Opcode(vm.readByte())

		switch op {
		case OP_CONST:
			vm.push(vm.readConstant())
		case OP_NIL:
			vm.push(NilVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))
		case OP_POP:
			vm.pop()

		case OP_GET_LOCAL:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.frame.base+slot])
		case OP_SET_LOCAL:
			slot := int(vm.readByte())
			vm.stack[vm.frame.base+slot] = vm.peek(0)

		case OP_GET_GLOBAL:
			name := vm.readConstant().AsString()
			value, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.push(value)
		case OP_DEFINE_GLOBAL:
			name := vm.readConstant().AsString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OP_SET_GLOBAL:
			name := vm.readConstant().AsString()
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.globals.Set(name, vm.peek(0))

		case OP_GET_UPVALUE:
			index := vm.readByte()
			vm.push(vm.frame.closure.Upvalues[index].Get(vm.stack))
		case OP_SET_UPVALUE:
			index := vm.readByte()
			vm.frame.closure.Upvalues[index].Set(vm.stack, vm.peek(0))

		case OP_EQ:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(a.Equals(b)))
		case OP_GT, OP_LT, OP_SUB, OP_MUL, OP_DIV:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}

		case OP_NOT:
			vm.push(BoolVal(vm.pop().IsFalsey()))
		case OP_NEG:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.push(NumberVal(-vm.pop().AsNumber()))

		case OP_PRINT:
			fmt.Fprintln(vm.out, vm.pop().Inspect())

		case OP_JUMP:
			offset := vm.readShort()
			vm.frame.ip += offset
		case OP_JUMP_IF_FALSE:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.frame.ip += offset
			}
		case OP_LOOP:
			offset := vm.readShort()
			vm.frame.ip -= offset

		case OP_CALL:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}

		case OP_CLOSURE:
			fn := vm.readConstant().Obj.(*CompiledFunction)
			closure := &ObjClosure{
				Function: fn,
				Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
			}
			vm.push(ObjVal(closure))
			for i := range closure.Upvalues {
				isLocal := vm.readByte() == 1
				index := int(vm.readByte())
				if isLocal {
					// A slot in the current frame.
					closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
				} else {
					// Already captured by the enclosing closure;
					// share its cell transitively.
					closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
				}
			}

		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(vm.frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				// Top-level return: discard the script closure.
				vm.pop()
				return nil
			}
			vm.sp = vm.frame.base
			vm.frame = &vm.frames[vm.frameCount-1]
			vm.push(result)

		default:
			return vm.runtimeError("unknown opcode %d", op)
		}
	}
}

/* Instruction decoding */

func (vm *VM) readByte() byte {
	b := vm.frame.closure.Function.Chunk.Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

func (vm *VM) readShort() int {
	chunk := vm.frame.closure.Function.Chunk
	value := int(chunk.Code[vm.frame.ip])<<8 | int(chunk.Code[vm.frame.ip+1])
	vm.frame.ip += 2
	return value
}

func (vm *VM) readConstant() Value {
	chunk := vm.frame.closure.Function.Chunk
	index := chunk.ReadConstantIndex(vm.frame.ip)
	vm.frame.ip += 2
	return chunk.Constants[index]
}

/* Operator helpers */

// add handles the one polymorphic operator: number addition or string
// concatenation. Concatenation results are interned so they unify
// with every other string of the same content.
func (vm *VM) add() error {
	a := vm.peek(1)
	b := vm.peek(0)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		vm.push(ObjVal(vm.interner.Intern(a.AsString().Chars + b.AsString().Chars)))
	default:
		return vm.runtimeError("operands must be two numbers or two strings")
	}
	return nil
}

func (vm *VM) binaryNumberOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_SUB:
		vm.push(NumberVal(a - b))
	case OP_MUL:
		vm.push(NumberVal(a * b))
	case OP_DIV:
		vm.push(NumberVal(a / b))
	case OP_GT:
		vm.push(BoolVal(a > b))
	case OP_LT:
		vm.push(BoolVal(a < b))
	}
	return nil
}

/* Tracing */

func (vm *VM) traceInstruction() {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		sb.WriteString("[ " + vm.stack[i].Inspect() + " ]")
	}
	logrus.Debug(sb.String())
	logrus.Debug(DisassembleInstruction(vm.frame.closure.Function.Chunk, vm.frame.ip))
}
