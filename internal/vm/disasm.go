package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleInstruction renders the single instruction at offset,
// without a trailing newline. Used by the execution tracer.
func DisassembleInstruction(chunk *Chunk, offset int) string {
	var sb strings.Builder
	disassembleInstruction(&sb, chunk, offset)
	return strings.TrimRight(sb.String(), "\n")
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])

	switch op {
	case OP_CONST, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL:
		return constantInstruction(sb, OpcodeNames[op], chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, OpcodeNames[op], chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, OpcodeNames[op], 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, OpcodeNames[op], -1, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, chunk, offset)

	default:
		if name, ok := OpcodeNames[op]; ok {
			sb.WriteString(name + "\n")
			return offset + 1
		}
		sb.WriteString(fmt.Sprintf("UNKNOWN %d\n", op))
		return offset + 1
	}
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	index := chunk.ReadConstantIndex(offset + 1)
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, index, chunk.Constants[index].Inspect()))
	return offset + 3
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, chunk.Code[offset+1]))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, offset+3+sign*jump))
	return offset + 3
}

func closureInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	index := chunk.ReadConstantIndex(offset + 1)
	fn := chunk.Constants[index].Obj.(*CompiledFunction)
	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", "CLOSURE", index, fn.Inspect()))
	offset += 3

	for i := 0; i < fn.UpvalueCount; i++ {
		kind := "upvalue"
		if chunk.Code[offset] == 1 {
			kind = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d      |                     %s %d\n", offset, kind, chunk.Code[offset+1]))
		offset += 2
	}
	return offset
}
